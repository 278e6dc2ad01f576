package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/favorites"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/resume"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

// LoadFavorites reads the favorites document and repairs data written by
// older releases. Unreadable data yields the default document.
func (g *Gateway) LoadFavorites(ctx context.Context) *favorites.Data {
	raw, err := g.kv.Get(ctx, store.KeyFavorites)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.logger.Error("failed to read favorites", "error", err)
		}
		return favorites.Default()
	}

	var d favorites.Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		g.logger.Error("error loading favorites, using defaults", "error", err)
		return favorites.Default()
	}

	if d.Cleanup() {
		if err := g.SaveFavorites(ctx, &d); err != nil {
			g.logger.Warn("failed to save cleaned favorites", "error", err)
		}
	}
	return &d
}

func (g *Gateway) SaveFavorites(ctx context.Context, d *favorites.Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("persistence: encode favorites: %w", err)
	}
	if err := g.kv.Set(ctx, store.KeyFavorites, string(raw)); err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return fmt.Errorf("%w: %v", ErrQuotaWarning, err)
		}
		return fmt.Errorf("persistence: save favorites: %w", err)
	}
	return nil
}

func (g *Gateway) ResetFavorites(ctx context.Context) error {
	if err := g.kv.Delete(ctx, store.KeyFavorites); err != nil {
		return fmt.Errorf("persistence: reset favorites: %w", err)
	}
	g.logger.Info("favorites reset")
	return nil
}

// LoadResumePositions reads the saved positions, dropping malformed,
// expired and out-of-bounds entries. A document that is not an object is
// deleted.
func (g *Gateway) LoadResumePositions(ctx context.Context) resume.Positions {
	raw, err := g.kv.Get(ctx, store.KeyResumePositions)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.logger.Error("failed to read resume positions", "error", err)
		}
		return resume.Positions{}
	}

	positions, dropped, err := resume.Decode([]byte(raw))
	if err != nil {
		g.logger.Error("invalid resume positions data structure, resetting", "error", err)
		if err := g.kv.Delete(ctx, store.KeyResumePositions); err != nil {
			g.logger.Error("failed to clear corrupted resume positions", "error", err)
		}
		return resume.Positions{}
	}

	removed := append(dropped, positions.Cleanup(g.now())...)
	if len(removed) > 0 {
		g.logger.Info("cleaned resume positions", "exams", removed)
		if _, err := g.SaveResumePositions(ctx, positions); err != nil {
			g.logger.Warn("failed to save cleaned resume positions", "error", err)
		}
	}
	return positions
}

// SaveResumePositions writes the positions, keeping only the most recent
// ones when the document is too large or the quota is exceeded.
func (g *Gateway) SaveResumePositions(ctx context.Context, p resume.Positions) (SaveResult, error) {
	var res SaveResult

	raw, err := json.Marshal(p)
	if err != nil {
		return res, fmt.Errorf("persistence: encode resume positions: %w", err)
	}

	if len(raw) > g.opts.MaxBytes {
		res.Trimmed = p.KeepRecent(g.opts.ResumeTrimPositions)
		res.Warning = fmt.Sprintf("Resume positions storage limit reached. Kept only the %d most recent positions.", g.opts.ResumeTrimPositions)
		if raw, err = json.Marshal(p); err != nil {
			return res, fmt.Errorf("persistence: encode resume positions: %w", err)
		}
	}

	err = g.kv.Set(ctx, store.KeyResumePositions, string(raw))
	if err == nil {
		res.Bytes = len(raw)
		return res, nil
	}
	if !errors.Is(err, store.ErrQuotaExceeded) {
		return res, fmt.Errorf("persistence: save resume positions: %w", err)
	}

	res.Trimmed += p.KeepRecent(g.opts.ResumeQuotaPositions)
	if raw, err = json.Marshal(p); err != nil {
		return res, fmt.Errorf("persistence: encode resume positions: %w", err)
	}
	if err = g.kv.Set(ctx, store.KeyResumePositions, string(raw)); err != nil {
		g.logger.Error("failed to save resume positions even after cleanup", "error", err)
		res.Warning = "Unable to save resume positions due to storage constraints."
		return res, fmt.Errorf("%w: %v", ErrQuotaWarning, err)
	}
	res.Bytes = len(raw)
	res.Warning = fmt.Sprintf("Storage quota exceeded. Kept only the %d most recent resume positions.", g.opts.ResumeQuotaPositions)
	return res, nil
}

func (g *Gateway) ResetResumePositions(ctx context.Context) error {
	if err := g.kv.Delete(ctx, store.KeyResumePositions); err != nil {
		return fmt.Errorf("persistence: reset resume positions: %w", err)
	}
	g.logger.Info("resume positions reset")
	return nil
}
