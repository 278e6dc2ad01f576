package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JohanDevl/Exams-Viewer/internal/codec"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/favorites"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/resume"
	"github.com/JohanDevl/Exams-Viewer/internal/metrics"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

// Validator checks a raw stored document. It returns an error wrapping
// codec.ErrDecode or ErrStructural when the document must be discarded.
type Validator func(raw string) error

// Reset records a store the corruption guard deleted.
type Reset struct {
	Key    string `json:"key"`
	Store  string `json:"store"`
	Reason string `json:"reason"`
	// UserVisible is set for stores whose loss the user must be told about.
	UserVisible bool `json:"userVisible"`
}

type guardedStore struct {
	key         string
	name        string
	validate    Validator
	userVisible bool
}

var guardedStores = []guardedStore{
	{store.KeyStatistics, "Statistics", ValidateStatistics, true},
	{store.KeySettings, "Settings", ValidateSettings, false},
	{store.KeyFavorites, "Favorites", ValidateFavorites, false},
	{store.KeyResumePositions, "Resume Positions", ValidateResumePositions, false},
}

func parseJSON(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}
	return v, nil
}

// ValidateStatistics accepts an object with a session list or a current
// session, in the plain or the compact layout.
func ValidateStatistics(raw string) error {
	v, err := parseJSON(raw)
	if err != nil {
		return err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: statistics is %T, not an object", ErrStructural, v)
	}
	for _, k := range []string{"sessions", "currentSession", "s", "cs"} {
		if _, ok := obj[k]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: statistics has neither sessions nor a current session", ErrStructural)
}

// ValidateSettings accepts any JSON object (or null).
func ValidateSettings(raw string) error {
	v, err := parseJSON(raw)
	if err != nil {
		return err
	}
	if _, ok := v.(map[string]any); !ok && v != nil {
		return fmt.Errorf("%w: settings is %T, not an object", ErrStructural, v)
	}
	return nil
}

// ValidateFavorites accepts a document that decodes into the favorites model.
func ValidateFavorites(raw string) error {
	if _, err := parseJSON(raw); err != nil {
		return err
	}
	var d favorites.Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return fmt.Errorf("%w: favorites: %v", ErrStructural, err)
	}
	return nil
}

// ValidateResumePositions requires every entry to carry numeric
// questionIndex, questionNumber and timestamp fields.
func ValidateResumePositions(raw string) error {
	v, err := parseJSON(raw)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if !resume.WellFormed([]byte(raw)) {
		return fmt.Errorf("%w: invalid resume position entry", ErrStructural)
	}
	return nil
}

// ClearIfCorrupted deletes key when its stored document fails validate.
// It returns nil when the key is absent or valid.
func (g *Gateway) ClearIfCorrupted(ctx context.Context, key string, validate Validator) (*Reset, error) {
	raw, err := g.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read %s: %w", key, err)
	}

	verr := validate(raw)
	if verr == nil {
		return nil, nil
	}

	if err := g.kv.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("persistence: delete corrupted %s: %w", key, err)
	}
	metrics.CorruptedStoresCleared.WithLabelValues(key).Inc()

	reset := &Reset{Key: key, Store: key, Reason: verr.Error()}
	for _, gs := range guardedStores {
		if gs.key == key {
			reset.Store = gs.name
			reset.UserVisible = gs.userVisible
		}
	}
	if reset.UserVisible {
		g.logger.Warn("data validation failed, store reset", "store", reset.Store, "error", verr)
	} else {
		g.logger.Info("store reset to defaults due to corruption", "store", reset.Store, "error", verr)
	}
	return reset, nil
}

// CheckIntegrity runs the corruption guard over every application store.
func (g *Gateway) CheckIntegrity(ctx context.Context) ([]Reset, error) {
	var resets []Reset
	var errs []error
	for _, gs := range guardedStores {
		r, err := g.ClearIfCorrupted(ctx, gs.key, gs.validate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if r != nil {
			resets = append(resets, *r)
		}
	}
	return resets, errors.Join(errs...)
}
