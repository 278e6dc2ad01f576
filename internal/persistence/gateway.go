// Package persistence reads and writes the application documents in the
// key-value store. Parse and storage failures stay in this package: loads
// always return a usable document, and saves report quota trouble as a
// warning instead of losing the in-memory state.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/codec"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
	"github.com/JohanDevl/Exams-Viewer/internal/metrics"
	"github.com/JohanDevl/Exams-Viewer/internal/migrate"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

var (
	// ErrStructural marks a stored document that parses but has the wrong shape.
	ErrStructural = errors.New("persistence: stored document has an invalid structure")
	// ErrQuotaWarning is returned when a document could not be written even
	// after trimming. The caller keeps its in-memory state and should warn
	// the user.
	ErrQuotaWarning = errors.New("persistence: storage quota exceeded")
)

// Codecs accepted in Options.Codec.
const (
	CodecPlain   = "plain"
	CodecCompact = "compact"
)

// Load sources reported in LoadReport.Source.
const (
	SourceEmpty   = "empty"
	SourcePlain   = "plain"
	SourceCompact = "compact"
	SourceDefault = "default"
)

type Options struct {
	Codec               string
	MaxBytes            int
	TrimSessions        int
	QuotaRetainSessions int
	QuotaFloorSessions  int
	LoadMaxSessions     int
	// Resume positions back-off.
	ResumeTrimPositions  int
	ResumeQuotaPositions int
}

func DefaultOptions() Options {
	return Options{
		Codec:                CodecPlain,
		MaxBytes:             4_500_000,
		TrimSessions:         50,
		QuotaRetainSessions:  20,
		QuotaFloorSessions:   5,
		LoadMaxSessions:      100,
		ResumeTrimPositions:  10,
		ResumeQuotaPositions: 5,
	}
}

type Gateway struct {
	kv     store.KV
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(kv store.KV, opts Options, logger *slog.Logger) *Gateway {
	return &Gateway{kv: kv, opts: opts, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for migration defaults and cleanup.
func (g *Gateway) WithClock(now func() time.Time) *Gateway {
	g.now = now
	return g
}

// SaveResult describes what a save had to do to fit the store.
type SaveResult struct {
	Bytes   int    `json:"bytes"`
	Trimmed int    `json:"trimmed"`
	Warning string `json:"warning,omitempty"`
}

func (g *Gateway) encodeStatistics(st *statistics.Statistics) (string, error) {
	if g.opts.Codec == CodecCompact {
		return codec.Encode(st)
	}
	raw, err := json.Marshal(st)
	return string(raw), err
}

// SaveStatistics writes the statistics document. Oversized documents are
// trimmed to the most recent sessions before writing; a quota failure is
// retried with fewer sessions. Trimming also applies to st itself.
func (g *Gateway) SaveStatistics(ctx context.Context, st *statistics.Statistics) (SaveResult, error) {
	var res SaveResult

	data, err := g.encodeStatistics(st)
	if err != nil {
		metrics.StatisticsSaves.WithLabelValues("error").Inc()
		return res, fmt.Errorf("persistence: encode statistics: %w", err)
	}

	if len(data) > g.opts.MaxBytes {
		g.logger.Warn("statistics document is large, trimming history",
			"bytes", len(data),
			"keep", g.opts.TrimSessions,
		)
		if n := st.Trim(g.opts.TrimSessions); n > 0 {
			res.Trimmed += n
			metrics.SessionsTrimmed.Add(float64(n))
			if data, err = g.encodeStatistics(st); err != nil {
				return res, fmt.Errorf("persistence: encode statistics: %w", err)
			}
		}
	}

	err = g.kv.Set(ctx, store.KeyStatistics, data)
	if err == nil {
		res.Bytes = len(data)
		metrics.StatisticsBytes.Set(float64(len(data)))
		if res.Trimmed > 0 {
			metrics.StatisticsSaves.WithLabelValues("trimmed").Inc()
		} else {
			metrics.StatisticsSaves.WithLabelValues("ok").Inc()
		}
		return res, nil
	}
	if !errors.Is(err, store.ErrQuotaExceeded) {
		metrics.StatisticsSaves.WithLabelValues("error").Inc()
		return res, fmt.Errorf("persistence: save statistics: %w", err)
	}

	for _, keep := range []int{g.opts.QuotaRetainSessions, g.opts.QuotaFloorSessions} {
		g.logger.Warn("storage quota exceeded, clearing old statistics", "keep", keep)
		n := st.Trim(keep)
		res.Trimmed += n
		metrics.SessionsTrimmed.Add(float64(n))

		if data, err = g.encodeStatistics(st); err != nil {
			return res, fmt.Errorf("persistence: encode statistics: %w", err)
		}
		if err = g.kv.Set(ctx, store.KeyStatistics, data); err == nil {
			res.Bytes = len(data)
			res.Warning = "Storage limit reached. Cleared old statistics to free space."
			metrics.StatisticsBytes.Set(float64(len(data)))
			metrics.StatisticsSaves.WithLabelValues("quota_retry").Inc()
			return res, nil
		}
		if !errors.Is(err, store.ErrQuotaExceeded) {
			g.logger.Error("failed to save statistics after cleanup", "error", err)
			metrics.StatisticsSaves.WithLabelValues("error").Inc()
			return res, fmt.Errorf("persistence: save statistics: %w", err)
		}
	}

	g.logger.Error("failed to save statistics even after cleanup", "error", err)
	metrics.StatisticsSaves.WithLabelValues("quota_warning").Inc()
	res.Warning = "Unable to save statistics due to storage constraints."
	return res, fmt.Errorf("%w: %v", ErrQuotaWarning, err)
}

// LoadReport describes where a loaded document came from and what was
// repaired on the way.
type LoadReport struct {
	Source    string         `json:"source"`
	Migration migrate.Report `json:"migration"`
	Repaired  bool           `json:"repaired"`
	Trimmed   int            `json:"trimmed"`
	Resaved   bool           `json:"resaved"`
	Error     string         `json:"error,omitempty"`
}

// LoadStatistics reads the statistics document in any stored generation,
// migrates it and repairs implausible counters. It never fails: unreadable
// data yields the empty default document. A document that needed changes
// is written back in the current format.
func (g *Gateway) LoadStatistics(ctx context.Context) (*statistics.Statistics, LoadReport) {
	var rep LoadReport

	raw, err := g.kv.Get(ctx, store.KeyStatistics)
	if errors.Is(err, store.ErrNotFound) {
		rep.Source = SourceEmpty
		metrics.StatisticsLoads.WithLabelValues(rep.Source).Inc()
		return statistics.Default(), rep
	}
	if err != nil {
		g.logger.Error("failed to read statistics", "error", err)
		return g.defaultStatistics(&rep, err), rep
	}

	doc, source, err := decodeStatistics(raw)
	if err != nil {
		g.logger.Error("statistics could not be decoded, using defaults", "error", err)
		return g.defaultStatistics(&rep, err), rep
	}
	rep.Source = source

	st, mrep, err := migrate.Statistics(doc, g.now())
	rep.Migration = mrep
	if err != nil {
		g.logger.Error("statistics document is not an object, using defaults", "error", err)
		return g.defaultStatistics(&rep, err), rep
	}
	for _, p := range mrep.Problems {
		g.logger.Warn("statistics migration dropped data", "problem", p)
	}

	repaired := st.RepairCounters()
	rep.Repaired = repaired || mrep.RecountedSessions > 0
	if rep.Repaired {
		g.logger.Info("recalculated corrupted session counters")
	}
	if n := st.Trim(g.opts.LoadMaxSessions); n > 0 {
		rep.Trimmed = n
		metrics.SessionsTrimmed.Add(float64(n))
		g.logger.Info("cleaned up old statistics", "kept", g.opts.LoadMaxSessions, "removed", n)
	}
	metrics.StatisticsLoads.WithLabelValues(source).Inc()

	stale := source == SourceCompact && g.opts.Codec != CodecCompact
	if stale || mrep.Changed() || rep.Repaired || rep.Trimmed > 0 {
		if _, err := g.SaveStatistics(ctx, st); err != nil {
			g.logger.Warn("failed to save migrated statistics", "error", err)
		} else {
			rep.Resaved = true
		}
	}

	return st, rep
}

func (g *Gateway) defaultStatistics(rep *LoadReport, err error) *statistics.Statistics {
	rep.Source = SourceDefault
	rep.Error = err.Error()
	metrics.StatisticsLoads.WithLabelValues(SourceDefault).Inc()
	return statistics.Default()
}

// decodeStatistics tries the plain format first. A JSON object that only
// carries the short top-level keys of the compact codec is decoded with
// it, as is any payload plain parsing rejects.
func decodeStatistics(raw string) (any, string, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err == nil {
		if obj, ok := doc.(map[string]any); ok && looksCompact(obj) {
			expanded, err := codec.Decode(raw)
			return expanded, SourceCompact, err
		}
		return doc, SourcePlain, nil
	}
	doc, err := codec.Decode(raw)
	return doc, SourceCompact, err
}

func looksCompact(obj map[string]any) bool {
	_, sessions := obj["sessions"]
	_, current := obj["currentSession"]
	_, s := obj["s"]
	_, cs := obj["cs"]
	return !sessions && !current && (s || cs)
}

// ResetStatistics deletes the stored statistics.
func (g *Gateway) ResetStatistics(ctx context.Context) error {
	if err := g.kv.Delete(ctx, store.KeyStatistics); err != nil {
		return fmt.Errorf("persistence: reset statistics: %w", err)
	}
	g.logger.Info("statistics reset")
	return nil
}
