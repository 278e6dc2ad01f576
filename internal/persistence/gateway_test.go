package persistence_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanDevl/Exams-Viewer/internal/codec"
	"github.com/JohanDevl/Exams-Viewer/internal/domain/statistics"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

var t0 = time.UnixMilli(1750000000000)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// flakyKV rejects the next failures writes with ErrQuotaExceeded, then
// every later write with broken when it is set.
type flakyKV struct {
	*store.MemoryKV
	failures int
	broken   error
	sets     int
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.sets++
	if f.failures > 0 {
		f.failures--
		return store.ErrQuotaExceeded
	}
	if f.broken != nil {
		return f.broken
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func newGateway(kv store.KV, opts persistence.Options) *persistence.Gateway {
	return persistence.New(kv, opts, discardLogger()).WithClock(func() time.Time { return t0 })
}

// historyOf builds statistics with n ended sessions of one answered question.
func historyOf(t *testing.T, n int) *statistics.Statistics {
	t.Helper()
	st := statistics.Default()
	for i := 0; i < n; i++ {
		start := t0.Add(time.Duration(i) * time.Hour)
		st.StartSession("AZ-900", "Azure Fundamentals", false, start)
		_, err := st.RecordAttempt(1, []string{"A"}, []string{"A"}, true, 5, false, start.Add(time.Minute))
		require.NoError(t, err)
		_, err = st.EndSession(start.Add(10 * time.Minute))
		require.NoError(t, err)
	}
	return st
}

func TestSaveStatistics_TrimsOversizedDocument(t *testing.T) {
	tests := []struct {
		name     string
		sessions int
		want     int
	}{
		{"more than the trim target", 120, 50},
		{"fewer than the trim target", 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemory(0)
			opts := persistence.DefaultOptions()
			opts.MaxBytes = 1000
			gw := newGateway(kv, opts)

			st := historyOf(t, tt.sessions)
			res, err := gw.SaveStatistics(ctx, st)
			require.NoError(t, err)

			assert.Len(t, st.Sessions, tt.want)
			assert.Equal(t, tt.sessions-tt.want, res.Trimmed)
			assert.Equal(t, tt.want, st.TotalStats.ExamStats["AZ-900"].Sessions)

			raw, err := kv.Get(ctx, store.KeyStatistics)
			require.NoError(t, err)
			var stored statistics.Statistics
			require.NoError(t, json.Unmarshal([]byte(raw), &stored))
			assert.Len(t, stored.Sessions, tt.want)
			// The newest sessions survive.
			assert.Equal(t, st.Sessions[len(st.Sessions)-1].ID, stored.Sessions[len(stored.Sessions)-1].ID)
		})
	}
}

func TestSaveStatistics_QuotaBackoff(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     int
		wantErr  bool
	}{
		{"first retry fits", 1, 20, false},
		{"second retry fits", 2, 5, false},
		{"nothing fits", 3, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := &flakyKV{MemoryKV: store.NewMemory(0), failures: tt.failures}
			gw := newGateway(kv, persistence.DefaultOptions())

			st := historyOf(t, 40)
			res, err := gw.SaveStatistics(ctx, st)

			assert.Len(t, st.Sessions, tt.want)
			assert.NotEmpty(t, res.Warning)
			if tt.wantErr {
				assert.ErrorIs(t, err, persistence.ErrQuotaWarning)
				_, getErr := kv.Get(ctx, store.KeyStatistics)
				assert.ErrorIs(t, getErr, store.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 40-tt.want, res.Trimmed)
			assert.Equal(t, tt.failures+1, kv.sets)
		})
	}
}

func TestSaveStatistics_StorageFailureDuringQuotaRetry(t *testing.T) {
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")
	kv := &flakyKV{MemoryKV: store.NewMemory(0), failures: 1, broken: diskErr}
	gw := newGateway(kv, persistence.DefaultOptions())

	_, err := gw.SaveStatistics(ctx, historyOf(t, 40))

	require.Error(t, err)
	assert.ErrorIs(t, err, diskErr)
	assert.NotErrorIs(t, err, persistence.ErrQuotaWarning)
	assert.Equal(t, 2, kv.sets)
}

func TestSaveStatistics_CompactCodec(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	opts := persistence.DefaultOptions()
	opts.Codec = persistence.CodecCompact
	gw := newGateway(kv, opts)

	_, err := gw.SaveStatistics(ctx, historyOf(t, 3))
	require.NoError(t, err)

	raw, err := kv.Get(ctx, store.KeyStatistics)
	require.NoError(t, err)
	assert.NotContains(t, raw, `"sessions"`)

	st, rep := gw.LoadStatistics(ctx)
	assert.Equal(t, persistence.SourceCompact, rep.Source)
	assert.False(t, rep.Resaved)
	assert.Len(t, st.Sessions, 3)
}

func TestLoadStatistics_Missing(t *testing.T) {
	gw := newGateway(store.NewMemory(0), persistence.DefaultOptions())

	st, rep := gw.LoadStatistics(context.Background())

	assert.Equal(t, persistence.SourceEmpty, rep.Source)
	assert.Empty(t, st.Sessions)
	assert.Nil(t, st.CurrentSession)
}

func TestLoadStatistics_UnreadableFallsBackToDefaults(t *testing.T) {
	for _, raw := range []string{"{not json", "[1, 2, 3]", `"text"`} {
		t.Run(raw, func(t *testing.T) {
			ctx := context.Background()
			kv := store.NewMemory(0)
			require.NoError(t, kv.Set(ctx, store.KeyStatistics, raw))
			gw := newGateway(kv, persistence.DefaultOptions())

			st, rep := gw.LoadStatistics(ctx)

			assert.Equal(t, persistence.SourceDefault, rep.Source)
			assert.NotEmpty(t, rep.Error)
			assert.Equal(t, statistics.SchemaVersion, st.SchemaVersion)
			assert.Empty(t, st.Sessions)
			assert.Zero(t, st.TotalStats.TotalQuestions)
		})
	}
}

func TestLoadStatistics_CompactResavedAsPlain(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)

	compact, err := codec.Encode(historyOf(t, 2))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, compact))

	gw := newGateway(kv, persistence.DefaultOptions())
	st, rep := gw.LoadStatistics(ctx)

	assert.Equal(t, persistence.SourceCompact, rep.Source)
	assert.True(t, rep.Resaved)
	require.Len(t, st.Sessions, 2)
	q := st.Sessions[0].Question(1)
	require.NotNil(t, q)
	assert.Equal(t, 5, q.TimeSpent)
	assert.Len(t, q.Attempts, 1)

	raw, err := kv.Get(ctx, store.KeyStatistics)
	require.NoError(t, err)
	assert.True(t, strings.Contains(raw, `"sessions"`), "expected plain layout, got %s", raw)

	// A second load reads the plain document without writing it again.
	_, rep = gw.LoadStatistics(ctx)
	assert.Equal(t, persistence.SourcePlain, rep.Source)
	assert.False(t, rep.Resaved)
}

func TestLoadStatistics_TrimsLongHistory(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	opts := persistence.DefaultOptions()
	opts.LoadMaxSessions = 10
	gw := newGateway(kv, opts)

	raw, err := json.Marshal(historyOf(t, 15))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, string(raw)))

	st, rep := gw.LoadStatistics(ctx)

	assert.Equal(t, 5, rep.Trimmed)
	assert.True(t, rep.Resaved)
	assert.Len(t, st.Sessions, 10)
	assert.Equal(t, 10, st.TotalStats.ExamStats["AZ-900"].Sessions)
}

func TestLoadStatistics_RepairsInflatedCounters(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	gw := newGateway(kv, persistence.DefaultOptions())

	st := historyOf(t, 1)
	st.Sessions[0].TotalQuestions = 500
	st.Sessions[0].CorrectAnswers = 500
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, string(raw)))

	loaded, rep := gw.LoadStatistics(ctx)

	assert.True(t, rep.Repaired)
	assert.Equal(t, 1, loaded.Sessions[0].TotalQuestions)
	assert.Equal(t, 1, loaded.Sessions[0].CorrectAnswers)
	assert.Equal(t, 1, loaded.TotalStats.TotalQuestions)
}

func TestLoadStatistics_RecountsMigratedCounters(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	gw := newGateway(kv, persistence.DefaultOptions())

	st := historyOf(t, 1)
	st.Sessions[0].TotalQuestions = 5
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, string(raw)))

	loaded, rep := gw.LoadStatistics(ctx)

	s := loaded.Sessions[0]
	assert.True(t, rep.Repaired)
	assert.True(t, rep.Resaved)
	assert.Equal(t, s.TotalQuestions, s.CorrectAnswers+s.IncorrectAnswers+s.PreviewAnswers)
	assert.Equal(t, 1, loaded.TotalStats.TotalQuestions)
}

func TestResetStatistics(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	gw := newGateway(kv, persistence.DefaultOptions())
	_, err := gw.SaveStatistics(ctx, historyOf(t, 1))
	require.NoError(t, err)

	require.NoError(t, gw.ResetStatistics(ctx))

	st, rep := gw.LoadStatistics(ctx)
	assert.Equal(t, persistence.SourceEmpty, rep.Source)
	assert.Empty(t, st.Sessions)
}
