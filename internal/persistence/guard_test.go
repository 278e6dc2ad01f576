package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanDevl/Exams-Viewer/internal/codec"
	"github.com/JohanDevl/Exams-Viewer/internal/persistence"
	"github.com/JohanDevl/Exams-Viewer/internal/store"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate persistence.Validator
		raw      string
		wantErr  error
	}{
		{"statistics plain", persistence.ValidateStatistics, `{"sessions": [], "currentSession": null}`, nil},
		{"statistics compact", persistence.ValidateStatistics, `{"s": [], "cs": "_N"}`, nil},
		{"statistics not json", persistence.ValidateStatistics, `{"sessions":`, codec.ErrDecode},
		{"statistics array", persistence.ValidateStatistics, `[]`, persistence.ErrStructural},
		{"statistics missing sessions", persistence.ValidateStatistics, `{"totalStats": {}}`, persistence.ErrStructural},
		{"settings object", persistence.ValidateSettings, `{"theme": "dark"}`, nil},
		{"settings null", persistence.ValidateSettings, `null`, nil},
		{"settings number", persistence.ValidateSettings, `3`, persistence.ErrStructural},
		{"favorites ok", persistence.ValidateFavorites, `{"favorites": {"AZ-900": {"1": {"isFavorite": true}}}}`, nil},
		{"favorites wrong shape", persistence.ValidateFavorites, `{"favorites": []}`, persistence.ErrStructural},
		{"resume ok", persistence.ValidateResumePositions, `{"AZ-900": {"questionIndex": 0, "questionNumber": 1, "timestamp": 1}}`, nil},
		{"resume bad entry", persistence.ValidateResumePositions, `{"AZ-900": {"questionIndex": "0", "questionNumber": 1, "timestamp": 1}}`, persistence.ErrStructural},
		{"resume not json", persistence.ValidateResumePositions, `nope`, codec.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.raw)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestCheckIntegrity(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, `{"sessions": [`))
	require.NoError(t, kv.Set(ctx, store.KeySettings, `{"theme": "dark"}`))
	require.NoError(t, kv.Set(ctx, store.KeyFavorites, `[1, 2]`))
	gw := newGateway(kv, persistence.DefaultOptions())

	resets, err := gw.CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, resets, 2)

	assert.Equal(t, store.KeyStatistics, resets[0].Key)
	assert.Equal(t, "Statistics", resets[0].Store)
	assert.True(t, resets[0].UserVisible)
	assert.Equal(t, "Favorites", resets[1].Store)
	assert.False(t, resets[1].UserVisible)

	_, err = kv.Get(ctx, store.KeyStatistics)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = kv.Get(ctx, store.KeyFavorites)
	assert.ErrorIs(t, err, store.ErrNotFound)
	settings, err := kv.Get(ctx, store.KeySettings)
	require.NoError(t, err)
	assert.Equal(t, `{"theme": "dark"}`, settings)

	// Nothing left to clear.
	resets, err = gw.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, resets)
}

func TestClearIfCorrupted_ValidDocumentKept(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory(0)
	require.NoError(t, kv.Set(ctx, store.KeyStatistics, `{"sessions": []}`))
	gw := newGateway(kv, persistence.DefaultOptions())

	reset, err := gw.ClearIfCorrupted(ctx, store.KeyStatistics, persistence.ValidateStatistics)
	require.NoError(t, err)
	assert.Nil(t, reset)

	_, err = kv.Get(ctx, store.KeyStatistics)
	assert.NoError(t, err)
}
