// Package store provides the quota-limited key-value storage the
// persistence layer writes its documents to.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Keys of the documents kept by the application.
const (
	KeyStatistics      = "examViewerStatistics"
	KeySettings        = "examViewerSettings"
	KeyFavorites       = "examViewerFavorites"
	KeyResumePositions = "examViewerResumePositions"
)

// KV is a string key-value store with an optional total-size quota.
// Set fails with ErrQuotaExceeded, leaving the previous value in place,
// when the write would take the store over its quota.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Size is the number of bytes counted against the quota.
	Size(ctx context.Context) (int64, error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Open creates the store for a driver. quota <= 0 disables the limit.
func Open(driver, path string, quota int64) (KV, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLite(path, quota)
	case DriverBadger:
		return NewBadger(path, quota)
	case DriverMemory:
		return NewMemory(quota), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

// entrySize is what one entry counts against the quota.
func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

func overQuota(quota, others int64, key, value string) bool {
	return quota > 0 && others+entrySize(key, value) > quota
}
