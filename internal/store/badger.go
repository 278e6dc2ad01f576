package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerKV keeps the documents in an embedded Badger database.
type BadgerKV struct {
	db    *badger.DB
	quota int64
}

// NewBadger opens (or creates) a Badger database in dir. An empty dir
// opens an in-memory database.
func NewBadger(dir string, quota int64) (*BadgerKV, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &BadgerKV{db: db, quota: quota}, nil
}

func (b *BadgerKV) Close() error {
	return b.db.Close()
}

func (b *BadgerKV) Get(_ context.Context, key string) (string, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (b *BadgerKV) Set(_ context.Context, key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if b.quota > 0 {
			others, err := usage(txn, key)
			if err != nil {
				return err
			}
			if overQuota(b.quota, others, key, value) {
				return fmt.Errorf("store: set %s (%d bytes): %w", key, len(value), ErrQuotaExceeded)
			}
		}
		return txn.Set([]byte(key), []byte(value))
	})
	return err
}

func (b *BadgerKV) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerKV) Size(_ context.Context) (int64, error) {
	var size int64
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		size, err = usage(txn, "")
		return err
	})
	return size, err
}

// usage sums the quota size of every entry except skip.
func usage(txn *badger.Txn, skip string) (int64, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var total int64
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		k := string(item.Key())
		if k == skip {
			continue
		}
		err := item.Value(func(val []byte) error {
			total += entrySize(k, string(val))
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
