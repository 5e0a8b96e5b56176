package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// Compile-time assertion: *BadgerStore satisfies Store.
var _ Store = (*BadgerStore)(nil)

const genPointerKey = "meta:generation"

// BadgerConfig holds configuration for a BadgerDB-backed store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultBadgerConfig returns durable on-disk settings.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns settings for tests: no disk I/O, no fsync.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore implements Store on an embedded BadgerDB.
//
// Every data key lives under a generation prefix ("g<N>:"). ReplaceAll
// writes the new state under the next generation and then flips the single
// generation pointer key in one transaction, which is the atomic step:
// readers see either the old state or the new one, never a mix. Stale
// generations are pruned after the flip, best effort.
type BadgerStore struct {
	db *badger.DB

	mu  sync.RWMutex
	gen uint64
}

// NewBadgerStore opens (or creates) the store at the configured location.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	s := &BadgerStore{db: db}
	if err := s.loadGeneration(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BadgerStore) loadGeneration() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(genPointerKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			s.gen = 0
			return nil
		}
		if err != nil {
			return fmt.Errorf("badger: read generation: %w", err)
		}
		return item.Value(func(v []byte) error {
			gen, perr := strconv.ParseUint(string(v), 10, 64)
			if perr != nil {
				return fmt.Errorf("badger: parse generation %q: %w", v, perr)
			}
			s.gen = gen
			return nil
		})
	})
}

func (s *BadgerStore) dataKey(gen uint64, key string) []byte {
	return []byte("g" + strconv.FormatUint(gen, 10) + ":" + key)
}

func (s *BadgerStore) dataPrefix(gen uint64) []byte {
	return []byte("g" + strconv.FormatUint(gen, 10) + ":")
}

// Get returns the value for key in the current generation.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.dataKey(gen, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("badger get %s: %w", key, ErrKeyNotFound)
		}
		if err != nil {
			return fmt.Errorf("badger get %s: %w", key, err)
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put stores a single key/value pair in the current generation.
func (s *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.dataKey(gen, key), value)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from the current generation.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.dataKey(gen, key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// Scan visits every key with the given prefix in the current generation.
func (s *BadgerStore) Scan(_ context.Context, prefix string, fn func(key string, value []byte) error) error {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	genPrefix := s.dataPrefix(gen)
	full := append(append([]byte{}, genPrefix...), prefix...)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = full
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(genPrefix):])
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(key, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot returns a point-in-time copy of the current generation.
func (s *BadgerStore) Snapshot(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.Scan(ctx, "", func(key string, value []byte) error {
		out[key] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceAll writes entries under the next generation and flips the
// generation pointer. The flip is a single-key transaction, so the swap is
// all-or-nothing; failure leaves the current generation untouched and
// wraps ErrCommitConflict.
func (s *BadgerStore) ReplaceAll(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.gen + 1

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for key, value := range entries {
		if err := wb.Set(s.dataKey(next, key), value); err != nil {
			return fmt.Errorf("badger stage generation %d: %v: %w", next, err, ErrCommitConflict)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger stage generation %d: %v: %w", next, err, ErrCommitConflict)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(genPointerKey), []byte(strconv.FormatUint(next, 10)))
	})
	if err != nil {
		return fmt.Errorf("badger flip generation %d: %v: %w", next, err, ErrCommitConflict)
	}

	old := s.gen
	s.gen = next
	s.pruneGeneration(old)
	return nil
}

// pruneGeneration deletes the data of a superseded generation. Failures are
// ignored: stale keys are unreachable and the next replace retries nothing.
func (s *BadgerStore) pruneGeneration(gen uint64) {
	prefix := s.dataPrefix(gen)
	var keys [][]byte
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if len(keys) == 0 {
		return
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		_ = wb.Delete(k)
	}
	_ = wb.Flush()
}

// Close releases the underlying BadgerDB.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
