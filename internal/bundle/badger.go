// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package bundle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// DefaultBadgerKey is the key bundles are stored under when none is configured.
const DefaultBadgerKey = "bundle:current"

// ErrSourceClosed is returned by a BadgerSource after Close.
var ErrSourceClosed = errors.New("bundle source closed")

// BadgerSource stores and serves a bundle from an embedded BadgerDB. The
// import command writes to it; the server reads from it.
type BadgerSource struct {
	db     *badger.DB
	key    []byte
	dir    string
	owned  bool
	closed bool
	mu     sync.RWMutex
}

// OpenBadgerSource opens (or creates) the BadgerDB at dir.
func OpenBadgerSource(dir, key string) (*BadgerSource, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for bundles: %w", err)
	}

	src := NewBadgerSourceFromDB(db, key)
	src.dir = dir
	src.owned = true
	return src, nil
}

// NewBadgerSourceFromDB wraps an existing database. Close does not close db.
func NewBadgerSourceFromDB(db *badger.DB, key string) *BadgerSource {
	if key == "" {
		key = DefaultBadgerKey
	}
	return &BadgerSource{
		db:  db,
		key: []byte(key),
	}
}

// Fetch implements Source.
func (s *BadgerSource) Fetch(ctx context.Context) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSourceClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: key %q", ErrNotFound, s.key)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read bundle from badger: %w", err)
	}

	return Decode(data)
}

// Put stores the encoded bundle, replacing any previous one.
func (s *BadgerSource) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSourceClosed
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
	if err != nil {
		return fmt.Errorf("write bundle to badger: %w", err)
	}
	return nil
}

// String implements Source.
func (s *BadgerSource) String() string {
	return fmt.Sprintf("badger://%s#%s", s.dir, s.key)
}

// Close releases the database if this source opened it.
func (s *BadgerSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.db.Close()
	}
	return nil
}
