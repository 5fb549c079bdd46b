// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/coursemate/internal/bundle"
)

// fakeSource serves whatever bundle is set, counting fetches. A non-nil gate
// blocks every fetch until it is closed.
type fakeSource struct {
	mu     sync.Mutex
	bundle *bundle.Bundle
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (f *fakeSource) set(b *bundle.Bundle, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundle, f.err = b, err
}

func (f *fakeSource) Fetch(ctx context.Context) (*bundle.Payload, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &bundle.Payload{Bundle: f.bundle, Checksum: "abc123"}, nil
}

func (f *fakeSource) String() string { return "fake://bundle" }

func newTestStore(src bundle.Source) *Store {
	return NewStore(src, StoreConfig{LoadTimeout: 5 * time.Second}, zerolog.Nop())
}

func TestStore_LoadPublishes(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle()}
	store := newTestStore(src)

	assert.False(t, store.IsLoaded())
	assert.Nil(t, store.Snapshot())

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, store.IsLoaded())
	assert.Same(t, snap, store.Snapshot())
	assert.Equal(t, int64(1), snap.Version())
	assert.Equal(t, "abc123", snap.Checksum())
	assert.Equal(t, "fake://bundle", snap.Source())
	assert.False(t, snap.LoadedAt().IsZero())
}

func TestStore_ReloadReplacesAndBumpsVersion(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle()}
	store := newTestStore(src)

	first, err := store.Load(context.Background())
	require.NoError(t, err)

	b := exampleBundle()
	b.Engagement.Items[1] = "y2"
	src.set(b, nil)

	second, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version())
	assert.Equal(t, "y2", store.Snapshot().ItemAt(1))

	// The old snapshot is untouched.
	assert.Equal(t, "y", first.ItemAt(1))
}

func TestStore_FailedReloadKeepsPrevious(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle()}
	store := newTestStore(src)

	first, err := store.Load(context.Background())
	require.NoError(t, err)

	bad := exampleBundle()
	bad.Similarity = nil
	src.set(bad, nil)

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, ErrModelLoad)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ReasonMissingTable, le.Reason)
	assert.Equal(t, "fake://bundle", le.Source)

	assert.Same(t, first, store.Snapshot())

	st := store.Status()
	assert.True(t, st.Loaded)
	assert.Equal(t, int64(1), st.Version)
	assert.Equal(t, int64(1), st.Loads)
	assert.Equal(t, int64(1), st.Failures)
	assert.Contains(t, st.LastError, "similarity table is absent")
}

func TestStore_SourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"not found", fmt.Errorf("%w: /data/model.json", bundle.ErrNotFound), ReasonNotFound},
		{"unreadable", errors.New("permission denied"), ReasonUnreadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(&fakeSource{err: tt.err})

			_, err := store.EnsureLoaded(context.Background())
			require.ErrorIs(t, err, ErrModelLoad)
			require.ErrorIs(t, err, tt.err)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.reason, le.Reason)
			assert.False(t, store.IsLoaded())
		})
	}
}

func TestStore_EnsureLoadedLoadsExactlyOnce(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle(), gate: make(chan struct{})}
	store := newTestStore(src)

	const callers = 32
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = store.EnsureLoaded(context.Background())
		}(i)
	}

	// Give the callers time to pile up on the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i])
	}
	assert.Equal(t, int32(1), src.calls.Load())

	// Already loaded: no further fetches.
	_, err := store.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStore_CallerCancelDoesNotAbortSharedLoad(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle(), gate: make(chan struct{})}
	store := newTestStore(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := store.EnsureLoaded(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(src.gate)
	snap, err := store.EnsureLoaded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version())
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestStore_LoadDuringLoadReadsAgain(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle(), gate: make(chan struct{})}
	store := newTestStore(src)

	first := make(chan *Snapshot, 1)
	go func() {
		snap, err := store.Load(context.Background())
		assert.NoError(t, err)
		first <- snap
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan *Snapshot, 1)
	go func() {
		snap, err := store.Load(context.Background())
		assert.NoError(t, err)
		second <- snap
	}()
	time.Sleep(20 * time.Millisecond)
	close(src.gate)

	a, b := <-first, <-second
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, int64(1), a.Version())
	assert.Equal(t, int64(2), b.Version())
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Same(t, b, store.Snapshot())
}

func TestStore_LoadAfterEnsureLoadedFetches(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle()}
	store := newTestStore(src)

	_, err := store.EnsureLoaded(context.Background())
	require.NoError(t, err)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestStore_OnSwap(t *testing.T) {
	src := &fakeSource{bundle: exampleBundle()}
	store := newTestStore(src)

	var versions []int64
	store.OnSwap(func(s *Snapshot) { versions = append(versions, s.Version()) })

	_, err := store.Load(context.Background())
	require.NoError(t, err)

	src.set(nil, errors.New("gone"))
	_, err = store.Load(context.Background())
	require.Error(t, err)

	src.set(exampleBundle(), nil)
	_, err = store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, versions)
}

func TestStore_StatusEmpty(t *testing.T) {
	store := newTestStore(&fakeSource{bundle: exampleBundle()})
	st := store.Status()
	assert.False(t, st.Loaded)
	assert.Nil(t, st.LoadedAt)
	assert.Nil(t, st.LastAttemptAt)
	assert.Equal(t, "fake://bundle", st.Source)
	assert.Contains(t, store.String(), "empty")
}

func TestStore_FileSourceRoundTrip(t *testing.T) {
	b := exampleBundle()
	b.TrainedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	data, err := bundle.Encode(b, true)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json.gz")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	store := newTestStore(bundle.NewFileSource(path))
	_, err = store.EnsureLoaded(context.Background())
	require.NoError(t, err)

	st := store.Status()
	require.NotNil(t, st.TrainedAt)
	assert.True(t, st.TrainedAt.Equal(b.TrainedAt))
	assert.Len(t, st.Checksum, 64)
	assert.Equal(t, 3, st.Users)
	assert.Contains(t, store.String(), "version 1")
}
