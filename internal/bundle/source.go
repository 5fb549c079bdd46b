// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Source fetches the current bundle from wherever the training step put it.
type Source interface {
	// Fetch reads and decodes the bundle. It returns an error wrapping
	// ErrNotFound when nothing exists at the source location.
	Fetch(ctx context.Context) (*Payload, error)

	// String describes the source for logs and status output.
	String() string
}

// SourceConfig selects and tunes a Source.
type SourceConfig struct {
	// Location is a file path, a file:// URL, an http(s):// URL, or
	// badger://<directory>.
	Location string

	// BadgerKey is the key holding the bundle in a badger store.
	BadgerKey string

	// HTTPTimeout bounds a single remote fetch.
	HTTPTimeout time.Duration

	// MaxBytes caps the size of a remote payload. Zero means 256 MiB.
	MaxBytes int64
}

// Open builds the Source described by cfg. Sources that hold resources
// (badger) implement io.Closer; callers should close them on shutdown.
func Open(cfg SourceConfig) (Source, error) {
	loc := strings.TrimSpace(cfg.Location)
	switch {
	case loc == "":
		return nil, errors.New("bundle location is empty")
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return NewHTTPSource(loc, HTTPSourceConfig{
			Timeout:  cfg.HTTPTimeout,
			MaxBytes: cfg.MaxBytes,
		}), nil
	case strings.HasPrefix(loc, "badger://"):
		dir := strings.TrimPrefix(loc, "badger://")
		if dir == "" {
			return nil, errors.New("badger location needs a directory")
		}
		return OpenBadgerSource(dir, cfg.BadgerKey)
	default:
		return NewFileSource(strings.TrimPrefix(loc, "file://")), nil
	}
}

// FileSource reads a bundle from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the bundle at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("read bundle file: %w", err)
	}

	return Decode(data)
}

// String implements Source.
func (s *FileSource) String() string {
	return "file://" + s.path
}

// Path returns the file path this source reads.
func (s *FileSource) Path() string {
	return s.path
}
