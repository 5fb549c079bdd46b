// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Package bundle defines the persisted model bundle and the sources it can be
// fetched from.
//
// A bundle holds the two precomputed tables produced by the offline training
// step: the user-item engagement table and the user-user similarity table.
// Bundles are JSON documents, optionally gzip-compressed. Compression is
// detected from the payload, not from the file name.
//
// # Schema
//
//	{
//	  "schema_version": 1,
//	  "trained_at": "2026-01-01T00:00:00Z",
//	  "engagement": {"users": ["u1"], "items": ["quiz-1"], "scores": [[1.0]]},
//	  "similarity": {"users": ["u1"], "scores": [[1.0]]}
//	}
//
// Engagement scores may be null; consumers treat null as zero. Structural
// validation (shapes, user sets, symmetry) is the model package's job.
package bundle

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
)

// SchemaVersion is the only bundle schema version this build understands.
const SchemaVersion = 1

// ErrNotFound is returned by a Source when no bundle exists at its location.
var ErrNotFound = errors.New("bundle not found")

// Bundle is the persisted model artifact.
type Bundle struct {
	// SchemaVersion must equal SchemaVersion.
	SchemaVersion int `json:"schema_version"`

	// TrainedAt is when the offline step produced the tables.
	TrainedAt time.Time `json:"trained_at,omitempty"`

	// Engagement is the user x item engagement table.
	Engagement *EngagementTable `json:"engagement"`

	// Similarity is the square user x user similarity table.
	Similarity *SimilarityTable `json:"similarity"`
}

// EngagementTable stores engagement scores row-major: Scores[u][i] is the
// score of Users[u] on Items[i].
type EngagementTable struct {
	Users  []string     `json:"users"`
	Items  []string     `json:"items"`
	Scores [][]*float64 `json:"scores"`
}

// SimilarityTable stores similarity scores row-major: Scores[a][b] is the
// similarity between Users[a] and Users[b].
type SimilarityTable struct {
	Users  []string     `json:"users"`
	Scores [][]*float64 `json:"scores"`
}

// Payload is a decoded bundle together with facts about its encoded form.
type Payload struct {
	Bundle *Bundle

	// Checksum is the hex SHA-256 of the uncompressed JSON document.
	Checksum string

	// SizeBytes is the size of the payload as fetched (possibly compressed).
	SizeBytes int64
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode parses raw bundle bytes. Gzip input is decompressed first.
func Decode(data []byte) (*Payload, error) {
	size := int64(len(data))

	raw := data
	if bytes.HasPrefix(data, gzipMagic) {
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = gzr.Close() }() //nolint:errcheck // close after full read is not actionable

		raw, err = io.ReadAll(gzr)
		if err != nil {
			return nil, fmt.Errorf("decompress bundle: %w", err)
		}
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	hash := sha256.Sum256(raw)
	return &Payload{
		Bundle:    &b,
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: size,
	}, nil
}

// Encode serializes a bundle, gzip-compressing it when compress is set.
func Encode(b *Bundle, compress bool) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}
	return buf.Bytes(), nil
}

// Score returns a pointer to v, for building tables in code and tests.
func Score(v float64) *float64 {
	return &v
}
