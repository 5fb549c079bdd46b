// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/coursemate/internal/bundle"
)

func score(v float64) *float64 { return bundle.Score(v) }

func writeBundle(t *testing.T) string {
	t.Helper()
	data, err := bundle.Encode(&bundle.Bundle{
		SchemaVersion: bundle.SchemaVersion,
		Engagement: &bundle.EngagementTable{
			Users: []string{"A", "B", "C"},
			Items: []string{"x", "y", "z"},
			Scores: [][]*float64{
				{score(1), score(0), score(1)},
				{score(1), score(1), score(0)},
				{score(0), score(1), score(1)},
			},
		},
		Similarity: &bundle.SimilarityTable{
			Users: []string{"A", "B", "C"},
			Scores: [][]*float64{
				{score(1), score(0.9), score(0.1)},
				{score(0.9), score(1), score(0.3)},
				{score(0.1), score(0.3), score(1)},
			},
		},
	}, true)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model_bundle.json.gz")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newRootCommand(&out).Run(context.Background(), append([]string{"coursectl"}, args...))
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := writeBundle(t)

	out, err := run(t, "inspect", "--bundle", path)
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, true, status["loaded"])
	assert.EqualValues(t, 3, status["users"])
	assert.EqualValues(t, 3, status["items"])
	assert.NotEmpty(t, status["checksum"])
}

func TestInspect_InvalidBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 9}`), 0o600))

	_, err := run(t, "inspect", "--bundle", path)
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	path := writeBundle(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"explicit user", []string{"--user", "A"}, []string{"y"}},
		{"defaults to first user", nil, []string{"y"}},
		{"n caps the list", []string{"--user", "B", "--n", "1"}, []string{"z"}},
		{"unknown user", []string{"--user", "nobody"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"recommend", "--bundle", path}, tt.args...)...)
			require.NoError(t, err)

			var got struct {
				Recommendations []string `json:"recommendations"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.want, got.Recommendations)
		})
	}
}

func TestImportThenInspectFromBadger(t *testing.T) {
	path := writeBundle(t)
	dir := filepath.Join(t.TempDir(), "badger")

	out, err := run(t, "import", "--bundle", path, "--badger-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "3 users, 3 items")

	out, err = run(t, "inspect", "--bundle", "badger://"+dir)
	require.NoError(t, err)
	assert.Contains(t, out, `"loaded": true`)
}

func TestImport_RejectsInvalidBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 1}`), 0o600))

	_, err := run(t, "import", "--bundle", path, "--badger-dir", t.TempDir())
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "clusters.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("UserID,Cluster\n1001,2\n1002,1.0\n"), 0o600))

	out, err := run(t, "label", "--csv", csvPath, "--user", "1002")
	require.NoError(t, err)
	assert.Contains(t, out, `"cluster_status": "Outlier"`)

	out, err = run(t, "label", "--csv", csvPath, "--user", "9999")
	require.NoError(t, err)
	assert.Contains(t, out, `"cluster_status": "Unknown"`)
}
