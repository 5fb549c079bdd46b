// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

// Package cluster maps students to the engagement cluster assigned by the
// offline segmentation step. Labels only annotate responses; recommendation
// never depends on them.
package cluster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Cluster codes produced by the segmentation step.
const (
	CodeUnknown       = -1
	CodePassiveAtRisk = 0
	CodeOutlier       = 1
	CodeActiveLearner = 2
)

// Human-readable labels.
const (
	LabelActiveLearner = "Active Learner"
	LabelPassiveAtRisk = "Passive/At-Risk"
	LabelOutlier       = "Outlier"
	LabelUnknown       = "Unknown"
)

// LabelFor returns the label for a cluster code. Codes outside the known set
// are Unknown.
func LabelFor(code int) string {
	switch code {
	case CodeActiveLearner:
		return LabelActiveLearner
	case CodePassiveAtRisk:
		return LabelPassiveAtRisk
	case CodeOutlier:
		return LabelOutlier
	default:
		return LabelUnknown
	}
}

// Lookup is an immutable user to cluster-code mapping. The zero value and a
// nil *Lookup are empty lookups.
type Lookup struct {
	codes map[string]int
}

// NewLookup builds a lookup from a map, copying it.
func NewLookup(codes map[string]int) *Lookup {
	l := &Lookup{codes: make(map[string]int, len(codes))}
	for k, v := range codes {
		l.codes[k] = v
	}
	return l
}

// Label returns the cluster code and label for user. Users without a row get
// CodeUnknown; a row with an unrecognized code keeps that code and is
// labeled LabelUnknown.
func (l *Lookup) Label(user string) (code int, label string) {
	if l == nil {
		return CodeUnknown, LabelUnknown
	}
	c, ok := l.codes[user]
	if !ok {
		return CodeUnknown, LabelUnknown
	}
	return c, LabelFor(c)
}

// Len returns the number of labeled users.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.codes)
}

// LoadCSV reads a lookup from a CSV file with a header containing the
// columns "userid" and "cluster" (any order, case-insensitive).
func LoadCSV(path string) (*Lookup, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open cluster file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	return ReadCSV(f)
}

// ReadCSV reads a lookup from CSV data. Rows whose cluster value is not an
// integer are skipped; a user listed twice keeps the last value.
func ReadCSV(r io.Reader) (*Lookup, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("cluster file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read cluster header: %w", err)
	}

	userCol, clusterCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "userid":
			userCol = i
		case "cluster":
			clusterCol = i
		}
	}
	if userCol < 0 || clusterCol < 0 {
		return nil, fmt.Errorf("cluster file needs userid and cluster columns, got %v", header)
	}

	codes := make(map[string]int)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cluster row: %w", err)
		}
		if userCol >= len(rec) || clusterCol >= len(rec) {
			continue
		}

		user := strings.TrimSpace(rec[userCol])
		code, convErr := parseCode(rec[clusterCol])
		if user == "" || convErr != nil {
			continue
		}
		codes[user] = code
	}

	return &Lookup{codes: codes}, nil
}

// parseCode accepts "2" and the "2.0" form pandas writes for float columns.
func parseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("cluster code %q is not an integer", s)
	}
	return int(f), nil
}
