// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// maxBodyBytes caps request bodies on JSON endpoints.
const maxBodyBytes = 1 << 20

// flexibleID accepts a JSON string or number and holds its text form.
// Integral numbers render without a fraction, so 1001 and 1001.0 are both
// "1001". Null reads as empty.
type flexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}

	text := string(data)
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("user_id must be a string or a number, got %s", text)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		*f = flexibleID(strconv.FormatInt(int64(v), 10))
		return nil
	}
	*f = flexibleID(text)
	return nil
}

// recommendBody is the body of POST /api/recommend. An absent top_n takes
// the engine default; an explicit one must be positive.
type recommendBody struct {
	UserID flexibleID `json:"user_id" validate:"notblank,max=256"`
	TopN   *int       `json:"top_n" validate:"omitempty,gte=1"`
}

// topN returns the requested count, zero when the client left it out.
func (b *recommendBody) topN() int {
	if b.TopN == nil {
		return 0
	}
	return *b.TopN
}

// recommendReply is the response of POST /api/recommend.
type recommendReply struct {
	UserID          string   `json:"user_id"`
	ClusterID       int      `json:"cluster_id"`
	ClusterStatus   string   `json:"cluster_status"`
	Recommendations []string `json:"recommendations"`
	Outcome         string   `json:"outcome"`
	Fallback        bool     `json:"fallback"`
}

// legacyError is the error body of POST /api/recommend.
type legacyError struct {
	Error string `json:"error"`
}
