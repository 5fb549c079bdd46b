// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/coursemate/internal/bundle"
	"github.com/tomtom215/coursemate/internal/cluster"
	"github.com/tomtom215/coursemate/internal/model"
	"github.com/tomtom215/coursemate/internal/recommend"
)

var testFallback = []string{"Materi Dasar - Pengenalan Sistem", "Panduan Akademik"}

func workedExampleBundle() *bundle.Bundle {
	s := bundle.Score
	return &bundle.Bundle{
		SchemaVersion: bundle.SchemaVersion,
		Engagement: &bundle.EngagementTable{
			Users: []string{"1001", "1002", "1003"},
			Items: []string{"x", "y", "z"},
			Scores: [][]*float64{
				{s(1), s(0), s(1)},
				{s(1), s(1), s(0)},
				{s(0), s(1), s(1)},
			},
		},
		Similarity: &bundle.SimilarityTable{
			Users: []string{"1001", "1002", "1003"},
			Scores: [][]*float64{
				{s(1), s(0.9), s(0.1)},
				{s(0.9), s(1), s(0.4)},
				{s(0.1), s(0.4), s(1)},
			},
		},
	}
}

func writeBundle(t *testing.T, path string, b *bundle.Bundle) {
	t.Helper()
	data, err := bundle.Encode(b, true)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

type testServer struct {
	store   *model.Store
	handler http.Handler
	path    string
}

// newTestServer wires the real store, engine and router over a bundle file.
// A nil bundle leaves the file absent.
func newTestServer(t *testing.T, b *bundle.Bundle, cfg HandlerConfig) *testServer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.json.gz")
	if b != nil {
		writeBundle(t, path, b)
	}

	store := model.NewStore(bundle.NewFileSource(path), model.StoreConfig{}, zerolog.Nop())
	engine, err := recommend.NewEngine(store, recommend.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	store.OnSwap(func(*model.Snapshot) { engine.PurgeCache() })

	labels := cluster.NewLookup(map[string]int{"1001": cluster.CodeActiveLearner, "1003": 7})

	if cfg.FallbackMaterials == nil {
		cfg.FallbackMaterials = testFallback
	}
	h, err := NewHandler(engine, store, labels, cfg)
	require.NoError(t, err)

	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST"},
		RateLimitDisabled:  true,
	})

	return &testServer{
		store:   store,
		handler: NewRouter(h, mw).SetupChi(),
		path:    path,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) recommendReply {
	t.Helper()
	var reply recommendReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply), rec.Body.String())
	return reply
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
		Meta    *APIMeta        `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return APIResponse{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func TestRecommend_WorkedExample(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodPost, "/api/recommend", `{"user_id": 1001, "top_n": 3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	reply := decodeReply(t, rec)
	assert.Equal(t, "1001", reply.UserID)
	assert.Equal(t, cluster.CodeActiveLearner, reply.ClusterID)
	assert.Equal(t, cluster.LabelActiveLearner, reply.ClusterStatus)
	assert.Equal(t, []string{"y"}, reply.Recommendations)
	assert.Equal(t, "items", reply.Outcome)
	assert.False(t, reply.Fallback)
}

func TestRecommend_UserIDForms(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	for _, body := range []string{
		`{"user_id": "1001"}`,
		`{"user_id": " 1001 "}`,
		`{"user_id": 1001.0}`,
	} {
		rec := s.do(t, http.MethodPost, "/api/recommend", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		reply := decodeReply(t, rec)
		assert.Equal(t, "1001", reply.UserID, body)
		assert.Equal(t, []string{"y"}, reply.Recommendations, body)
	}
}

func TestRecommend_UnknownUserAndLabels(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "nonexistent_user"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decodeReply(t, rec)
	assert.Equal(t, []string{}, reply.Recommendations)
	assert.Equal(t, "unknown_user", reply.Outcome)
	assert.Equal(t, cluster.CodeUnknown, reply.ClusterID)
	assert.Equal(t, cluster.LabelUnknown, reply.ClusterStatus)

	// an unrecognized cluster code is reported as is, labeled Unknown
	rec = s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1003"}`)
	reply = decodeReply(t, rec)
	assert.Equal(t, 7, reply.ClusterID)
	assert.Equal(t, cluster.LabelUnknown, reply.ClusterStatus)
}

func TestRecommend_BadInput(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"empty id", `{"user_id": ""}`},
		{"blank id", `{"user_id": "   "}`},
		{"missing id", `{}`},
		{"null id", `{"user_id": null}`},
		{"boolean id", `{"user_id": true}`},
		{"negative top_n", `{"user_id": "1001", "top_n": -1}`},
		{"zero top_n", `{"user_id": "1001", "top_n": 0}`},
		{"not json", `user_id=1001`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/recommend", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body legacyError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRecommend_TopNDefaultsWhenAbsent(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decodeReply(t, rec).Fallback)

	rec = s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001", "top_n": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001", "top_n": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"y"}, decodeReply(t, rec).Recommendations)
}

func TestRecommend_FallbackWhenModelMissing(t *testing.T) {
	s := newTestServer(t, nil, HandlerConfig{})

	rec := s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeReply(t, rec)
	assert.True(t, reply.Fallback)
	assert.Equal(t, outcomeFallback, reply.Outcome)
	assert.Equal(t, testFallback, reply.Recommendations)
	assert.Equal(t, cluster.LabelActiveLearner, reply.ClusterStatus)
}

func TestGetRecommendations(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001?n=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		UserID        string               `json:"user_id"`
		Outcome       string               `json:"outcome"`
		Items         []string             `json:"items"`
		Neighbors     []recommend.Neighbor `json:"neighbors"`
		ModelVersion  int64                `json:"model_version"`
		ClusterStatus string               `json:"cluster_status"`
	}
	env := decodeEnvelope(t, rec, &data)
	assert.True(t, env.Success)
	require.NotNil(t, env.Meta)
	assert.NotEmpty(t, env.Meta.RequestID)
	assert.Equal(t, "1001", data.UserID)
	assert.Equal(t, "items", data.Outcome)
	assert.Equal(t, []string{"y"}, data.Items)
	assert.Len(t, data.Neighbors, 2)
	assert.Equal(t, int64(1), data.ModelVersion)
	assert.Equal(t, cluster.LabelActiveLearner, data.ClusterStatus)
}

func TestRecommendationStats(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001", "")
	s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001", "")

	rec := s.do(t, http.MethodGet, "/api/v1/recommendations/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats recommend.Stats
	decodeEnvelope(t, rec, &stats)
	assert.Equal(t, int64(2), stats.RequestCount)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, 1, stats.CacheSize)
}

func TestGetRecommendations_Errors(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001?n=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001?n=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeValidationFailed, env.Error.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/recommendations/user/1001?n=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env = decodeEnvelope(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeValidationFailed, env.Error.Code)

	missing := newTestServer(t, nil, HandlerConfig{})
	rec = missing.do(t, http.MethodGet, "/api/v1/recommendations/user/1001", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env = decodeEnvelope(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeModelNotReady, env.Error.Code)
}

func TestModelStatusAndReload(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	var status model.Status
	rec := s.do(t, http.MethodGet, "/api/v1/model/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeEnvelope(t, rec, &status)
	assert.False(t, status.Loaded)

	rec = s.do(t, http.MethodPost, "/api/v1/model/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeEnvelope(t, rec, &status)
	assert.True(t, status.Loaded)
	assert.Equal(t, int64(1), status.Version)
	assert.Equal(t, 3, status.Users)

	// A broken bundle is rejected; the previous model keeps serving.
	bad := workedExampleBundle()
	bad.Similarity.Scores[0][1] = bundle.Score(0.5)
	writeBundle(t, s.path, bad)

	rec = s.do(t, http.MethodPost, "/api/v1/model/reload", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	var failure reloadFailure
	env := decodeEnvelope(t, rec, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeModelLoadFailed, env.Error.Code)
	raw, err := json.Marshal(env.Error.Details)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &failure))
	assert.Equal(t, model.ReasonAsymmetric, failure.Reason)
	assert.Equal(t, int64(1), failure.Status.Version)

	rec = s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001"}`)
	assert.Equal(t, []string{"y"}, decodeReply(t, rec).Recommendations)
}

func TestReloadModel_Throttled(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{ReloadMinInterval: time.Hour})

	rec := s.do(t, http.MethodPost, "/api/v1/model/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/model/reload", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := s.store.Load(context.Background())
	require.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_NotFoundAndMetrics(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	rec := s.do(t, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec, nil)
	assert.False(t, env.Success)

	rec = s.do(t, http.MethodGet, "/api/recommend", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001"}`)
	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coursemate_api_requests_total")
}

func TestRecommend_ConcurrentWithReload(t *testing.T) {
	s := newTestServer(t, workedExampleBundle(), HandlerConfig{})

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				rec := s.do(t, http.MethodPost, "/api/v1/model/reload", "")
				if rec.Code != http.StatusOK {
					errs <- fmt.Errorf("reload status %d", rec.Code)
				}
				return
			}
			rec := s.do(t, http.MethodPost, "/api/recommend", `{"user_id": "1001"}`)
			var reply recommendReply
			if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
				errs <- err
				return
			}
			if len(reply.Recommendations) != 1 || reply.Recommendations[0] != "y" {
				errs <- fmt.Errorf("unexpected recommendations %v", reply.Recommendations)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type failingRecommender struct{ err error }

func (f failingRecommender) Recommend(context.Context, recommend.Request) (*recommend.Result, error) {
	return nil, f.err
}

func (f failingRecommender) Stats() recommend.Stats { return recommend.Stats{ErrorCount: 1} }

func TestGetRecommendations_InternalError(t *testing.T) {
	store := model.NewStore(bundle.NewFileSource("unused"), model.StoreConfig{}, zerolog.Nop())
	h, err := NewHandler(failingRecommender{err: fmt.Errorf("boom")}, store, nil, HandlerConfig{FallbackMaterials: testFallback})
	require.NoError(t, err)
	router := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})).SetupChi()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/user/1001", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The front-end endpoint degrades to the fallback list instead.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(`{"user_id":"1001"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decodeReply(t, rec)
	assert.True(t, reply.Fallback)
	assert.Equal(t, cluster.LabelUnknown, reply.ClusterStatus)
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	_, err := NewHandler(nil, nil, nil, HandlerConfig{})
	require.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	store := model.NewStore(bundle.NewFileSource("unused"), model.StoreConfig{}, zerolog.Nop())
	h, err := NewHandler(failingRecommender{err: fmt.Errorf("boom")}, store, nil, HandlerConfig{})
	require.NoError(t, err)
	router := NewRouter(h, NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/model/status", http.NoBody))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
