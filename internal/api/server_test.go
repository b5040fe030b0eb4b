package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse/article-crawler/internal/api"
	"github.com/mediapulse/article-crawler/internal/crawler"
	"github.com/mediapulse/article-crawler/internal/storage/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type stubRunner struct {
	mu      sync.Mutex
	lastMax int
	perURL  func(url string) bool
}

func (r *stubRunner) Run(_ context.Context, urls []string, maxConcurrent int) []crawler.ArticleRecord {
	r.mu.Lock()
	r.lastMax = maxConcurrent
	r.mu.Unlock()

	var records []crawler.ArticleRecord
	for i, url := range urls {
		if r.perURL != nil && !r.perURL(url) {
			continue
		}
		records = append(records, crawler.ArticleRecord{ID: int64(i + 1), URL: url})
	}
	return records
}

func newTestServer(runner api.Runner) *api.Server {
	clock := fixedClock{now: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)}
	return api.NewServer(runner, memory.NewRunStore(), clock, nil)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubRunner{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubRunner{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitBatchRunsToCompletion(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubRunner{})

	body := `{"urls": ["https://a.example.com/1", "https://b.example.com/2"], "max_concurrent": 2}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	runID := accepted["run_id"]
	require.NotEmpty(t, runID)
	assert.Equal(t, "running", accepted["status"])

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/"+runID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		var run crawler.Run
		if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
			return false
		}
		return run.Status == crawler.RunStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/"+runID, nil))
	var run crawler.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 2, run.Counters.URLs)
	assert.Equal(t, 2, run.Counters.Succeeded)
	assert.Equal(t, 0, run.Counters.Failed)
	assert.Len(t, run.ArticleIDs, 2)
}

func TestSubmitBatchPartialFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{perURL: func(url string) bool {
		return !strings.Contains(url, "bad")
	}}
	srv := newTestServer(runner)

	body := `{"urls": ["https://ok.example.com/1", "https://bad.example.com/2"]}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/"+accepted["run_id"], nil))
		var run crawler.Run
		if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
			return false
		}
		return run.Status == crawler.RunStatusSucceeded &&
			run.Counters.Succeeded == 1 && run.Counters.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitBatchAllFailedMarksRunFailed(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{perURL: func(string) bool { return false }}
	srv := newTestServer(runner)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/v1/batches",
		strings.NewReader(`{"urls": ["https://down.example.com/1"]}`),
	))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/"+accepted["run_id"], nil))
		var run crawler.Run
		if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
			return false
		}
		return run.Status == crawler.RunStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitBatchValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubRunner{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", strings.NewReader(`{"urls": []}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownRun(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubRunner{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
