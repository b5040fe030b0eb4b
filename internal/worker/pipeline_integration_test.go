package worker_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediapulse/article-crawler/internal/dates"
	"github.com/mediapulse/article-crawler/internal/extractor"
	collyfetcher "github.com/mediapulse/article-crawler/internal/fetcher/colly"
	"github.com/mediapulse/article-crawler/internal/storage/postgres"
	"github.com/mediapulse/article-crawler/internal/worker"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// TestPipelineEndToEnd runs a real fetch, real extraction, and a mocked
// Postgres ingest for one synthetic article page.
func TestPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	page := `<html><head>
		<meta name="description" content="d">
	</head><body>
		<h1>Test Title</h1>
		<article>Hello   world</article>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	frozen := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: frozen}

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	host := mustHostname(t, srv.URL)
	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO mediadata").
		WithArgs(host, "Unknown", "Unknown", 0, 0, 0, 0.0, frozen).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	pool.ExpectQuery("INSERT INTO reporters").
		WithArgs(host, "", "Unknown", "Tier 3").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	pool.ExpectQuery("INSERT INTO articles").
		WithArgs(
			"Test Title", "Hello world", srv.URL, frozen,
			int64(2), int64(1), 0.0,
			"d", "", "", 2,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))
	pool.ExpectCommit()

	store, err := postgres.NewArticleStoreWithPool(pool, clock, nil)
	require.NoError(t, err)

	fetcher := collyfetcher.New(collyfetcher.Config{
		Timeout:      2 * time.Second,
		RetryBackoff: time.Millisecond,
	}, nil, nil)
	ext := extractor.New(dates.New(clock))

	w := worker.New(fetcher, ext, store, worker.Config{
		MaxConcurrent: 3,
		BatchDelay:    time.Millisecond,
	}, nil)

	records := w.Run(context.Background(), []string{srv.URL}, 3)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, int64(5), record.ID)
	assert.Equal(t, "Test Title", record.Title)
	assert.Equal(t, "Hello world", record.Content)
	assert.Equal(t, 2, record.WordCount)
	assert.Equal(t, float64(0), record.SentimentScore)
	assert.Equal(t, int64(1), record.MediaID)
	assert.Equal(t, int64(2), record.ReporterID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func mustHostname(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Hostname()
}
