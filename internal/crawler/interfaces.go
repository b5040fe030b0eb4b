// Package crawler holds the domain types and collaborator interfaces shared
// by the fetch, extraction, and ingestion packages.
package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the raw HTML behind a URL. Implementations retry
// transient failures internally; an error return is terminal for this run.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns raw HTML into structured article data. Missing fields
// degrade to zero values rather than errors; an error means the document
// itself could not be parsed.
type Extractor interface {
	Extract(rawHTML []byte, sourceURL string) (ArticleData, error)
}

// ArticleStore persists extracted articles. Ingest resolves or creates the
// media and reporter rows and inserts the article inside one transaction;
// on error nothing is persisted.
type ArticleStore interface {
	Ingest(ctx context.Context, data ArticleData) (ArticleRecord, error)
}

// RunStore tracks batch runs submitted through the API.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
}

// RateLimiter gates outbound requests. Wait blocks until a token is
// available or the context finishes.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}
