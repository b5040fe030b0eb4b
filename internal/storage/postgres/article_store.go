// Package postgres persists crawled articles. Ingest runs as one
// transaction so a failure at any step leaves no partial rows behind.
//
// Expected schema:
//
//	CREATE TABLE mediadata (
//		id BIGSERIAL PRIMARY KEY,
//		domain TEXT NOT NULL,
//		country TEXT NOT NULL,
//		region TEXT NOT NULL,
//		page_rank INT NOT NULL DEFAULT 0,
//		llm_rank INT NOT NULL DEFAULT 0,
//		hn_citation INT NOT NULL DEFAULT 0,
//		signal_score DOUBLE PRECISION NOT NULL DEFAULT 0,
//		last_updated TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX mediadata_domain_key ON mediadata (domain);
//
//	CREATE TABLE reporters (
//		id BIGSERIAL PRIMARY KEY,
//		domain TEXT NOT NULL,
//		tagged_reporter TEXT NOT NULL,
//		country TEXT NOT NULL,
//		relevance_tier TEXT NOT NULL
//	);
//	CREATE UNIQUE INDEX reporters_domain_reporter_key ON reporters (domain, tagged_reporter);
//
//	CREATE TABLE articles (
//		id BIGSERIAL PRIMARY KEY,
//		title TEXT NOT NULL,
//		content TEXT NOT NULL,
//		url TEXT NOT NULL,
//		published_at TIMESTAMPTZ NOT NULL,
//		reporter_id BIGINT NOT NULL REFERENCES reporters (id),
//		media_id BIGINT NOT NULL REFERENCES mediadata (id),
//		sentiment_score DOUBLE PRECISION NOT NULL DEFAULT 0,
//		description TEXT NOT NULL DEFAULT '',
//		keywords TEXT NOT NULL DEFAULT '',
//		image_url TEXT NOT NULL DEFAULT '',
//		word_count INT NOT NULL DEFAULT 0,
//		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
// The two unique indexes are load-bearing: concurrent ingests of the same
// domain or byline race through lookup-then-create, and the ON CONFLICT
// upserts below rely on the indexes to converge on a single row.
// articles.url is a candidate for a unique index but is not enforced here.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mediapulse/article-crawler/internal/classifier"
	"github.com/mediapulse/article-crawler/internal/crawler"
)

const (
	defaultRegion        = "Unknown"
	defaultRelevanceTier = "Tier 3"
)

// The DO UPDATE no-op touch makes RETURNING yield the existing row's id on
// conflict; DO NOTHING would return no row at all.
const (
	upsertMediaQuery = `
INSERT INTO mediadata (domain, country, region, page_rank, llm_rank, hn_citation, signal_score, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (domain) DO UPDATE SET domain = EXCLUDED.domain
RETURNING id`

	upsertReporterQuery = `
INSERT INTO reporters (domain, tagged_reporter, country, relevance_tier)
VALUES ($1, $2, $3, $4)
ON CONFLICT (domain, tagged_reporter) DO UPDATE SET domain = EXCLUDED.domain
RETURNING id`

	insertArticleQuery = `
INSERT INTO articles (title, content, url, published_at, reporter_id, media_id, sentiment_score, description, keywords, image_url, word_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// ArticleStore implements crawler.ArticleStore on a pgx pool.
type ArticleStore struct {
	pool   txBeginner
	clock  crawler.Clock
	logger *zap.Logger
}

// NewArticleStore connects a pool using cfg and verifies it with a ping.
func NewArticleStore(ctx context.Context, cfg Config, clock crawler.Clock, logger *zap.Logger) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newArticleStore(pool, clock, logger)
}

// NewArticleStoreWithPool constructs a store from an existing pool,
// primarily for testing.
func NewArticleStoreWithPool(pool txBeginner, clock crawler.Clock, logger *zap.Logger) (*ArticleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newArticleStore(pool, clock, logger)
}

func newArticleStore(pool txBeginner, clock crawler.Clock, logger *zap.Logger) (*ArticleStore, error) {
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleStore{pool: pool, clock: clock, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ingest resolves the media and reporter rows for data and inserts the
// article, all inside one transaction. On any failure every write is rolled
// back and the error surfaces to the caller; no partial rows survive.
func (s *ArticleStore) Ingest(ctx context.Context, data crawler.ArticleData) (crawler.ArticleRecord, error) {
	cls, err := classifier.Classify(data.SourceURL)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("classify %q: %w", data.SourceURL, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	// No-op once the transaction commits.
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.clock.Now()

	var mediaID int64
	err = tx.QueryRow(ctx, upsertMediaQuery,
		cls.Domain, cls.Country, defaultRegion, 0, 0, 0, 0.0, now,
	).Scan(&mediaID)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("resolve media %q: %w", cls.Domain, err)
	}

	var reporterID int64
	err = tx.QueryRow(ctx, upsertReporterQuery,
		cls.Domain, data.Author, cls.Country, defaultRelevanceTier,
	).Scan(&reporterID)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("resolve reporter %q: %w", data.Author, err)
	}

	record := crawler.ArticleRecord{
		Title:          data.Title,
		Content:        data.Content,
		URL:            data.SourceURL,
		PublishedAt:    data.PublishedAt,
		ReporterID:     reporterID,
		MediaID:        mediaID,
		SentimentScore: 0,
		Description:    data.Description,
		Keywords:       data.Keywords,
		ImageURL:       data.ImageURL,
		WordCount:      data.WordCount,
	}
	err = tx.QueryRow(ctx, insertArticleQuery,
		record.Title, record.Content, record.URL, record.PublishedAt,
		record.ReporterID, record.MediaID, record.SentimentScore,
		record.Description, record.Keywords, record.ImageURL, record.WordCount,
	).Scan(&record.ID)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("insert article: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("commit tx: %w", err)
	}

	s.logger.Debug("article ingested",
		zap.Int64("article_id", record.ID),
		zap.String("domain", cls.Domain),
		zap.String("url", record.URL),
	)
	return record, nil
}
