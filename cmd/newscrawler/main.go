// Package main wires together the news crawler binary. With -urls it runs a
// one-shot batch crawl; without it, it serves the HTTP API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mediapulse/article-crawler/internal/api"
	"github.com/mediapulse/article-crawler/internal/clock/system"
	"github.com/mediapulse/article-crawler/internal/config"
	"github.com/mediapulse/article-crawler/internal/dates"
	"github.com/mediapulse/article-crawler/internal/extractor"
	collyfetcher "github.com/mediapulse/article-crawler/internal/fetcher/colly"
	"github.com/mediapulse/article-crawler/internal/logging"
	"github.com/mediapulse/article-crawler/internal/metrics"
	"github.com/mediapulse/article-crawler/internal/policy/ratelimit"
	"github.com/mediapulse/article-crawler/internal/storage/memory"
	"github.com/mediapulse/article-crawler/internal/storage/postgres"
	"github.com/mediapulse/article-crawler/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	urlsPath := flag.String("urls", "", "path to a newline-separated URL list; runs one batch and exits")
	flag.Parse()

	if err := run(*cfgPath, *urlsPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath, urlsPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := system.New()
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		Burst:             cfg.Crawler.Burst,
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Crawler.UserAgent,
		Timeout:      cfg.FetchTimeout(),
		MaxRedirects: cfg.HTTP.MaxRedirects,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryBackoff: cfg.RetryBackoff(),
	}, limiter, logger)
	ext := extractor.New(dates.New(clk))

	store, err := postgres.NewArticleStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, clk, logger)
	if err != nil {
		return fmt.Errorf("open article store: %w", err)
	}
	defer store.Close()

	w := worker.New(fetcher, ext, store, worker.Config{
		MaxConcurrent: cfg.Crawler.MaxConcurrent,
		BatchDelay:    cfg.BatchDelay(),
	}, logger)

	if urlsPath != "" {
		return runOnce(ctx, w, cfg, urlsPath, logger)
	}
	return serve(ctx, w, cfg, clk, logger)
}

func runOnce(ctx context.Context, w *worker.Worker, cfg config.Config, urlsPath string, logger *zap.Logger) error {
	urls, err := readURLs(urlsPath)
	if err != nil {
		return fmt.Errorf("read urls: %w", err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", urlsPath)
	}

	records := w.Run(ctx, urls, cfg.Crawler.MaxConcurrent)
	logger.Info("crawl finished",
		zap.Int("urls", len(urls)),
		zap.Int("stored", len(records)),
	)
	return nil
}

func serve(ctx context.Context, w *worker.Worker, cfg config.Config, clk *system.Clock, logger *zap.Logger) error {
	srv := api.NewServer(w, memory.NewRunStore(), clk, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// readURLs loads one URL per line, skipping blanks and # comments.
func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return urls, nil
}
