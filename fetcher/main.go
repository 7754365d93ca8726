package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/story-radar/backend/internal/config"
	"github.com/DeafMist/story-radar/backend/internal/dedupe"
	"github.com/DeafMist/story-radar/backend/internal/feeds"
	"github.com/DeafMist/story-radar/backend/internal/logger"
	"github.com/DeafMist/story-radar/backend/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type feedFetcher interface {
	FetchAll(ctx context.Context, outlets []feeds.Outlet) (feeds.Result, error)
}

func main() {
	log := logger.New("fetcher")
	cfg, err := config.LoadFetcher()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	outlets, err := feeds.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		log.Error("load sources", slog.Any("err", err))
		os.Exit(1)
	}

	fetcher := feeds.NewFetcher(&http.Client{Timeout: cfg.Timeout}, feeds.Options{
		Concurrency:   cfg.Concurrency,
		HostInterval:  cfg.HostInterval,
		Timeout:       cfg.Timeout,
		SummaryLength: cfg.SummaryLength,
	}, log)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}
	defer writer.Close()

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Info("fetcher started",
		slog.Int("sources", len(outlets)),
		slog.String("topic", cfg.KafkaTopic),
		slog.Duration("interval", cfg.Interval),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, log, fetcher, writer, cache, outlets)

		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, fetcher feedFetcher, w messageWriter, cache *dedupe.Cache, outlets []feeds.Outlet) {
	start := time.Now()
	res, err := fetcher.FetchAll(ctx, outlets)
	if err != nil {
		log.Warn("fetch cycle aborted", slog.Any("err", err))
		return
	}

	published, err := publishNew(ctx, w, cache, res.Articles)
	if err != nil {
		log.Error("publish articles", slog.Any("err", err), slog.Int("published", published))
		return
	}

	failed := 0
	for _, s := range res.Sources {
		failed += s.FailedFeeds
	}
	log.Info("fetch cycle complete",
		slog.Int("fetched", len(res.Articles)),
		slog.Int("published", published),
		slog.Int("failed_feeds", failed),
		slog.Duration("duration", time.Since(start)),
	)
}

// publishNew writes articles whose URL has not been published recently.
// URLs are only marked once the batch is written, so a failed write is
// retried on the next cycle.
func publishNew(ctx context.Context, w messageWriter, cache *dedupe.Cache, articles []models.Article) (int, error) {
	msgs := make([]kafka.Message, 0, len(articles))
	fresh := make([]string, 0, len(articles))
	for _, a := range articles {
		if cache.IsSeen(a.URL) {
			continue
		}
		value, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("marshal article %s: %w", a.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(a.ID), Value: value})
		fresh = append(fresh, a.URL)
	}

	if len(msgs) == 0 {
		return 0, nil
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write messages: %w", err)
	}
	for _, u := range fresh {
		cache.MarkSeen(u)
	}
	return len(msgs), nil
}
