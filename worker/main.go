package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/story-radar/backend/internal/config"
	"github.com/DeafMist/story-radar/backend/internal/dedupe"
	"github.com/DeafMist/story-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/story-radar/backend/internal/logger"
	"github.com/DeafMist/story-radar/backend/internal/metrics"
	"github.com/DeafMist/story-radar/backend/internal/models"
	"github.com/DeafMist/story-radar/backend/internal/processing"
)

// rawArticle is the message shape on the articles topic. Timestamps are
// kept as strings so that producers other than the fetcher can use
// looser formats.
type rawArticle struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Summary     string        `json:"summary"`
	Author      string        `json:"author"`
	PublishedAt string        `json:"publishedAt"`
	Source      models.Source `json:"source"`
	Category    string        `json:"category"`
	Keywords    []string      `json:"keywords"`
}

type articleIndexer interface {
	IndexArticle(ctx context.Context, a models.Article) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, elasticsearch.DefaultConnectOptions())
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, msg); err != nil {
			metrics.RecordArticle("failed")
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			sent, canceled := sendToDLQ(ctx, log, dlqWriter, msg, err)
			if canceled {
				log.Info("context canceled during DLQ retry")
				return
			}

			// Without a DLQ copy the offset stays uncommitted so the message is reprocessed on restart.
			if sent {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Error("commit failed message to dlq", slog.Any("err", err))
				}
			} else {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// sendToDLQ copies msg with error context to the dead letter topic,
// retrying with exponential backoff.
func sendToDLQ(ctx context.Context, log *slog.Logger, w messageWriter, msg kafka.Message, cause error) (sent, canceled bool) {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < 5; attempt++ {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true, false
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false, true
		}
	}
	return false, false
}

func processMessage(ctx context.Context, log *slog.Logger, indexer articleIndexer, cache *dedupe.Cache, msg kafka.Message) error {
	var payload rawArticle
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		metrics.RecordArticle("invalid")
		return fmt.Errorf("decode article: %w", err)
	}

	article, err := toArticle(payload)
	if err != nil {
		metrics.RecordArticle("invalid")
		return err
	}

	if cache.IsSeen(article.ID) {
		metrics.RecordArticle("duplicate")
		log.Debug("duplicate article", slog.String("id", article.ID))
		return nil
	}

	if err := indexer.IndexArticle(ctx, article); err != nil {
		return err
	}

	cache.MarkSeen(article.ID)
	metrics.RecordArticle("indexed")
	log.Info("indexed article",
		slog.String("id", article.ID),
		slog.String("source", article.Source.ID),
		slog.String("title", article.Title))
	return nil
}

// toArticle validates a raw message. Producers that skip classification
// or keyword extraction get them filled in here.
func toArticle(raw rawArticle) (models.Article, error) {
	title := processing.StripHTML(raw.Title)
	summary := processing.TruncateSummary(processing.StripHTML(raw.Summary), processing.DefaultSummaryLength)

	category := models.Category(strings.TrimSpace(raw.Category))
	if category == "" {
		category = processing.Classify(title, summary)
	}

	keywords := raw.Keywords
	if len(keywords) == 0 {
		keywords = processing.ExtractKeywords(title+" "+summary, models.MaxKeywords, processing.DefaultKeywordMinLength)
	}

	return models.NewArticle(models.Article{
		ID:          strings.TrimSpace(raw.ID),
		Title:       title,
		URL:         raw.URL,
		Summary:     summary,
		Author:      strings.TrimSpace(raw.Author),
		PublishedAt: parseTimestamp(raw.PublishedAt),
		Source:      raw.Source,
		Category:    category,
		Keywords:    keywords,
	})
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02 15:04:05",
	}

	for _, f := range formats {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts.UTC()
		}
	}

	return time.Time{}
}
