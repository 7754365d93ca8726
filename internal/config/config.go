package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Kafka names the brokers and topic that carry raw articles.
type Kafka struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	Kafka
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
	CommitInterval time.Duration
}

// Fetcher configures the feed fetcher that publishes articles to Kafka.
type Fetcher struct {
	Kafka
	SourcesFile    string
	Interval       time.Duration
	Concurrency    int
	HostInterval   time.Duration
	Timeout        time.Duration
	SummaryLength  int
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// Clustering holds the story grouping knobs.
type Clustering struct {
	Threshold float64
	MaxSize   int
	MaxAge    time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Clustering
	BindAddr         string
	DefaultPage      int
	MaxPage          int
	RefreshInterval  time.Duration
	LoadWindow       time.Duration
	LoadLimit        int
	SearchCacheSize  int
	TagOverridesFile string
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "articles"),
	}
}

func loadKafka() (Kafka, error) {
	k := Kafka{
		KafkaBrokers: splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "articles_raw"),
	}
	if len(k.KafkaBrokers) == 0 {
		return k, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	return k, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	kafka, err := loadKafka()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:         loadCommon(),
		Kafka:          kafka,
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "article-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
		CommitInterval: getDuration("WORKER_COMMIT_INTERVAL", "2s"),
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadFetcher builds a Fetcher config from environment variables.
func LoadFetcher() (*Fetcher, error) {
	kafka, err := loadKafka()
	if err != nil {
		return nil, err
	}

	c := &Fetcher{
		Kafka:          kafka,
		SourcesFile:    getEnv("FETCHER_SOURCES_FILE", ""),
		Interval:       getDuration("FETCHER_INTERVAL", "5m"),
		Concurrency:    getInt("FETCHER_CONCURRENCY", 8),
		HostInterval:   getDuration("FETCHER_HOST_INTERVAL", "1s"),
		Timeout:        getDuration("FETCHER_TIMEOUT", "10s"),
		SummaryLength:  getInt("FETCHER_SUMMARY_LENGTH", 300),
		DedupeCapacity: getInt("FETCHER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("FETCHER_DEDUPE_TTL", "24h"),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("FETCHER_INTERVAL must be positive")
	}
	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("FETCHER_CONCURRENCY must be positive")
	}
	if c.HostInterval < 0 {
		return nil, fmt.Errorf("FETCHER_HOST_INTERVAL cannot be negative")
	}
	if c.Timeout <= 0 {
		return nil, fmt.Errorf("FETCHER_TIMEOUT must be positive")
	}
	if c.SummaryLength <= 0 {
		return nil, fmt.Errorf("FETCHER_SUMMARY_LENGTH must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("FETCHER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common: loadCommon(),
		Clustering: Clustering{
			Threshold: getFloat("CLUSTER_THRESHOLD", 0.25),
			MaxSize:   getInt("CLUSTER_MAX_SIZE", 10),
			MaxAge:    getDuration("CLUSTER_MAX_AGE", "72h"),
		},
		BindAddr:         getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:      getInt("API_PAGE_SIZE", 20),
		MaxPage:          getInt("API_MAX_PAGE_SIZE", 100),
		RefreshInterval:  getDuration("API_REFRESH_INTERVAL", "5m"),
		LoadWindow:       getDuration("API_LOAD_WINDOW", "72h"),
		LoadLimit:        getInt("API_LOAD_LIMIT", 2000),
		SearchCacheSize:  getInt("API_SEARCH_CACHE_SIZE", 256),
		TagOverridesFile: getEnv("TAG_OVERRIDES_FILE", ""),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.RefreshInterval <= 0 {
		return nil, fmt.Errorf("API_REFRESH_INTERVAL must be positive")
	}
	if c.LoadWindow <= 0 {
		return nil, fmt.Errorf("API_LOAD_WINDOW must be positive")
	}
	if c.LoadLimit <= 0 {
		return nil, fmt.Errorf("API_LOAD_LIMIT must be positive")
	}
	if c.SearchCacheSize <= 0 {
		return nil, fmt.Errorf("API_SEARCH_CACHE_SIZE must be positive")
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return nil, fmt.Errorf("CLUSTER_THRESHOLD must be in (0, 1]")
	}
	if c.MaxSize <= 0 {
		return nil, fmt.Errorf("CLUSTER_MAX_SIZE must be positive")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("CLUSTER_MAX_AGE must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "168h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}

	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
