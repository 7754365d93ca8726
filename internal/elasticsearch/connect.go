package elasticsearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ConnectOptions control how long Connect keeps trying.
type ConnectOptions struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
}

// DefaultConnectOptions retry for a little over three minutes.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{MaxRetries: 10, Delay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// Connect creates a client and waits until Elasticsearch answers a ping,
// backing off exponentially between attempts, then makes sure the article
// index exists with its mappings. Services start before the cluster is
// ready, so a failed ping is not fatal until retries run out.
func Connect(ctx context.Context, addr, index string, logger *slog.Logger, opts ConnectOptions) (*Client, error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = opts.Delay
	}

	client, err := New(addr, index, logger)
	if err != nil {
		return nil, err
	}

	delay := opts.Delay
	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			client.log.Info("connected to elasticsearch", slog.Int("attempt", attempt))
			if err := client.EnsureIndex(ctx); err != nil {
				return nil, err
			}
			return client, nil
		}
		if attempt == opts.MaxRetries {
			break
		}

		client.log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", opts.MaxRetries),
			slog.Duration("retry_in", delay),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return nil, fmt.Errorf("connect to elasticsearch after %d attempts: %w", opts.MaxRetries, lastErr)
}
