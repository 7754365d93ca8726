package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/story-radar/backend/internal/clustering"
	"github.com/DeafMist/story-radar/backend/internal/config"
	"github.com/DeafMist/story-radar/backend/internal/elasticsearch"
	"github.com/DeafMist/story-radar/backend/internal/logger"
	"github.com/DeafMist/story-radar/backend/internal/pipeline"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
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

	tags, err := pipeline.LoadTagStore(cfg.TagOverridesFile)
	if err != nil {
		log.Error("load tag overrides", slog.Any("err", err))
		os.Exit(1)
	}

	pipe := pipeline.New(esClient, nil, tags, pipeline.Options{
		Window:   cfg.LoadWindow,
		Limit:    cfg.LoadLimit,
		Interval: cfg.RefreshInterval,
		Clustering: clustering.Options{
			Threshold:      cfg.Clustering.Threshold,
			MaxClusterSize: cfg.Clustering.MaxSize,
			MaxAge:         cfg.Clustering.MaxAge,
		},
	}, log)
	go pipe.Run(ctx)

	srv, err := newServer(log, cfg, esClient, pipe)
	if err != nil {
		log.Error("init server", slog.Any("err", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
