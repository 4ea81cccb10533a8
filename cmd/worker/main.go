package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"bebusy.app/inbox/common/id"
	"bebusy.app/inbox/common/logger"
	"bebusy.app/inbox/common/otel"
	"bebusy.app/inbox/core/config"
	"bebusy.app/inbox/core/db"
	"bebusy.app/inbox/internal/queue"
	"bebusy.app/inbox/internal/search"
	"bebusy.app/inbox/internal/store"
	"bebusy.app/inbox/internal/worker"
)

const (
	batchSize    = 10
	blockTime    = 5 * time.Second
	maxAttempts  = 3
	requeueDelay = 1 * time.Second
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "inbox worker starting", "env", cfg.Env)
	if err := id.Init(id.NodeWorker); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream, "group", cfg.Pipeline.RedisGroup)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    batchSize,
		Block:        blockTime,
		MaxAttempts:  maxAttempts,
		RequeueDelay: requeueDelay,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.New(database)

	var index *search.Index
	if cfg.Typesense.Enabled() {
		index = search.New(cfg.Typesense.URL, cfg.Typesense.APIKey, cfg.Typesense.Collection)
		if err := index.EnsureCollection(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to ensure search collection, indexing disabled", "error", err)
			index = nil
		}
	} else {
		slog.WarnContext(ctx, "typesense disabled, messages will not be indexed")
	}

	fanout := worker.NewFanout(
		stores.Messages, stores.Conversations, stores.Groups, stores.Notifications,
		fanoutIndexer(index), nil,
	)
	w := worker.New(consumer, fanout, worker.Config{MaxAttempts: maxAttempts})

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker stopped with error", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		slog.InfoContext(ctx, "shutting down...", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			w.Stop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			slog.WarnContext(shutdownCtx, "worker shutdown timed out")
		}

		if telemetry != nil {
			if err := telemetry.Shutdown(shutdownCtx); err != nil {
				slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}

func fanoutIndexer(index *search.Index) worker.Indexer {
	if index == nil {
		return nil
	}
	return index
}

const banner = `
██╗███╗   ██╗██████╗  ██████╗ ██╗  ██╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██║████╗  ██║██╔══██╗██╔═══██╗╚██╗██╔╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║██╔██╗ ██║██████╔╝██║   ██║ ╚███╔╝     ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║██║╚██╗██║██╔══██╗██║   ██║ ██╔██╗     ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║██║ ╚████║██████╔╝╚██████╔╝██╔╝ ██╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝╚═╝  ╚═══╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
