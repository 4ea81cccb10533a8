package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"bebusy.app/inbox/common/id"
	"bebusy.app/inbox/common/logger"
	"bebusy.app/inbox/common/otel"
	"bebusy.app/inbox/core/config"
	"bebusy.app/inbox/core/db"
	"bebusy.app/inbox/internal/bus"
	"bebusy.app/inbox/internal/content"
	"bebusy.app/inbox/internal/feed"
	"bebusy.app/inbox/internal/http/handler"
	"bebusy.app/inbox/internal/http/middleware"
	httprouter "bebusy.app/inbox/internal/http/router"
	"bebusy.app/inbox/internal/queue"
	"bebusy.app/inbox/internal/search"
	"bebusy.app/inbox/internal/service"
	"bebusy.app/inbox/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Logger is not set up yet at this point
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "inbox server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(id.NodeServer); err != nil {
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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream, "channel", cfg.Feed.Channel)

	fanoutProducer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)

	stores := store.New(database)
	changeFeed := feed.New(redisClient, cfg.Feed.Channel, slog.Default())
	broadcast := bus.New(cfg.Inbox.SessionBuffer)
	defer broadcast.Close()

	var index *search.Index
	if cfg.Typesense.Enabled() {
		index = search.New(cfg.Typesense.URL, cfg.Typesense.APIKey, cfg.Typesense.Collection)
	} else {
		slog.WarnContext(ctx, "typesense disabled, message search unavailable")
	}

	cleaner := content.NewCleaner(cfg.Moderation.MaxContentLength)

	messageService := service.NewMessageService(
		stores.Messages, stores.Conversations, stores.Groups,
		cleaner, fanoutProducer, changeFeed, broadcast, indexRemover(index), nil,
	)
	liveService := service.NewLiveService(
		stores.Threads, changeFeed,
		service.MessageFetcher{Messages: stores.Messages},
		broadcast,
		service.LiveConfig{DedupWindow: cfg.Inbox.DedupWindow, Buffer: cfg.Inbox.SessionBuffer},
	)
	notificationService := service.NewNotificationService(stores.Notifications)
	profileService := service.NewProfileService(stores.Profiles)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, handlers(messageService, liveService, notificationService, profileService, index))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Live SSE connections outlive any write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func handlers(messages *service.MessageService, live *service.LiveService, notifications *service.NotificationService, profiles *service.ProfileService, index *search.Index) httprouter.Handlers {
	var searcher handler.Searcher
	if index != nil {
		searcher = index
	} else {
		searcher = noSearch{}
	}
	return httprouter.Handlers{
		Inbox:         handler.NewInboxHandler(live, messages),
		Messages:      handler.NewMessageHandler(messages, searcher),
		Notifications: handler.NewNotificationHandler(notifications),
		Profiles:      handler.NewProfileHandler(profiles),
	}
}

func setupRouter(cfg config.Config, handlers httprouter.Handlers) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handlers)

	return router
}

func indexRemover(index *search.Index) service.IndexRemover {
	if index == nil {
		return nil
	}
	return index
}

type noSearch struct{}

func (noSearch) Query(context.Context, int64, string, int) ([]search.Hit, error) {
	return nil, fmt.Errorf("search index not configured")
}

const banner = `
██████╗ ███████╗██████╗ ██╗   ██╗███████╗██╗   ██╗    ██╗███╗   ██╗██████╗  ██████╗ ██╗  ██╗
██╔══██╗██╔════╝██╔══██╗██║   ██║██╔════╝╚██╗ ██╔╝    ██║████╗  ██║██╔══██╗██╔═══██╗╚██╗██╔╝
██████╔╝█████╗  ██████╔╝██║   ██║███████╗ ╚████╔╝     ██║██╔██╗ ██║██████╔╝██║   ██║ ╚███╔╝
██╔══██╗██╔══╝  ██╔══██╗██║   ██║╚════██║  ╚██╔╝      ██║██║╚██╗██║██╔══██╗██║   ██║ ██╔██╗
██████╔╝███████╗██████╔╝╚██████╔╝███████║   ██║       ██║██║ ╚████║██████╔╝╚██████╔╝██╔╝ ██╗
╚═════╝ ╚══════╝╚═════╝  ╚═════╝ ╚══════╝   ╚═╝       ╚═╝╚═╝  ╚═══╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝
`
