package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"visitor-register-backend/config"
	"visitor-register-backend/internal/api"
	"visitor-register-backend/internal/db"
	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/metrics"
	"visitor-register-backend/internal/mw"
	"visitor-register-backend/internal/notification"
	"visitor-register-backend/internal/queue"
	"visitor-register-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "visitor-backend ", log.LstdFlags)

	if err := godotenv.Load(); err == nil {
		logger.Println("loaded environment from .env")
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	recorder := metrics.NewRecorder()
	notifiers := []lifecycle.Notifier{recorder}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		pool.Start(ctx)
		notifiers = append(notifiers, pool)
		logger.Printf("push notifications enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; push notifications disabled")
	}

	if cfg.Queue.Enabled {
		publisher, err := queue.Dial(cfg.Queue.URL, cfg.Queue.Name, cfg.WorkerPool.QueueSize)
		if err != nil {
			logger.Printf("event queue disabled: %v", err)
		} else {
			defer publisher.Close()
			go publisher.Run(ctx)
			notifiers = append(notifiers, publisher)
			logger.Printf("publishing visitor events to queue %q", cfg.Queue.Name)
		}
	}

	ctrl := lifecycle.New(appStore,
		lifecycle.WithRequireDetails(cfg.Entries.DetailsRequired()),
		lifecycle.WithNotifiers(notifiers...),
		lifecycle.WithScanObserver(recorder),
	)

	exportOpts, err := export.NewOptions(cfg.Export.Title, cfg.Export.Timezone)
	if err != nil {
		logger.Printf("unknown export timezone %q, using UTC: %v", cfg.Export.Timezone, err)
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	stopEviction := make(chan struct{})
	go limiter.RunEviction(time.Minute, 10*time.Minute, stopEviction)

	router := api.NewRouter(api.Dependencies{
		Store:          appStore,
		Controller:     ctrl,
		Cache:          newResponseCache(ctx, cfg, logger),
		RateLimiter:    limiter,
		Webpush:        webpushOptions,
		Export:         exportOpts,
		Metrics:        recorder,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	close(stopEviction)

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// newResponseCache picks the configured cache backend. An unreachable redis
// falls back to the in-process cache.
func newResponseCache(ctx context.Context, cfg *config.Config, logger *log.Logger) mw.ResponseCache {
	if cfg.Cache.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := rdb.Ping(pingCtx).Err()
		if err == nil {
			logger.Printf("response cache: redis at %s", cfg.Cache.Redis.Addr)
			return mw.NewRedisCache(rdb, cfg.Cache.Prefix, cfg.Cache.TTL)
		}
		logger.Printf("redis unavailable (%v), falling back to memory cache", err)
		_ = rdb.Close()
	}
	logger.Printf("response cache: memory, ttl %s", cfg.Cache.TTL)
	return mw.NewMemoryCache(cfg.Cache.TTL)
}
