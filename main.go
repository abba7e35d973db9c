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

	"threads/cache"
	"threads/config"
	"threads/database"
	"threads/handlers"
	"threads/logger"
	"threads/media"
	"threads/middleware"
	"threads/push"
	"threads/routes"
	"threads/store"
	"threads/telemetry"
	"threads/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.IsRelease()); err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}
	log := logger.Logger

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting threads API", "mode", cfg.GinMode, "store", cfg.StoreDriver)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.GinMode, log)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	var (
		st     *store.Store
		health func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemory()
	default:
		db, err := database.ConnectMongo(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Disconnect()
		if err := db.EnsureIndexes(ctx); err != nil {
			return err
		}
		st = store.NewMongo(db.DB)
		health = db.Ping
	}

	var (
		profiles  cache.Profiles = cache.Nop{}
		rateLimit gin.HandlerFunc
	)
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		profiles = cache.NewRedisProfiles(rdb, cfg.ProfileCacheTTL, log)
		rateLimit = middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimitReqs, cfg.RateLimitWindow, log)
		log.Info("connected to Redis")
	} else {
		rateLimit = middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	var uploader media.Uploader = media.Passthrough{}
	if cfg.CloudinaryURL != "" {
		cld, err := media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			return err
		}
		uploader = cld
	} else {
		log.Warn("CLOUDINARY_URL not set, images are stored as given")
	}

	var notifier push.Notifier = push.Nop{}
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		notifier = push.NewWebPush(st.Subscriptions, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, log)
	} else {
		log.Warn("VAPID keys not set, push notifications disabled")
	}

	hub := websocket.NewManager(log)
	go hub.Start(ctx)

	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn)
	h := handlers.New(handlers.Deps{
		Store:          st,
		Tokens:         tokens,
		Profiles:       profiles,
		Media:          uploader,
		Push:           notifier,
		Events:         hub,
		BcryptCost:     cfg.BcryptCost,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		SecureCookies:  cfg.IsRelease(),
		Log:            log,
	})

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(routes.Options{
		Handler:     h,
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   rateLimit,
		Hub:         hub,
		Health:      health,
		Tracing:     cfg.OTLPEndpoint != "",
		Log:         log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
