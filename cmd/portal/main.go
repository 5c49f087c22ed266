package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"skywardportal/internal/app"
	"skywardportal/internal/config"
	"skywardportal/internal/ratelimit"
	"skywardportal/internal/server"
	"skywardportal/internal/util"
	"skywardportal/pkg/events"
	"skywardportal/pkg/storage"
	"skywardportal/pkg/store"
)

const rateWindow = time.Minute

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseDurationOption("sessionTTL", cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	if sessionTTL <= 0 {
		sessionTTL = 15 * time.Minute
	}
	refreshTTL, err := config.ParseDurationOption("refreshTTL", cfg.RefreshTTL)
	if err != nil {
		log.Fatalf("failed to parse refresh TTL: %v", err)
	}
	jwtLeeway, err := config.ParseDurationOption("jwtLeeway", cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	presignExpiry, err := config.ParseDurationOption("presignExpiry", cfg.PresignExpiry)
	if err != nil {
		log.Fatalf("failed to parse presign expiry: %v", err)
	}
	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	revoker := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
	sessions, err := store.NewJWTSessionStoreFromPEM(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTKeyID, sessionTTL, revoker, store.JWTOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}
	refreshTokens := store.NewRedisRefreshTokenStore(cfg.RedisAddr, cfg.RedisPassword)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		exchange := cfg.AMQPExchange
		if exchange == "" {
			exchange = "portal.leads"
		}
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, exchange)
		if err != nil {
			log.Fatalf("failed to init event publisher: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	newLimiter := func(name string, limit int) server.Limiter {
		if limit <= 0 {
			return nil
		}
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "skyward:ratelimit:"+name, limit, rateWindow)
		if err != nil {
			log.Fatalf("failed to init %s rate limiter: %v", name, err)
		}
		return limiter
	}

	appCore := app.New(db, objects, publisher, app.Options{
		TelegramHandle: cfg.TelegramHandle,
		PresignExpiry:  presignExpiry,
	})

	httpServer := server.New(server.Config{
		App:            appCore,
		Sessions:       sessions,
		RefreshTokens:  refreshTokens,
		RefreshTTL:     refreshTTL,
		AuthLimiter:    newLimiter("auth", cfg.AuthRateLimitPerMinute),
		LeadLimiter:    newLimiter("lead", cfg.LeadRateLimitPerMinute),
		TrustedProxies: trustedProxies,
	})

	handler := util.WithRequestID(
		util.WithRequestLog(trustedProxies,
			util.WithSecurityHeaders(
				util.WithCORS(cfg.AllowedOrigins, httpServer.Router()))))

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("portal listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
