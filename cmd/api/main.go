package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "reserve_catalog/internal/adapters/http_server"
	"reserve_catalog/internal/adapters/identity"
	"reserve_catalog/internal/adapters/observability"
	redisad "reserve_catalog/internal/adapters/redis"
	"reserve_catalog/internal/adapters/s3blob"
	"reserve_catalog/internal/app"
	"reserve_catalog/internal/shared"
	mysqlrepo "reserve_catalog/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// reads fall through to MySQL on cache errors
		log.Warn().Err(err).Msg("redis unreachable; serving uncached")
	}

	blobs, err := s3blob.New(ctx, s3blob.Options{
		Bucket:      cfg.S3Bucket,
		Region:      cfg.S3Region,
		Endpoint:    cfg.S3Endpoint,
		AccessKey:   cfg.S3AccessKey,
		SecretKey:   cfg.S3SecretKey,
		PathStyle:   cfg.S3PathStyle,
		KeyPrefix:   "reserves/",
		UploadTTL:   cfg.UploadTTL,
		DownloadTTL: cfg.DownloadTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}

	verifier, err := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		log.Fatal().Err(err).Msg("identity verifier init failed")
	}

	q := app.NewQueryService(repo, blobs, cache, cfg.CacheTTL)
	c := app.NewCommandService(repo, blobs, cache)

	// http
	srv := server.New(verifier, cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, C: c})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
