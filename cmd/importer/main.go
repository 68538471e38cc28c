package main

import (
	"context"
	"database/sql"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reserve_catalog/internal/adapters/catalog"
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

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "importer", cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("base", cfg.CatalogBase).
		Str("source", cfg.ImportSource).
		Int("workers", cfg.ImportWorkers).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := catalog.New(cfg.CatalogBase, cfg.CatalogKey, cfg.CatalogRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog client")
	}
	blobs, err := s3blob.New(ctx, s3blob.Options{
		Bucket:      cfg.S3Bucket,
		Region:      cfg.S3Region,
		Endpoint:    cfg.S3Endpoint,
		AccessKey:   cfg.S3AccessKey,
		SecretKey:   cfg.S3SecretKey,
		PathStyle:   cfg.S3PathStyle,
		KeyPrefix:   "reserves/imported/",
		DownloadTTL: cfg.DownloadTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	imp := app.NewImportService(client, repo, blobs, cache, cfg.ImportSource)

	ids, err := client.ListIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list catalogue ids failed")
	}
	log.Info().Int("count", len(ids)).Msg("catalogue listed")

	workers := cfg.ImportWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var failed int64

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("import interrupted")
			break
		}

		wg.Add(1)
		go func(sourceID string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := imp.ImportReserve(ctx, sourceID); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Str("id", sourceID).Err(err).Msg("import failed")
				return
			}
			log.Debug().Str("id", sourceID).Msg("import ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int("total", len(ids)).Int64("failed", failed).Msg("import completed")
}
