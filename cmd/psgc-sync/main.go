// psgc-sync pulls the current PSGC reference data from the configured
// publication endpoint and upserts it into the reference tables. Meant
// for scheduled runs between full workbook imports.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/logger"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/service"
	"citizenly-registry/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.NewLogger(cfg.Log.Level, "console", "psgc-sync")
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	psgcRepo := repository.NewPostgresPSGCRepository(db)

	ctx := context.Background()

	var cache service.GeoCacheInvalidator
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, ancestry cache will not be invalidated", zap.Error(err))
	} else {
		cache = geo.NewChainResolver(psgcRepo, store.NewRedisKV(redisClient), zapLogger)
	}

	client := service.NewPSGCSyncClient(cfg.PSGCSync, zapLogger)
	sync := service.NewPSGCSyncService(client, psgcRepo, cache, cfg.PSGCSync.BatchSize, zapLogger)

	start := time.Now()
	report, err := sync.SyncAll(ctx)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	fmt.Printf("Synced %d regions, %d provinces, %d cities, %d barangays in %s\n",
		report.Regions, report.Provinces, report.Cities, report.Barangays, time.Since(start).Round(time.Millisecond))
}
