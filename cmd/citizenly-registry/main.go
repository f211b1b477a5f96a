package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
	"citizenly-registry/internal/geo"
	httpapi "citizenly-registry/internal/http"
	"citizenly-registry/internal/logger"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/service"
	"citizenly-registry/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "citizenly-registry")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var kv store.KV
	var audit store.AuditPublisher
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// cache and audit degrade to in-process; registry writes still work
		log.Warn("Redis unavailable, using in-memory cache and audit", zap.Error(err))
		kv = store.NewMemoryKV()
		audit = store.NewMemoryAuditPublisher()
	} else {
		kv = store.NewRedisKV(redisClient)
		audit = store.NewStreamAuditPublisher(redisClient, log)
	}

	var (
		db             *sql.DB
		usersRepo      repository.UsersRepository
		rolesRepo      repository.RolesRepository
		psgcRepo       repository.PSGCRepository
		psocRepo       repository.PSOCRepository
		residentsRepo  repository.ResidentsRepository
		householdsRepo repository.HouseholdsRepository
		statsRepo      repository.StatsRepository
	)

	if cfg.DBEnabled {
		d, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Fatal("DB enabled but connection failed", zap.Error(err))
		}
		db = d
		defer database.Close(db)

		if err := database.RunMigrations(db, "file://migrations"); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("DB enabled for citizenly-registry",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)

		usersRepo = repository.NewPostgresUsersRepository(db)
		rolesRepo = repository.NewPostgresRolesRepository(db)
		psgcRepo = repository.NewPostgresPSGCRepository(db)
		psocRepo = repository.NewPostgresPSOCRepository(db)
		residentsRepo = repository.NewPostgresResidentsRepository(db)
		householdsRepo = repository.NewPostgresHouseholdsRepository(db)
		statsRepo = repository.NewPostgresStatsRepository(db)
	} else {
		// DB-less dev mode: memory repos with a PSGC sample so the
		// address pickers are not empty on `go run`.
		log.Warn("DB disabled, using in-memory repositories")
		memPSGC := repository.NewMemoryPSGCRepo()
		memPSGC.SeedSample()
		memRoles := repository.NewMemoryRolesRepo()
		memResidents := repository.NewMemoryResidentsRepo()
		memHouseholds := repository.NewMemoryHouseholdsRepo(memResidents)

		usersRepo = repository.NewMemoryUsersRepo(memRoles)
		rolesRepo = memRoles
		psgcRepo = memPSGC
		psocRepo = repository.NewMemoryPSOCRepo()
		residentsRepo = memResidents
		householdsRepo = memHouseholds
		statsRepo = repository.NewMemoryStatsRepo(memResidents, memHouseholds, memPSGC)
	}

	resolver := geo.NewChainResolver(psgcRepo, kv, log)
	tokens := auth.NewTokenService(cfg.Auth)

	authService := service.NewAuthService(usersRepo, rolesRepo, resolver, tokens, log)
	residentService := service.NewResidentService(residentsRepo, householdsRepo, psocRepo, psgcRepo, resolver, audit, log)
	householdService := service.NewHouseholdService(householdsRepo, residentsRepo, resolver, audit, log)
	addressService := service.NewAddressService(psgcRepo, resolver, log)
	occupationService := service.NewOccupationService(psocRepo)
	dashboardService := service.NewDashboardService(statsRepo, kv, log)
	exportService := service.NewExportService(residentsRepo, residentService, log)

	mw := httpapi.NewAuthMiddleware(tokens, usersRepo, log)
	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, cfg.HTTP.MaxBodyBytes, log), mw)
	router.RegisterResidentRoutes(httpapi.NewResidentHandler(residentService, exportService, cfg.HTTP.MaxBodyBytes, log), mw)
	router.RegisterHouseholdRoutes(httpapi.NewHouseholdHandler(householdService, cfg.HTTP.MaxBodyBytes, log), mw)
	router.RegisterAddressRoutes(httpapi.NewAddressHandler(addressService, log), mw)
	router.RegisterOccupationRoutes(httpapi.NewOccupationHandler(occupationService, log), mw)
	router.RegisterRoleRoutes(httpapi.NewRolesHandler(rolesRepo, log), mw)
	router.RegisterDashboardRoutes(httpapi.NewDashboardHandler(dashboardService, log), mw)
	router.RegisterOpsRoutes(httpapi.NewHealthHandler(db, log), cfg.Metrics.Enabled)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down on signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
