package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/aptlease/internal/featureflags"
	"github.com/aryan0dhankhar/aptlease/internal/handler"
	"github.com/aryan0dhankhar/aptlease/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/aptlease/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/aptlease/internal/observability/tracing"
	"github.com/aryan0dhankhar/aptlease/internal/repository"
	"github.com/aryan0dhankhar/aptlease/internal/security"
	"github.com/aryan0dhankhar/aptlease/internal/security/audit"
	"github.com/aryan0dhankhar/aptlease/internal/security/auth"
	"github.com/aryan0dhankhar/aptlease/internal/security/ratelimit"
	"github.com/aryan0dhankhar/aptlease/internal/service"
	"github.com/aryan0dhankhar/aptlease/internal/worker"
	"github.com/aryan0dhankhar/aptlease/pkg/cache"
	"github.com/aryan0dhankhar/aptlease/pkg/config"
	"github.com/aryan0dhankhar/aptlease/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting aptlease server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "aptlease", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Database
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Token revocations live in Redis when configured, in process otherwise
	var (
		revocations auth.RevocationStore
		redisPinger handler.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		revocations = auth.NewRedisRevocationStore(redisClient)
		redisPinger = redisClient
	} else {
		log.Warn("REDIS_URL not set, token revocations are kept in memory")
		revocations = auth.NewCacheRevocationStore(cache.New())
	}

	// 5. Repositories
	db := pool.GetDB()
	identities := repository.NewPostgresIdentityRepository(db, log)
	managers := repository.NewPostgresManagerRepository(db)
	tenants := repository.NewPostgresTenantRepository(db, log)
	roomTypes := repository.NewPostgresRoomTypeRepository(db)
	apartments := repository.NewPostgresApartmentRepository(db, log)
	contracts := repository.NewPostgresContractRepository(db, log)

	// 6. Services
	authz := security.NewAuthorizationService(log)
	auditLog := audit.NewLogger(log)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	identityService := service.NewIdentityService(identities, tokens, revocations, log)
	accountService := service.NewAccountService(identityService, tenants, managers, authz, auditLog, log)
	leaseService := service.NewLeaseService(apartments, contracts, authz, auditLog, featureflags.Env{}, log)
	tenantService := service.NewTenantService(tenants, contracts, identityService, authz, auditLog, log)
	roomTypeService := service.NewRoomTypeService(roomTypes, authz, cache.New(), cfg.RoomTypeCacheTTL, log)
	apartmentService := service.NewApartmentService(apartments, authz, log)

	// 7. HTTP
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	router := handler.NewRouter(handler.RouterDeps{
		Accounts:       handler.NewAccountHandler(accountService, identityService, log),
		RoomTypes:      handler.NewRoomTypeHandler(roomTypeService, log),
		Apartments:     handler.NewApartmentHandler(apartmentService, log),
		Tenants:        handler.NewTenantHandler(tenantService, log),
		Contracts:      handler.NewContractHandler(leaseService, log),
		Health:         handler.NewHealthHandler(handler.PingFunc(pool.Health), redisPinger, log),
		Verifier:       identityService,
		Authz:          authz,
		Audit:          auditLog,
		Limiter:        rateLimiter,
		LoginLimit:     cfg.LoginRateLimit,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
	})

	// 8. Reconcile worker reports apartment/contract drift
	reconciler := worker.NewReconcileWorker(apartments, contracts, log, cfg.ReconcileInterval)
	go reconciler.Start(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(router, "aptlease"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Bool("redis", cfg.RedisURL != ""),
		slog.Bool("lease_date_order", featureflags.Env{}.Enabled(featureflags.LeaseDateOrder)),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop reconcile worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
