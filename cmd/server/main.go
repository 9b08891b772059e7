package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/application/checkout"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/cache"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/telemetry"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/marketplace/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// OpenAPI files only; the server does not serve them.
//go:generate go run github.com/swaggo/swag/cmd/swag@v1.16.4 init --dir ../.. --generalInfo cmd/server/main.go --output ../../docs/openapi --outputTypes json,yaml --parseInternal

//	@title			Marketplace Checkout API
//	@version		1.0
//	@description	Cart pricing, promotions and per-store order split for a multi-vendor marketplace.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Buyer token issued by the identity service. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting marketplace backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:       cfg.Telemetry.ServiceName,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		TracesEnabled:     cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if level, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		log = logger.Tee(log, providers.LogCore(level))
	}

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.Open(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentDB(db.DB, telemetry.DBTracingConfig{
			DBName:        "postgresql",
			LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
			SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	calculator := checkout.NewPriceCalculator(checkout.Repositories{
		Products:      persistence.NewGormProductRepository(db.DB),
		Stores:        persistence.NewGormStoreRepository(db.DB),
		Promotions:    persistence.NewGormPromotionRepository(db.DB),
		TaxRules:      persistence.NewGormTaxRuleRepository(db.DB),
		ShippingRules: persistence.NewGormShippingRuleRepository(db.DB),
		Usage:         persistence.NewGormUsageLedger(db.DB),
	}, checkout.Settings{
		TaxEnabled:      cfg.Platform.TaxEnabled,
		ShippingEnabled: cfg.Platform.ShippingEnabled,
		Currency:        valueobject.Currency(cfg.Platform.Currency),
		DefaultZone:     cfg.Platform.DefaultZone,
		DefaultMethod:   cfg.Platform.DefaultMethod,
	}, log.Named("pricing"))

	checkoutService := checkout.NewService(calculator, persistence.NewGormOrderRepository(db.DB), log.Named("checkout"))

	checkoutMetrics, err := telemetry.NewCheckoutMetrics(providers.Meter("marketplace/checkout"), log)
	if err != nil {
		log.Warn("Checkout metrics unavailable", zap.Error(err))
	} else {
		calculator.SetCheckoutMetrics(checkoutMetrics)
		checkoutService.SetCheckoutMetrics(checkoutMetrics)
	}

	system := handler.NewSystemHandler().
		AddCheck("database", db.Ping)

	if cfg.Idempotency.Enabled {
		keys, err := cache.NewIdempotencyStore(ctx, cfg.Idempotency, cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to initialize idempotency store", zap.Error(err))
		}
		defer func() {
			if err := keys.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		checkoutService.SetIdempotencyStore(keys, shared.IdempotencyConfig{
			Enabled:    true,
			TTL:        cfg.Idempotency.TTL,
			PendingTTL: cfg.Idempotency.PendingTTL,
		})
		if redisStore, ok := keys.(*cache.RedisIdempotencyStore); ok {
			system.AddCheck("redis", redisStore.Ping)
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before tracing and logging,
	// and the access log runs inside the span so it carries the trace id.
	engine.Use(middleware.RequestID())
	if providers.TracingEnabled() {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName)...)
	}
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if providers.MetricsEnabled() {
		httpMetrics, err := middleware.HTTPMetrics(providers.Meter("http.server"))
		if err != nil {
			log.Warn("HTTP metrics unavailable", zap.Error(err))
		} else {
			engine.Use(httpMetrics)
		}
	}
	security := middleware.SecurityConfig{}
	if cfg.App.Env == "production" {
		security.HSTSMaxAge = 180 * 24 * time.Hour
	}
	engine.Use(middleware.Secure(security))
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	router.RegisterHealth(engine, system)

	jwtService := auth.NewJWTService(cfg.JWT)
	buyerAuth := middleware.RequireBuyer(jwtService, log)
	guestAuth := buyerAuth
	if !cfg.JWT.Required {
		guestAuth = middleware.OptionalBuyer(jwtService, log)
	}

	var rateLimit gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		rateLimit = middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	for _, group := range router.CheckoutRoutes(handler.NewCheckoutHandler(checkoutService), router.Auth{
		Guest:     guestAuth,
		Buyer:     buyerAuth,
		RateLimit: rateLimit,
	}) {
		r.Register(group)
	}
	r.Register(router.SystemRoutes(system))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
