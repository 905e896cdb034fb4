package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"3tcapital/ms_ewaybill_core/internal/adapters/audit/postgres"
	credentialredis "3tcapital/ms_ewaybill_core/internal/adapters/credential/redis"
	ewaybillpostgres "3tcapital/ms_ewaybill_core/internal/adapters/ewaybill/postgres"
	ewaybillhttp "3tcapital/ms_ewaybill_core/internal/adapters/http/ewaybill"
	healthhttp "3tcapital/ms_ewaybill_core/internal/adapters/http/health"
	"3tcapital/ms_ewaybill_core/internal/adapters/iap"
	appewaybill "3tcapital/ms_ewaybill_core/internal/application/ewaybill"
	apphealth "3tcapital/ms_ewaybill_core/internal/application/health"
	"3tcapital/ms_ewaybill_core/internal/core/audit"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/cache"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/config"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/database"
	httpclient "3tcapital/ms_ewaybill_core/internal/infrastructure/http"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/http/middleware"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/http/server"
	"3tcapital/ms_ewaybill_core/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("Failed to connect to database",
			"host", cfg.Database.Host,
			"database", cfg.Database.Database,
			"user", cfg.Database.User,
			"password_set", cfg.Database.Password != "",
			"error", err,
		)
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	log.Info("Database connection established", "database", cfg.Database.Database)

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(ctx, pool, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	var auditRepo audit.Repository
	var callReader ewaybillhttp.CallReader
	if cfg.Audit.Enabled {
		repo := postgres.NewRepository(pool, log)
		auditRepo = repo
		callReader = repo
		log.Info("Audit trail configuration: ENABLED", "max_body_size", cfg.Audit.MaxBodySize)
	} else {
		log.Info("Audit trail configuration: DISABLED - Audit not enabled in configuration")
	}

	traced := httpclient.NewTracedClient(&httpclient.TracedClientConfig{
		Timeout:         cfg.IAP.Timeout,
		AuditEnabled:    cfg.Audit.Enabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
		MaxConnsPerHost: cfg.IAP.MaxConcurrent,
	}, log, auditRepo, "iap")
	defer func() {
		waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := traced.Wait(waitCtx); err != nil {
			log.Warn("Pending audit writes did not finish", "error", err)
		}
	}()

	var tokens iap.TokenStore
	var redisStore *credentialredis.TokenStore
	if cfg.Redis.URL != "" {
		redisStore, err = credentialredis.NewTokenStore(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisStore.Close()
		tokens = redisStore
		log.Info("Portal tokens shared through Redis", "prefix", cfg.Redis.KeyPrefix)
	} else {
		tokens = cache.NewTokenCache()
		log.Warn("REDIS_URL not set, portal tokens cached in process memory")
	}

	breaker := iap.NewBreaker(cfg.IAP.BreakerMaxFailures, cfg.IAP.BreakerCooldown)
	connector := iap.NewConnector(cfg.IAP.Endpoint, cfg.IAP.AccountToken, cfg.IAP.DBUUID, traced, log,
		iap.WithBreaker(breaker),
		iap.WithLimiter(iap.NewLimiter(cfg.IAP.MaxConcurrent)),
	)
	ediAuth := iap.NewAuthManager(iap.ChannelEDI, connector, tokens, cfg.IAP.TokenTTL, log)
	ewaybillAuth := iap.NewAuthManager(iap.ChannelEwaybill, connector, tokens, cfg.IAP.TokenTTL, log)
	provider := iap.NewClient(connector, ediAuth, ewaybillAuth, cfg.IAP.BuyCreditsURL, log)
	log.Info("IAP proxy configured",
		"endpoint", cfg.IAP.Endpoint,
		"test_mode", cfg.IAP.TestMode,
		"max_concurrent", cfg.IAP.MaxConcurrent,
	)

	ewaybillService := appewaybill.NewService(ewaybillpostgres.NewRepository(pool, log), provider, log)
	ewaybillHandler := ewaybillhttp.NewHandler(ewaybillService, callReader, log)

	healthService := apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, probes(pool.Ping, redisStore, breaker)...)
	healthHandler := healthhttp.NewHandler(healthService, log)

	authenticator, err := middleware.NewJWTAuthenticator(cfg.Auth, log)
	if err != nil {
		return fmt.Errorf("create authenticator: %w", err)
	}

	srv, err := server.New(server.Options{
		Config:          cfg,
		Logger:          log,
		HealthHandler:   http.HandlerFunc(healthHandler.Status),
		EwaybillHandler: ewaybillHandler,
		Authenticator:   authenticator,
	})
	if err != nil {
		authenticator.Close()
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port, "auth_enabled", cfg.Auth.Enabled)
	return srv.Run(ctx)
}

// probes lists the dependencies reported by /health. Only the database is
// critical.
func probes(pingDB func(context.Context) error, redisStore *credentialredis.TokenStore, breaker *iap.Breaker) []apphealth.Probe {
	list := []apphealth.Probe{
		{Name: "postgres", Critical: true, Check: pingDB},
		{Name: "iap", Check: func(context.Context) error {
			if breaker.State() == iap.BreakerOpen {
				return iap.ErrBreakerOpen
			}
			return nil
		}},
	}
	if redisStore != nil {
		list = append(list, apphealth.Probe{Name: "redis", Check: redisStore.Ping})
	}
	return list
}

