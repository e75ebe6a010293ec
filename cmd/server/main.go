package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"xs2a/internal/authorisation"
	authmetrics "xs2a/internal/authorisation/metrics"
	"xs2a/internal/authorisation/redirect"
	"xs2a/internal/authorisation/stages"
	"xs2a/internal/consent"
	"xs2a/internal/payment"
	"xs2a/internal/piis"
	"xs2a/internal/platform/config"
	"xs2a/internal/platform/httpserver"
	"xs2a/internal/platform/kafka"
	"xs2a/internal/platform/logger"
	"xs2a/internal/platform/metrics"
	"xs2a/internal/platform/middleware"
	"xs2a/internal/platform/migrate"
	platformredis "xs2a/internal/platform/redis"
	"xs2a/internal/profile"
	"xs2a/internal/spi"
	"xs2a/internal/spi/localbank"
	httptransport "xs2a/internal/transport/http"
	"xs2a/pkg/platform/audit"
	auditmemory "xs2a/pkg/platform/audit/store/memory"
	auditpostgres "xs2a/pkg/platform/audit/store/postgres"
	"xs2a/pkg/platform/audit/worker"
)

// main wires the stores, the SPI adapters, the stage resolver and the HTTP
// surface, then runs everything under one errgroup until a signal arrives.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := profile.AspspSettings{
		ScaApproaches:        cfg.Profile.ScaApproaches,
		RedirectURLExpiry:    cfg.Profile.RedirectURLExpiry,
		AuthorisationExpiry:  cfg.Profile.AuthorisationExpiry,
		MultilevelScaEnabled: cfg.Profile.MultilevelScaEnabled,
		ScaExemptionAllowed:  cfg.Profile.ScaExemptionAllowed,
	}

	// Stores: postgres when a DSN is configured, otherwise in-memory.
	var (
		db         *sql.DB
		authStore  authorisation.Store
		auditStore audit.Store
		consents   consent.Store
		payments   payment.Store
	)
	if cfg.Postgres.DSN != "" {
		if err := migrate.Up(cfg.Postgres.DSN, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		authStore = authorisation.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		consents = consent.NewPostgres(db)
		payments = payment.NewPostgres(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		authStore = authorisation.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
		consents = consent.NewInMemoryStore()
		payments = payment.NewInMemoryStore()
	}

	// Redirect-session cache: redis when configured, otherwise in-memory
	// with a background purge.
	var redirectCache redirect.Cache
	var memoryCache *redirect.InMemoryCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		redirectCache = redirect.NewRedisCache(redisClient.Client, cfg.Profile.RedirectURLExpiry)
	} else {
		memoryCache = redirect.NewInMemoryCache(cfg.Profile.RedirectURLExpiry)
		redirectCache = memoryCache
	}

	// Audit pipeline: services emit into a buffered channel; the worker
	// drains it into the store and, when configured, kafka.
	publisher := audit.NewChannelPublisher(cfg.Audit.BufferSize, log)
	var sink worker.Sink
	kafkaPublisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if kafkaPublisher != nil {
		defer kafkaPublisher.Close()
		sink = kafkaPublisher
	}
	auditWorker := worker.NewWorker(auditStore, publisher.Inbox(), sink, log)

	consentService, err := consent.New(consents, consent.WithLogger(log), consent.WithAuditPublisher(publisher))
	if err != nil {
		log.Error("consent service init failed", "error", err)
		os.Exit(1)
	}
	paymentService, err := payment.New(payments, payment.WithLogger(log), payment.WithAuditPublisher(publisher))
	if err != nil {
		log.Error("payment service init failed", "error", err)
		os.Exit(1)
	}

	adapter := localbank.New(os.Getenv("XS2A_DEMO_PSU_PASSWORD"), os.Getenv("XS2A_DEMO_TAN"))
	authMetrics := authmetrics.New()
	resolver := stages.NewResolver(&stages.Deps{
		Consents:            consentService,
		Payments:            paymentService,
		DB:                  db,
		ConsentAdapter:      adapter,
		PaymentAdapter:      localbank.NewPayment(adapter),
		CancellationAdapter: localbank.NewCancellation(adapter),
		Mapper:              spi.NewErrorMapper(),
		Settings:            settings,
		Metrics:             authMetrics,
		Logger:              log,
	})

	authService, err := authorisation.New(authStore, resolver, settings,
		authorisation.WithLogger(log),
		authorisation.WithAuditPublisher(publisher),
		authorisation.WithRedirectCache(redirectCache),
	)
	if err != nil {
		log.Error("authorisation service init failed", "error", err)
		os.Exit(1)
	}

	piisService, err := piis.New(consentService, adapter, spi.NewErrorMapper(),
		piis.WithLogger(log),
		piis.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("funds confirmation service init failed", "error", err)
		os.Exit(1)
	}

	var health []httptransport.HealthChecker
	if db != nil {
		health = append(health, httptransport.HealthFunc(db.PingContext))
	}
	if redisClient != nil {
		health = append(health, httptransport.HealthFunc(redisClient.Health))
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Authorisations: authService,
		Funds:          piisService,
		Validator:      middleware.NewJWTValidator(cfg.Server.JWTSigningKey),
		Metrics:        metrics.New(),
		Logger:         log,
		Health:         health,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return auditWorker.Run(groupCtx)
	})

	if memoryCache != nil {
		group.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case now := <-ticker.C:
					memoryCache.Purge(now)
				}
			}
		})
	}

	group.Go(func() error {
		log.Info("starting xs2a server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The audit worker reports the shutdown cancellation; only real faults
	// are fatal.
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
