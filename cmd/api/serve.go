package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medhist-api/internal/config"
	authhandler "github.com/jwalitptl/medhist-api/internal/handler/auth"
	diagnosishandler "github.com/jwalitptl/medhist-api/internal/handler/diagnosis"
	"github.com/jwalitptl/medhist-api/internal/handler/docs"
	"github.com/jwalitptl/medhist-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/medhist-api/internal/handler/patient"
	"github.com/jwalitptl/medhist-api/internal/middleware"
	"github.com/jwalitptl/medhist-api/internal/realtime"
	"github.com/jwalitptl/medhist-api/internal/repository/postgres"
	"github.com/jwalitptl/medhist-api/internal/router"
	authservice "github.com/jwalitptl/medhist-api/internal/service/auth"
	diagnosisservice "github.com/jwalitptl/medhist-api/internal/service/diagnosis"
	patientservice "github.com/jwalitptl/medhist-api/internal/service/patient"
	"github.com/jwalitptl/medhist-api/internal/service/rules"
	"github.com/jwalitptl/medhist-api/pkg/auth"
	"github.com/jwalitptl/medhist-api/pkg/logger"
	"github.com/jwalitptl/medhist-api/pkg/messaging/redis"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
	"github.com/jwalitptl/medhist-api/pkg/security"
)

func serveCmd(load loader) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, log, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, log *logger.Logger, migrateFirst bool) error {
	zl := *log.Zerolog()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.NewMetrics("medhist", prometheus.DefaultRegisterer)

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateFirst {
		mg, err := postgres.NewMigrator(db)
		if err != nil {
			return err
		}
		applied, err := mg.Up()
		if closeErr := mg.Close(); closeErr != nil {
			log.Warn("failed to close migrator", "error", closeErr.Error())
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("schema ready", "migrated", applied)
	}

	repos := postgres.NewRepositories(db, cfg.Database.QueryTimeout, m)

	// Redundancy rules
	diseases, err := rules.NewDiseaseSet(cfg.Rules.Version, cfg.Rules.OneTimeDiseases)
	if err != nil {
		return fmt.Errorf("invalid rules configuration: %w", err)
	}
	engine := rules.NewEngine(diseases)
	log.Info("redundancy rules loaded", "version", diseases.Version(), "diseases", diseases.Names())

	// Realtime delivery, fanned out across instances through Redis when enabled
	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, zl, m)
	defer hub.Close()

	var notifierOpts []realtime.NotifierOption
	if cfg.Redis.Enabled {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:             cfg.Redis.URL,
			MaxRetries:      cfg.Redis.MaxRetries,
			RetryBackoff:    cfg.Redis.RetryBackoff,
			PoolSize:        cfg.Redis.PoolSize,
			SubscribeBuffer: cfg.Realtime.SubscriberBuffer,
		}, zl, m)
		if err != nil {
			return err
		}
		defer broker.Close()
		notifierOpts = append(notifierOpts, realtime.WithBroker(broker, cfg.Redis.Channel))
	}
	notifier := realtime.NewNotifier(hub, zl, m, notifierOpts...)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go func() {
		if err := notifier.Run(relayCtx); err != nil {
			log.Error(err, "realtime relay stopped")
		}
	}()

	// Initialize services
	jwtSvc, err := auth.NewJWTService(auth.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiry,
	})
	if err != nil {
		return err
	}
	authSvc := authservice.NewService(
		authservice.NewDoctorProvider(repos.Doctors, security.NewBcryptHasher(0)),
		jwtSvc,
		zl,
	)
	patientSvc := patientservice.NewService(repos.Patients, repos.Immunizations, cfg.Cache.PatientTTL, cfg.Cache.CleanupInterval, zl)
	diagnosisSvc := diagnosisservice.NewService(repos.Diagnoses, engine, notifier, zl, m)

	// Setup router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Auth: authhandler.NewHandler(authSvc),
			Health: health.NewHandler(map[string]health.Check{
				"database": db.PingContext,
			}, prometheus.DefaultGatherer),
			Docs:    docs.NewHandler("1.0.0", ""),
			Patient: patienthandler.NewHandler(patientSvc),
			Diagnosis: diagnosishandler.NewHandler(diagnosisSvc, notifier, diagnosishandler.StreamConfig{
				PingInterval:   cfg.Realtime.PingInterval,
				WriteTimeout:   cfg.Realtime.WriteTimeout,
				AllowedOrigins: cfg.CORS.AllowedOrigins,
			}),
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
				Burst: cfg.RateLimit.Burst,
			},
			CORSConfig:     corsConfig(cfg.CORS),
			RequestTimeout: cfg.Server.RequestTimeout,
			MetricsPrefix:  "medhist_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout would cut websocket streams; handlers bound their own writes
		IdleTimeout: 2 * time.Minute,
	}

	log.Debug("http server configured",
		"read_timeout", cfg.Server.ReadTimeout.String(),
		"request_timeout", cfg.Server.RequestTimeout.String(),
		"rate_limit", cfg.RateLimit.Enabled,
		"redis", cfg.Redis.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	stopRelay()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	// streams are hijacked connections Shutdown does not track; closing the
	// hub ends them
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited properly")
	return nil
}

func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
