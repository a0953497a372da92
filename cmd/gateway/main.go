package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/solacewellness/solace/internal/api"
	"github.com/solacewellness/solace/internal/auth"
	"github.com/solacewellness/solace/internal/circuitbreaker"
	"github.com/solacewellness/solace/internal/config"
	"github.com/solacewellness/solace/internal/db"
	"github.com/solacewellness/solace/internal/metrics"
	"github.com/solacewellness/solace/internal/notify"
	"github.com/solacewellness/solace/internal/observ"
	"github.com/solacewellness/solace/internal/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SessionSecret == "" || cfg.UnsubscribeSecret == "" {
		return fmt.Errorf("SESSION_SECRET and UNSUBSCRIBE_SECRET must be set")
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting solace gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	// Initialize database connection
	ctx := context.Background()
	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)

	repo := db.NewRepository(database, logger)

	// Redis backs rate limiting and duplicate-submission guards. The
	// gateway still serves traffic without it, limits just stop applying.
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting and dedup disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	}

	var rateLimiter *redis.RateLimiter
	var dedupService *redis.DedupService
	var redisHealth func(context.Context) error
	if redisClient != nil {
		rateLimiter = redis.NewRateLimiter(redisClient, logger)
		dedupService = redis.NewDedupService(redisClient, logger)
		redisHealth = redisClient.Ping
		defer redisClient.Close()
	}

	// Outbound email: SES in anything resembling production, logs locally.
	var mailer notify.Mailer
	if cfg.Env == "development" {
		mailer = notify.NewLogMailer(logger)
	} else {
		sesMailer, err := notify.NewSESMailer(ctx, notify.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.SESFromEmail,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create SES mailer: %w", err)
		}
		mailer = sesMailer
	}

	// Klaviyo marketing sync, wrapped in a circuit breaker so a flapping
	// third party doesn't burn a goroutine per submission on timeouts.
	var marketing notify.Marketing
	if cfg.KlaviyoAPIKey != "" && cfg.KlaviyoListID != "" {
		klaviyo := notify.NewKlaviyoClient(notify.KlaviyoConfig{
			APIKey: cfg.KlaviyoAPIKey,
			ListID: cfg.KlaviyoListID,
		}, logger)
		breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("klaviyo"), logger)
		marketing = notify.NewProtectedMarketing(klaviyo, breaker, logger)
	} else {
		logger.Info("klaviyo not configured, marketing sync disabled")
	}

	// Optional SNS topic for ops pushes.
	var ops notify.OpsPublisher
	if cfg.OpsTopicARN != "" {
		alerter, err := notify.NewOpsAlerter(ctx, cfg.AWSRegion, cfg.OpsTopicARN)
		if err != nil {
			logger.Warn("SNS unavailable, ops pushes disabled", zap.Error(err))
		} else {
			ops = alerter
		}
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		Mailer:     mailer,
		Marketing:  marketing,
		Ops:        ops,
		Store:      repo,
		StaffEmail: cfg.StaffAlertEmail,
		BaseURL:    cfg.SiteBaseURL,
	}, logger)

	authService := auth.NewService(cfg.SessionSecret)

	handler := api.NewHandler(api.HandlerConfig{
		Submissions:       repo,
		Newsletter:        repo,
		Notifications:     repo,
		Users:             repo,
		FanOut:            dispatcher,
		Auth:              authService,
		Limiter:           rateLimiter,
		Dedup:             dedupService,
		UnsubscribeSecret: cfg.UnsubscribeSecret,
		BaseURL:           cfg.SiteBaseURL,
		SecureCookies:     cfg.Env != "development",
		DBHealth:          database.Health,
		RedisHealth:       redisHealth,
	}, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	// Public form and newsletter routes
	r.Route("/api", func(r chi.Router) {
		formLimit := api.RateLimitMiddleware(rateLimiter, redis.FormSubmissionLimit, "form", logger)

		r.With(formLimit).Post("/waitlist", handler.SubmitWaitlist)
		r.With(formLimit).Post("/contact", handler.SubmitContact)
		r.With(formLimit).Post("/referral", handler.SubmitReferral)
		r.With(formLimit).Post("/newsletter", handler.SubscribeNewsletter)

		r.Get("/newsletter/unsubscribe", handler.UnsubscribeNewsletter)
		r.Post("/newsletter/unsubscribe", handler.UnsubscribeNewsletter)

		r.Route("/auth", func(r chi.Router) {
			r.With(api.RateLimitMiddleware(rateLimiter, redis.AuthLimit, "auth", logger)).
				Post("/login", handler.Login)
			r.Post("/logout", handler.Logout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(api.RequireAdmin(authService, logger))
			r.Use(api.RateLimitMiddleware(rateLimiter, redis.APILimit, "admin", logger))

			r.Get("/notifications", handler.ListNotifications)
			r.Post("/notifications/read", handler.MarkNotificationsRead)
			r.Delete("/notifications/{id}", handler.DeleteNotification)
			r.Delete("/notifications", handler.ClearNotifications)

			r.Get("/waitlist", handler.ListWaitlist)
			r.Patch("/waitlist/{id}/status", handler.UpdateWaitlistStatus)
			r.Get("/contacts", handler.ListContacts)
			r.Get("/referrals", handler.ListReferrals)
			r.Patch("/referrals/{id}/status", handler.UpdateReferralStatus)
		})
	})

	// Health check
	r.Get("/healthz", handler.Health)

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 10 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// Let in-flight fan-out side effects finish before exiting.
		dispatcher.Wait()

		logger.Info("server stopped gracefully")
	}

	return nil
}
