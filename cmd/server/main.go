package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"monopay-be/internal/config"
	"monopay-be/internal/db"
	"monopay-be/internal/lock"
	"monopay-be/internal/logger"
	"monopay-be/internal/metrics"
	"monopay-be/internal/middleware"
	"monopay-be/internal/order"
	"monopay-be/internal/payment"
	"monopay-be/internal/payment/webhook"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Seams for tests.
var (
	initDBFunc      = db.InitDB
	initRedisFunc   = db.NewRedis
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv)
	if cfg.MonobankDebug {
		logger.SetDebug(true)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDBFunc(cfg)
	defer database.Close()

	rdb, err := initRedisFunc(ctx, cfg)
	if err != nil {
		logger.L().Warn("Redis unavailable, notifications are processed without locking", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	limiter := middleware.NewRateLimiter(cfg.InternalKey)
	go limiter.Run(ctx)

	handler, err := newServer(cfg, database, rdb, limiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("Server running", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer wires repositories, services and handlers into the router.
func newServer(cfg *config.Config, database *sql.DB, rdb *redis.Client, limiter *middleware.RateLimiter) (http.Handler, error) {
	settings, err := payment.NewSettings(cfg.SiteURL, cfg.SiteName, cfg.PaymentDescription)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	orders := order.NewProcessor(order.NewRepository(database))
	gateway := payment.NewMonobankGateway(payment.GatewayConfig{
		Token:   cfg.MonobankToken,
		BaseURL: cfg.MonobankBaseURL,
		Debug:   cfg.MonobankDebug,
	})

	var locker webhook.Locker
	if rdb != nil {
		locker = lock.NewLocker(rdb, "monopay:")
	}

	webhookHandler := webhook.NewWebhookHandler(orders, gateway, payment.NewRepository(database), webhook.Config{
		Settings:        settings,
		VerifySignature: cfg.MonobankVerifySignature,
		Debug:           cfg.MonobankDebug,
		Locker:          locker,
	})
	linkHandler := payment.NewLinkHandler(payment.NewLinkService(orders, gateway, settings))

	return setupRouter(routes{
		links:   linkHandler.CreatePaymentLink,
		webhook: webhookHandler.PaymentProcessHandler,
		auth:    middleware.RequireAuth([]byte(cfg.JWTSecret)),
		limiter: limiter,
		origins: cfg.CORSOrigins,
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}), nil
}

type routes struct {
	links   http.HandlerFunc
	webhook http.HandlerFunc
	auth    func(http.Handler) http.Handler
	limiter *middleware.RateLimiter
	origins []string
	metrics http.Handler
}

func setupRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.CORS(rt.origins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", rt.metrics)

	r.With(rt.limiter.Middleware).Get("/"+payment.ProcessPath, rt.webhook)
	r.With(rt.limiter.Middleware).Post("/"+payment.ProcessPath, rt.webhook)
	r.With(rt.auth, rt.limiter.Middleware).Post("/orders/{orderID}/payment-link", rt.links)

	return r
}
