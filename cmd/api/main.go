package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealmesh/mealmesh-backend/api/routes"
	"github.com/mealmesh/mealmesh-backend/internal/cart"
	"github.com/mealmesh/mealmesh-backend/internal/disputes"
	"github.com/mealmesh/mealmesh-backend/internal/fraud"
	"github.com/mealmesh/mealmesh-backend/internal/menu"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/payments"
	"github.com/mealmesh/mealmesh-backend/internal/payouts"
	"github.com/mealmesh/mealmesh-backend/internal/promotions"
	"github.com/mealmesh/mealmesh-backend/internal/reviews"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/internal/users"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db"
	"github.com/mealmesh/mealmesh-backend/pkg/logger"
	"github.com/mealmesh/mealmesh-backend/pkg/metrics"
	"github.com/mealmesh/mealmesh-backend/pkg/migrate"
	"github.com/mealmesh/mealmesh-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, redisClient, httpMetrics, metricsHandler, svcs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	usersRepo := users.NewRepository(gdb)
	storesRepo := stores.NewRepository(gdb)
	menuRepo := menu.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	promosRepo := promotions.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	paymentsRepo := payments.NewRepository(gdb)
	payoutsRepo := payouts.NewRepository(gdb)
	reviewsRepo := reviews.NewRepository(gdb)
	disputesRepo := disputes.NewRepository(gdb)

	usersSvc, err := users.NewService(usersRepo, cfg.JWT, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}
	storesSvc, err := stores.NewService(storesRepo)
	if err != nil {
		return routes.Services{}, err
	}
	menuSvc, err := menu.NewService(menuRepo, storesRepo)
	if err != nil {
		return routes.Services{}, err
	}
	promosSvc, err := promotions.NewService(promosRepo)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(cartRepo, menuRepo, promosSvc, redisClient, cfg.Checkout, cfg.Redis)
	if err != nil {
		return routes.Services{}, err
	}
	fraudChecker, err := fraud.NewChecker(fraud.NewRepository(gdb), cfg.Fraud)
	if err != nil {
		return routes.Services{}, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, usersRepo, storesRepo, menuRepo, cartSvc, promosSvc, fraudChecker, dbClient, cfg.Checkout)
	if err != nil {
		return routes.Services{}, err
	}
	paymentsSvc, err := payments.NewService(paymentsRepo, ordersRepo, storesRepo, dbClient, cfg.Payout)
	if err != nil {
		return routes.Services{}, err
	}
	// Orders cancel paths reach back into payments for refunds; wire the
	// refunder after both services exist to break the construction cycle.
	ordersSvc.SetPaymentRefunder(paymentsSvc)

	payoutsSvc, err := payouts.NewService(payoutsRepo, paymentsRepo, storesRepo, dbClient, cfg.Payout)
	if err != nil {
		return routes.Services{}, err
	}
	reviewsSvc, err := reviews.NewService(reviewsRepo, ordersRepo, storesRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	disputesSvc, err := disputes.NewService(disputesRepo, ordersRepo, storesRepo, paymentsSvc, dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Users:      usersSvc,
		Stores:     storesSvc,
		Menu:       menuSvc,
		Cart:       cartSvc,
		Orders:     ordersSvc,
		Payments:   paymentsSvc,
		Payouts:    payoutsSvc,
		Promotions: promosSvc,
		Reviews:    reviewsSvc,
		Disputes:   disputesSvc,
	}, nil
}
