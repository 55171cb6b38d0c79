package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/acmeshop/orderflow/internal/config"
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/payment/application"
	"github.com/acmeshop/orderflow/internal/payment/infrastructure/gateway"
	paymenthttp "github.com/acmeshop/orderflow/internal/payment/infrastructure/http"
	paymentkafka "github.com/acmeshop/orderflow/internal/payment/infrastructure/kafka"
	paymentpg "github.com/acmeshop/orderflow/internal/payment/infrastructure/postgres"
	"github.com/acmeshop/orderflow/pkg/idempotency"
	"github.com/acmeshop/orderflow/pkg/logging"
	"github.com/acmeshop/orderflow/pkg/outbox"
	"github.com/acmeshop/orderflow/pkg/saga"
	"github.com/acmeshop/orderflow/pkg/shutdown"
)

func main() {
	cfg := config.Load("payment-service", ":8083")
	log := logging.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	writer := saga.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	declineOver, err := decimal.NewFromString(env("PAYMENT_DECLINE_OVER", "10000"))
	if err != nil {
		log.Error("invalid PAYMENT_DECLINE_OVER", "err", err)
		os.Exit(1)
	}

	repo := paymentpg.NewRepository(log, pool)
	gw := gateway.NewSimulated(declineOver)
	svc := application.NewService(log, repo, gw)

	store := outbox.NewPostgresStore(pool)
	dispatch := outbox.NewDispatcher(log, writer, contracts.TopicPaymentEvents)
	relay := outbox.NewRelay(log, store, dispatch, cfg.ServiceName+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	idem := idempotency.NewStore(rdb, 48*time.Hour)
	registry := paymentkafka.NewRegistry(svc)
	consumer := saga.NewConsumer(log, cfg.KafkaBrokers, contracts.TopicOrderEvents, cfg.ServiceName, registry, idem)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			log.Error("consumer stopped", "err", err)
			cancel()
		}
	}()

	handler := paymenthttp.NewHandler(log, svc)
	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	r.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("payment-service shutdown complete")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
