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

	"github.com/acmeshop/orderflow/internal/config"
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/order/application"
	orderhttp "github.com/acmeshop/orderflow/internal/order/infrastructure/http"
	orderkafka "github.com/acmeshop/orderflow/internal/order/infrastructure/kafka"
	orderpg "github.com/acmeshop/orderflow/internal/order/infrastructure/postgres"
	"github.com/acmeshop/orderflow/internal/order/infrastructure/redisx"
	"github.com/acmeshop/orderflow/pkg/idempotency"
	"github.com/acmeshop/orderflow/pkg/logging"
	"github.com/acmeshop/orderflow/pkg/outbox"
	"github.com/acmeshop/orderflow/pkg/saga"
	"github.com/acmeshop/orderflow/pkg/shutdown"
)

func main() {
	cfg := config.Load("order-service", ":8080")
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

	repo := orderpg.NewRepository(log, pool)
	cart := redisx.NewCartCache(rdb)
	svc := application.NewService(log, repo, cart)

	store := outbox.NewPostgresStore(pool)
	dispatch := outbox.NewDispatcher(log, writer, contracts.TopicOrderEvents)
	relay := outbox.NewRelay(log, store, dispatch, cfg.ServiceName+"-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	idem := idempotency.NewStore(rdb, 48*time.Hour)
	registry := orderkafka.NewRegistry(svc)
	for _, topic := range []string{
		contracts.TopicProductEvents,
		contracts.TopicInventoryEvents,
		contracts.TopicPaymentEvents,
	} {
		consumer := saga.NewConsumer(log, cfg.KafkaBrokers, topic, cfg.ServiceName, registry, idem)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("consumer stopped", "err", err)
				cancel()
			}
		}()
	}

	handler := orderhttp.NewHandler(log, svc)
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
	log.Info("order-service shutdown complete")
}
