package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shopcore/orders-api/internal/config"
	kafkax "github.com/shopcore/orders-api/internal/kafka"
	"github.com/shopcore/orders-api/internal/orders"
	"github.com/shopcore/orders-api/internal/postgres"
	"github.com/shopcore/orders-api/internal/redisx"
	"github.com/shopcore/orders-api/internal/stockwatch"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Products:  &orders.ProductRepo{DB: db},
		Flags:     &redisx.StockFlagStore{RDB: rdb, Service: "stockwatch"},
		Threshold: cfg.LowStockThreshold,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, orders.TopicOrderCreated, cfg.StockwatchWorkers)

	go func() {
		log.Info().
			Str("group", cfg.StockwatchGroup).
			Str("topic", orders.TopicOrderCreated).
			Int("workers", cfg.StockwatchWorkers).
			Msg("stockwatch consumer started")
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
