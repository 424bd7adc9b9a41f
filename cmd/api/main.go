package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AWWWJAY03/OrderSystem/internal/address"
	"github.com/AWWWJAY03/OrderSystem/internal/config"
	"github.com/AWWWJAY03/OrderSystem/internal/httpx"
	kafkax "github.com/AWWWJAY03/OrderSystem/internal/kafka"
	"github.com/AWWWJAY03/OrderSystem/internal/orders"
	"github.com/AWWWJAY03/OrderSystem/internal/postgres"
	"github.com/AWWWJAY03/OrderSystem/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN not set; admin actions will be rejected")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log.Logger)
	created.Start(ctx)
	shipped := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderShipped, 1024, log.Logger)
	shipped.Start(ctx)
	booking := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicBookingRequested, 256, log.Logger)
	booking.Start(ctx)

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter()
	h := &httpx.ActionsHandler{
		Store:         repo,
		Addresses:     address.New(cfg.PSGCBaseURL, rdb, log.Logger),
		Redis:         rdb,
		Created:       created,
		Shipped:       shipped,
		Booking:       booking,
		AdminToken:    cfg.AdminToken,
		MayaPublicKey: cfg.MayaPublicKey,
		Service:       cfg.ServiceName,
		Log:           log.Logger,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel() // producers flush and close
	created.WaitClosed()
	shipped.WaitClosed()
	booking.WaitClosed()
}
