package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/AWWWJAY03/OrderSystem/internal/config"
	"github.com/AWWWJAY03/OrderSystem/internal/dispatch"
	kafkax "github.com/AWWWJAY03/OrderSystem/internal/kafka"
	"github.com/AWWWJAY03/OrderSystem/internal/orders"
	"github.com/AWWWJAY03/OrderSystem/internal/portal"
	"github.com/AWWWJAY03/OrderSystem/internal/redisx"
	"github.com/AWWWJAY03/OrderSystem/internal/storeapi"
)

// Exit policy: non-zero only for unrecoverable setup or fetch failures.
// Individual order failures are reported in the summary and still exit 0.
func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	orderID := flag.String("order", "", "book a single order id")
	all := flag.Bool("all", false, "book every order that is Ready to Ship")
	listen := flag.Bool("listen", false, "consume booking requests from kafka")
	flag.Parse()

	modes := 0
	for _, on := range []bool{*orderID != "", *all, *listen} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "usage: dispatcher -order ORD-123 | -all | -listen")
		os.Exit(2)
	}

	cfg := config.Load()
	store := storeapi.New(cfg.StoreURL, cfg.AdminToken)

	if *listen {
		runListener(cfg, store)
		return
	}

	sel := dispatch.AllReadyToShip()
	if *orderID != "" {
		sel = dispatch.One(*orderID)
	}

	sum, err := runOnce(context.Background(), cfg, store, sel)
	if err != nil {
		log.Error().Err(err).Msg("dispatch aborted")
		os.Exit(1)
	}
	printSummary(sum)
}

// runOnce acquires one portal session, books the selected orders, and
// releases the session. The dispatcher closes the adapter on every path.
func runOnce(ctx context.Context, cfg config.Config, store dispatch.Store, sel dispatch.Selector) (dispatch.Summary, error) {
	adapter, err := portal.NewJTClient(cfg.PortalBaseURL,
		portal.Credentials{Username: cfg.PortalUsername, Password: cfg.PortalPassword},
		portal.DefaultMapping(), cfg.PortalTimeout, log.Logger)
	if err != nil {
		return dispatch.Summary{}, err
	}

	d := &dispatch.Dispatcher{
		Store:  store,
		Portal: adapter,
		Sender: portal.SenderProfile{
			Name:     cfg.ShopName,
			Contact:  cfg.ShopContact,
			Address:  cfg.ShopAddress,
			Province: cfg.ShopProvince,
			City:     cfg.ShopCity,
			Barangay: cfg.ShopBarangay,
		},
		Log: log.Logger,
	}
	return d.Run(ctx, sel)
}

func runListener(cfg config.Config, store dispatch.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	group := getenv("DISPATCH_GROUP", "jt-dispatcher")
	// One worker: the portal session is a single stateful resource, so
	// dispatch runs must not overlap.
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicBookingRequested, 1, log.Logger)

	handler := bookingHandler(redisDedup{rdb: rdb}, func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error) {
		return runOnce(ctx, cfg, store, sel)
	})

	go func() {
		log.Info().Str("group", group).Str("topic", orders.TopicBookingRequested).Msg("dispatcher listening")
		if err := cons.Start(ctx, handler); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info().Msg("shutting down...")
		cancel()
		time.Sleep(500 * time.Millisecond)
	case <-ctx.Done():
		os.Exit(1)
	}
}

// dedup tracks which booking events already completed a run.
type dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type redisDedup struct{ rdb *redis.Client }

func (d redisDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, d.rdb, fmt.Sprintf(redisx.KeyDedup, "jt-dispatcher", eventID))
}

func (d redisDedup) Mark(ctx context.Context, eventID string) error {
	return d.rdb.Set(ctx, fmt.Sprintf(redisx.KeyDedup, "jt-dispatcher", eventID), "1", redisx.TTLDedup).Err()
}

// bookingHandler consumes one booking.requested event per message. An
// event is marked seen only after the run completes, so a failed run
// (store unreachable) leaves the message uncommitted and unmarked and a
// redelivery dispatches it again.
func bookingHandler(seen dedup, run func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error)) kafkax.Handler {
	return func(ctx context.Context, m kafkago.Message) error {
		var env orders.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			return err
		}
		if env.EventType != orders.EventBookingRequested {
			return nil
		}

		if done, _ := seen.Seen(ctx, env.EventID); done {
			return nil
		}

		p, err := kafkax.UnwrapPayload[orders.BookingRequestedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Info().Strs("order_ids", p.OrderIDs).Str("event_id", env.EventID).Msg("booking request")

		sum, err := run(ctx, dispatch.Many(p.OrderIDs))
		if err != nil {
			return err
		}
		if err := seen.Mark(ctx, env.EventID); err != nil {
			log.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup mark failed")
		}
		printSummary(sum)
		return nil
	}
}

func printSummary(s dispatch.Summary) {
	log.Info().
		Int("total", s.Total).
		Int("succeeded", len(s.Succeeded)).
		Int("failed", len(s.Failed)).
		Int("indeterminate", len(s.Indeterminate)).
		Msg("dispatch summary")
	for _, b := range s.Succeeded {
		log.Info().Str("order_id", b.OrderID).Str("tracking", b.TrackingNumber).Msg("booked")
	}
	for _, f := range s.Failed {
		log.Warn().Str("order_id", f.OrderID).Str("reason", f.Reason).Msg("failed")
	}
	for _, f := range s.Indeterminate {
		log.Warn().Str("order_id", f.OrderID).Str("reason", f.Reason).Msg("unconfirmed")
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
