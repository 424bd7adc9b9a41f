package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AWWWJAY03/OrderSystem/internal/dispatch"
	kafkax "github.com/AWWWJAY03/OrderSystem/internal/kafka"
	"github.com/AWWWJAY03/OrderSystem/internal/orders"
)

type memDedup struct {
	marked map[string]bool
}

func (d *memDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return d.marked[eventID], nil
}

func (d *memDedup) Mark(ctx context.Context, eventID string) error {
	d.marked[eventID] = true
	return nil
}

func bookingMessage(t *testing.T, eventType string, orderIDs []string) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "order-store",
		Payload:      kafkax.MustMarshal(orders.BookingRequestedPayload{OrderIDs: orderIDs}),
	}
	return kafkago.Message{Key: []byte("k"), Value: kafkax.MustMarshal(env)}
}

func TestBookingHandlerRetriesAfterFailedRun(t *testing.T) {
	seen := &memDedup{marked: map[string]bool{}}
	runs := 0
	h := bookingHandler(seen, func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error) {
		runs++
		if runs == 1 {
			return dispatch.Summary{}, &dispatch.FetchError{Err: errors.New("store unreachable")}
		}
		return dispatch.Summary{Total: 1, Succeeded: []dispatch.Booking{{OrderID: "ORD-1", TrackingNumber: "JT1"}}}, nil
	})

	m := bookingMessage(t, orders.EventBookingRequested, []string{"ORD-1"})

	// First delivery fails; the event must stay unmarked so the
	// redelivery books it instead of being swallowed.
	require.Error(t, h(context.Background(), m))
	assert.Empty(t, seen.marked)

	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 2, runs)
	assert.Len(t, seen.marked, 1)
}

func TestBookingHandlerSkipsCompletedEvent(t *testing.T) {
	seen := &memDedup{marked: map[string]bool{}}
	runs := 0
	h := bookingHandler(seen, func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error) {
		runs++
		return dispatch.Summary{Total: 1}, nil
	})

	m := bookingMessage(t, orders.EventBookingRequested, []string{"ORD-1"})
	require.NoError(t, h(context.Background(), m))
	require.NoError(t, h(context.Background(), m))
	assert.Equal(t, 1, runs, "a completed event is dispatched once")
}

func TestBookingHandlerIgnoresOtherEventTypes(t *testing.T) {
	seen := &memDedup{marked: map[string]bool{}}
	runs := 0
	h := bookingHandler(seen, func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error) {
		runs++
		return dispatch.Summary{}, nil
	})

	m := bookingMessage(t, orders.EventOrderCreated, nil)
	require.NoError(t, h(context.Background(), m))
	assert.Zero(t, runs)
	assert.Empty(t, seen.marked)
}

func TestBookingHandlerRejectsMalformedMessage(t *testing.T) {
	seen := &memDedup{marked: map[string]bool{}}
	h := bookingHandler(seen, func(ctx context.Context, sel dispatch.Selector) (dispatch.Summary, error) {
		t.Fatal("run must not be called")
		return dispatch.Summary{}, nil
	})

	err := h(context.Background(), kafkago.Message{Value: []byte("not json")})
	require.Error(t, err)
}
