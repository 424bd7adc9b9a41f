// Package dispatch turns order ids into courier bookings, one at a time,
// with failure isolated per order.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AWWWJAY03/OrderSystem/internal/orders"
	"github.com/AWWWJAY03/OrderSystem/internal/portal"
)

// Store is the slice of the order-store contract the dispatcher needs.
type Store interface {
	ListReadyToShip(ctx context.Context) ([]orders.Order, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, patch orders.StatusPatch) error
	RecordBatchResult(ctx context.Context, s Summary) error
}

// FetchError means the initial order fetch failed; the whole run aborts
// before any booking attempt.
type FetchError struct{ Err error }

func (e *FetchError) Error() string { return "fetch orders: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

type Booking struct {
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
}

type Failure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// Summary is the outcome of one dispatch run. Succeeded + Failed +
// Indeterminate always sum to Total.
type Summary struct {
	Total         int       `json:"total"`
	Succeeded     []Booking `json:"success"`
	Failed        []Failure `json:"failed"`
	Indeterminate []Failure `json:"indeterminate,omitempty"`
}

// Per-order booking states. Forward-only; Authenticating may be entered a
// second time after a single session-expiry retry.
type state string

const (
	stateSelected       state = "Selected"
	stateAuthenticating state = "Authenticating"
	stateFormFilling    state = "FormFilling"
	stateSubmitting     state = "Submitting"
	stateConfirmed      state = "Confirmed"
	stateFailed         state = "Failed"
	stateIndeterminate  state = "Indeterminate"
)

type Dispatcher struct {
	Store  Store
	Portal portal.Adapter
	Sender portal.SenderProfile
	Log    zerolog.Logger
}

// Run resolves the selector, books each order in sequence, reports the
// batch summary back to the store, and returns it. A single order's
// failure never aborts the batch; only the initial fetch is fatal.
func (d *Dispatcher) Run(ctx context.Context, sel Selector) (Summary, error) {
	defer func() {
		if err := d.Portal.Close(); err != nil {
			d.Log.Warn().Err(err).Msg("portal close")
		}
	}()

	batch, err := d.resolve(ctx, sel)
	if err != nil {
		return Summary{}, &FetchError{Err: err}
	}

	sum := Summary{Total: len(batch)}
	authed := false
	for _, o := range batch {
		log := d.Log.With().Str("order_id", o.ID).Logger()
		log.Info().Str("state", string(stateSelected)).Str("customer", o.CustomerName).Msg("booking")

		tracking, st, reason := d.book(ctx, log, &authed, o)
		switch st {
		case stateConfirmed:
			sum.Succeeded = append(sum.Succeeded, Booking{OrderID: o.ID, TrackingNumber: tracking})
			log.Info().Str("tracking", tracking).Msg("booked")
		case stateIndeterminate:
			sum.Indeterminate = append(sum.Indeterminate, Failure{OrderID: o.ID, Reason: reason})
			log.Warn().Str("reason", reason).Msg("booking outcome unknown")
		default:
			sum.Failed = append(sum.Failed, Failure{OrderID: o.ID, Reason: reason})
			log.Error().Str("reason", reason).Msg("booking failed")
		}
	}

	// Audit record, independent of the per-order status updates.
	if err := d.Store.RecordBatchResult(ctx, sum); err != nil {
		d.Log.Warn().Err(err).Msg("record batch result")
	}
	return sum, nil
}

func (d *Dispatcher) resolve(ctx context.Context, sel Selector) ([]orders.Order, error) {
	if err := sel.validate(); err != nil {
		return nil, err
	}
	if sel.allReady {
		return d.Store.ListReadyToShip(ctx)
	}
	out := make([]orders.Order, 0, len(sel.orderIDs))
	for _, id := range sel.orderIDs {
		o, err := d.Store.GetOrder(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", id, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// book runs one order through the booking states and reports where it
// ended up. The store is only written on a confirmed tracking number.
func (d *Dispatcher) book(ctx context.Context, log zerolog.Logger, authed *bool, o orders.Order) (tracking string, st state, reason string) {
	// Re-dispatch guard: a shipped order is never silently re-booked.
	if o.ShippingStatus == orders.ShippingShipped {
		return "", stateFailed, fmt.Sprintf("already shipped (tracking %s), refusing to re-book", o.TrackingNumber)
	}
	if o.ShippingStatus != orders.ShippingReadyToShip {
		return "", stateFailed, fmt.Sprintf("not ready to ship (shipping status %q)", o.ShippingStatus)
	}

	if !*authed {
		log.Debug().Str("state", string(stateAuthenticating)).Msg("login")
		if err := d.Portal.Authenticate(ctx); err != nil {
			return "", stateFailed, "auth failed: " + err.Error()
		}
		*authed = true
	}

	log.Debug().Str("state", string(stateFormFilling)).Msg("mapping fields")
	shipment := buildShipment(d.Sender, o)

	log.Debug().Str("state", string(stateSubmitting)).Msg("submitting")
	tracking, err := d.Portal.SubmitShipment(ctx, shipment)
	if errors.Is(err, portal.ErrSessionExpired) {
		// Single re-auth attempt, then one resubmission.
		*authed = false
		log.Debug().Str("state", string(stateAuthenticating)).Msg("session expired, re-login")
		if err := d.Portal.Authenticate(ctx); err != nil {
			return "", stateFailed, "re-auth failed: " + err.Error()
		}
		*authed = true
		tracking, err = d.Portal.SubmitShipment(ctx, shipment)
	}
	switch {
	case errors.Is(err, portal.ErrTrackingUnconfirmed):
		return "", stateIndeterminate, "submitted but tracking number not confirmed"
	case err != nil:
		return "", stateFailed, err.Error()
	case tracking == "":
		return "", stateIndeterminate, "adapter returned empty tracking number"
	}

	shipped := orders.ShippingShipped
	patch := orders.StatusPatch{ShippingStatus: &shipped, TrackingNumber: &tracking}
	if err := d.Store.UpdateOrderStatus(ctx, o.ID, patch); err != nil {
		// The booking went through; surface the tracking number so the
		// operator can reconcile by hand.
		return "", stateFailed, fmt.Sprintf("booked (tracking %s) but status update failed: %v", tracking, err)
	}
	return tracking, stateConfirmed, ""
}

func buildShipment(sender portal.SenderProfile, o orders.Order) portal.Shipment {
	return portal.Shipment{
		Sender:           sender,
		ReceiverName:     o.CustomerName,
		ReceiverContact:  o.Contact,
		ReceiverAddress:  o.AddressDetails,
		ReceiverProvince: o.Province,
		ReceiverCity:     o.City,
		ReceiverBarangay: o.Barangay,
		PackageSize:      o.PackageSize,
		ItemCategory:     o.ItemCategory,
		Quantity:         o.Quantity,
	}
}
