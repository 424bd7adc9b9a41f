// Package portal is the boundary over the courier's booking interface.
// The dispatcher hands it structured field values and gets back a typed
// result; how the courier side is driven stays behind this contract.
package portal

import (
	"context"
	"errors"
	"fmt"
)

// SenderProfile is the fixed shop identity used as the shipment sender.
// It is process-wide configuration, shared read-only across a dispatch run.
type SenderProfile struct {
	Name     string
	Contact  string
	Address  string
	Province string
	City     string
	Barangay string
}

// Shipment is the structured field set for one booking. No raw page
// markup crosses this boundary.
type Shipment struct {
	Sender SenderProfile

	ReceiverName     string
	ReceiverContact  string
	ReceiverAddress  string
	ReceiverProvince string
	ReceiverCity     string
	ReceiverBarangay string

	PackageSize  string
	ItemCategory string
	Quantity     int
	WeightKg     int
}

// Adapter authenticates against the courier portal and submits shipments.
// SubmitShipment returns the tracking identifier on success.
type Adapter interface {
	Authenticate(ctx context.Context) error
	SubmitShipment(ctx context.Context, s Shipment) (string, error)
	Close() error
}

// AuthError means the portal rejected the login.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "portal auth: " + e.Reason }

// SubmissionError covers form submission failures and timeouts.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("portal %s: %v", e.Op, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

var (
	// ErrSessionExpired reports a logged-out state; the caller may
	// re-authenticate once and retry.
	ErrSessionExpired = errors.New("portal session expired")

	// ErrTrackingUnconfirmed means the booking was submitted but no
	// tracking identifier could be recognized in the confirmation. The
	// booking may exist on the courier side; callers must not treat this
	// as success.
	ErrTrackingUnconfirmed = errors.New("tracking number not confirmed")
)
