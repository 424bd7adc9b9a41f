package orders

import (
	"fmt"
	"time"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	Size        string    `json:"size"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID             string         `json:"order_id"`
	ProductID      string         `json:"product_id"`
	ProductName    string         `json:"product_name"`
	Quantity       int            `json:"quantity"`
	CustomerName   string         `json:"customer_name"`
	Email          string         `json:"email"`
	Contact        string         `json:"contact"`
	Province       string         `json:"province"`
	City           string         `json:"city"`
	Barangay       string         `json:"barangay"`
	AddressDetails string         `json:"address_details"`
	PackageSize    string         `json:"package_size"`
	ItemCategory   string         `json:"item_category"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	ShippingStatus ShippingStatus `json:"shipping_status"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	AmountCents    int            `json:"amount_cents"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Filter narrows ListOrders. Empty or "all" means no constraint.
// Search matches order id, customer name, or tracking number.
type Filter struct {
	PaymentStatus  string
	ShippingStatus string
	Search         string
}

// StatusPatch is a partial status update. Nil fields are left untouched.
type StatusPatch struct {
	PaymentStatus  *PaymentStatus  `json:"payment_status,omitempty"`
	ShippingStatus *ShippingStatus `json:"shipping_status,omitempty"`
	TrackingNumber *string         `json:"tracking_number,omitempty"`
}

func (p StatusPatch) Empty() bool {
	return p.PaymentStatus == nil && p.ShippingStatus == nil && p.TrackingNumber == nil
}

// applyPatch validates a partial status update against the current record
// and returns the patched order. Each axis transitions independently. A
// Shipped order must always carry a tracking number: the patch can neither
// ship without one nor clear the one already recorded.
func applyPatch(o Order, p StatusPatch) (Order, error) {
	if p.TrackingNumber != nil {
		o.TrackingNumber = *p.TrackingNumber
	}
	if p.PaymentStatus != nil && *p.PaymentStatus != o.PaymentStatus {
		if !CanTransitionPayment(o.PaymentStatus, *p.PaymentStatus) {
			return Order{}, fmt.Errorf("payment %s -> %s: %w",
				o.PaymentStatus, *p.PaymentStatus, ErrInvalidTransition)
		}
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.ShippingStatus != nil && *p.ShippingStatus != o.ShippingStatus {
		if !CanTransitionShipping(o.ShippingStatus, *p.ShippingStatus) {
			return Order{}, fmt.Errorf("shipping %s -> %s: %w",
				o.ShippingStatus, *p.ShippingStatus, ErrInvalidTransition)
		}
		o.ShippingStatus = *p.ShippingStatus
	}
	if o.ShippingStatus == ShippingShipped && o.TrackingNumber == "" {
		return Order{}, ErrTrackingRequired
	}
	return o, nil
}

type CreateOrderInput struct {
	ProductID      string        `json:"product_id"`
	Quantity       int           `json:"quantity"`
	CustomerName   string        `json:"customer_name"`
	Email          string        `json:"email"`
	Contact        string        `json:"contact"`
	Province       string        `json:"province"`
	City           string        `json:"city"`
	Barangay       string        `json:"barangay"`
	AddressDetails string        `json:"address_details"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
}
