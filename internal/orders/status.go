package orders

import "fmt"

// Payment and shipping advance on independent axes; updating one never
// implies a transition on the other.

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
)

type ShippingStatus string

const (
	ShippingPending     ShippingStatus = "Pending"
	ShippingReadyToShip ShippingStatus = "Ready to Ship"
	ShippingShipped     ShippingStatus = "Shipped"
)

type PaymentMethod string

const (
	MethodMaya  PaymentMethod = "maya"
	MethodGCash PaymentMethod = "gcash"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodMaya || m == MethodGCash
}

var validNextPayment = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {PaymentPaid: true},
	PaymentPaid:    {},
}

var validNextShipping = map[ShippingStatus]map[ShippingStatus]bool{
	ShippingPending:     {ShippingReadyToShip: true},
	ShippingReadyToShip: {ShippingShipped: true},
	ShippingShipped:     {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validNextPayment[from][to]
}

func CanTransitionShipping(from, to ShippingStatus) bool {
	return validNextShipping[from][to]
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

func ParseShippingStatus(s string) (ShippingStatus, error) {
	switch ShippingStatus(s) {
	case ShippingPending, ShippingReadyToShip, ShippingShipped:
		return ShippingStatus(s), nil
	}
	return "", fmt.Errorf("unknown shipping status %q", s)
}
