// Package payment starts checkout flows; it never confirms payment.
// Maya orders get a redirect URL, GCash orders a static QR reference
// reconciled by hand.
package payment

import (
	"fmt"
	"net/url"
)

const mayaCheckoutBase = "https://payment-app-sandbox.mayadigital.io/v1/checkout"

// GCashQRImage is the static QRPH code shown for gcash orders.
const GCashQRImage = "/qrph.png"

// MayaCheckoutURL builds the hosted-checkout redirect for one order.
// Amounts are in centavos; Maya takes pesos with two decimals.
func MayaCheckoutURL(publicKey string, amountCents int, orderID string) string {
	q := url.Values{}
	q.Set("public_key", publicKey)
	q.Set("amount", fmt.Sprintf("%.2f", float64(amountCents)/100))
	q.Set("order_id", orderID)
	return mayaCheckoutBase + "?" + q.Encode()
}

// OrderQRCodeURL renders the deep link printed next to a product so a
// customer can jump straight to its order form.
func OrderQRCodeURL(origin, productID string) string {
	orderURL := fmt.Sprintf("%s/order?id=%s", origin, productID)
	q := url.Values{}
	q.Set("chs", "200x200")
	q.Set("cht", "qr")
	q.Set("chl", orderURL)
	return "https://chart.googleapis.com/chart?" + q.Encode()
}
