package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/AWWWJAY03/OrderSystem/internal/address"
	kafkax "github.com/AWWWJAY03/OrderSystem/internal/kafka"
	"github.com/AWWWJAY03/OrderSystem/internal/orders"
	"github.com/AWWWJAY03/OrderSystem/internal/payment"
	"github.com/AWWWJAY03/OrderSystem/internal/redisx"
)

// Store is the order-store surface the action endpoint sits on.
type Store interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, id string) (orders.Product, error)
	ListOrders(ctx context.Context, f orders.Filter) ([]orders.Order, error)
	GetOrder(ctx context.Context, id string) (orders.Order, error)
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, patch orders.StatusPatch) (orders.Order, error)
	RecordBookingReport(ctx context.Context, payload json.RawMessage, reportedAt time.Time) error
}

type AddressLookup interface {
	Lookup(ctx context.Context, level, parentID string) ([]address.Option, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// ActionsHandler serves the single action-tagged endpoint the storefront,
// admin console, and dispatcher all talk to.
type ActionsHandler struct {
	Store     Store
	Addresses AddressLookup
	Redis     *redis.Client
	Created   Publisher
	Shipped   Publisher
	Booking   Publisher

	AdminToken    string
	MayaPublicKey string
	Service       string
	Log           zerolog.Logger
}

func (h *ActionsHandler) Register(r *chi.Mux) {
	r.Get("/api", h.handleGet)
	r.Post("/api", h.handlePost)
}

func writeData(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// authorized compares the supplied token against the configured admin
// secret in constant time. An empty configured secret locks admin actions
// out entirely rather than leaving them open.
func (h *ActionsHandler) authorized(token string) bool {
	if h.AdminToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.AdminToken)) == 1
}

func (h *ActionsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	switch q.Get("action") {
	case "getProducts":
		ps, err := h.Store.ListProducts(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeData(w, http.StatusOK, ps)

	case "getProduct":
		p, err := h.Store.GetProduct(ctx, q.Get("id"))
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeData(w, http.StatusOK, p)

	case "getOrders":
		f := orders.Filter{
			PaymentStatus:  q.Get("paymentStatus"),
			ShippingStatus: q.Get("shippingStatus"),
			Search:         q.Get("search"),
		}
		os, err := h.Store.ListOrders(ctx, f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeData(w, http.StatusOK, os)

	case "getOrder":
		h.getOrder(ctx, w, q.Get("orderId"))

	case "getAddress":
		h.getAddress(ctx, w, q.Get("level"), q.Get("parentId"))

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *ActionsHandler) getOrder(ctx context.Context, w http.ResponseWriter, id string) {
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing orderId")
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderCache, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeData(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.GetOrder(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(o)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	}
	writeData(w, http.StatusOK, o)
}

func (h *ActionsHandler) getAddress(ctx context.Context, w http.ResponseWriter, level, parentID string) {
	switch level {
	case address.LevelProvince, address.LevelCity, address.LevelBarangay:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown address level %q", level))
		return
	}
	opts, err := h.Addresses.Lookup(ctx, level, parentID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeData(w, http.StatusOK, opts)
}

type postRequest struct {
	Action    string             `json:"action"`
	OrderID   string             `json:"orderId"`
	OrderIDs  []string           `json:"orderIds"`
	Status    orders.StatusPatch `json:"status"`
	Token     string             `json:"token"`
	Results   json.RawMessage    `json:"results"`
	Timestamp time.Time          `json:"timestamp"`

	orders.CreateOrderInput
}

func (h *ActionsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	switch req.Action {
	case "createOrder":
		h.createOrder(ctx, w, r, req.CreateOrderInput)
	case "updateOrderStatus":
		h.updateOrderStatus(ctx, w, r, req)
	case "triggerJtBooking":
		h.triggerBooking(ctx, w, r, req)
	case "jtCallback":
		h.recordCallback(ctx, w, req)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

type createOrderResponse struct {
	OrderID     string `json:"order_id"`
	AmountCents int    `json:"amount_cents"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	QRImage     string `json:"qr_image,omitempty"`
}

func (h *ActionsHandler) createOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, in orders.CreateOrderInput) {
	switch {
	case in.ProductID == "":
		writeError(w, http.StatusBadRequest, "missing product_id")
		return
	case in.Quantity <= 0:
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	case in.CustomerName == "" || in.Contact == "":
		writeError(w, http.StatusBadRequest, "missing customer details")
		return
	case !in.PaymentMethod.Valid():
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown payment method %q", in.PaymentMethod))
		return
	}

	o, err := h.Store.CreateOrder(ctx, in)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, orders.ErrOutOfStock) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.publish(h.Created, orders.EventOrderCreated, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderCreatedPayload{
			OrderID:       o.ID,
			ProductID:     o.ProductID,
			Quantity:      o.Quantity,
			AmountCents:   o.AmountCents,
			PaymentMethod: o.PaymentMethod,
		})

	resp := createOrderResponse{OrderID: o.ID, AmountCents: o.AmountCents}
	switch o.PaymentMethod {
	case orders.MethodMaya:
		resp.CheckoutURL = payment.MayaCheckoutURL(h.MayaPublicKey, o.AmountCents, o.ID)
	case orders.MethodGCash:
		resp.QRImage = payment.GCashQRImage
	}
	writeData(w, http.StatusCreated, resp)
}

func (h *ActionsHandler) updateOrderStatus(ctx context.Context, w http.ResponseWriter, r *http.Request, req postRequest) {
	if !h.authorized(req.Token) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing orderId")
		return
	}
	if req.Status.Empty() {
		writeError(w, http.StatusBadRequest, "empty status patch")
		return
	}

	prev, err := h.Store.GetOrder(ctx, req.OrderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	o, err := h.Store.UpdateOrderStatus(ctx, req.OrderID, req.Status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrTrackingRequired):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, o.ID)).Err()
	}
	if prev.ShippingStatus != orders.ShippingShipped && o.ShippingStatus == orders.ShippingShipped {
		h.publish(h.Shipped, orders.EventOrderShipped, o.ID, r.Header.Get("X-Request-Id"),
			orders.OrderShippedPayload{OrderID: o.ID, TrackingNumber: o.TrackingNumber})
	}
	writeData(w, http.StatusOK, o)
}

type bookingResponse struct {
	Queued   []string          `json:"queued"`
	Rejected map[string]string `json:"rejected,omitempty"`
	Message  string            `json:"message"`
}

func (h *ActionsHandler) triggerBooking(ctx context.Context, w http.ResponseWriter, r *http.Request, req postRequest) {
	if !h.authorized(req.Token) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if len(req.OrderIDs) == 0 {
		writeError(w, http.StatusBadRequest, "missing orderIds")
		return
	}

	resp := bookingResponse{Rejected: map[string]string{}}
	for _, id := range req.OrderIDs {
		o, err := h.Store.GetOrder(ctx, id)
		switch {
		case errors.Is(err, orders.ErrNotFound):
			resp.Rejected[id] = "not found"
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		case o.ShippingStatus != orders.ShippingReadyToShip:
			resp.Rejected[id] = fmt.Sprintf("not ready to ship (shipping status %q)", o.ShippingStatus)
		default:
			resp.Queued = append(resp.Queued, id)
		}
	}

	if len(resp.Queued) > 0 {
		h.publish(h.Booking, orders.EventBookingRequested, uuid.NewString(), r.Header.Get("X-Request-Id"),
			orders.BookingRequestedPayload{OrderIDs: resp.Queued, RequestedBy: "admin"})
	}
	resp.Message = fmt.Sprintf("%d order(s) queued for booking, %d rejected",
		len(resp.Queued), len(resp.Rejected))
	writeData(w, http.StatusAccepted, resp)
}

func (h *ActionsHandler) recordCallback(ctx context.Context, w http.ResponseWriter, req postRequest) {
	if !h.authorized(req.Token) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if len(req.Results) == 0 {
		writeError(w, http.StatusBadRequest, "missing results")
		return
	}
	at := req.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := h.Store.RecordBookingReport(ctx, req.Results, at); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"recorded": true})
}

func (h *ActionsHandler) publish(p Publisher, eventType, correlationID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
