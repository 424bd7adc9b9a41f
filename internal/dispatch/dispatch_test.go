package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AWWWJAY03/OrderSystem/internal/orders"
	"github.com/AWWWJAY03/OrderSystem/internal/portal"
)

type statusUpdate struct {
	orderID string
	patch   orders.StatusPatch
}

type fakeStore struct {
	ready     []orders.Order
	byID      map[string]orders.Order
	listErr   error
	getErr    map[string]error
	updateErr map[string]error
	updates   []statusUpdate
	batches   []Summary
	batchErr  error
}

func (f *fakeStore) ListReadyToShip(ctx context.Context) ([]orders.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ready, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	if err := f.getErr[id]; err != nil {
		return orders.Order{}, err
	}
	o, ok := f.byID[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, id string, patch orders.StatusPatch) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates = append(f.updates, statusUpdate{orderID: id, patch: patch})
	return nil
}

func (f *fakeStore) RecordBatchResult(ctx context.Context, s Summary) error {
	f.batches = append(f.batches, s)
	return f.batchErr
}

type submitResult struct {
	tracking string
	err      error
}

// fakeAdapter keys submissions by receiver name; fixtures set the
// customer name to the order id.
type fakeAdapter struct {
	authErr   error   // returned when the queue is empty
	authErrs  []error // consumed one per Authenticate call
	authCalls int
	results   map[string][]submitResult
	submits   []string
	closes    int
}

func (f *fakeAdapter) Authenticate(ctx context.Context) error {
	f.authCalls++
	if len(f.authErrs) > 0 {
		err := f.authErrs[0]
		f.authErrs = f.authErrs[1:]
		return err
	}
	return f.authErr
}

func (f *fakeAdapter) SubmitShipment(ctx context.Context, s portal.Shipment) (string, error) {
	f.submits = append(f.submits, s.ReceiverName)
	q := f.results[s.ReceiverName]
	if len(q) == 0 {
		return "TRK-" + s.ReceiverName, nil
	}
	res := q[0]
	f.results[s.ReceiverName] = q[1:]
	return res.tracking, res.err
}

func (f *fakeAdapter) Close() error {
	f.closes++
	return nil
}

func readyOrder(id string) orders.Order {
	return orders.Order{
		ID:             id,
		ProductID:      "PROD-001",
		ProductName:    "Mug",
		Quantity:       1,
		CustomerName:   id,
		Contact:        "+639000000000",
		Province:       "Metro Manila",
		City:           "Manila",
		Barangay:       "Malate",
		AddressDetails: "123 Street",
		ShippingStatus: orders.ShippingReadyToShip,
		PaymentStatus:  orders.PaymentPaid,
	}
}

func newDispatcher(st *fakeStore, ad *fakeAdapter) *Dispatcher {
	return &Dispatcher{
		Store:  st,
		Portal: ad,
		Sender: portal.SenderProfile{Name: "Shop", Contact: "+639123456789"},
		Log:    zerolog.Nop(),
	}
}

func TestRunOutcomeCountsSumToInput(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1"), readyOrder("ORD-2"), readyOrder("ORD-3")}}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-1": {{tracking: "JT100"}},
		"ORD-2": {{err: &portal.SubmissionError{Op: "submit", Err: errors.New("timeout")}}},
		"ORD-3": {{err: portal.ErrTrackingUnconfirmed}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Total)
	assert.Len(t, sum.Succeeded, 1)
	assert.Len(t, sum.Failed, 1)
	assert.Len(t, sum.Indeterminate, 1)
	assert.Equal(t, sum.Total, len(sum.Succeeded)+len(sum.Failed)+len(sum.Indeterminate))
}

func TestOneFailureNeverAbortsBatch(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1"), readyOrder("ORD-2"), readyOrder("ORD-3")}}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-2": {{err: &portal.SubmissionError{Op: "submit", Err: errors.New("timeout")}}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Equal(t, []string{"ORD-1", "ORD-2", "ORD-3"}, ad.submits)
	assert.Len(t, sum.Succeeded, 2)
	require.Len(t, sum.Failed, 1)
	assert.Equal(t, "ORD-2", sum.Failed[0].OrderID)

	// only the two confirmed orders were written back
	require.Len(t, st.updates, 2)
	for _, u := range st.updates {
		assert.NotEqual(t, "ORD-2", u.orderID)
		require.NotNil(t, u.patch.ShippingStatus)
		assert.Equal(t, orders.ShippingShipped, *u.patch.ShippingStatus)
		require.NotNil(t, u.patch.TrackingNumber)
		assert.NotEmpty(t, *u.patch.TrackingNumber)
	}
}

func TestIndeterminateNeverMarksShipped(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1")}}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-1": {{err: portal.ErrTrackingUnconfirmed}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Empty(t, sum.Succeeded)
	assert.Empty(t, st.updates)
	require.Len(t, sum.Indeterminate, 1)
	assert.Equal(t, "ORD-1", sum.Indeterminate[0].OrderID)
}

func TestEmptyTrackingIsIndeterminate(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1")}}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-1": {{tracking: ""}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Empty(t, sum.Succeeded)
	assert.Empty(t, st.updates)
	assert.Len(t, sum.Indeterminate, 1)
}

func TestAlreadyShippedIsNeverReBooked(t *testing.T) {
	shipped := readyOrder("ORD-9")
	shipped.ShippingStatus = orders.ShippingShipped
	shipped.TrackingNumber = "JT999"
	st := &fakeStore{byID: map[string]orders.Order{"ORD-9": shipped}}
	ad := &fakeAdapter{}

	for i := 0; i < 2; i++ {
		sum, err := newDispatcher(st, ad).Run(context.Background(), One("ORD-9"))
		require.NoError(t, err)
		require.Len(t, sum.Failed, 1)
		assert.Contains(t, sum.Failed[0].Reason, "already shipped")
		assert.Contains(t, sum.Failed[0].Reason, "JT999")
	}
	assert.Empty(t, ad.submits, "a shipped order must never reach the portal")
	assert.Empty(t, st.updates)
}

func TestNotReadyToShipIsRefused(t *testing.T) {
	pending := readyOrder("ORD-5")
	pending.ShippingStatus = orders.ShippingPending
	st := &fakeStore{byID: map[string]orders.Order{"ORD-5": pending}}
	ad := &fakeAdapter{}

	sum, err := newDispatcher(st, ad).Run(context.Background(), One("ORD-5"))
	require.NoError(t, err)

	require.Len(t, sum.Failed, 1)
	assert.Contains(t, sum.Failed[0].Reason, "not ready to ship")
	assert.Empty(t, ad.submits)
}

func TestSessionReusedAcrossOrders(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1"), readyOrder("ORD-2")}}
	ad := &fakeAdapter{}

	_, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)
	assert.Equal(t, 1, ad.authCalls)
}

func TestSingleReauthOnSessionExpiry(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1")}}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-1": {{err: portal.ErrSessionExpired}, {tracking: "JT200"}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Equal(t, 2, ad.authCalls)
	require.Len(t, sum.Succeeded, 1)
	assert.Equal(t, "JT200", sum.Succeeded[0].TrackingNumber)
}

func TestReauthFailureFailsOnlyThatOrder(t *testing.T) {
	// Batch of two: ORD-1 books fine; before ORD-2 the session expires
	// and the re-login is rejected.
	st := &fakeStore{byID: map[string]orders.Order{
		"ORD-1": readyOrder("ORD-1"),
		"ORD-2": readyOrder("ORD-2"),
	}}
	ad := &fakeAdapter{
		authErrs: []error{nil, &portal.AuthError{Reason: "login rejected"}},
		results: map[string][]submitResult{
			"ORD-1": {{tracking: "JT123456"}},
			"ORD-2": {{err: portal.ErrSessionExpired}},
		},
	}

	sum, err := newDispatcher(st, ad).Run(context.Background(), Many([]string{"ORD-1", "ORD-2"}))
	require.NoError(t, err)

	require.Len(t, sum.Succeeded, 1)
	assert.Equal(t, Booking{OrderID: "ORD-1", TrackingNumber: "JT123456"}, sum.Succeeded[0])
	require.Len(t, sum.Failed, 1)
	assert.Equal(t, "ORD-2", sum.Failed[0].OrderID)
	assert.Contains(t, sum.Failed[0].Reason, "re-auth failed")

	require.Len(t, st.updates, 1)
	assert.Equal(t, "ORD-1", st.updates[0].orderID)
}

func TestAuthFailureIsPerOrder(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1"), readyOrder("ORD-2")}}
	ad := &fakeAdapter{authErr: &portal.AuthError{Reason: "bad credentials"}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Total)
	assert.Len(t, sum.Failed, 2)
	assert.Empty(t, ad.submits)
	for _, f := range sum.Failed {
		assert.Contains(t, f.Reason, "auth failed")
	}
}

func TestFetchFailureAbortsBeforeAnyBooking(t *testing.T) {
	st := &fakeStore{listErr: errors.New("connection refused")}
	ad := &fakeAdapter{}

	_, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Empty(t, ad.submits)
	assert.Empty(t, st.batches, "no batch callback for an aborted run")
	assert.Equal(t, 1, ad.closes, "session released on the abort path")
}

func TestMissingOrderAbortsExplicitSelection(t *testing.T) {
	st := &fakeStore{byID: map[string]orders.Order{"ORD-1": readyOrder("ORD-1")}}
	ad := &fakeAdapter{}

	_, err := newDispatcher(st, ad).Run(context.Background(), Many([]string{"ORD-1", "ORD-404"}))

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, orders.ErrNotFound)
	assert.Empty(t, ad.submits)
}

func TestStatusWriteFailureAfterBooking(t *testing.T) {
	st := &fakeStore{
		ready:     []orders.Order{readyOrder("ORD-1")},
		updateErr: map[string]error{"ORD-1": errors.New("store 500")},
	}
	ad := &fakeAdapter{results: map[string][]submitResult{
		"ORD-1": {{tracking: "JT777"}},
	}}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	assert.Empty(t, sum.Succeeded)
	require.Len(t, sum.Failed, 1)
	// keep the tracking number visible for manual reconciliation
	assert.Contains(t, sum.Failed[0].Reason, "JT777")
}

func TestBatchCallbackReportedOnce(t *testing.T) {
	st := &fakeStore{ready: []orders.Order{readyOrder("ORD-1")}}
	ad := &fakeAdapter{}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)

	require.Len(t, st.batches, 1)
	assert.Equal(t, sum, st.batches[0])
	assert.Equal(t, 1, ad.closes)
}

func TestBatchCallbackFailureDoesNotFailRun(t *testing.T) {
	st := &fakeStore{
		ready:    []orders.Order{readyOrder("ORD-1")},
		batchErr: errors.New("audit sink down"),
	}
	ad := &fakeAdapter{}

	sum, err := newDispatcher(st, ad).Run(context.Background(), AllReadyToShip())
	require.NoError(t, err)
	assert.Len(t, sum.Succeeded, 1)
}

func TestSelectorValidation(t *testing.T) {
	st := &fakeStore{}
	ad := &fakeAdapter{}

	_, err := newDispatcher(st, ad).Run(context.Background(), Many(nil))
	require.Error(t, err)

	_, err = newDispatcher(st, ad).Run(context.Background(), One(""))
	require.Error(t, err)
}
