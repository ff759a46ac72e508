package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dhub/models"
	"dhub/services/flowstate"
	"dhub/services/payments"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecordRepo struct {
	created []models.BookingRecord
}

func (f *fakeRecordRepo) Create(ctx context.Context, record models.BookingRecord) (string, error) {
	f.created = append(f.created, record)
	return record.OrderID, nil
}

func (f *fakeRecordRepo) GetByOrderID(ctx context.Context, orderID string) (*models.BookingRecord, error) {
	for i := range f.created {
		if f.created[i].OrderID == orderID {
			return &f.created[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeRecordRepo) ListRecent(ctx context.Context, verticalID string, limit int64) ([]models.BookingRecord, error) {
	return f.created, nil
}

func (f *fakeRecordRepo) UpdateStatus(ctx context.Context, orderID, status string) error {
	return nil
}

type fakePayments struct {
	intents int
}

func (f *fakePayments) CreateIntent(ctx context.Context, orderID, sessionID string, amount float64, currency string) (*payments.Intent, error) {
	f.intents++
	return &payments.Intent{ID: "pi_test", ClientSecret: "cs_test", Amount: amount, Currency: currency}, nil
}

type flowFixture struct {
	handler *FlowHandler
	store   *flowstate.Store
	records *fakeRecordRepo
	router  *gin.Engine
}

const testSessionID = "sess-test"

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := flowstate.NewStore(client, time.Hour)
	records := &fakeRecordRepo{}
	handler := NewFlowHandler(store, records, &fakePayments{}, nil, zap.NewNop())

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("flowSessionID", testSessionID)
		c.Next()
	})
	router.POST("/api/booking/:vertical/checkout", handler.ProceedToCheckout)
	router.POST("/api/booking/:vertical/confirm", handler.ConfirmBooking)
	router.GET("/api/payment/:vertical/callback", handler.PaymentCallback)
	router.GET("/api/flow/state", handler.GetFlowState)

	return &flowFixture{handler: handler, store: store, records: records, router: router}
}

func (f *flowFixture) seedCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.AddCartItem(ctx, testSessionID, models.CartItem{
		ItemID: "X", ItemType: models.CartItemService, ProviderID: "prov-1", Price: 1200,
	})
	require.NoError(t, err)
	_, err = f.store.AddCartItem(ctx, testSessionID, models.CartItem{
		ItemID: "addon-1", ItemType: models.CartItemAddon, ParentServiceID: "X", Price: 150,
	})
	require.NoError(t, err)
}

func TestProceedToCheckout_CartRoutesToAddressStep(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/pghostels/checkout", nil)
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `/pghostels/booking/address?addons=addon-1&packageId=X&providerId=prov-1`)
	assert.Contains(t, w.Body.String(), `"flow":"checkout"`)

	state, err := f.store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.True(t, state.CartFlow)
}

func TestProceedToCheckout_EmptyFlowRejected(t *testing.T) {
	f := newFlowFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/pghostels/checkout", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProceedToCheckout_UnknownVertical(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/groceries/checkout", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func confirmBooking(t *testing.T, f *flowFixture) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SetAddress(ctx, testSessionID, models.Address{
		Name: "Ravi Kumar", Phone: "9876543210", City: "Hyderabad", Pincode: "500033",
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/pghostels/confirm",
		strings.NewReader(`{"date":"2026-09-01","time":"10:00"}`))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	state, err := f.store.Get(ctx, testSessionID)
	require.NoError(t, err)
	require.NotNil(t, state.PendingBooking)
	return state.PendingBooking.OrderID
}

func TestConfirmBooking_SetsPendingAndKeepsCart(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)

	confirmBooking(t, f)

	state, err := f.store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Len(t, state.CartItems, 2, "confirming must not clear the cart")
	assert.InDelta(t, 1350, state.PendingBooking.Amount, 0.001)
}

func TestConfirmBooking_RequiresAddress(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/booking/pghostels/confirm",
		strings.NewReader(`{"date":"2026-09-01","time":"10:00"}`))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentCallback_FailureLeavesCartIntact(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)
	orderID := confirmBooking(t, f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/payment/pghostels/callback?status=failed&orderId="+orderID, nil)
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pghostels/booking/failed?orderId="+orderID, w.Header().Get("Location"))

	state, err := f.store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Len(t, state.CartItems, 2)
	assert.NotNil(t, state.PendingBooking)
	assert.Empty(t, f.records.created)
}

func TestPaymentCallback_SuccessClearsCartAndRecords(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)
	orderID := confirmBooking(t, f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/payment/pghostels/callback?status=success&orderId="+orderID, nil)
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pghostels/thank-you?orderId="+orderID, w.Header().Get("Location"))

	state, err := f.store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Empty(t, state.CartItems)
	assert.Nil(t, state.PendingBooking)
	assert.False(t, state.CartFlow)

	require.Len(t, f.records.created, 1)
	rec := f.records.created[0]
	assert.Equal(t, orderID, rec.OrderID)
	assert.Equal(t, "5", rec.VerticalID)
	assert.Equal(t, "X", rec.ServiceID)
	assert.Equal(t, []string{"addon-1"}, rec.AddonIDs)
	assert.Equal(t, "confirmed", rec.Status)
}

func TestPaymentCallback_MismatchedOrderConflicts(t *testing.T) {
	f := newFlowFixture(t)
	f.seedCart(t)
	confirmBooking(t, f)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/payment/pghostels/callback?status=success&orderId=other-order", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	state, err := f.store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Len(t, state.CartItems, 2, "mismatched callback must not clear the cart")
}
