package flowstate

import (
	"context"
	"testing"
	"time"

	"dhub/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestGet_UnknownSessionYieldsZeroState(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, state.CartItems)
	assert.False(t, state.CartFlow)
	assert.Nil(t, state.SelectedAddress)
	assert.Nil(t, state.PendingBooking)
}

func TestSave_RefreshesSessionTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", &models.FlowState{TourCompleted: true}))
	assert.Equal(t, time.Hour, mr.TTL(FlowPrefix+"s1"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.CompleteTour(ctx, "s1"))
	assert.Equal(t, time.Hour, mr.TTL(FlowPrefix+"s1"))
}

func TestSetAddress_RoundTrips(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	addr := models.Address{
		Name:    "Ravi Kumar",
		Phone:   "9876543210",
		Line1:   "12-3 Jubilee Hills",
		City:    "Hyderabad",
		Pincode: "500033",
	}
	require.NoError(t, store.SetAddress(ctx, "s1", addr))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, state.SelectedAddress)
	assert.Equal(t, "9876543210", state.SelectedAddress.Phone)
	assert.Equal(t, "500033", state.SelectedAddress.Pincode)
}

func TestAddCartItem_MergesQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	item := models.CartItem{
		ItemID:   "svc-1",
		ItemType: models.CartItemService,
		Title:    "Deep Clean",
		Price:    499,
	}
	state, err := store.AddCartItem(ctx, "s1", item)
	require.NoError(t, err)
	require.Len(t, state.CartItems, 1)
	assert.Equal(t, 1, state.CartItems[0].Quantity)

	state, err = store.AddCartItem(ctx, "s1", item)
	require.NoError(t, err)
	require.Len(t, state.CartItems, 1)
	assert.Equal(t, 2, state.CartItems[0].Quantity)
}

func TestRemoveCartItem_DropsDependentAddons(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddCartItem(ctx, "s1", models.CartItem{
		ItemID: "svc-1", ItemType: models.CartItemService, Price: 499,
	})
	require.NoError(t, err)
	_, err = store.AddCartItem(ctx, "s1", models.CartItem{
		ItemID: "addon-1", ItemType: models.CartItemAddon, ParentServiceID: "svc-1", Price: 99,
	})
	require.NoError(t, err)
	_, err = store.AddCartItem(ctx, "s1", models.CartItem{
		ItemID: "svc-2", ItemType: models.CartItemService, Price: 899,
	})
	require.NoError(t, err)

	state, err := store.RemoveCartItem(ctx, "s1", "svc-1")
	require.NoError(t, err)
	require.Len(t, state.CartItems, 1)
	assert.Equal(t, "svc-2", state.CartItems[0].ItemID)
}

func TestClearCart_EmptiesCartAndPendingBooking(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddCartItem(ctx, "s1", models.CartItem{
		ItemID: "svc-1", ItemType: models.CartItemService, Price: 499,
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkCartFlow(ctx, "s1", true))
	require.NoError(t, store.SetAddress(ctx, "s1", models.Address{Name: "Ravi", Phone: "9876543210"}))
	require.NoError(t, store.SetPendingBooking(ctx, "s1", models.PendingBooking{
		OrderID: "ord-1", Amount: 499, Currency: "inr", CreatedAt: time.Now(),
	}))

	require.NoError(t, store.ClearCart(ctx, "s1"))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, state.CartItems)
	assert.False(t, state.CartFlow)
	assert.Nil(t, state.PendingBooking)
	// The address survives; only the cart and pending payment are cleared.
	require.NotNil(t, state.SelectedAddress)
	assert.Equal(t, "Ravi", state.SelectedAddress.Name)
}

func TestSetLastServiceAndTour(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetLastService(ctx, "s1", "svc-9", "deep-clean-hyderabad"))
	require.NoError(t, store.CompleteTour(ctx, "s1"))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "svc-9", state.LastServiceID)
	assert.Equal(t, "deep-clean-hyderabad", state.LastServiceSlug)
	assert.True(t, state.TourCompleted)
}

func TestDelete_RemovesSession(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CompleteTour(ctx, "s1"))
	require.True(t, mr.Exists(FlowPrefix+"s1"))

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists(FlowPrefix+"s1"))
}
