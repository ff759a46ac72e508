package flowstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dhub/models"

	"github.com/go-redis/redis/v8"
)

// FlowPrefix namespaces booking flow session keys in Redis.
const FlowPrefix = "flow:"

// DefaultSessionTTL bounds how long an abandoned flow survives.
const DefaultSessionTTL = 24 * time.Hour

// Store persists booking flow state in Redis, keyed by flow session ID.
// Every save refreshes the session TTL, so active flows stay alive and
// abandoned ones expire.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a flow state store with the given session TTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Get retrieves the flow state for a session. A session with no stored
// state yields a fresh zero state, not an error.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.FlowState, error) {
	data, err := s.client.Get(ctx, FlowPrefix+sessionID).Result()
	if err == redis.Nil {
		return &models.FlowState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flow state: %w", err)
	}
	var state models.FlowState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	return &state, nil
}

// Save writes the flow state and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, state *models.FlowState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}
	if err := s.client.Set(ctx, FlowPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// Delete removes a flow session entirely.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, FlowPrefix+sessionID).Err()
}

// mutate loads, applies fn, and saves back.
func (s *Store) mutate(ctx context.Context, sessionID string, fn func(*models.FlowState)) (*models.FlowState, error) {
	state, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fn(state)
	if err := s.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetAddress records the address chosen on the address-selection page.
func (s *Store) SetAddress(ctx context.Context, sessionID string, addr models.Address) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.SelectedAddress = &addr
	})
	return err
}

// MarkCartFlow flags the session as a cart checkout rather than a direct
// single-service booking.
func (s *Store) MarkCartFlow(ctx context.Context, sessionID string, cartFlow bool) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.CartFlow = cartFlow
	})
	return err
}

// AddCartItem appends an item to the cart, merging quantity for an item
// already present.
func (s *Store) AddCartItem(ctx context.Context, sessionID string, item models.CartItem) (*models.FlowState, error) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return s.mutate(ctx, sessionID, func(st *models.FlowState) {
		for i := range st.CartItems {
			if st.CartItems[i].ItemID == item.ItemID {
				st.CartItems[i].Quantity += item.Quantity
				return
			}
		}
		st.CartItems = append(st.CartItems, item)
	})
}

// RemoveCartItem removes an item, along with any add-ons that referenced
// it as their parent service.
func (s *Store) RemoveCartItem(ctx context.Context, sessionID string, itemID string) (*models.FlowState, error) {
	return s.mutate(ctx, sessionID, func(st *models.FlowState) {
		kept := st.CartItems[:0]
		for _, it := range st.CartItems {
			if it.ItemID == itemID || it.ParentServiceID == itemID {
				continue
			}
			kept = append(kept, it)
		}
		st.CartItems = kept
	})
}

// SetPendingBooking stores booking details immediately before the
// redirect to the payment provider.
func (s *Store) SetPendingBooking(ctx context.Context, sessionID string, pb models.PendingBooking) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.PendingBooking = &pb
	})
	return err
}

// SetLastService remembers the service the user last viewed.
func (s *Store) SetLastService(ctx context.Context, sessionID, serviceID, slug string) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.LastServiceID = serviceID
		st.LastServiceSlug = slug
	})
	return err
}

// SetUserLocation snapshots the resolved client location.
func (s *Store) SetUserLocation(ctx context.Context, sessionID string, loc models.UserLocation) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.UserLocation = &loc
	})
	return err
}

// CompleteTour marks the onboarding tour as done.
func (s *Store) CompleteTour(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.TourCompleted = true
	})
	return err
}

// ClearCart empties the cart and drops the pending booking. It is only
// called on confirmed payment success; a failed payment leaves the cart
// intact so the user can retry.
func (s *Store) ClearCart(ctx context.Context, sessionID string) error {
	_, err := s.mutate(ctx, sessionID, func(st *models.FlowState) {
		st.CartItems = nil
		st.CartFlow = false
		st.PendingBooking = nil
	})
	return err
}
