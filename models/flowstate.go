package models

import "time"

// Address is the delivery/service address chosen during a booking flow.
type Address struct {
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Line1     string  `json:"line1"`
	Line2     string  `json:"line2,omitempty"`
	Landmark  string  `json:"landmark,omitempty"`
	City      string  `json:"city"`
	Pincode   string  `json:"pincode"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// CartItemType distinguishes bookable services from their add-ons.
type CartItemType string

const (
	CartItemService CartItemType = "professional_service"
	CartItemAddon   CartItemType = "professional_addon"
)

// CartItem is one entry in the booking cart. Add-ons reference their
// parent service through ParentServiceID.
type CartItem struct {
	ItemID          string       `json:"itemId"`
	ItemType        CartItemType `json:"itemType"`
	ParentServiceID string       `json:"parentServiceId,omitempty"`
	ProviderID      string       `json:"providerId,omitempty"`
	Title           string       `json:"title"`
	Price           float64      `json:"price"`
	Quantity        int          `json:"quantity"`
}

// PendingBooking captures the booking details written immediately before
// the user is redirected to the payment provider.
type PendingBooking struct {
	OrderID   string    `json:"orderId"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Address   Address   `json:"address"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserLocation is the resolved (or defaulted) client location.
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	Source    string  `json:"source"` // "resolved" or "default"
}

// FlowState holds everything a booking flow shares between pages.
// It lives in Redis keyed by the flow session ID and expires with the
// session; cart-clearing happens only on confirmed payment success.
type FlowState struct {
	SelectedAddress *Address        `json:"selectedAddress,omitempty"`
	CartFlow        bool            `json:"cartFlow"`
	CartItems       []CartItem      `json:"cartItems,omitempty"`
	PendingBooking  *PendingBooking `json:"pendingBooking,omitempty"`
	LastServiceID   string          `json:"lastServiceId,omitempty"`
	LastServiceSlug string          `json:"lastServiceSlug,omitempty"`
	PackageDetails  *CartItem       `json:"packageDetails,omitempty"`
	TourCompleted   bool            `json:"tourCompleted"`
	UserLocation    *UserLocation   `json:"userLocation,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
