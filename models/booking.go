package models

import "time"

// BookingRecord is the persisted trail of a confirmed booking.
type BookingRecord struct {
	ID         string    `bson:"id" json:"id"`
	OrderID    string    `bson:"orderId" json:"orderId"`
	VerticalID string    `bson:"verticalId" json:"verticalId"`
	ServiceID  string    `bson:"serviceId" json:"serviceId"`
	AddonIDs   []string  `bson:"addonIds,omitempty" json:"addonIds,omitempty"`
	ProviderID string    `bson:"providerId,omitempty" json:"providerId,omitempty"`
	Address    Address   `bson:"address" json:"address"`
	Date       string    `bson:"date" json:"date"`
	Time       string    `bson:"time" json:"time"`
	Amount     float64   `bson:"amount" json:"amount"`
	Currency   string    `bson:"currency" json:"currency"`
	Status     string    `bson:"status" json:"status"` // "confirmed", "failed"
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}
