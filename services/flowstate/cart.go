package flowstate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"dhub/models"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no
	// bookable service in the cart.
	ErrEmptyCart = errors.New("cart contains no bookable service")
	// ErrMultipleServices is returned when more than one parent service
	// is in the cart; a booking covers exactly one.
	ErrMultipleServices = errors.New("cart contains more than one service")
)

// CheckoutRoute builds the internal route the checkout flow proceeds to
// for the given vertical and cart: the address step for the cart's
// service, carrying its provider and any add-ons as query parameters.
func CheckoutRoute(internalPrefix string, items []models.CartItem) (string, error) {
	var service *models.CartItem
	for i := range items {
		if items[i].ItemType == models.CartItemService {
			if service != nil {
				return "", ErrMultipleServices
			}
			service = &items[i]
		}
	}
	if service == nil {
		return "", ErrEmptyCart
	}

	var addonIDs []string
	for _, it := range items {
		if it.ItemType == models.CartItemAddon && it.ParentServiceID == service.ItemID {
			addonIDs = append(addonIDs, it.ItemID)
		}
	}

	q := url.Values{}
	if service.ProviderID != "" {
		q.Set("providerId", service.ProviderID)
	}
	q.Set("packageId", service.ItemID)
	if len(addonIDs) > 0 {
		q.Set("addons", strings.Join(addonIDs, ","))
	}
	return fmt.Sprintf("/%s/booking/address?%s", internalPrefix, q.Encode()), nil
}

// CartTotal sums the cart's line totals.
func CartTotal(items []models.CartItem) float64 {
	var total float64
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += it.Price * float64(qty)
	}
	return total
}
