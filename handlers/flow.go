package handlers

import (
	"net/http"
	"time"

	"dhub/config"
	recordsRepo "dhub/database/repository/records"
	"dhub/middleware"
	"dhub/models"
	"dhub/services/flowstate"
	"dhub/services/payments"
	"dhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderScheduler schedules the abandoned-flow check for a pending
// booking.
type ReminderScheduler func(sessionID, orderID string, delay time.Duration) error

// FlowHandler drives the booking flow: address selection, cart,
// checkout routing, confirmation, and the payment status callback.
type FlowHandler struct {
	Store     *flowstate.Store
	Records   recordsRepo.BookingRecordRepository
	Payments  payments.Service
	Reminders ReminderScheduler
	Logger    *zap.Logger
}

func NewFlowHandler(store *flowstate.Store, records recordsRepo.BookingRecordRepository, pay payments.Service, reminders ReminderScheduler, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		Store:     store,
		Records:   records,
		Payments:  pay,
		Reminders: reminders,
		Logger:    logger,
	}
}

// GetFlowState returns the current booking flow state.
func (h *FlowHandler) GetFlowState(c *gin.Context) {
	state, err := h.Store.Get(c.Request.Context(), middleware.FlowSessionID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	c.JSON(http.StatusOK, state)
}

// SelectAddress validates and stores the chosen service address.
func (h *FlowHandler) SelectAddress(c *gin.Context) {
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid address payload", err.Error())
		return
	}

	if res := utils.ValidatePhone(addr.Phone); !res.Valid {
		utils.JSONError(c, http.StatusBadRequest, "Invalid phone number", res.Reason)
		return
	} else {
		addr.Phone = res.Value
	}
	if res := utils.ValidatePincode(addr.Pincode); !res.Valid {
		utils.JSONError(c, http.StatusBadRequest, "Invalid pincode", res.Reason)
		return
	}
	if res := utils.ValidateName(addr.Name); !res.Valid {
		utils.JSONError(c, http.StatusBadRequest, "Invalid name", res.Reason)
		return
	}

	// Addresses without coordinates inherit the resolved client location.
	if addr.Latitude == 0 && addr.Longitude == 0 {
		loc := middleware.LocationFromContext(c)
		addr.Latitude = loc.Latitude
		addr.Longitude = loc.Longitude
	}

	sessionID := middleware.FlowSessionID(c)
	ctx := c.Request.Context()
	if err := h.Store.SetAddress(ctx, sessionID, addr); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save address", err.Error())
		return
	}
	if err := h.Store.SetUserLocation(ctx, sessionID, middleware.LocationFromContext(c)); err != nil {
		h.Logger.Warn("failed to snapshot user location", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"address": addr})
}

// AddCartItem adds a service or add-on to the cart.
func (h *FlowHandler) AddCartItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid cart item", err.Error())
		return
	}
	if item.ItemID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid cart item", "itemId is required")
		return
	}
	if item.ItemType != models.CartItemService && item.ItemType != models.CartItemAddon {
		utils.JSONError(c, http.StatusBadRequest, "Invalid cart item", "unknown itemType")
		return
	}

	state, err := h.Store.AddCartItem(c.Request.Context(), middleware.FlowSessionID(c), item)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update cart", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cartItems": state.CartItems, "total": flowstate.CartTotal(state.CartItems)})
}

// RemoveCartItem drops an item (and its add-ons) from the cart.
func (h *FlowHandler) RemoveCartItem(c *gin.Context) {
	itemID := c.Param("itemID")
	state, err := h.Store.RemoveCartItem(c.Request.Context(), middleware.FlowSessionID(c), itemID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update cart", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cartItems": state.CartItems, "total": flowstate.CartTotal(state.CartItems)})
}

// SetLastService remembers the service page the user last viewed.
func (h *FlowHandler) SetLastService(c *gin.Context) {
	var input struct {
		ServiceID string `json:"serviceId"`
		Slug      string `json:"slug"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.ServiceID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid payload", "serviceId is required")
		return
	}
	if err := h.Store.SetLastService(c.Request.Context(), middleware.FlowSessionID(c), input.ServiceID, input.Slug); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save service", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteTour marks the onboarding tour as completed for this session.
func (h *FlowHandler) CompleteTour(c *gin.Context) {
	if err := h.Store.CompleteTour(c.Request.Context(), middleware.FlowSessionID(c)); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to update session", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// ProceedToCheckout decides the onward route for the flow. A non-empty
// cart marks the session as a cart flow and routes to the cart's
// address step; otherwise the last selected package drives a direct
// booking route.
func (h *FlowHandler) ProceedToCheckout(c *gin.Context) {
	vertical := c.Param("vertical")
	v, ok := models.VerticalByPrefix(vertical)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "Unknown vertical", vertical)
		return
	}

	sessionID := middleware.FlowSessionID(c)
	ctx := c.Request.Context()
	state, err := h.Store.Get(ctx, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}

	if len(state.CartItems) > 0 {
		route, err := flowstate.CheckoutRoute(v.InternalPrefix, state.CartItems)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Cannot check out", err.Error())
			return
		}
		if err := h.Store.MarkCartFlow(ctx, sessionID, true); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking flow", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"route": route, "flow": "checkout"})
		return
	}

	if state.PackageDetails != nil {
		route, err := flowstate.CheckoutRoute(v.InternalPrefix, []models.CartItem{*state.PackageDetails})
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Cannot check out", err.Error())
			return
		}
		if err := h.Store.MarkCartFlow(ctx, sessionID, false); err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Failed to update booking flow", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"route": route, "flow": "booking"})
		return
	}

	utils.JSONError(c, http.StatusBadRequest, "Nothing to check out", "cart is empty and no package selected")
}

// SelectPackage stores the package for a direct (non-cart) booking.
func (h *FlowHandler) SelectPackage(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil || item.ItemID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid package", "itemId is required")
		return
	}
	item.ItemType = models.CartItemService
	sessionID := middleware.FlowSessionID(c)
	state, err := h.Store.Get(c.Request.Context(), sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	state.PackageDetails = &item
	if err := h.Store.Save(c.Request.Context(), sessionID, state); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save package", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"packageDetails": item})
}

// ConfirmBooking freezes the pending booking and prepares the payment
// hand-off. The cart is deliberately left intact: it is cleared only
// when the payment callback reports success.
func (h *FlowHandler) ConfirmBooking(c *gin.Context) {
	vertical := c.Param("vertical")
	v, ok := models.VerticalByPrefix(vertical)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "Unknown vertical", vertical)
		return
	}

	var input struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Date == "" || input.Time == "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking details", "date and time are required")
		return
	}

	sessionID := middleware.FlowSessionID(c)
	ctx := c.Request.Context()
	state, err := h.Store.Get(ctx, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	if state.SelectedAddress == nil {
		utils.JSONError(c, http.StatusBadRequest, "No address selected", "select an address before confirming")
		return
	}

	var amount float64
	switch {
	case len(state.CartItems) > 0:
		amount = flowstate.CartTotal(state.CartItems)
	case state.PackageDetails != nil:
		amount = flowstate.CartTotal([]models.CartItem{*state.PackageDetails})
	default:
		utils.JSONError(c, http.StatusBadRequest, "Nothing to book", "cart is empty and no package selected")
		return
	}

	orderID := uuid.New().String()
	pending := models.PendingBooking{
		OrderID:   orderID,
		Date:      input.Date,
		Time:      input.Time,
		Address:   *state.SelectedAddress,
		Amount:    amount,
		Currency:  "inr",
		CreatedAt: time.Now(),
	}
	if err := h.Store.SetPendingBooking(ctx, sessionID, pending); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save pending booking", err.Error())
		return
	}

	intent, err := h.Payments.CreateIntent(ctx, orderID, sessionID, amount, pending.Currency)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "Failed to prepare payment", err.Error())
		return
	}

	if h.Reminders != nil {
		delay := time.Duration(config.AppConfig.ReminderDelayMin) * time.Minute
		if err := h.Reminders(sessionID, orderID, delay); err != nil {
			h.Logger.Warn("failed to schedule abandoned-flow reminder",
				zap.String("orderId", orderID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":         orderID,
		"vertical":        v.InternalPrefix,
		"amount":          amount,
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
	})
}

// PaymentCallback handles the payment provider's redirect. Success
// clears the cart, records the booking, and forwards to the thank-you
// page; failure leaves the cart intact for retry.
func (h *FlowHandler) PaymentCallback(c *gin.Context) {
	vertical := c.Param("vertical")
	v, ok := models.VerticalByPrefix(vertical)
	if !ok {
		utils.JSONError(c, http.StatusNotFound, "Unknown vertical", vertical)
		return
	}
	status := c.Query("status")
	orderID := c.Query("orderId")

	sessionID := middleware.FlowSessionID(c)
	ctx := c.Request.Context()

	if status != "success" {
		h.Logger.Info("payment failed or cancelled",
			zap.String("orderId", orderID), zap.String("status", status))
		c.Redirect(http.StatusFound, "/"+v.InternalPrefix+"/booking/failed?orderId="+orderID)
		return
	}

	state, err := h.Store.Get(ctx, sessionID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	if state.PendingBooking == nil || state.PendingBooking.OrderID != orderID {
		utils.JSONError(c, http.StatusConflict, "No matching pending booking", orderID)
		return
	}

	record := models.BookingRecord{
		OrderID:    orderID,
		VerticalID: v.ID,
		Address:    state.PendingBooking.Address,
		Date:       state.PendingBooking.Date,
		Time:       state.PendingBooking.Time,
		Amount:     state.PendingBooking.Amount,
		Currency:   state.PendingBooking.Currency,
		Status:     "confirmed",
	}
	for _, it := range state.CartItems {
		switch it.ItemType {
		case models.CartItemService:
			record.ServiceID = it.ItemID
			record.ProviderID = it.ProviderID
		case models.CartItemAddon:
			record.AddonIDs = append(record.AddonIDs, it.ItemID)
		}
	}
	if record.ServiceID == "" && state.PackageDetails != nil {
		record.ServiceID = state.PackageDetails.ItemID
		record.ProviderID = state.PackageDetails.ProviderID
	}

	if _, err := h.Records.Create(ctx, record); err != nil {
		// The payment went through; losing the record must not strand
		// the user on the payment page.
		h.Logger.Error("failed to persist booking record",
			zap.String("orderId", orderID), zap.Error(err))
	}

	if err := h.Store.ClearCart(ctx, sessionID); err != nil {
		h.Logger.Error("failed to clear cart after payment",
			zap.String("orderId", orderID), zap.Error(err))
	}

	c.Redirect(http.StatusFound, "/"+v.InternalPrefix+"/thank-you?orderId="+orderID)
}

// BookingAddressPage serves the address step's context: the previously
// selected address plus the service/add-ons carried in the query.
func (h *FlowHandler) BookingAddressPage(c *gin.Context) {
	state, err := h.Store.Get(c.Request.Context(), middleware.FlowSessionID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selectedAddress": state.SelectedAddress,
		"cartFlow":        state.CartFlow,
		"providerId":      c.Query("providerId"),
		"packageId":       c.Query("packageId"),
		"addons":          c.Query("addons"),
	})
}

// ThankYou serves the post-payment confirmation page data.
func (h *FlowHandler) ThankYou(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		utils.JSONError(c, http.StatusBadRequest, "Missing order", "orderId is required")
		return
	}
	record, err := h.Records.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Booking not found", orderID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": record})
}

// BookingFailed serves the payment-failure page data. The cart is left
// untouched so the user can retry.
func (h *FlowHandler) BookingFailed(c *gin.Context) {
	state, err := h.Store.Get(c.Request.Context(), middleware.FlowSessionID(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load booking flow", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "failed",
		"orderId":   c.Query("orderId"),
		"cartItems": state.CartItems,
	})
}

// RecentBookings lists the latest confirmed bookings, optionally
// filtered by vertical prefix.
func (h *FlowHandler) RecentBookings(c *gin.Context) {
	verticalID := ""
	if prefix := c.Query("vertical"); prefix != "" {
		v, ok := models.VerticalByPrefix(prefix)
		if !ok {
			utils.JSONError(c, http.StatusNotFound, "Unknown vertical", prefix)
			return
		}
		verticalID = v.ID
	}
	records, err := h.Records.ListRecent(c.Request.Context(), verticalID, 10)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": records})
}
