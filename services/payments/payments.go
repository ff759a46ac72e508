package payments

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// Intent is the prepared payment hand-off for the checkout redirect.
type Intent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// Service creates payment intents for pending bookings. The payment
// provider reports the outcome back through the status callback; this
// service only prepares the hand-off.
type Service interface {
	CreateIntent(ctx context.Context, orderID, sessionID string, amount float64, currency string) (*Intent, error)
}

// StripeService implements Service against Stripe.
type StripeService struct {
	logger *zap.Logger
}

func NewStripeService(logger *zap.Logger) *StripeService {
	return &StripeService{logger: logger}
}

// toMinorUnits converts a rupee amount to paise. Rounding, not
// truncation: cart totals are float sums, so 1234.56 arrives as
// 123455.999... and must still charge 123456 paise.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (s *StripeService) CreateIntent(ctx context.Context, orderID, sessionID string, amount float64, currency string) (*Intent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid payment amount: %.2f", amount)
	}
	if currency == "" {
		currency = "inr"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("orderId", orderID)
	params.AddMetadata("flowSessionId", sessionID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.logger.Info("payment intent created",
		zap.String("orderId", orderID),
		zap.String("intent", pi.ID))

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     currency,
	}, nil
}
