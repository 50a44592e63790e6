package payment

import (
	"context"
	"fmt"
	"math"

	"staybook/internal/config"
	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// checkoutSessionCompleted is the only provider event we reconcile on.
const checkoutSessionCompleted = "checkout.session.completed"

// StripeGateway creates hosted checkout sessions and verifies incoming
// webhook signatures.
type StripeGateway struct {
	webhookSecret string
	successURL    string
	cancelURL     string
	currency      string
	logger        *zerolog.Logger
}

func NewStripeGateway(cfg config.StripeConfig, logger *zerolog.Logger) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		currency:      cfg.Currency,
		logger:        logger,
	}
}

// CreateCheckoutSession opens a hosted payment page for the cart and returns
// its URL. The cart lines ride along in session metadata so the webhook can
// reconstruct them without trusting any local state.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID string, lines []models.CartLine) (string, error) {
	if len(lines) == 0 {
		return "", fmt.Errorf("no lines to check out")
	}

	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		name := fmt.Sprintf("Room %s: %s to %s", line.RoomNum,
			line.CheckIn.Format(models.DateLayout), line.CheckOut.Format(models.DateLayout))
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
				// Минорные единицы валюты
				UnitAmount: stripe.Int64(int64(math.Round(line.TotalPrice * 100))),
			},
			Quantity: stripe.Int64(1),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems:  items,
	}
	params.Context = ctx
	for key, value := range EncodeMetadata(userID, lines) {
		params.AddMetadata(key, value)
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	g.logger.Info().Str("session_id", sess.ID).Str("user_id", userID).Int("lines", len(lines)).Msg("checkout session created")
	return sess.URL, nil
}

// VerifyWebhook checks the provider signature and returns the parsed event.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return event, nil
}
