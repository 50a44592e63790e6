package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/events"
	"staybook/internal/metrics"
	"staybook/internal/models"
	"staybook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
)

// ErrBadMetadata marks an event whose payload or cart metadata cannot be
// parsed. Such an event is rejected before any state change; the caller maps
// it to a 4xx.
var ErrBadMetadata = errors.New("malformed payment metadata")

// Reconciler turns confirmed payments into bookings. An unparseable event is
// rejected at the boundary with ErrBadMetadata. The money has already moved
// by the time a well-formed event reaches us, so a failed business check does
// not fail the webhook: it becomes a recorded discrepancy for an operator to
// settle. Only infrastructure faults return a plain error, which the caller
// maps to a 5xx so the provider retries.
type Reconciler struct {
	store    domain.Store
	bookings *service.BookingService
	carts    *service.CartService
	notifier domain.Notifier
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewReconciler(store domain.Store, bookings *service.BookingService, carts *service.CartService, notifier domain.Notifier, eventBus domain.EventPublisher, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		bookings: bookings,
		carts:    carts,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandleEvent processes a verified provider event. Unknown event types are
// acknowledged and ignored.
func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) error {
	if string(event.Type) != checkoutSessionCompleted {
		r.logger.Debug().Str("type", string(event.Type)).Msg("ignoring webhook event")
		return nil
	}
	return r.reconcile(ctx, event)
}

func (r *Reconciler) reconcile(ctx context.Context, event stripe.Event) error {
	// Кривые данные отбиваем до журнала и до любых записей: деньги могли
	// уйти, поэтому логируем гостя и сырые метаданные для ручного разбора
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		metrics.IncWebhookEvent("rejected")
		r.logger.Error().Err(err).Str("event_id", event.ID).Msg("unparseable session payload")
		return fmt.Errorf("%w: session payload: %v", ErrBadMetadata, err)
	}

	userID, lines, err := DecodeMetadata(sess.Metadata)
	if err != nil {
		guest := sess.Metadata[metaUserID]
		if guest == "" {
			guest = r.fallbackUserID(ctx, &sess)
		}
		metrics.IncWebhookEvent("rejected")
		r.logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("user_id", guest).
			Str("metadata", rawLines(sess.Metadata)).
			Msg("rejecting webhook event with bad metadata")
		return fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}

	// Каждое событие обрабатывается ровно один раз
	existing, err := r.store.ClaimEvent(ctx, event.ID)
	if errors.Is(err, database.ErrDuplicateEvent) {
		r.logger.Info().Str("event_id", event.ID).Str("outcome", existing.Outcome).Msg("duplicate webhook event, already handled")
		metrics.IncWebhookEvent("duplicate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}

	bookings, err := r.bookings.CommitPaid(ctx, userID, lines, event.ID)
	if err != nil {
		if rej := service.AsRejection(err); rej != nil {
			return r.recordDiscrepancy(ctx, event.ID, userID, rawLines(sess.Metadata), rej.Error())
		}
		// Инфраструктурный сбой: освобождаем событие и даем провайдеру повторить
		if relErr := r.store.ReleaseEvent(ctx, event.ID); relErr != nil {
			r.logger.Error().Err(relErr).Str("event_id", event.ID).Msg("failed to release claimed event")
		}
		return fmt.Errorf("failed to commit paid bookings: %w", err)
	}

	if err := r.carts.Clear(ctx, service.CartKeyForUser(userID)); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear cart after payment")
	}

	metrics.IncWebhookEvent(models.OutcomeBooked)
	metrics.IncBookingsCommitted(models.PaymentPaid, len(bookings))
	r.logger.Info().Str("event_id", event.ID).Str("user_id", userID).Int("bookings", len(bookings)).Msg("payment reconciled")
	return nil
}

// recordDiscrepancy finalizes the ledger row, persists the discrepancy and
// alerts the operator. The webhook is acknowledged: retrying cannot fix a
// business-level mismatch.
func (r *Reconciler) recordDiscrepancy(ctx context.Context, eventID, userID, lines, reason string) error {
	if err := r.store.FinalizeEvent(ctx, eventID, models.OutcomeDiscrepancy, nil); err != nil {
		return fmt.Errorf("failed to finalize event as discrepancy: %w", err)
	}

	d := &models.Discrepancy{
		EventID: eventID,
		UserID:  userID,
		Reason:  reason,
		Lines:   lines,
	}
	if err := r.store.CreateDiscrepancy(ctx, d); err != nil {
		return fmt.Errorf("failed to record discrepancy: %w", err)
	}

	metrics.IncWebhookEvent(models.OutcomeDiscrepancy)
	metrics.IncDiscrepancy()
	r.logger.Error().Str("event_id", eventID).Str("user_id", userID).Str("reason", reason).Msg("payment discrepancy")

	if r.eventBus != nil {
		_ = r.eventBus.PublishJSON(events.EventPaymentDiscrepancy, events.DiscrepancyEventPayload{
			EventID: eventID,
			UserID:  userID,
			Reason:  reason,
			Lines:   lines,
		})
	}

	if r.notifier != nil {
		text := fmt.Sprintf("Payment discrepancy\nEvent: %s\nGuest: %s\nReason: %s", eventID, userID, reason)
		if err := r.notifier.Alert(ctx, text); err != nil {
			r.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to send discrepancy alert")
		}
	}

	return nil
}

// fallbackUserID attributes a broken event to a guest by the payer email:
// a known profile resolves to its user id, otherwise the raw email is kept.
func (r *Reconciler) fallbackUserID(ctx context.Context, sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails == nil || sess.CustomerDetails.Email == "" {
		return ""
	}
	email := sess.CustomerDetails.Email
	profile, err := r.store.GetProfileByEmail(ctx, email)
	if err != nil {
		return email
	}
	return profile.UserID
}

// rawLines keeps the original item payload with the discrepancy so the
// operator can book manually.
func rawLines(meta map[string]string) string {
	raw, _ := json.Marshal(meta)
	return string(raw)
}
