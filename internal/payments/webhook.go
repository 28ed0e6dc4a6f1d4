package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/absolutastore/storefront-backend/pkg/enums"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
	"github.com/absolutastore/storefront-backend/pkg/metrics"
	"github.com/absolutastore/storefront-backend/pkg/redis"
)

// ErrMissingPaymentID is returned before any outbound call when the notification names no payment.
var ErrMissingPaymentID = pkgerrors.New(pkgerrors.CodeValidation, "Missing payment ID")

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// Recorder persists the outcome of a payment notification. Implementations
// must tolerate the same payment being delivered more than once.
type Recorder interface {
	Record(ctx context.Context, payment *mercadopago.Payment) error
}

// PaymentIDFromQuery reads the payment id from ?id= or ?data.id=.
func PaymentIDFromQuery(values url.Values) string {
	if id := strings.TrimSpace(values.Get("id")); id != "" {
		return id
	}
	return strings.TrimSpace(values.Get("data.id"))
}

type WebhookParams struct {
	// Client is nil when no access token is configured.
	Client   paymentFetcher
	Recorder Recorder
	// Guard skips recording a payment status that was already recorded. Optional.
	Guard   *IdempotencyGuard
	Logger  *logger.Logger
	Metrics *metrics.Storefront
}

type WebhookService struct {
	client   paymentFetcher
	recorder Recorder
	guard    *IdempotencyGuard
	logg     *logger.Logger
	metrics  *metrics.Storefront
}

func NewWebhookService(params WebhookParams) (*WebhookService, error) {
	if params.Recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &WebhookService{
		client:   params.Client,
		recorder: params.Recorder,
		guard:    params.Guard,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Handle fetches the payment behind a notification and records it.
// Any returned error other than ErrMissingPaymentID should make the provider re-deliver.
func (s *WebhookService) Handle(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		s.metrics.IncWebhook("missing_id", "")
		return nil, ErrMissingPaymentID
	}
	if s.client == nil {
		s.metrics.IncWebhook("error", "")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ErrAccessTokenMissing, "fetch payment")
	}
	ctx = s.logg.WithPaymentID(ctx, paymentID)

	payment, err := s.client.GetPayment(ctx, paymentID)
	if err != nil {
		s.metrics.IncWebhook("error", "")
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "payment_status", payment.Status)
	label := unknownStatus
	if status, err := enums.ParsePaymentStatus(payment.Status); err == nil {
		label = status.String()
		ctx = s.logg.WithField(ctx, "payment_final", status.IsFinal())
	} else {
		s.logg.Warn(ctx, "payments.unknown_status")
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, statusKey(paymentID, payment.Status))
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payments.idempotency_check_failed")
		} else if seen {
			s.metrics.IncWebhook("duplicate", label)
			s.logg.Info(ctx, "payments.notification_duplicate")
			return payment, nil
		}
	}

	if err := s.recorder.Record(ctx, payment); err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, statusKey(paymentID, payment.Status)); delErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", delErr.Error()), "payments.idempotency_release_failed")
			}
		}
		s.metrics.IncWebhook("error", label)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}

	s.metrics.IncWebhook("recorded", label)
	s.logg.Info(ctx, "payments.notification_recorded")
	return payment, nil
}

// unknownStatus labels statuses Mercado Pago does not document.
const unknownStatus = "unknown"

func statusKey(paymentID, status string) string {
	return paymentID + ":" + status
}

// IdempotencyGuard remembers which payment statuses were already recorded.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency store is required")
	}
	if ttl < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ttl must be non-negative")
	}
	if scope == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether id was already marked and marks it otherwise.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("idempotency id is required")
	}
	key := g.store.IdempotencyKey(g.scope, id)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("idempotency id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, id))
}
