package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/absolutastore/storefront-backend/internal/cart"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/metrics"
)

var (
	// ErrEmptyCart is returned before any network call when there is nothing to buy.
	ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	// ErrCheckoutInProgress is returned while another attempt for the session is submitting.
	ErrCheckoutInProgress = pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress")
)

// Result carries where the browser should be sent.
type Result struct {
	RedirectURL  string `json:"redirect_url"`
	PreferenceID string `json:"preference_id"`
}

type ServiceParams struct {
	Client  PreferenceClient
	Tracker Tracker
	Logger  *logger.Logger
	Metrics *metrics.Storefront
}

// Service turns a cart snapshot into a hosted checkout redirect.
type Service struct {
	client  PreferenceClient
	tracker Tracker
	logg    *logger.Logger
	metrics *metrics.Storefront
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "preference client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	tracker := params.Tracker
	if tracker == nil {
		tracker = NewMemoryTracker()
	}
	return &Service{
		client:  params.Client,
		tracker: tracker,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

// Checkout submits the lines as a new preference. The caller owns the cart and
// performs the redirect; lines are not modified.
func (s *Service) Checkout(ctx context.Context, session string, lines []cart.Line) (*Result, error) {
	if len(lines) == 0 {
		s.metrics.IncCheckout("empty_cart")
		return nil, ErrEmptyCart
	}
	attempt, err := s.tracker.Begin(ctx, session)
	if err != nil {
		if errors.Is(err, ErrCheckoutInProgress) {
			s.metrics.IncCheckout("in_progress")
		}
		return nil, err
	}

	req := BuildPreferenceRequest(lines)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"items": len(req.Items),
		"total": req.Total.StringFixed(2),
	})

	started := s.now()
	resp, err := s.client.CreatePreference(ctx, req)
	elapsed := s.now().Sub(started)
	// The attempt outcome must be recorded even when the request was cancelled.
	finishCtx := context.WithoutCancel(ctx)

	if err != nil {
		s.metrics.ObservePreference("error", elapsed)
		s.metrics.IncCheckout("failed")
		if finishErr := s.tracker.Finish(finishCtx, session, attempt, StateFailed); finishErr != nil {
			s.logg.Error(finishCtx, "checkout.state_record_failed", finishErr)
		}
		return nil, wrapCreationError(err)
	}

	s.metrics.ObservePreference("ok", elapsed)
	s.metrics.IncCheckout("redirect")
	if finishErr := s.tracker.Finish(finishCtx, session, attempt, StateRedirecting); finishErr != nil {
		s.logg.Error(finishCtx, "checkout.state_record_failed", finishErr)
	}
	s.logg.Info(s.logg.WithField(ctx, "preference_id", resp.PreferenceID), "checkout.preference_created")

	return &Result{RedirectURL: resp.URL, PreferenceID: resp.PreferenceID}, nil
}

// State reports the checkout progress of session.
func (s *Service) State(ctx context.Context, session string) (State, error) {
	return s.tracker.State(ctx, session)
}

func wrapCreationError(err error) error {
	var creation *PreferenceCreationError
	if errors.As(err, &creation) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, creation, "payment preference could not be created").
			WithDetails(map[string]any{
				"status":  creation.Status,
				"message": creation.Message,
				"details": creation.Details,
			})
	}
	return err
}
