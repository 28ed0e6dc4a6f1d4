package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/absolutastore/storefront-backend/internal/checkout"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
)

const (
	// WebhookPath is where Mercado Pago delivers payment notifications.
	WebhookPath = "/api/v1/webhooks/mercadopago"

	defaultDescriptor      = "ABSOLUTASTORE"
	defaultReferencePrefix = "absoluta"
)

// ErrAccessTokenMissing means the service was started without Mercado Pago credentials.
var ErrAccessTokenMissing = errors.New("mercado pago access token not configured")

type preferenceCreator interface {
	CreatePreference(ctx context.Context, pref mercadopago.Preference) (*mercadopago.PreferenceResponse, error)
}

type PreferenceParams struct {
	// Client is nil when no access token is configured.
	Client                  preferenceCreator
	SiteURL                 string
	FallbackNotificationURL string
	StatementDescriptor     string
	ReferencePrefix         string
	Logger                  *logger.Logger
}

// PreferenceService is the server side of checkout.PreferenceClient.
type PreferenceService struct {
	client          preferenceCreator
	siteURL         string
	fallbackNotify  string
	descriptor      string
	referencePrefix string
	logg            *logger.Logger
	now             func() time.Time
}

func NewPreferenceService(params PreferenceParams) (*PreferenceService, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	descriptor := strings.TrimSpace(params.StatementDescriptor)
	if descriptor == "" {
		descriptor = defaultDescriptor
	}
	prefix := strings.TrimSpace(params.ReferencePrefix)
	if prefix == "" {
		prefix = defaultReferencePrefix
	}
	return &PreferenceService{
		client:          params.Client,
		siteURL:         strings.TrimRight(strings.TrimSpace(params.SiteURL), "/"),
		fallbackNotify:  strings.TrimSpace(params.FallbackNotificationURL),
		descriptor:      descriptor,
		referencePrefix: prefix,
		logg:            params.Logger,
		now:             time.Now,
	}, nil
}

// CreatePreference registers the preference with Mercado Pago and returns the
// checkout url, preferring the production init point.
func (s *PreferenceService) CreatePreference(ctx context.Context, req checkout.PreferenceRequest) (*checkout.PreferenceResponse, error) {
	if s.client == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, ErrAccessTokenMissing, "create preference")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}

	pref := s.BuildPreference(req)
	ctx = s.logg.WithField(ctx, "external_reference", pref.ExternalReference)

	resp, err := s.client.CreatePreference(ctx, pref)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "preference_id", resp.ID), "payments.preference_created")

	return &checkout.PreferenceResponse{URL: resp.CheckoutURL(), PreferenceID: resp.ID}, nil
}

// InProcessClient hands checkout requests straight to a PreferenceService.
// Failures come back as the same PreferenceCreationError the preference
// endpoint produces, so checkout reports them identically either way.
type InProcessClient struct {
	svc *PreferenceService
}

func NewInProcessClient(svc *PreferenceService) (*InProcessClient, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "preference service required")
	}
	return &InProcessClient{svc: svc}, nil
}

func (c *InProcessClient) CreatePreference(ctx context.Context, req checkout.PreferenceRequest) (*checkout.PreferenceResponse, error) {
	resp, err := c.svc.CreatePreference(ctx, req)
	if err != nil {
		return nil, &checkout.PreferenceCreationError{
			Status:  http.StatusInternalServerError,
			Message: checkout.PreferenceFailureMessage,
			Details: pkgerrors.Describe(err),
			Cause:   err,
		}
	}
	return resp, nil
}

// BuildPreference maps the storefront request to the Mercado Pago body.
func (s *PreferenceService) BuildPreference(req checkout.PreferenceRequest) mercadopago.Preference {
	items := make([]mercadopago.Item, 0, len(req.Items))
	for _, item := range req.Items {
		picture := item.ImageURL
		if picture == "" {
			picture = checkout.PlaceholderPicture
		}
		category := item.CategoryID
		if category == "" {
			category = checkout.ItemCategory
		}
		items = append(items, mercadopago.Item{
			ID:          item.ExternalID,
			Title:       item.Title,
			Description: item.Description,
			PictureURL:  picture,
			CategoryID:  category,
			Quantity:    item.Quantity,
			CurrencyID:  mercadopago.CurrencyBRL,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
		})
	}

	return mercadopago.Preference{
		Items: items,
		BackURLs: &mercadopago.BackURLs{
			Success: s.siteURL + "/success",
			Pending: s.siteURL + "/pending",
			Failure: s.siteURL + "/error",
		},
		AutoReturn:          mercadopago.AutoReturnAll,
		ExternalReference:   fmt.Sprintf("%s-%d", s.referencePrefix, s.now().UnixMilli()),
		NotificationURL:     s.notificationURL(),
		StatementDescriptor: s.descriptor,
		BinaryMode:          true,
	}
}

func (s *PreferenceService) notificationURL() string {
	if s.siteURL == "" {
		return s.fallbackNotify
	}
	return s.siteURL + WebhookPath
}
