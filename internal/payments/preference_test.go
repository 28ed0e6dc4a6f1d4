package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/checkout"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
)

type stubCreator struct {
	got  []mercadopago.Preference
	resp *mercadopago.PreferenceResponse
	err  error
}

func (s *stubCreator) CreatePreference(_ context.Context, pref mercadopago.Preference) (*mercadopago.PreferenceResponse, error) {
	s.got = append(s.got, pref)
	return s.resp, s.err
}

func newPreferenceService(t *testing.T, client preferenceCreator, site string) *PreferenceService {
	t.Helper()
	svc, err := NewPreferenceService(PreferenceParams{
		Client:                  client,
		SiteURL:                 site,
		FallbackNotificationURL: "https://webhook.site/your-webhook-url",
		Logger:                  logger.Nop(),
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc
}

func sampleRequest() checkout.PreferenceRequest {
	return checkout.BuildPreferenceRequest([]cart.Line{
		{ProductID: 5, Name: "Máscara", Price: decimal.RequireFromString("49.90"), Image: "mask.png", Quantity: 2},
	})
}

func TestBuildPreference(t *testing.T) {
	svc := newPreferenceService(t, &stubCreator{}, "https://absoluta.example/")

	pref := svc.BuildPreference(sampleRequest())

	require.Len(t, pref.Items, 1)
	item := pref.Items[0]
	assert.Equal(t, "5", item.ID)
	assert.Equal(t, "Máscara", item.Title)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 49.9, item.UnitPrice)
	assert.Equal(t, mercadopago.CurrencyBRL, item.CurrencyID)
	assert.Equal(t, "mask.png", item.PictureURL)
	assert.Equal(t, "beauty", item.CategoryID)

	assert.Equal(t, mercadopago.AutoReturnAll, pref.AutoReturn)
	assert.Equal(t, "https://absoluta.example/success", pref.BackURLs.Success)
	assert.Equal(t, "https://absoluta.example/pending", pref.BackURLs.Pending)
	assert.Equal(t, "https://absoluta.example/error", pref.BackURLs.Failure)
	assert.Equal(t, "absoluta-1700000000123", pref.ExternalReference)
	assert.Equal(t, "https://absoluta.example/api/v1/webhooks/mercadopago", pref.NotificationURL)
	assert.Equal(t, "ABSOLUTASTORE", pref.StatementDescriptor)
	assert.True(t, pref.BinaryMode)
}

func TestBuildPreferenceFallsBackWithoutSiteURL(t *testing.T) {
	svc := newPreferenceService(t, &stubCreator{}, "")

	req := sampleRequest()
	req.Items[0].ImageURL = ""
	req.Items[0].CategoryID = ""
	pref := svc.BuildPreference(req)

	assert.Equal(t, "https://webhook.site/your-webhook-url", pref.NotificationURL)
	assert.Equal(t, checkout.PlaceholderPicture, pref.Items[0].PictureURL)
	assert.Equal(t, checkout.ItemCategory, pref.Items[0].CategoryID)
}

func TestCreatePreferenceReturnsCheckoutURL(t *testing.T) {
	client := &stubCreator{resp: &mercadopago.PreferenceResponse{ID: "pref-9", SandboxInitPoint: "https://sandbox.mp/init"}}
	svc := newPreferenceService(t, client, "https://absoluta.example")

	resp, err := svc.CreatePreference(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.mp/init", resp.URL)
	assert.Equal(t, "pref-9", resp.PreferenceID)
	assert.Len(t, client.got, 1)
}

func TestCreatePreferenceWithoutAccessToken(t *testing.T) {
	svc := newPreferenceService(t, nil, "https://absoluta.example")

	_, err := svc.CreatePreference(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrAccessTokenMissing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestCreatePreferencePropagatesProviderError(t *testing.T) {
	providerErr := pkgerrors.New(pkgerrors.CodeDependency, "create preference request failed")
	svc := newPreferenceService(t, &stubCreator{err: providerErr}, "https://absoluta.example")

	_, err := svc.CreatePreference(context.Background(), sampleRequest())
	assert.True(t, errors.Is(err, providerErr))
}

func TestCreatePreferenceRejectsEmptyItems(t *testing.T) {
	client := &stubCreator{}
	svc := newPreferenceService(t, client, "https://absoluta.example")

	_, err := svc.CreatePreference(context.Background(), checkout.PreferenceRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, client.got)
}

func TestInProcessClientReportsFailuresLikeTheEndpoint(t *testing.T) {
	rejected := pkgerrors.Wrap(pkgerrors.CodeDependency,
		&mercadopago.APIError{StatusCode: 400, Body: `{"message":"invalid unit_price"}`}, "create preference request failed")

	cases := map[string]preferenceCreator{
		"provider rejects": &stubCreator{err: rejected},
		"no access token":  nil,
	}
	for name, creator := range cases {
		t.Run(name, func(t *testing.T) {
			local, err := NewInProcessClient(newPreferenceService(t, creator, "https://absoluta.example"))
			require.NoError(t, err)
			svc, err := checkout.NewService(checkout.ServiceParams{Client: local, Logger: logger.Nop()})
			require.NoError(t, err)

			_, err = svc.Checkout(context.Background(), "sess-"+name, []cart.Line{
				{ProductID: 1, Name: "Shampoo", Price: decimal.RequireFromString("10"), Quantity: 1},
			})

			var creation *checkout.PreferenceCreationError
			require.ErrorAs(t, err, &creation)
			assert.Equal(t, 500, creation.Status)
			assert.Equal(t, checkout.PreferenceFailureMessage, creation.Message)
			assert.NotEmpty(t, creation.Details)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		})
	}
}

func TestInProcessClientKeepsProviderDetail(t *testing.T) {
	rejected := pkgerrors.Wrap(pkgerrors.CodeDependency,
		&mercadopago.APIError{StatusCode: 400, Body: `{"message":"invalid unit_price"}`}, "create preference request failed")
	local, err := NewInProcessClient(newPreferenceService(t, &stubCreator{err: rejected}, ""))
	require.NoError(t, err)

	_, err = local.CreatePreference(context.Background(), sampleRequest())

	var creation *checkout.PreferenceCreationError
	require.ErrorAs(t, err, &creation)
	assert.Contains(t, creation.Details, "invalid unit_price")
	var apiErr *mercadopago.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestNewInProcessClientRequiresService(t *testing.T) {
	_, err := NewInProcessClient(nil)
	assert.Error(t, err)
}
