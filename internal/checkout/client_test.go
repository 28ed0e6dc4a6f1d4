package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absolutastore/storefront-backend/internal/cart"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
)

func sampleRequest() PreferenceRequest {
	return BuildPreferenceRequest([]cart.Line{
		{ProductID: 1, Name: "Batom", Price: decimal.NewFromInt(10), Quantity: 2},
	})
}

func TestHTTPPreferenceClientPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body PreferenceRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Items, 1)
		assert.True(t, body.Total.Equal(decimal.NewFromInt(20)))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://mp.example/init","preferenceId":"pref-1"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPPreferenceClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	resp, err := client.CreatePreference(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://mp.example/init", resp.URL)
	assert.Equal(t, "pref-1", resp.PreferenceID)
}

func TestHTTPPreferenceClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Error creating payment preference","details":"invalid token"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPPreferenceClient(srv.URL)
	require.NoError(t, err)

	_, err = client.CreatePreference(context.Background(), sampleRequest())
	var creation *PreferenceCreationError
	require.True(t, errors.As(err, &creation))
	assert.Equal(t, http.StatusInternalServerError, creation.Status)
	assert.Equal(t, "Error creating payment preference", creation.Message)
	assert.Equal(t, "invalid token", creation.Details)
}

func TestHTTPPreferenceClientNon2xxPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewHTTPPreferenceClient(srv.URL)
	require.NoError(t, err)

	_, err = client.CreatePreference(context.Background(), sampleRequest())
	var creation *PreferenceCreationError
	require.True(t, errors.As(err, &creation))
	assert.Equal(t, http.StatusBadGateway, creation.Status)
	assert.Equal(t, "upstream down", creation.Message)
}

func TestHTTPPreferenceClientRejectsMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"preferenceId":"pref-1"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPPreferenceClient(srv.URL)
	require.NoError(t, err)

	_, err = client.CreatePreference(context.Background(), sampleRequest())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewHTTPPreferenceClientRequiresEndpoint(t *testing.T) {
	_, err := NewHTTPPreferenceClient("  ")
	assert.Error(t, err)
}
