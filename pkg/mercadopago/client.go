package mercadopago

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 2048
)

var (
	ErrAccessTokenRequired = errors.New("mercado pago access token is required")
)

type preferenceAPI interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentAPI interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// Client wraps the Mercado Pago SDK with the storefront's error mapping.
type Client struct {
	preferences preferenceAPI
	payments    paymentAPI
}

type options struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// Option configures optional client behavior.
type Option func(*options)

// WithHTTPClient overrides the HTTP client the SDK sends requests through.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL redirects SDK requests to another origin, e.g. a sandbox proxy.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed == "" {
			return
		}
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			o.baseURL = parsed
		}
	}
}

// NewClient builds the SDK clients for a seller access token.
func NewClient(accessToken string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(accessToken)
	if trimmed == "" {
		return nil, ErrAccessTokenRequired
	}

	o := options{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	cfg, err := mpconfig.New(trimmed, mpconfig.WithHTTPClient(&requester{client: o.httpClient, baseURL: o.baseURL}))
	if err != nil {
		return nil, fmt.Errorf("configure mercado pago sdk: %w", err)
	}

	return &Client{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
	}, nil
}

// APIError carries a non-2xx response from Mercado Pago.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) UpstreamStatus() int {
	return e.StatusCode
}

// CreatePreference registers a checkout preference and returns the created resource.
func (c *Client) CreatePreference(ctx context.Context, pref Preference) (*PreferenceResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if len(pref.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}

	ctx, capture := withCapture(ctx)
	resource, err := c.preferences.Create(ctx, pref.sdkRequest())
	if err != nil {
		return nil, mapError(err, capture, "create preference")
	}
	return &PreferenceResponse{
		ID:               resource.ID,
		InitPoint:        resource.InitPoint,
		SandboxInitPoint: resource.SandboxInitPoint,
	}, nil
}

// GetPayment fetches the payment detail for a notification id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil || id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id must be numeric").WithDetails(map[string]any{"payment_id": trimmed})
	}

	ctx, capture := withCapture(ctx)
	resource, err := c.payments.Get(ctx, id)
	if err != nil {
		return nil, mapError(err, capture, "get payment")
	}
	return paymentFromSDK(resource), nil
}

func mapError(err error, capture *responseCapture, op string) error {
	if capture.status == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op+" request failed")
	}
	apiErr := &APIError{StatusCode: capture.status, Body: capture.body, Err: err}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, op+" request failed").
		WithDetails(map[string]any{"status": apiErr.StatusCode, "body": apiErr.Body})
}

type captureKey struct{}

// responseCapture records the last non-2xx response the SDK received for one call.
type responseCapture struct {
	status int
	body   string
}

func withCapture(ctx context.Context) (context.Context, *responseCapture) {
	capture := &responseCapture{}
	return context.WithValue(ctx, captureKey{}, capture), capture
}

// requester is handed to the SDK as its HTTP client.
type requester struct {
	client  *http.Client
	baseURL *url.URL
}

func (r *requester) Do(req *http.Request) (*http.Response, error) {
	if r.baseURL != nil {
		req.URL.Scheme = r.baseURL.Scheme
		req.URL.Host = r.baseURL.Host
		req.Host = r.baseURL.Host
		if prefix := strings.TrimRight(r.baseURL.Path, "/"); prefix != "" {
			req.URL.Path = prefix + req.URL.Path
		}
	}

	resp, err := r.client.Do(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}

	capture, _ := req.Context().Value(captureKey{}).(*responseCapture)
	if capture == nil {
		return resp, nil
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if int64(len(body)) > responseBodyReadLimit {
		body = body[:responseBodyReadLimit]
	}
	capture.status = resp.StatusCode
	capture.body = strings.TrimSpace(string(body))
	return resp, nil
}
