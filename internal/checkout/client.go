package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
)

const (
	// PreferenceFailureMessage is the error text the preference endpoint answers with.
	PreferenceFailureMessage = "Error creating payment preference"

	defaultClientTimeout        = 10 * time.Second
	responseBodyReadLimit int64 = 2048
)

// PreferenceResponse is what the preference endpoint returns on success.
type PreferenceResponse struct {
	URL          string `json:"url"`
	PreferenceID string `json:"preferenceId"`
}

// PreferenceClient submits a preference request and returns the created preference.
type PreferenceClient interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*PreferenceResponse, error)
}

// PreferenceCreationError is returned when the endpoint answers with a non-2xx status.
type PreferenceCreationError struct {
	Status  int
	Message string
	Details string
	// Cause is set when the preference was created in process.
	Cause error
}

func (e *PreferenceCreationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("preference creation failed with status %d: %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("preference creation failed with status %d: %s", e.Status, e.Message)
}

func (e *PreferenceCreationError) Unwrap() error {
	return e.Cause
}

func (e *PreferenceCreationError) UpstreamStatus() int {
	return e.Status
}

// HTTPPreferenceClient posts the request as JSON to a fixed endpoint.
type HTTPPreferenceClient struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*HTTPPreferenceClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPPreferenceClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewHTTPPreferenceClient(endpoint string, opts ...ClientOption) (*HTTPPreferenceClient, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "preference endpoint required")
	}
	client := &HTTPPreferenceClient{
		endpoint:   trimmed,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *HTTPPreferenceClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*PreferenceResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal preference request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build preference request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute preference request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, creationError(resp.StatusCode, body)
	}

	var out PreferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode preference response")
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference response missing checkout url")
	}
	return &out, nil
}

// creationError reads the {error, details} body when present and falls back to the raw text.
func creationError(status int, body []byte) *PreferenceCreationError {
	var parsed struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return &PreferenceCreationError{Status: status, Message: parsed.Error, Details: parsed.Details}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(status)
	}
	return &PreferenceCreationError{Status: status, Message: message}
}
