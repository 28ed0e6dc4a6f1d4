package payments

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
	"github.com/absolutastore/storefront-backend/pkg/metrics"
	"github.com/absolutastore/storefront-backend/pkg/redis"
)

type stubFetcher struct {
	calls   int
	payment *mercadopago.Payment
	err     error
}

func (s *stubFetcher) GetPayment(_ context.Context, _ string) (*mercadopago.Payment, error) {
	s.calls++
	return s.payment, s.err
}

type captureRecorder struct {
	recorded []*mercadopago.Payment
	err      error
}

func (c *captureRecorder) Record(_ context.Context, payment *mercadopago.Payment) error {
	if c.err != nil {
		return c.err
	}
	c.recorded = append(c.recorded, payment)
	return nil
}

func newWebhookService(t *testing.T, fetcher paymentFetcher, recorder Recorder, guard *IdempotencyGuard) *WebhookService {
	t.Helper()
	svc, err := NewWebhookService(WebhookParams{Client: fetcher, Recorder: recorder, Guard: guard, Logger: logger.Nop()})
	require.NoError(t, err)
	return svc
}

func TestPaymentIDFromQuery(t *testing.T) {
	assert.Equal(t, "123", PaymentIDFromQuery(url.Values{"id": {"123"}}))
	assert.Equal(t, "456", PaymentIDFromQuery(url.Values{"data.id": {"456"}}))
	assert.Equal(t, "123", PaymentIDFromQuery(url.Values{"id": {"123"}, "data.id": {"456"}}))
	assert.Equal(t, "", PaymentIDFromQuery(url.Values{"topic": {"payment"}}))
}

func TestHandleMissingIDMakesNoCall(t *testing.T) {
	fetcher := &stubFetcher{}
	svc := newWebhookService(t, fetcher, &captureRecorder{}, nil)

	_, err := svc.Handle(context.Background(), " ")

	assert.ErrorIs(t, err, ErrMissingPaymentID)
	assert.Equal(t, 0, fetcher.calls)
}

func TestHandleRecordsPayment(t *testing.T) {
	fetcher := &stubFetcher{payment: &mercadopago.Payment{ID: 123, Status: "approved"}}
	recorder := &captureRecorder{}
	svc := newWebhookService(t, fetcher, recorder, nil)

	payment, err := svc.Handle(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "approved", payment.Status)
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, int64(123), recorder.recorded[0].ID)
}

func TestHandleFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeDependency, "get payment request failed")}
	recorder := &captureRecorder{}
	svc := newWebhookService(t, fetcher, recorder, nil)

	_, err := svc.Handle(context.Background(), "123")
	assert.Error(t, err)
	assert.Empty(t, recorder.recorded)
}

func TestHandleWithoutAccessToken(t *testing.T) {
	svc := newWebhookService(t, nil, &captureRecorder{}, nil)

	_, err := svc.Handle(context.Background(), "123")
	assert.ErrorIs(t, err, ErrAccessTokenMissing)
}

func TestHandleRecorderFailure(t *testing.T) {
	fetcher := &stubFetcher{payment: &mercadopago.Payment{ID: 1, Status: "pending"}}
	svc := newWebhookService(t, fetcher, &captureRecorder{err: errors.New("db down")}, nil)

	_, err := svc.Handle(context.Background(), "1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func newGuard(t *testing.T) *IdempotencyGuard {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })

	guard, err := NewIdempotencyGuard(redis.NewWithClient(raw), time.Hour, "mercadopago")
	require.NoError(t, err)
	return guard
}

func TestHandleSkipsAlreadyRecordedStatus(t *testing.T) {
	fetcher := &stubFetcher{payment: &mercadopago.Payment{ID: 7, Status: "pending"}}
	recorder := &captureRecorder{}
	svc := newWebhookService(t, fetcher, recorder, newGuard(t))

	_, err := svc.Handle(context.Background(), "7")
	require.NoError(t, err)
	_, err = svc.Handle(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, recorder.recorded, 1)

	fetcher.payment = &mercadopago.Payment{ID: 7, Status: "approved"}
	_, err = svc.Handle(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, recorder.recorded, 2, "a status change is recorded")
}

func TestHandleReleasesGuardWhenRecordingFails(t *testing.T) {
	fetcher := &stubFetcher{payment: &mercadopago.Payment{ID: 8, Status: "approved"}}
	recorder := &captureRecorder{err: errors.New("db down")}
	svc := newWebhookService(t, fetcher, recorder, newGuard(t))

	_, err := svc.Handle(context.Background(), "8")
	require.Error(t, err)

	recorder.err = nil
	_, err = svc.Handle(context.Background(), "8")
	require.NoError(t, err)
	assert.Len(t, recorder.recorded, 1)
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "scope")
	assert.Error(t, err)

	guard := newGuard(t)
	_, err = NewIdempotencyGuard(guard.store, -time.Second, "scope")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(guard.store, time.Hour, "")
	assert.Error(t, err)
}

func TestNewWebhookServiceRequiresRecorder(t *testing.T) {
	_, err := NewWebhookService(WebhookParams{Logger: logger.Nop()})
	assert.Error(t, err)
}

func TestHandleLabelsUndocumentedStatusAsUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStorefront(reg)
	fetcher := &stubFetcher{payment: &mercadopago.Payment{ID: 11, Status: "paid_in_full"}}
	svc, err := NewWebhookService(WebhookParams{Client: fetcher, Recorder: &captureRecorder{}, Logger: logger.Nop(), Metrics: m})
	require.NoError(t, err)

	_, err = svc.Handle(context.Background(), "11")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var labels []string
	for _, family := range families {
		if family.GetName() != "storefront_payment_notifications_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == "status" {
					labels = append(labels, pair.GetValue())
				}
			}
		}
	}
	assert.Equal(t, []string{unknownStatus}, labels)
}
