package webhooks

import (
	"context"
	"errors"
	"net/http"

	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/internal/payments"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/mercadopago"
)

const (
	methodNotAllowedMsg   = "Method Not Allowed"
	webhookFailureMessage = "Error processing webhook"
)

type MercadoPagoWebhookService interface {
	Handle(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// MercadoPagoWebhook acknowledges payment notifications. Anything but a 200
// makes Mercado Pago re-deliver, so only a missing id is answered with 400.
func MercadoPagoWebhook(svc MercadoPagoWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			responses.WriteFunctionError(w, http.StatusMethodNotAllowed, methodNotAllowedMsg, "")
			return
		}
		ctx := r.Context()
		if svc == nil {
			responses.WriteFunctionError(w, http.StatusInternalServerError, webhookFailureMessage, "webhook service unavailable")
			return
		}

		_, err := svc.Handle(ctx, payments.PaymentIDFromQuery(r.URL.Query()))
		if errors.Is(err, payments.ErrMissingPaymentID) {
			responses.WriteFunctionError(w, http.StatusBadRequest, payments.ErrMissingPaymentID.Message(), "")
			return
		}
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "webhooks.mercadopago_failed", err)
			}
			responses.WriteFunctionError(w, http.StatusInternalServerError, webhookFailureMessage, pkgerrors.Describe(err))
			return
		}

		responses.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
