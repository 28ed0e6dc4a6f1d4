package controllers

import (
	"context"
	"net/http"

	"github.com/absolutastore/storefront-backend/api/middleware"
	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/checkout"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
)

var errCheckoutUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable")

type checkoutService interface {
	Checkout(ctx context.Context, session string, lines []cart.Line) (*checkout.Result, error)
	State(ctx context.Context, session string) (checkout.State, error)
}

// CartCheckout snapshots the session's cart and creates a payment preference
// for it. The cart is left untouched; the client follows redirect_url.
func CartCheckout(carts cartSessions, svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errCheckoutUnavailable)
			return
		}

		lines, err := store.Lines(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), middleware.CartSessionFromContext(r.Context()), lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutStatus reports where the session's last checkout attempt stands.
func CheckoutStatus(svc checkoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errCheckoutUnavailable)
			return
		}

		state, err := svc.State(r.Context(), middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]checkout.State{"state": state})
	}
}
