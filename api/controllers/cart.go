package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/absolutastore/storefront-backend/api/middleware"
	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/api/validators"
	"github.com/absolutastore/storefront-backend/internal/cart"
	"github.com/absolutastore/storefront-backend/internal/catalog"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
)

const maxColorLength = 64

type cartSessions interface {
	Session(sessionID string) *cart.Store
}

type productLookup interface {
	Get(id int) (catalog.Product, error)
}

type cartLineResponse struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Color     string          `json:"color,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
}

func newCartResponse(lines []cart.Line) cartResponse {
	out := make([]cartLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Image:     l.Image,
			Quantity:  l.Quantity,
			Color:     l.Color,
			Subtotal:  l.Subtotal(),
		})
	}
	return cartResponse{
		Lines:     out,
		Total:     cart.Total(lines),
		ItemCount: cart.ItemCount(lines),
	}
}

type addCartItemRequest struct {
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
	Color     string `json:"color"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0,min=-999,max=999"`
}

func sessionCart(ctx context.Context, carts cartSessions) (*cart.Store, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
	}
	session := middleware.CartSessionFromContext(ctx)
	if session == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing")
	}
	return carts.Session(session), nil
}

// CartFetch returns the session's cart with its total and item count.
func CartFetch(carts cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := store.Lines(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

// CartAddItem adds a catalog product to the cart. Quantity defaults to 1.
func CartAddItem(carts cartSessions, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == 0 {
			payload.Quantity = 1
		}

		product, err := products.Get(payload.ProductID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMsg)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := store.Add(r.Context(), product, payload.Quantity, validators.SanitizeString(payload.Color, maxColorLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(lines))
	}
}

// CartChangeQuantity applies a signed delta; a resulting quantity of zero or
// less removes the line.
func CartChangeQuantity(carts cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := store.SetQuantity(r.Context(), productID, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

func CartRemoveItem(carts cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := store.Remove(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(lines))
	}
}

func CartClear(carts cartSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := sessionCart(r.Context(), carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(nil))
	}
}
