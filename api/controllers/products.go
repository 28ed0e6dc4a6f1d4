package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/api/validators"
	"github.com/absolutastore/storefront-backend/internal/catalog"
	"github.com/absolutastore/storefront-backend/internal/navstate"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
)

const (
	maxSearchLength      = 200
	maxRelatedLimit      = 12
	productNotFoundMsg   = "Produto não encontrado"
	noRelatedProductsMsg = "Nenhum produto relacionado encontrado."
)

type productCatalog interface {
	Products() []catalog.Product
	Featured() []catalog.Product
	Get(id int) (catalog.Product, error)
	Related(id, limit int) []catalog.Product
}

type catalogLoader interface {
	Load(ctx context.Context) ([]catalog.Product, error)
}

type productResponse struct {
	catalog.Product
	Image            string          `json:"image"`
	CategoryName     string          `json:"category_name"`
	SKU              string          `json:"sku"`
	Installment      decimal.Decimal `json:"installment"`
	InstallmentCount int             `json:"installment_count"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		Product:          p,
		Image:            p.PrimaryImage(),
		CategoryName:     catalog.DisplayCategory(p.Category),
		SKU:              catalog.SKU(p.ID),
		Installment:      catalog.Installment(p.Price),
		InstallmentCount: catalog.InstallmentCount,
	}
}

func newProductResponses(products []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

type productListResponse struct {
	State    navstate.FilterState `json:"state"`
	Fragment string               `json:"fragment"`
	Products []productResponse    `json:"products"`
	Empty    bool                 `json:"empty"`
	Featured bool                 `json:"featured"`
}

// ProductList renders the product grid for a fragment (?fragment=) or for
// explicit ?category= and ?search= values. Without either it returns the
// featured products, like the initial page render.
func ProductList(store productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		query := r.URL.Query()
		nav := navstate.NewNavigator(store)

		var view navstate.View
		switch {
		case query.Has("fragment"):
			view = nav.OnNavigate(query.Get("fragment"))
		case query.Has("category") || query.Has("search"):
			nav.OnCategorySelect(validators.SanitizeString(query.Get("category"), maxSearchLength))
			view = nav.OnSearchInput(validators.SanitizeString(query.Get("search"), maxSearchLength))
		default:
			view = nav.OnNavigate("")
		}

		responses.WriteSuccess(w, productListResponse{
			State:    view.State,
			Fragment: view.Fragment,
			Products: newProductResponses(view.Products),
			Empty:    view.Empty,
			Featured: view.Featured,
		})
	}
}

type productDetailResponse struct {
	Product        productResponse   `json:"product"`
	Related        []productResponse `json:"related"`
	RelatedMessage string            `json:"related_message,omitempty"`
}

// ProductDetail returns one product with its display fields and related products.
func ProductDetail(store productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		id, err := validators.ParsePathID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMsg))
			return
		}

		product, err := store.Get(id)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMsg)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "related_limit", catalog.DefaultRelatedLimit, 1, maxRelatedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		related := store.Related(id, limit)
		resp := productDetailResponse{
			Product: newProductResponse(product),
			Related: newProductResponses(related),
		}
		if len(related) == 0 {
			resp.RelatedMessage = noRelatedProductsMsg
		}
		responses.WriteSuccess(w, resp)
	}
}

// CatalogReload refetches the catalog from its source. On failure the
// previous catalog stays live and the load notice is returned.
func CatalogReload(loader catalogLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if loader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		products, err := loader.Load(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog reload failed").
				WithDetails(map[string]any{"notice": catalog.LoadNotice}))
			return
		}
		responses.WriteSuccess(w, map[string]int{"product_count": len(products)})
	}
}
