package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/metrics"
)

// ErrLoad signals that the catalog could not be fetched or parsed.
var ErrLoad = errors.New("catalog load failed")

// LoadNotice is the user-facing message surfaced when the catalog is unavailable.
const LoadNotice = "Não foi possível carregar os produtos"

// DefaultRelatedLimit caps the related products shown on a product page.
const DefaultRelatedLimit = 4

// StoreParams wires the catalog store dependencies.
type StoreParams struct {
	Source  Source
	Logger  *logger.Logger
	Metrics *metrics.Storefront
}

// Store keeps the last successfully loaded catalog.
type Store struct {
	source  Source
	logg    *logger.Logger
	metrics *metrics.Storefront

	mu       sync.RWMutex
	products []Product
	byID     map[int]int
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog source required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Store{
		source:  params.Source,
		logg:    params.Logger,
		metrics: params.Metrics,
		byID:    map[int]int{},
	}, nil
}

// Load fetches and parses the catalog. On any failure it returns an empty
// slice and an error wrapping ErrLoad; the previously loaded set is kept.
func (s *Store) Load(ctx context.Context) ([]Product, error) {
	payload, err := s.source.Fetch(ctx)
	if err != nil {
		return s.loadFailed(ctx, err)
	}
	products, err := DecodeProducts(payload)
	if err != nil {
		return s.loadFailed(ctx, err)
	}

	index := make(map[int]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}

	s.mu.Lock()
	s.products = products
	s.byID = index
	s.mu.Unlock()

	s.metrics.IncCatalogLoad("success")
	s.logg.Info(s.logg.WithField(ctx, "product_count", len(products)), "catalog.loaded")
	return cloneProducts(products), nil
}

func (s *Store) loadFailed(ctx context.Context, cause error) ([]Product, error) {
	s.metrics.IncCatalogLoad("failure")
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrLoad, cause), LoadNotice)
	s.logg.Error(ctx, "catalog.load_failed", err)
	return []Product{}, err
}

// Products returns the loaded catalog in source order.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// Get returns the product with the given id.
func (s *Store) Get(id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.products[idx], nil
}

// Featured returns the products flagged as featured.
func (s *Store) Featured() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0)
	for _, p := range s.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// Related returns up to limit other products sharing the product's category.
func (s *Store) Related(id, limit int) []Product {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return []Product{}
	}
	current := s.products[idx]
	out := make([]Product, 0, limit)
	for _, p := range s.products {
		if p.ID == current.ID || CanonicalCategory(p.Category) != CanonicalCategory(current.Category) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

func cloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}
