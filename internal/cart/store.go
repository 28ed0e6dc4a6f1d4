package cart

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/absolutastore/storefront-backend/internal/catalog"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
	"github.com/absolutastore/storefront-backend/pkg/storage"
)

const lockStripes = 64

// MaxLineQuantity caps the quantity of a single line.
const MaxLineQuantity = 999

// Carts hands out the cart of each browser session. Sessions share one
// backend; keys are namespaced by session id.
type Carts struct {
	base  storage.Storage
	logg  *logger.Logger
	locks [lockStripes]sync.Mutex
}

func NewCarts(base storage.Storage, logg *logger.Logger) (*Carts, error) {
	if base == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart storage required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Carts{base: base, logg: logg}, nil
}

// Session returns the cart for sessionID.
func (c *Carts) Session(sessionID string) *Store {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &Store{
		storage: storage.Namespaced(c.base, sessionID),
		logg:    c.logg,
		mu:      &c.locks[h.Sum32()%lockStripes],
	}
}

// Store is a single cart persisted under StorageKey. Every mutation loads the
// collection, changes a copy and commits the whole collection before returning.
type Store struct {
	storage storage.Storage
	logg    *logger.Logger
	mu      *sync.Mutex
}

// NewStore builds a standalone cart over s.
func NewStore(s storage.Storage, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{storage: s, logg: logg, mu: &sync.Mutex{}}
}

// Lines returns the current lines in insertion order.
func (s *Store) Lines(ctx context.Context) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add merges quantity into the existing line for the product or appends a new
// line with a price snapshot. Lines match on product id only, so the color of
// the first add is kept. Merged quantities stop at MaxLineQuantity.
func (s *Store) Add(ctx context.Context, product catalog.Product, quantity int, color string) ([]Line, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	quantity = min(quantity, MaxLineQuantity)
	color, err := resolveColor(product, color)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	next := cloneLines(lines)
	if i := indexOf(next, product.ID); i >= 0 {
		next[i].Quantity = addQuantity(next[i].Quantity, quantity)
	} else {
		next = append(next, Line{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.PrimaryImage(),
			Quantity:  quantity,
			Color:     color,
		})
	}

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Remove deletes the line for productID; missing lines are a no-op.
func (s *Store) Remove(ctx context.Context, productID int) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(lines, productID)
	if i < 0 {
		return lines, nil
	}

	next := append(cloneLines(lines[:i]), lines[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// SetQuantity adds delta to the line quantity and removes the line when the
// result drops to zero or below. Increases stop at MaxLineQuantity. Missing
// lines are a no-op.
func (s *Store) SetQuantity(ctx context.Context, productID, delta int) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(lines, productID)
	if i < 0 || delta == 0 {
		return lines, nil
	}

	next := cloneLines(lines)
	next[i].Quantity = addQuantity(next[i].Quantity, delta)
	if next[i].Quantity <= 0 {
		next = append(next[:i], next[i+1:]...)
	}

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Clear removes every line.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(ctx, StorageKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Total is the sum of price times quantity over all lines.
func (s *Store) Total(ctx context.Context) (decimal.Decimal, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(lines), nil
}

// ItemCount is the sum of quantities, used for the cart badge.
func (s *Store) ItemCount(ctx context.Context) (int, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return 0, err
	}
	return ItemCount(lines), nil
}

// addQuantity returns current+delta capped at MaxLineQuantity without
// overflowing. current is always within [1, MaxLineQuantity].
func addQuantity(current, delta int) int {
	if delta > MaxLineQuantity-current {
		return MaxLineQuantity
	}
	return current + delta
}

// Total sums price times quantity over lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount sums the quantities of lines.
func ItemCount(lines []Line) int {
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return count
}

// load treats missing and corrupt data as an empty cart. Backend failures are
// returned so a mutation never overwrites a cart it could not read.
func (s *Store) load(ctx context.Context) ([]Line, error) {
	payload, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []Line{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines, err := decodeLines(payload)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart.corrupt_data_discarded")
		return []Line{}, nil
	}
	return lines, nil
}

func (s *Store) commit(ctx context.Context, lines []Line) error {
	payload, err := encodeLines(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.storage.Set(ctx, StorageKey, payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

// resolveColor defaults to the first offered color and rejects colors the product does not offer.
func resolveColor(product catalog.Product, color string) (string, error) {
	if len(product.Colors) == 0 {
		return color, nil
	}
	if color == "" {
		return product.Colors[0], nil
	}
	for _, c := range product.Colors {
		if c == color {
			return color, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "color not offered for product").
		WithDetails(map[string]any{"color": color, "available": product.Colors})
}

func indexOf(lines []Line, productID int) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines), len(lines)+1)
	copy(out, lines)
	return out
}
