package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// StorageKey is the fixed, versioned key the cart collection is persisted under.
const StorageKey = "absoluta_cart.v1"

// Line is one product in the cart. Price is the snapshot taken when the line was created.
type Line struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	Color     string          `json:"color,omitempty"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// storedLine is the persisted shape: a JSON array of {id, name, price, image, quantity, color}.
type storedLine struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Image    string      `json:"image"`
	Quantity int         `json:"quantity"`
	Color    *string     `json:"color"`
}

func encodeLines(lines []Line) ([]byte, error) {
	stored := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		var color *string
		if l.Color != "" {
			c := l.Color
			color = &c
		}
		stored = append(stored, storedLine{
			ID:       l.ProductID,
			Name:     l.Name,
			Price:    json.Number(l.Price.String()),
			Image:    l.Image,
			Quantity: l.Quantity,
			Color:    color,
		})
	}
	return json.Marshal(stored)
}

// decodeLines parses the persisted collection. Lines without a positive
// quantity or id are dropped, and repeated ids are merged into the first line.
func decodeLines(payload []byte) ([]Line, error) {
	var stored []storedLine
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	lines := make([]Line, 0, len(stored))
	index := make(map[int]int, len(stored))
	for _, s := range stored {
		if s.ID <= 0 || s.Quantity < 1 {
			continue
		}
		price, err := decimal.NewFromString(s.Price.String())
		if err != nil {
			return nil, fmt.Errorf("decode cart price for %d: %w", s.ID, err)
		}
		if i, ok := index[s.ID]; ok {
			lines[i].Quantity += s.Quantity
			continue
		}
		line := Line{
			ProductID: s.ID,
			Name:      s.Name,
			Price:     price,
			Image:     s.Image,
			Quantity:  s.Quantity,
		}
		if s.Color != nil {
			line.Color = *s.Color
		}
		index[s.ID] = len(lines)
		lines = append(lines, line)
	}
	return lines, nil
}
