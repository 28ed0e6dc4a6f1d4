package checkout

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/absolutastore/storefront-backend/internal/cart"
)

const (
	// PlaceholderPicture is sent for lines without an image.
	PlaceholderPicture = "https://via.placeholder.com/150"
	// ItemCategory is the Mercado Pago category id sent for every item.
	ItemCategory = "beauty"
)

// PreferenceItem is one cart line as the preference endpoint expects it.
type PreferenceItem struct {
	ExternalID  string          `json:"id"`
	Title       string          `json:"title" validate:"required"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gt=0"`
	ImageURL    string          `json:"picture_url"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
}

// PreferenceRequest is built fresh for every checkout attempt.
type PreferenceRequest struct {
	Items []PreferenceItem `json:"items" validate:"required,min=1,dive"`
	Total decimal.Decimal  `json:"total"`
}

// MarshalJSON writes prices as JSON numbers instead of decimal's quoted form.
func (i PreferenceItem) MarshalJSON() ([]byte, error) {
	type wire struct {
		ExternalID  string      `json:"id"`
		Title       string      `json:"title"`
		Quantity    int         `json:"quantity"`
		UnitPrice   json.Number `json:"unit_price"`
		ImageURL    string      `json:"picture_url"`
		Description string      `json:"description"`
		CategoryID  string      `json:"category_id"`
	}
	return json.Marshal(wire{
		ExternalID:  i.ExternalID,
		Title:       i.Title,
		Quantity:    i.Quantity,
		UnitPrice:   json.Number(i.UnitPrice.String()),
		ImageURL:    i.ImageURL,
		Description: i.Description,
		CategoryID:  i.CategoryID,
	})
}

func (r PreferenceRequest) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []PreferenceItem{}
	}
	return json.Marshal(struct {
		Items []PreferenceItem `json:"items"`
		Total json.Number      `json:"total"`
	}{Items: items, Total: json.Number(r.Total.String())})
}

// UnmarshalJSON accepts prices as numbers or numeric strings.
func (i *PreferenceItem) UnmarshalJSON(data []byte) error {
	var wire struct {
		ExternalID  json.RawMessage `json:"id"`
		Title       string          `json:"title"`
		Quantity    int             `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
		ImageURL    string          `json:"picture_url"`
		Description string          `json:"description"`
		CategoryID  string          `json:"category_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := externalID(wire.ExternalID)
	if err != nil {
		return err
	}
	*i = PreferenceItem{
		ExternalID:  id,
		Title:       wire.Title,
		Quantity:    wire.Quantity,
		UnitPrice:   wire.UnitPrice,
		ImageURL:    wire.ImageURL,
		Description: wire.Description,
		CategoryID:  wire.CategoryID,
	}
	return nil
}

// externalID accepts the item id as a JSON string or number.
func externalID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("item id must be a string or number: %w", err)
	}
	return n.String(), nil
}

// BuildPreferenceRequest maps cart lines to preference items. Total equals cart.Total(lines).
func BuildPreferenceRequest(lines []cart.Line) PreferenceRequest {
	items := make([]PreferenceItem, 0, len(lines))
	for _, line := range lines {
		picture := line.Image
		if picture == "" {
			picture = PlaceholderPicture
		}
		items = append(items, PreferenceItem{
			ExternalID:  strconv.Itoa(line.ProductID),
			Title:       line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
			ImageURL:    picture,
			Description: "Produto: " + line.Name,
			CategoryID:  ItemCategory,
		})
	}
	return PreferenceRequest{Items: items, Total: cart.Total(lines)}
}
