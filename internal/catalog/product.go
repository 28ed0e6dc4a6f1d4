package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderImage is used when a record carries neither images nor a legacy image.
const PlaceholderImage = "assets/images/product-placeholder.png"

// Product is one catalog record. Values are immutable once loaded.
type Product struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description,omitempty"`
	LongDescription string          `json:"longDescription,omitempty"`
	Ingredients     string          `json:"ingredients,omitempty"`
	HowToUse        string          `json:"howToUse,omitempty"`
	Benefits        []string        `json:"benefits,omitempty"`
	Images          []string        `json:"images"`
	Rating          *float64        `json:"rating,omitempty"`
	Colors          []string        `json:"colors,omitempty"`
	Featured        bool            `json:"featured"`
}

// productRecord mirrors the data file, which may still carry the legacy single image field.
type productRecord struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
	LongDescription string          `json:"longDescription"`
	Ingredients     string          `json:"ingredients"`
	HowToUse        string          `json:"howToUse"`
	Benefits        []string        `json:"benefits"`
	Image           string          `json:"image"`
	Images          []string        `json:"images"`
	Rating          *float64        `json:"rating"`
	Colors          []string        `json:"colors"`
	Featured        bool            `json:"featured"`
}

// PrimaryImage returns the first image, used as the cart thumbnail.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// DecodeProducts parses a catalog document and validates every record.
func DecodeProducts(payload []byte) ([]Product, error) {
	var records []productRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	products := make([]Product, 0, len(records))
	seen := make(map[int]struct{}, len(records))
	for i, rec := range records {
		product, err := rec.toProduct()
		if err != nil {
			return nil, fmt.Errorf("catalog record %d: %w", i, err)
		}
		if _, dup := seen[product.ID]; dup {
			return nil, fmt.Errorf("catalog record %d: duplicate id %d", i, product.ID)
		}
		seen[product.ID] = struct{}{}
		products = append(products, product)
	}
	return products, nil
}

func (r productRecord) toProduct() (Product, error) {
	if r.ID <= 0 {
		return Product{}, fmt.Errorf("id must be positive, got %d", r.ID)
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Product{}, fmt.Errorf("product %d: name is required", r.ID)
	}
	if r.Price.IsNegative() {
		return Product{}, fmt.Errorf("product %d: price must be >= 0", r.ID)
	}
	if r.Rating != nil && (*r.Rating < 0 || *r.Rating > 5) {
		return Product{}, fmt.Errorf("product %d: rating must be within 0-5", r.ID)
	}

	images := make([]string, 0, len(r.Images)+1)
	for _, img := range r.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		legacy := strings.TrimSpace(r.Image)
		if legacy == "" {
			legacy = PlaceholderImage
		}
		images = append(images, legacy)
	}

	return Product{
		ID:              r.ID,
		Name:            name,
		Category:        strings.TrimSpace(r.Category),
		Price:           r.Price,
		Description:     r.Description,
		LongDescription: r.LongDescription,
		Ingredients:     r.Ingredients,
		HowToUse:        r.HowToUse,
		Benefits:        r.Benefits,
		Images:          images,
		Rating:          r.Rating,
		Colors:          dedupe(r.Colors),
		Featured:        r.Featured,
	}, nil
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
