package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InstallmentCount is the number of interest-free installments shown on product pages.
const InstallmentCount = 12

var categoryDisplayNames = map[string]string{
	"skincare":   "Skincare",
	"maquiagem":  "Maquiagem",
	"cabelos":    "Cabelos",
	"acessorios": "Acessórios",
}

// DisplayCategory returns the human readable label for a category slug.
func DisplayCategory(slug string) string {
	if name, ok := categoryDisplayNames[CanonicalCategory(slug)]; ok {
		return name
	}
	return slug
}

// SKU formats the storefront SKU for a product id.
func SKU(id int) string {
	return fmt.Sprintf("ABS-%04d", id)
}

// Installment returns the floored per-installment amount for price.
func Installment(price decimal.Decimal) decimal.Decimal {
	return price.Div(decimal.NewFromInt(InstallmentCount)).Floor()
}
