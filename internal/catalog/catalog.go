// Package catalog holds the collection/product/variant model loaded from the
// commerce platform, flattened into one row per sellable variant.
package catalog

import (
	"strconv"
	"strings"
)

// Option is a single variant attribute such as {Name: "Weight", Value: "10g"}.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is a product variant as returned by the catalog loader.
type Variant struct {
	ID      string
	Title   string
	Price   string
	Options []Option
}

// Product is a catalog product with its variants.
type Product struct {
	ID       string
	Title    string
	Variants []Variant
}

// Row is a flattened product/variant pair. WeightGrams is nil when no weight
// could be parsed from the variant options.
type Row struct {
	ID           string   `json:"id"`
	ProductID    string   `json:"productId"`
	VariantID    string   `json:"variantId"`
	Title        string   `json:"title"`
	VariantTitle string   `json:"variantTitle"`
	BasePrice    float64  `json:"basePrice"`
	WeightGrams  *float64 `json:"weightGrams"`
}

// HasWeight reports whether the row can be priced by weight.
func (r Row) HasWeight() bool {
	return r.WeightGrams != nil
}

// Collection is a named group of rows. Collections are never mutated after load.
type Collection struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Products []Row  `json:"products"`
}

// RowID builds the composite row identifier.
func RowID(productID, variantID string) string {
	return productID + "::" + variantID
}

// Flatten turns products into rows. Products without variants are dropped.
func Flatten(products []Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		for _, v := range p.Variants {
			row := Row{
				ID:           RowID(p.ID, v.ID),
				ProductID:    p.ID,
				VariantID:    v.ID,
				Title:        p.Title,
				VariantTitle: v.Title,
				BasePrice:    parsePrice(v.Price),
			}
			if w, ok := ParseWeight(v.Options); ok {
				weight := w
				row.WeightGrams = &weight
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// IDs returns the collection identifiers in catalog order.
func IDs(collections []Collection) []string {
	ids := make([]string, 0, len(collections))
	for _, c := range collections {
		ids = append(ids, c.ID)
	}
	return ids
}

func parsePrice(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
