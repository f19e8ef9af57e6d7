package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/metalrate/internal/catalog"
)

// DefaultEpsilon is the currency-unit dead-band under which a price change is
// considered noise.
const DefaultEpsilon = 0.01

// ChangeRecord is a single variant price update.
type ChangeRecord struct {
	ProductID string  `json:"productId"`
	VariantID string  `json:"variantId"`
	NewPrice  float64 `json:"newPrice"`
}

// Submission is the envelope handed to the remote price updater.
type Submission struct {
	Updates []ChangeRecord `json:"updates"`
}

// Outcome is what the remote price updater reports back.
type Outcome struct {
	OK      bool `json:"ok"`
	Updated int  `json:"updated"`
}

// Builder computes change sets. The zero value has no dead-band at all.
type Builder struct {
	epsilon       decimal.Decimal
	clampNegative bool
}

// NewBuilder returns a Builder with the given dead-band. When clampNegative is
// set, computed prices below zero are submitted as zero.
func NewBuilder(epsilon float64, clampNegative bool) Builder {
	if epsilon < 0 {
		epsilon = 0
	}
	return Builder{
		epsilon:       decimal.NewFromFloat(epsilon),
		clampNegative: clampNegative,
	}
}

// DefaultBuilder uses DefaultEpsilon and leaves negative prices unclamped.
func DefaultBuilder() Builder {
	return NewBuilder(DefaultEpsilon, false)
}

// BuildChanges is DefaultBuilder().Build.
func BuildChanges(selected []catalog.Collection, configs map[string]Config) []ChangeRecord {
	return DefaultBuilder().Build(selected, configs)
}

// Build returns the rows of the selected collections whose computed price
// moves by more than the dead-band. Rows without weight and collections
// without a valid config are skipped.
func (b Builder) Build(selected []catalog.Collection, configs map[string]Config) []ChangeRecord {
	changes := make([]ChangeRecord, 0)
	for _, c := range selected {
		cfg, ok := configs[c.ID]
		if !ok || !cfg.Valid() {
			continue
		}
		for _, row := range c.Products {
			if row.WeightGrams == nil {
				continue
			}
			newPrice := b.Price(*row.WeightGrams, cfg)
			if !b.Changed(newPrice, row.BasePrice) {
				continue
			}
			changes = append(changes, ChangeRecord{
				ProductID: row.ProductID,
				VariantID: row.VariantID,
				NewPrice:  newPrice,
			})
		}
	}
	return changes
}

// Changed reports whether newPrice differs from basePrice by more than the
// dead-band. Both amounts are rounded to cents first.
func (b Builder) Changed(newPrice, basePrice float64) bool {
	diff := toCents(newPrice).Sub(toCents(basePrice)).Abs()
	return diff.GreaterThan(b.epsilon)
}

// Price is the amount Build submits for a row of weight grams: the computed
// price rounded to cents, clamped at zero when the builder clamps.
func (b Builder) Price(weight float64, cfg Config) float64 {
	p := toCents(ComputePrice(weight, cfg.RatePerGram, cfg.Percent))
	if b.clampNegative && p.IsNegative() {
		return 0
	}
	return p.InexactFloat64()
}

func toCents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// FormatAmount renders a price with two decimals, half away from zero.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
