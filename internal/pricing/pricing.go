package pricing

import "github.com/Simplici0/metalrate/internal/catalog"

// Config is the per-collection rate configuration.
type Config struct {
	RatePerGram float64 `json:"ratePerGram"`
	Percent     float64 `json:"percent"`
}

// Valid reports whether the config can be used to reprice a collection.
func (c Config) Valid() bool {
	return c.RatePerGram > 0
}

// Breakdown contains the intermediate values of a weight-based price.
type Breakdown struct {
	Base   float64 `json:"base"`
	Markup float64 `json:"markup"`
}

// Quote is the preview price for a single row.
type Quote struct {
	Breakdown  Breakdown `json:"breakdown"`
	Final      float64   `json:"final"`
	HasFormula bool      `json:"hasFormula"`
}

// ComputePrice returns weightGrams*ratePerGram adjusted by percent. A zero
// percent returns the base product untouched. Negative results are not clamped.
func ComputePrice(weightGrams, ratePerGram, percent float64) float64 {
	base := weightGrams * ratePerGram
	if percent == 0 {
		return base
	}
	return base * (1 + percent/100)
}

// Preview quotes a row under cfg. Rows without a weight keep their base price.
func Preview(row catalog.Row, cfg Config) Quote {
	if row.WeightGrams == nil {
		return Quote{Final: row.BasePrice}
	}

	base := *row.WeightGrams * cfg.RatePerGram
	final := ComputePrice(*row.WeightGrams, cfg.RatePerGram, cfg.Percent)

	return Quote{
		Breakdown: Breakdown{
			Base:   base,
			Markup: final - base,
		},
		Final:      final,
		HasFormula: true,
	}
}
