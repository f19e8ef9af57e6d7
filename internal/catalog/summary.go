package catalog

// Summary aggregates the rows of a set of collections.
type Summary struct {
	Collections   int     `json:"collections"`
	TotalProducts int     `json:"totalProducts"`
	WithWeight    int     `json:"withWeight"`
	WithoutWeight int     `json:"withoutWeight"`
	BaseTotal     float64 `json:"baseTotal"`
}

// Empty reports whether there is nothing to price.
func (s Summary) Empty() bool {
	return s.TotalProducts == 0
}

// Summarize counts the variant rows across collections.
func Summarize(collections []Collection) Summary {
	s := Summary{Collections: len(collections)}
	for _, c := range collections {
		s.TotalProducts += len(c.Products)
		for _, row := range c.Products {
			if row.HasWeight() {
				s.WithWeight++
			} else {
				s.WithoutWeight++
			}
			s.BaseTotal += row.BasePrice
		}
	}
	return s
}
