package screen

import (
	"github.com/Simplici0/metalrate/internal/catalog"
	"github.com/Simplici0/metalrate/internal/pricing"
	"github.com/Simplici0/metalrate/internal/selection"
)

type CollectionView struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Variants int            `json:"variants"`
	Selected bool           `json:"selected"`
	Pricing  pricing.Config `json:"pricing"`
	Valid    bool           `json:"valid"`
}

type PreviewRow struct {
	catalog.Row
	CollectionID string        `json:"collectionId"`
	GroupKey     string        `json:"groupKey"`
	Quote        pricing.Quote `json:"quote"`
	Changed      bool          `json:"changed"`
}

// View is a read-only snapshot of the screen. Preview is only filled while
// the selection is locked.
type View struct {
	Loaded      bool             `json:"loaded"`
	State       selection.State  `json:"state"`
	Catalog     catalog.Summary  `json:"catalog"`
	Selected    catalog.Summary  `json:"selected"`
	Collections []CollectionView `json:"collections"`
	Preview     []PreviewRow     `json:"preview,omitempty"`
	Changes     int              `json:"changes"`
	CanSubmit   bool             `json:"canSubmit"`
}

func (s *Screen) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs := s.deps.Store.Snapshot()
	selected := s.sel.Filter(s.collections)

	v := View{
		Loaded:      s.loaded,
		State:       s.sel.State(),
		Catalog:     catalog.Summarize(s.collections),
		Selected:    catalog.Summarize(selected),
		Collections: make([]CollectionView, 0, len(s.collections)),
	}
	for _, c := range s.collections {
		cfg := configs[c.ID]
		v.Collections = append(v.Collections, CollectionView{
			ID:       c.ID,
			Title:    c.Title,
			Variants: len(c.Products),
			Selected: s.sel.IsSelected(c.ID),
			Pricing:  cfg,
			Valid:    cfg.Valid(),
		})
	}

	if !s.sel.Locked() {
		return v
	}

	for _, c := range selected {
		cfg := configs[c.ID]
		for _, group := range catalog.GroupRows(c.Products) {
			for _, row := range group.Rows {
				quote := pricing.Preview(row, cfg)
				changed := false
				if quote.HasFormula && cfg.Valid() {
					changed = s.deps.Builder.Changed(s.deps.Builder.Price(*row.WeightGrams, cfg), row.BasePrice)
				}
				v.Preview = append(v.Preview, PreviewRow{
					Row:          row,
					CollectionID: c.ID,
					GroupKey:     group.Key,
					Quote:        quote,
					Changed:      changed,
				})
			}
		}
	}
	v.Changes = len(s.deps.Builder.Build(selected, configs))
	v.CanSubmit = !v.Selected.Empty() && len(invalid(selected, configs)) == 0
	return v
}

func invalid(collections []catalog.Collection, configs map[string]pricing.Config) []catalog.Collection {
	out := make([]catalog.Collection, 0)
	for _, c := range collections {
		if !configs[c.ID].Valid() {
			out = append(out, c)
		}
	}
	return out
}
