// Package screen hosts the repricing workflow for one admin session: it owns
// the loaded catalog and the selection, and reads rates from the shared
// pricing store.
package screen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/catalog"
	"github.com/Simplici0/metalrate/internal/history"
	"github.com/Simplici0/metalrate/internal/pricing"
	"github.com/Simplici0/metalrate/internal/ratestore"
	"github.com/Simplici0/metalrate/internal/selection"
)

// CatalogLoader supplies the collections once per screen lifecycle.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]catalog.Collection, error)
}

// PriceUpdater applies a change set on the commerce platform.
type PriceUpdater interface {
	UpdatePrices(ctx context.Context, sub pricing.Submission) (pricing.Outcome, error)
}

// Recorder keeps a trail of submissions.
type Recorder interface {
	Record(ctx context.Context, collections []string, sub pricing.Submission, outcome pricing.Outcome, submitErr error) (history.Entry, error)
}

// Deps are the collaborators of a Screen. Recorder and Logger are optional.
type Deps struct {
	Loader   CatalogLoader
	Updater  PriceUpdater
	Recorder Recorder
	Store    *ratestore.Store
	Builder  pricing.Builder
	Logger   *zap.Logger
}

type Screen struct {
	mu          sync.Mutex
	deps        Deps
	logger      *zap.Logger
	sel         *selection.Machine
	collections []catalog.Collection
	loaded      bool
	submitting  bool
}

func New(deps Deps) *Screen {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screen{deps: deps, logger: logger, sel: selection.New()}
}

// Load fetches the catalog unless it is already loaded and force is false,
// then reconciles the pricing store with the collection ids.
func (s *Screen) Load(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && !force {
		return nil
	}

	collections, err := s.deps.Loader.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	s.collections = collections
	s.loaded = true

	added, err := s.deps.Store.Reconcile(ctx, catalog.IDs(collections))
	if err != nil {
		s.logger.Warn("pricing config reconcile not persisted", zap.Error(err))
	}
	s.logger.Info("catalog loaded",
		zap.Int("collections", len(collections)),
		zap.Int("pricing_defaults_added", added),
	)
	return nil
}

// Toggle flips the selection of a collection.
func (s *Screen) Toggle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(id); !ok {
		return apperr.Validation("collection", "unknown collection %s", id)
	}
	if !s.sel.Toggle(id) {
		return errLocked
	}
	return nil
}

func (s *Screen) SelectAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sel.SelectAll(catalog.IDs(s.collections)) {
		return errLocked
	}
	return nil
}

func (s *Screen) DeselectAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sel.DeselectAll() {
		return errLocked
	}
	return nil
}

// Confirm locks the selection so rates can be edited and prices previewed.
func (s *Screen) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sel.Filter(s.collections)) == 0 {
		return apperr.Validation("selection", "select at least one collection")
	}
	return s.sel.Confirm()
}

// Reselect goes back to editing the selection.
func (s *Screen) Reselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Reselect()
}

// SavePricing stores the rate and percent typed by the merchant for a collection.
func (s *Screen) SavePricing(ctx context.Context, id, rate, percent string) (pricing.Config, error) {
	s.mu.Lock()
	_, ok := s.find(id)
	s.mu.Unlock()
	if !ok {
		return pricing.Config{}, apperr.Validation("collection", "unknown collection %s", id)
	}
	return s.deps.Store.Save(ctx, id, rate, percent)
}

var errLocked = apperr.Validation("selection", "selection is confirmed; reselect to change it")

func (s *Screen) find(id string) (catalog.Collection, bool) {
	for _, c := range s.collections {
		if c.ID == id {
			return c, true
		}
	}
	return catalog.Collection{}, false
}

func titles(collections []catalog.Collection) []string {
	out := make([]string, 0, len(collections))
	for _, c := range collections {
		out = append(out, c.Title)
	}
	return out
}

func joinTitles(collections []catalog.Collection) string {
	return strings.Join(titles(collections), ", ")
}
