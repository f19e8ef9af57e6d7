// Package ratestore keeps the per-collection rate configuration, persisted in
// a key-value store and reconciled against the loaded catalog.
package ratestore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/pricing"
)

// StorageKey is the key the mapping is persisted under.
const StorageKey = "metal_pricing_config"

// KV is the persistence the store needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store maps collection id to pricing.Config. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	kv      KV
	logger  *zap.Logger
	configs map[string]pricing.Config
}

// Load builds a Store from the persisted mapping. Missing, unreadable or
// corrupt state yields an empty mapping; the problem is logged, not returned.
func Load(ctx context.Context, kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{kv: kv, logger: logger, configs: make(map[string]pricing.Config)}

	raw, ok, err := kv.Get(ctx, StorageKey)
	if err != nil {
		logger.Warn("pricing config unreadable, starting empty", zap.Error(err))
		return s
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return s
	}

	configs, err := decode(raw)
	if err != nil {
		logger.Warn("pricing config corrupt, starting empty", zap.Error(err))
		return s
	}
	s.configs = configs
	return s
}

func decode(raw string) (map[string]pricing.Config, error) {
	var configs map[string]pricing.Config
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("decode pricing config: %w", err)
	}
	if configs == nil {
		configs = make(map[string]pricing.Config)
	}
	return configs, nil
}

// Reconcile inserts a zero config for every id not yet known. Existing entries,
// including those of collections no longer in the catalog, are left alone.
// It returns the number of entries added.
func (s *Store) Reconcile(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range ids {
		if _, ok := s.configs[id]; ok {
			continue
		}
		s.configs[id] = pricing.Config{}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		return added, err
	}
	return added, nil
}

// Save validates rateText and percentText and upserts the config for id. A rate
// that is not a number greater than zero is rejected with an
// apperr.ValidationError and nothing changes. A non-numeric percent counts as 0.
func (s *Store) Save(ctx context.Context, id, rateText, percentText string) (pricing.Config, error) {
	rate, err := ParseRate(rateText)
	if err != nil {
		return pricing.Config{}, err
	}
	cfg := pricing.Config{RatePerGram: rate, Percent: ParsePercent(percentText)}
	if err := s.Put(ctx, id, cfg); err != nil {
		return pricing.Config{}, err
	}
	return cfg, nil
}

// Put upserts an already parsed config.
func (s *Store) Put(ctx context.Context, id string, cfg pricing.Config) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("collection", "collection is required")
	}
	if !cfg.Valid() {
		return apperr.Validation("rate", "rate per gram must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.configs[id]
	s.configs[id] = cfg
	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.configs[id] = prev
		} else {
			delete(s.configs, id)
		}
		return err
	}

	s.logger.Info("pricing config saved",
		zap.String("collection", id),
		zap.Float64("rate_per_gram", cfg.RatePerGram),
		zap.Float64("percent", cfg.Percent),
	)
	return nil
}

// Get returns the config for id.
func (s *Store) Get(id string) (pricing.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	return cfg, ok
}

// Snapshot returns a copy of the whole mapping.
func (s *Store) Snapshot() map[string]pricing.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.configs)
}

func (s *Store) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.configs)
	if err != nil {
		return fmt.Errorf("encode pricing config: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("persist pricing config: %w", err)
	}
	return nil
}

// ParseRate parses a rate per gram. It must be numeric and greater than 0.
func ParseRate(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, apperr.Validation("rate", "rate per gram must be numeric")
	}
	if value <= 0 {
		return 0, apperr.Validation("rate", "rate per gram must be greater than 0")
	}
	return value, nil
}

// ParsePercent parses a markup percent. Anything non-numeric is 0.
func ParsePercent(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
