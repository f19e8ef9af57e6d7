package ratestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/metalrate/internal/apperr"
	"github.com/Simplici0/metalrate/internal/kvstore"
	"github.com/Simplici0/metalrate/internal/pricing"
)

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.getErr }
func (f failingKV) Set(context.Context, string, string) error        { return f.setErr }

func TestLoadStartsEmptyWhenAbsent(t *testing.T) {
	store := Load(context.Background(), kvstore.NewMemory(), nil)
	require.Empty(t, store.Snapshot())
}

func TestLoadRecoversFromCorruptState(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, "{not json"))

	store := Load(ctx, kv, nil)
	require.Empty(t, store.Snapshot())
}

func TestLoadRecoversFromReadError(t *testing.T) {
	store := Load(context.Background(), failingKV{getErr: errors.New("disk gone")}, nil)
	require.Empty(t, store.Snapshot())
}

func TestLoadRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, `{"gold":{"ratePerGram":6000,"percent":2.5}}`))

	store := Load(ctx, kv, nil)
	cfg, ok := store.Get("gold")
	require.True(t, ok)
	require.Equal(t, pricing.Config{RatePerGram: 6000, Percent: 2.5}, cfg)
}

func TestReconcileAddsDefaultsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, kvstore.NewMemory(), nil)

	added, err := store.Reconcile(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	first := store.Snapshot()
	require.Equal(t, map[string]pricing.Config{"a": {}, "b": {}}, first)

	added, err = store.Reconcile(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Zero(t, added)
	require.Equal(t, first, store.Snapshot())
}

func TestReconcileNeverDeletesOrOverwrites(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, kvstore.NewMemory(), nil)

	_, err := store.Save(ctx, "old", "100", "5")
	require.NoError(t, err)

	_, err = store.Reconcile(ctx, []string{"new"})
	require.NoError(t, err)

	snapshot := store.Snapshot()
	require.Equal(t, pricing.Config{RatePerGram: 100, Percent: 5}, snapshot["old"])
	require.Equal(t, pricing.Config{}, snapshot["new"])

	_, err = store.Reconcile(ctx, []string{"old", "new"})
	require.NoError(t, err)
	require.Equal(t, pricing.Config{RatePerGram: 100, Percent: 5}, store.Snapshot()["old"])
}

func TestSaveRejectsNonPositiveRate(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, kvstore.NewMemory(), nil)
	_, err := store.Reconcile(ctx, []string{"gold"})
	require.NoError(t, err)
	before := store.Snapshot()

	for _, rate := range []string{"0", "-3", "abc", "", "NaN", "Inf"} {
		_, err := store.Save(ctx, "gold", rate, "10")
		require.Error(t, err, "rate %q", rate)
		require.True(t, apperr.IsValidation(err), "rate %q", rate)
	}
	require.Equal(t, before, store.Snapshot())
}

func TestSaveCoercesNonNumericPercent(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, kvstore.NewMemory(), nil)

	cfg, err := store.Save(ctx, "gold", "6000", "lots")
	require.NoError(t, err)
	require.Equal(t, pricing.Config{RatePerGram: 6000}, cfg)

	cfg, err = store.Save(ctx, "gold", " 6500.5 ", "-12.5")
	require.NoError(t, err)
	require.Equal(t, pricing.Config{RatePerGram: 6500.5, Percent: -12.5}, cfg)
}

func TestSavePersistsSoReloadMatches(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	store := Load(ctx, kv, nil)

	_, err := store.Reconcile(ctx, []string{"gold", "silver"})
	require.NoError(t, err)
	_, err = store.Save(ctx, "gold", "6000", "3")
	require.NoError(t, err)

	reloaded := Load(ctx, kv, nil)
	require.Equal(t, store.Snapshot(), reloaded.Snapshot())
}

func TestPutRollsBackWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, failingKV{setErr: errors.New("read-only")}, nil)

	err := store.Put(ctx, "gold", pricing.Config{RatePerGram: 10})
	require.Error(t, err)
	require.False(t, apperr.IsValidation(err))

	_, ok := store.Get("gold")
	require.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := Load(ctx, kvstore.NewMemory(), nil)
	_, err := store.Reconcile(ctx, []string{"a"})
	require.NoError(t, err)

	snapshot := store.Snapshot()
	snapshot["a"] = pricing.Config{RatePerGram: 99}

	cfg, _ := store.Get("a")
	require.Equal(t, pricing.Config{}, cfg)
}
