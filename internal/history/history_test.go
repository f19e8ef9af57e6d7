package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/metalrate/internal/db"
	"github.com/Simplici0/metalrate/internal/migrations"
	"github.com/Simplici0/metalrate/internal/pricing"
)

func newTestLog(t *testing.T) (*Log, *sql.DB) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(database))

	return NewLog(database), database
}

func fixedClock(times ...string) func() time.Time {
	i := 0
	return func() time.Time {
		ts, _ := time.Parse(time.DateTime, times[i])
		i++
		return ts
	}
}

func TestRecordAndListNewestFirst(t *testing.T) {
	log, _ := newTestLog(t)
	log.now = fixedClock("2024-01-01 10:00:00", "2024-01-03 12:00:00", "2024-01-02 11:00:00")
	ctx := context.Background()

	sub := pricing.Submission{Updates: []pricing.ChangeRecord{{ProductID: "p", VariantID: "v", NewPrice: 1}}}
	_, err := log.Record(ctx, []string{"Primera"}, sub, pricing.Outcome{OK: true, Updated: 1}, nil)
	require.NoError(t, err)
	_, err = log.Record(ctx, []string{"Tercera"}, sub, pricing.Outcome{OK: true, Updated: 1}, nil)
	require.NoError(t, err)
	_, err = log.Record(ctx, []string{"Segunda"}, sub, pricing.Outcome{}, errors.New("throttled"))
	require.NoError(t, err)

	entries, err := log.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []string{"Tercera"}, entries[0].Collections)
	require.Equal(t, []string{"Segunda"}, entries[1].Collections)
	require.Equal(t, []string{"Primera"}, entries[2].Collections)

	require.False(t, entries[1].OK)
	require.Equal(t, "throttled", entries[1].Error)
	require.Equal(t, 1, entries[0].Requested)
	require.True(t, entries[0].CreatedAt.Equal(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)), "createdAt=%v", entries[0].CreatedAt)
}

func TestListFiltersByCollectionsAndError(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	_, err := log.Record(ctx, []string{"Gold 24K", "Gold 18K"}, pricing.Submission{}, pricing.Outcome{OK: true}, nil)
	require.NoError(t, err)
	_, err = log.Record(ctx, []string{"Silver"}, pricing.Submission{}, pricing.Outcome{}, errors.New("gold price list missing"))
	require.NoError(t, err)
	_, err = log.Record(ctx, []string{"Platinum"}, pricing.Submission{}, pricing.Outcome{OK: true}, nil)
	require.NoError(t, err)

	byTitle, err := log.List(ctx, "18K")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	require.Equal(t, []string{"Gold 24K", "Gold 18K"}, byTitle[0].Collections)

	byGold, err := log.List(ctx, "gold")
	require.NoError(t, err)
	require.Len(t, byGold, 2)
}

func TestPayloadRoundTrip(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	sub := pricing.Submission{Updates: []pricing.ChangeRecord{{ProductID: "p1", VariantID: "v1", NewPrice: 60000}}}
	entry, err := log.Record(ctx, []string{"Gold 24K"}, sub, pricing.Outcome{OK: true, Updated: 1}, nil)
	require.NoError(t, err)

	got, err := log.Payload(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, sub, got)
}

func TestRecordFailedOutcomeWithoutError(t *testing.T) {
	log, database := newTestLog(t)
	ctx := context.Background()

	entry, err := log.Record(ctx, nil, pricing.Submission{}, pricing.Outcome{OK: false}, nil)
	require.NoError(t, err)
	require.False(t, entry.OK)

	var storedErr sql.NullString
	require.NoError(t, database.QueryRow(`SELECT error FROM price_submissions WHERE id = ?`, entry.ID).Scan(&storedErr))
	require.False(t, storedErr.Valid)
}
