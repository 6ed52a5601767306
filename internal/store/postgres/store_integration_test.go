//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

func setupStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("garmin"),
		postgrescontainer.WithUsername("garmin"),
		postgrescontainer.WithPassword("garmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	store := New(pool)
	require.NoError(t, store.InitSchema(ctx))
	return store
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func TestActivityUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	act := domain.Activity{
		ActivityID:   "12345",
		Source:       "garmin",
		StartTimeUTC: date(2025, 11, 14).Add(7 * time.Hour),
		Date:         date(2025, 11, 14),
		ActivityType: "running",
		DistanceKm:   f(10.2),
	}
	require.NoError(t, store.UpsertActivities(ctx, []domain.Activity{act}))

	// Re-upserting the same id with changed fields replaces, never duplicates.
	act.DistanceKm = f(10.5)
	require.NoError(t, store.UpsertActivities(ctx, []domain.Activity{act}))

	count, err := store.Count(ctx, domain.EntityActivities)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	columns, rows, err := store.Query(ctx, "SELECT distance_km FROM activities WHERE activity_id = '12345'")
	require.NoError(t, err)
	require.Equal(t, []string{"distance_km"}, columns)
	require.Len(t, rows, 1)
	require.Equal(t, "10.50", rows[0][0])
}

func TestSleepUpsertReplacesByDate(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	night := domain.Sleep{
		Date:       date(2025, 11, 14),
		SleepStart: date(2025, 11, 13).Add(22 * time.Hour),
		SleepEnd:   date(2025, 11, 14).Add(6 * time.Hour),
		Score:      f(71),
	}
	require.NoError(t, store.UpsertSleep(ctx, []domain.Sleep{night}))

	night.Score = f(84)
	require.NoError(t, store.UpsertSleep(ctx, []domain.Sleep{night}))

	count, err := store.Count(ctx, domain.EntitySleep)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	_, rows, err := store.Query(ctx, "SELECT sleep_score FROM sleep")
	require.NoError(t, err)
	require.Equal(t, "84.00", rows[0][0])
}

func TestLatestDateDerivedFromRows(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	latest, err := store.LatestDate(ctx, domain.EntityDailySummary)
	require.NoError(t, err)
	require.Nil(t, latest, "empty table has no watermark")

	steps := int64(8000)
	require.NoError(t, store.UpsertDailySummaries(ctx, []domain.DailySummary{
		{Date: date(2025, 11, 12), Steps: &steps},
		{Date: date(2025, 11, 14), Steps: &steps},
		{Date: date(2025, 11, 13), Steps: &steps},
	}))

	latest, err = store.LatestDate(ctx, domain.EntityDailySummary)
	require.NoError(t, err)
	require.Equal(t, date(2025, 11, 14), *latest)
}

func TestActivityIDsFiltersByWindow(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	mk := func(id string, d time.Time) domain.Activity {
		return domain.Activity{
			ActivityID:   id,
			Source:       "garmin",
			StartTimeUTC: d.Add(7 * time.Hour),
			Date:         d,
			ActivityType: "running",
		}
	}
	require.NoError(t, store.UpsertActivities(ctx, []domain.Activity{
		mk("a1", date(2025, 11, 1)),
		mk("a2", date(2025, 11, 10)),
		mk("a3", date(2025, 11, 15)),
	}))

	ids, err := store.ActivityIDs(ctx, date(2025, 11, 10), date(2025, 11, 15))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, "a2")
	require.Contains(t, ids, "a3")
}

func TestDateRange(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	first, last, err := store.DateRange(ctx, domain.EntitySleep)
	require.NoError(t, err)
	require.Nil(t, first)
	require.Nil(t, last)

	require.NoError(t, store.UpsertSleep(ctx, []domain.Sleep{
		{Date: date(2025, 11, 1), SleepStart: date(2025, 10, 31).Add(23 * time.Hour), SleepEnd: date(2025, 11, 1).Add(7 * time.Hour)},
		{Date: date(2025, 11, 14), SleepStart: date(2025, 11, 13).Add(23 * time.Hour), SleepEnd: date(2025, 11, 14).Add(7 * time.Hour)},
	}))

	first, last, err = store.DateRange(ctx, domain.EntitySleep)
	require.NoError(t, err)
	require.Equal(t, date(2025, 11, 1), *first)
	require.Equal(t, date(2025, 11, 14), *last)
}

func TestQueryRendersArbitrarySelects(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, ctx)

	steps := int64(12000)
	require.NoError(t, store.UpsertDailySummaries(ctx, []domain.DailySummary{
		{Date: date(2025, 11, 13), Steps: &steps},
		{Date: date(2025, 11, 14), Steps: &steps},
	}))

	columns, rows, err := store.Query(ctx, "SELECT date, steps FROM daily_summary ORDER BY date")
	require.NoError(t, err)
	require.Equal(t, []string{"date", "steps"}, columns)
	require.Len(t, rows, 2)
	require.Equal(t, "2025-11-13", rows[0][0])
	require.Equal(t, "12000", rows[0][1])
}
