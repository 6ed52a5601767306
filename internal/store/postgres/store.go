// Package postgres provides the Postgres-backed store for synced wellness
// records and the read path used by the explorer.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
	"github.com/ortalis97/garmin-ai-explorer/internal/observability"
)

// Store wraps a pgx pool with entity-aware persistence operations. All writes
// are idempotent upserts keyed by each entity's identity key.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", domain.ErrStore, err)
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

func tableFor(entity domain.Entity) (string, error) {
	switch entity {
	case domain.EntityActivities:
		return "activities", nil
	case domain.EntitySleep:
		return "sleep", nil
	case domain.EntityDailySummary:
		return "daily_summary", nil
	default:
		return "", fmt.Errorf("no table for entity %q", entity)
	}
}

// LatestDate returns the maximum persisted calendar date for the entity, or
// nil when no rows exist. This is the sole source of sync progress; there is
// no separate checkpoint.
func (s *Store) LatestDate(ctx context.Context, entity domain.Entity) (*time.Time, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}

	var latest *time.Time
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT MAX(date) FROM %s`, table))
	if err := row.Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: latest date for %s: %v", domain.ErrStore, entity, err)
	}
	if latest == nil {
		return nil, nil
	}
	day := domain.Day(*latest)
	return &day, nil
}

// ActivityIDs returns the set of activity IDs already persisted for dates in
// [start, end], used by the sync engine's dedup pre-check.
func (s *Store) ActivityIDs(ctx context.Context, start, end time.Time) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT activity_id FROM activities WHERE date BETWEEN $1 AND $2`,
		domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("%w: activity ids: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: activity ids: %v", domain.ErrStore, err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: activity ids: %v", domain.ErrStore, err)
	}
	return ids, nil
}

// UpsertActivities writes activities keyed by activity_id. Re-fetching an
// overlapping window replaces rows in place; repeated calls converge to the
// same state.
func (s *Store) UpsertActivities(ctx context.Context, records []domain.Activity) error {
	if len(records) == 0 {
		return nil
	}

	const stmt = `INSERT INTO activities
        (activity_id, source, start_time_utc, date, activity_type, activity_name,
         distance_km, duration_min, moving_time_min, avg_hr, max_hr,
         elevation_gain_m, avg_speed_kmh, calories)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (activity_id) DO UPDATE SET
            source = EXCLUDED.source,
            start_time_utc = EXCLUDED.start_time_utc,
            date = EXCLUDED.date,
            activity_type = EXCLUDED.activity_type,
            activity_name = EXCLUDED.activity_name,
            distance_km = EXCLUDED.distance_km,
            duration_min = EXCLUDED.duration_min,
            moving_time_min = EXCLUDED.moving_time_min,
            avg_hr = EXCLUDED.avg_hr,
            max_hr = EXCLUDED.max_hr,
            elevation_gain_m = EXCLUDED.elevation_gain_m,
            avg_speed_kmh = EXCLUDED.avg_speed_kmh,
            calories = EXCLUDED.calories`

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, a := range records {
			if _, err := tx.Exec(ctx, stmt,
				a.ActivityID, a.Source, a.StartTimeUTC, a.Date, a.ActivityType, a.ActivityName,
				a.DistanceKm, a.DurationMin, a.MovingTimeMin, a.AvgHR, a.MaxHR,
				a.ElevationGainM, a.AvgSpeedKmh, a.Calories,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert activities: %v", domain.ErrStore, err)
	}

	observability.RecordWatermark(domain.EntityActivities, maxActivityDate(records))
	return nil
}

// UpsertSleep writes sleep records keyed by date; an existing date is replaced.
func (s *Store) UpsertSleep(ctx context.Context, records []domain.Sleep) error {
	if len(records) == 0 {
		return nil
	}

	const stmt = `INSERT INTO sleep
        (date, sleep_start, sleep_end, sleep_duration_minutes, deep_sleep_minutes,
         light_sleep_minutes, rem_sleep_minutes, awake_minutes, sleep_score,
         avg_hr, lowest_hr, avg_respiration)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (date) DO UPDATE SET
            sleep_start = EXCLUDED.sleep_start,
            sleep_end = EXCLUDED.sleep_end,
            sleep_duration_minutes = EXCLUDED.sleep_duration_minutes,
            deep_sleep_minutes = EXCLUDED.deep_sleep_minutes,
            light_sleep_minutes = EXCLUDED.light_sleep_minutes,
            rem_sleep_minutes = EXCLUDED.rem_sleep_minutes,
            awake_minutes = EXCLUDED.awake_minutes,
            sleep_score = EXCLUDED.sleep_score,
            avg_hr = EXCLUDED.avg_hr,
            lowest_hr = EXCLUDED.lowest_hr,
            avg_respiration = EXCLUDED.avg_respiration`

	var latest time.Time
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range records {
			if _, err := tx.Exec(ctx, stmt,
				r.Date, r.SleepStart, r.SleepEnd, r.DurationMin, r.DeepMin,
				r.LightMin, r.RemMin, r.AwakeMin, r.Score,
				r.AvgHR, r.LowestHR, r.AvgRespiration,
			); err != nil {
				return err
			}
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert sleep: %v", domain.ErrStore, err)
	}

	observability.RecordWatermark(domain.EntitySleep, latest)
	return nil
}

// UpsertDailySummaries writes daily summaries keyed by date; an existing date
// is replaced.
func (s *Store) UpsertDailySummaries(ctx context.Context, records []domain.DailySummary) error {
	if len(records) == 0 {
		return nil
	}

	const stmt = `INSERT INTO daily_summary
        (date, steps, calories, resting_hr, min_hr, max_hr, stress_avg,
         body_battery_charged, body_battery_drained, body_battery_highest,
         body_battery_lowest, floors_climbed, distance_km)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (date) DO UPDATE SET
            steps = EXCLUDED.steps,
            calories = EXCLUDED.calories,
            resting_hr = EXCLUDED.resting_hr,
            min_hr = EXCLUDED.min_hr,
            max_hr = EXCLUDED.max_hr,
            stress_avg = EXCLUDED.stress_avg,
            body_battery_charged = EXCLUDED.body_battery_charged,
            body_battery_drained = EXCLUDED.body_battery_drained,
            body_battery_highest = EXCLUDED.body_battery_highest,
            body_battery_lowest = EXCLUDED.body_battery_lowest,
            floors_climbed = EXCLUDED.floors_climbed,
            distance_km = EXCLUDED.distance_km`

	var latest time.Time
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range records {
			if _, err := tx.Exec(ctx, stmt,
				r.Date, r.Steps, r.Calories, r.RestingHR, r.MinHR, r.MaxHR, r.StressAvg,
				r.BodyBatteryCharged, r.BodyBatteryDrained, r.BodyBatteryHighest,
				r.BodyBatteryLowest, r.FloorsClimbed, r.DistanceKm,
			); err != nil {
				return err
			}
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: upsert daily summaries: %v", domain.ErrStore, err)
	}

	observability.RecordWatermark(domain.EntityDailySummary, latest)
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func maxActivityDate(records []domain.Activity) time.Time {
	var latest time.Time
	for _, a := range records {
		if a.Date.After(latest) {
			latest = a.Date
		}
	}
	return latest
}

// Count returns the number of persisted rows for the entity.
func (s *Store) Count(ctx context.Context, entity domain.Entity) (int64, error) {
	table, err := tableFor(entity)
	if err != nil {
		return 0, err
	}

	var count int64
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count %s: %v", domain.ErrStore, entity, err)
	}
	return count, nil
}

// DateRange returns the min and max persisted dates for the entity; both are
// nil when the entity has no rows.
func (s *Store) DateRange(ctx context.Context, entity domain.Entity) (*time.Time, *time.Time, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, nil, err
	}

	var first, last *time.Time
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT MIN(date), MAX(date) FROM %s`, table))
	if err := row.Scan(&first, &last); err != nil {
		return nil, nil, fmt.Errorf("%w: date range for %s: %v", domain.ErrStore, entity, err)
	}
	return first, last, nil
}

// Query runs a read-only statement and renders every value as text. Used by
// the explorer, which only ever reads; callers are responsible for ensuring
// the statement is a SELECT.
func (s *Store) Query(ctx context.Context, sql string) ([]string, [][]string, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: query: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var results [][]string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: query: %v", domain.ErrStore, err)
		}
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = renderValue(v)
		}
		results = append(results, rendered)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: query: %v", domain.ErrStore, err)
	}

	return columns, results, nil
}

func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case float32:
		return fmt.Sprintf("%.2f", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
