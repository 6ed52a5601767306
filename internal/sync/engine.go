// Package sync implements the incremental synchronization engine: window
// computation, deduplication, and idempotent writes for each wellness entity.
package sync

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

// Source exposes the per-entity fetch operations of the upstream adapter.
// FetchActivities additionally reports how many upstream records were dropped
// as malformed. FetchSleep and FetchDailySummary return nil (not an error)
// when the upstream has no data for the requested date.
type Source interface {
	FetchActivities(ctx context.Context, start, end time.Time) ([]domain.Activity, int, error)
	FetchSleep(ctx context.Context, day time.Time) (*domain.Sleep, error)
	FetchDailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error)
}

// Store exposes the persistence operations the engine depends on. LatestDate
// is the only source of sync progress; upserts must be idempotent on each
// entity's identity key.
type Store interface {
	LatestDate(ctx context.Context, entity domain.Entity) (*time.Time, error)
	ActivityIDs(ctx context.Context, start, end time.Time) (map[string]struct{}, error)
	UpsertActivities(ctx context.Context, records []domain.Activity) error
	UpsertSleep(ctx context.Context, records []domain.Sleep) error
	UpsertDailySummaries(ctx context.Context, records []domain.DailySummary) error
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used for per-entity progress.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the engine's notion of "now". Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs backfill and incremental syncs. Entities are processed
// sequentially and independently: one entity's failure never aborts the
// others, and the engine performs no retries of its own.
type Engine struct {
	source       Source
	store        Store
	lookbackDays int
	logger       *log.Logger
	now          func() time.Time
}

// New constructs an Engine. lookbackDays bounds the cold-start window for
// incremental syncs.
func New(source Source, store Store, lookbackDays int, opts ...Option) *Engine {
	e := &Engine{
		source:       source,
		store:        store,
		lookbackDays: lookbackDays,
		logger:       log.New(log.Writer(), "[sync] ", log.LstdFlags),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backfill fetches an explicit date range for the given entities, ignoring the
// watermark. Used for cold start and manual range repair.
func (e *Engine) Backfill(ctx context.Context, start, end time.Time, entities []domain.Entity) Report {
	window := Window{Start: domain.Day(start), End: domain.Day(end)}
	return e.run(ctx, ModeBackfill, entities, func(domain.Entity) (Window, *time.Time, error) {
		return window, nil, nil
	})
}

// Incremental syncs each entity from its store-derived watermark through
// today. A non-nil startOverride replaces auto-detection for every entity.
func (e *Engine) Incremental(ctx context.Context, entities []domain.Entity, startOverride *time.Time) Report {
	today := domain.Day(e.now())
	return e.run(ctx, ModeIncremental, entities, func(entity domain.Entity) (Window, *time.Time, error) {
		if startOverride != nil {
			return Window{Start: domain.Day(*startOverride), End: today}, nil, nil
		}
		latest, err := e.store.LatestDate(ctx, entity)
		if err != nil {
			return Window{}, nil, err
		}
		return ComputeWindow(latest, today, e.lookbackDays), latest, nil
	})
}

func (e *Engine) run(ctx context.Context, mode Mode, entities []domain.Entity, windowFor func(domain.Entity) (Window, *time.Time, error)) Report {
	report := Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: e.now().UTC(),
	}
	e.logger.Printf("run %s starting (%s, entities=%d)", report.RunID, mode, len(entities))

	for _, entity := range entities {
		started := e.now()

		var res EntityResult
		window, prior, err := windowFor(entity)
		if err != nil {
			res = EntityResult{Entity: entity, State: StateFailed, Err: err}
		} else {
			res = e.syncEntity(ctx, entity, window, prior)
		}

		recordResult(res, e.now().Sub(started))
		e.logger.Printf("%s", res.Summary())
		report.Results = append(report.Results, res)
	}

	report.FinishedAt = e.now().UTC()
	e.logger.Printf("run %s complete: %d records added", report.RunID, report.TotalAdded())
	return report
}

// syncEntity is one unit of work: Idle → WindowComputed → Fetching →
// Deduplicating → Writing → Succeeded|Failed. prior is the pre-run watermark
// (nil for backfill or cold start) and only affects added/replaced counts.
func (e *Engine) syncEntity(ctx context.Context, entity domain.Entity, window Window, prior *time.Time) EntityResult {
	res := EntityResult{Entity: entity, Window: window, State: StateWindowComputed}

	switch entity {
	case domain.EntityActivities:
		e.syncActivities(ctx, &res)
	case domain.EntitySleep:
		e.syncSleep(ctx, &res, prior)
	case domain.EntityDailySummary:
		e.syncDailySummaries(ctx, &res, prior)
	default:
		res.fail(domain.ErrSchema)
	}
	return res
}

func (e *Engine) syncActivities(ctx context.Context, res *EntityResult) {
	res.State = StateFetching
	records, skipped, err := e.source.FetchActivities(ctx, res.Window.Start, res.Window.End)
	if err != nil {
		res.fail(err)
		return
	}
	res.Fetched = len(records)
	res.Skipped = skipped

	// The upstream pages activities by offset rather than date, so the store's
	// upsert alone cannot tell us how many fetched records were actually new.
	// Compare against ids already persisted for the window and drop those.
	res.State = StateDeduplicating
	existing, err := e.store.ActivityIDs(ctx, res.Window.Start, res.Window.End)
	if err != nil {
		res.fail(err)
		return
	}

	fresh := records[:0]
	for _, a := range records {
		if _, dup := existing[a.ActivityID]; dup {
			res.Duplicates++
			continue
		}
		fresh = append(fresh, a)
	}

	res.State = StateWriting
	if err := e.store.UpsertActivities(ctx, fresh); err != nil {
		res.fail(err)
		return
	}
	res.Added = len(fresh)
	res.State = StateSucceeded
}

func (e *Engine) syncSleep(ctx context.Context, res *EntityResult, prior *time.Time) {
	res.State = StateFetching

	var records []domain.Sleep
	fetchErr := e.forEachDay(ctx, res, func(day time.Time) error {
		rec, err := e.source.FetchSleep(ctx, day)
		if err != nil {
			return err
		}
		if rec != nil {
			records = append(records, *rec)
			res.Fetched++
		}
		return nil
	})

	res.State = StateWriting
	if err := e.store.UpsertSleep(ctx, records); err != nil {
		res.fail(err)
		return
	}
	e.countDateKeyed(res, prior, len(records), func(i int) time.Time { return records[i].Date })

	if fetchErr != nil {
		res.fail(fetchErr)
		return
	}
	res.State = StateSucceeded
}

func (e *Engine) syncDailySummaries(ctx context.Context, res *EntityResult, prior *time.Time) {
	res.State = StateFetching

	var records []domain.DailySummary
	fetchErr := e.forEachDay(ctx, res, func(day time.Time) error {
		rec, err := e.source.FetchDailySummary(ctx, day)
		if err != nil {
			return err
		}
		if rec != nil {
			records = append(records, *rec)
			res.Fetched++
		}
		return nil
	})

	res.State = StateWriting
	if err := e.store.UpsertDailySummaries(ctx, records); err != nil {
		res.fail(err)
		return
	}
	e.countDateKeyed(res, prior, len(records), func(i int) time.Time { return records[i].Date })

	if fetchErr != nil {
		res.fail(fetchErr)
		return
	}
	res.State = StateSucceeded
}

// forEachDay walks the window day by day. On the first fetch error it stops
// and returns the error; days fetched so far are still written by the caller,
// so the watermark advances over committed days and the next run resumes from
// the failure point.
func (e *Engine) forEachDay(ctx context.Context, res *EntityResult, fetch func(time.Time) error) error {
	for day := res.Window.Start; !day.After(res.Window.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fetch(day); err != nil {
			return err
		}
	}
	return nil
}

// countDateKeyed splits written records into added vs replaced relative to the
// pre-run watermark. Dates at or before the watermark were already persisted
// and count as replacements, not additions.
func (e *Engine) countDateKeyed(res *EntityResult, prior *time.Time, n int, dateAt func(int) time.Time) {
	if prior == nil {
		res.Added = n
		return
	}
	watermark := domain.Day(*prior)
	for i := 0; i < n; i++ {
		if dateAt(i).After(watermark) {
			res.Added++
		} else {
			res.Duplicates++
		}
	}
}

func (r *EntityResult) fail(err error) {
	r.State = StateFailed
	r.Err = err
}
