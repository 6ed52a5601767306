package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

// fixedNow keeps every engine test on the same "today" (2025-11-15).
var fixedNow = time.Date(2025, 11, 15, 6, 0, 0, 0, time.UTC)

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

type fakeSource struct {
	activities        []domain.Activity
	activitiesSkipped int
	activitiesErr     error
	activityWindows   []Window

	sleep      map[string]domain.Sleep
	sleepErrOn map[string]error

	daily      map[string]domain.DailySummary
	dailyErrOn map[string]error
}

func (s *fakeSource) FetchActivities(_ context.Context, start, end time.Time) ([]domain.Activity, int, error) {
	s.activityWindows = append(s.activityWindows, Window{Start: start, End: end})
	if s.activitiesErr != nil {
		return nil, 0, s.activitiesErr
	}
	var out []domain.Activity
	for _, a := range s.activities {
		if !a.Date.Before(start) && !a.Date.After(end) {
			out = append(out, a)
		}
	}
	return out, s.activitiesSkipped, nil
}

func (s *fakeSource) FetchSleep(_ context.Context, d time.Time) (*domain.Sleep, error) {
	if err, ok := s.sleepErrOn[dayKey(d)]; ok {
		return nil, err
	}
	if rec, ok := s.sleep[dayKey(d)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *fakeSource) FetchDailySummary(_ context.Context, d time.Time) (*domain.DailySummary, error) {
	if err, ok := s.dailyErrOn[dayKey(d)]; ok {
		return nil, err
	}
	if rec, ok := s.daily[dayKey(d)]; ok {
		return &rec, nil
	}
	return nil, nil
}

type fakeStore struct {
	activities map[string]domain.Activity
	sleep      map[string]domain.Sleep
	daily      map[string]domain.DailySummary

	upsertErr map[domain.Entity]error
	latestErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		activities: make(map[string]domain.Activity),
		sleep:      make(map[string]domain.Sleep),
		daily:      make(map[string]domain.DailySummary),
		upsertErr:  make(map[domain.Entity]error),
	}
}

// LatestDate derives the watermark from stored rows, mirroring the real store.
func (s *fakeStore) LatestDate(_ context.Context, entity domain.Entity) (*time.Time, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	var latest time.Time
	switch entity {
	case domain.EntityActivities:
		for _, a := range s.activities {
			if a.Date.After(latest) {
				latest = a.Date
			}
		}
	case domain.EntitySleep:
		for _, r := range s.sleep {
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
	case domain.EntityDailySummary:
		for _, r := range s.daily {
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
	}
	if latest.IsZero() {
		return nil, nil
	}
	return &latest, nil
}

func (s *fakeStore) ActivityIDs(_ context.Context, start, end time.Time) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for id, a := range s.activities {
		if !a.Date.Before(start) && !a.Date.After(end) {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func (s *fakeStore) UpsertActivities(_ context.Context, records []domain.Activity) error {
	if err := s.upsertErr[domain.EntityActivities]; err != nil {
		return err
	}
	for _, a := range records {
		s.activities[a.ActivityID] = a
	}
	return nil
}

func (s *fakeStore) UpsertSleep(_ context.Context, records []domain.Sleep) error {
	if err := s.upsertErr[domain.EntitySleep]; err != nil {
		return err
	}
	for _, r := range records {
		s.sleep[dayKey(r.Date)] = r
	}
	return nil
}

func (s *fakeStore) UpsertDailySummaries(_ context.Context, records []domain.DailySummary) error {
	if err := s.upsertErr[domain.EntityDailySummary]; err != nil {
		return err
	}
	for _, r := range records {
		s.daily[dayKey(r.Date)] = r
	}
	return nil
}

func activity(id string, d string) domain.Activity {
	return domain.Activity{
		ActivityID:   id,
		Source:       "garmin",
		StartTimeUTC: day(d).Add(7 * time.Hour),
		Date:         day(d),
		ActivityType: "running",
	}
}

func sleepOn(d string) domain.Sleep {
	return domain.Sleep{Date: day(d), SleepStart: day(d).Add(-2 * time.Hour), SleepEnd: day(d).Add(6 * time.Hour)}
}

func summaryOn(d string) domain.DailySummary {
	steps := int64(9000)
	return domain.DailySummary{Date: day(d), Steps: &steps}
}

func newTestEngine(t *testing.T, source *fakeSource, store *fakeStore) *Engine {
	t.Helper()
	return New(source, store, 30,
		WithLogger(log.New(engineTestWriter{t}, "", 0)),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func resultFor(t *testing.T, report Report, entity domain.Entity) EntityResult {
	t.Helper()
	for _, res := range report.Results {
		if res.Entity == entity {
			return res
		}
	}
	t.Fatalf("no result for entity %s", entity)
	return EntityResult{}
}

func TestIncrementalColdStartUsesLookbackWindow(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	require.False(t, report.Failed())
	require.Len(t, source.activityWindows, 1)
	require.Equal(t, day("2025-10-16"), source.activityWindows[0].Start)
	require.Equal(t, day("2025-11-15"), source.activityWindows[0].End)
}

func TestIncrementalCoversWholeGap(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	store.activities["old"] = activity("old", "2025-10-01") // 45 days before today

	engine := newTestEngine(t, source, store)
	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	require.False(t, report.Failed())
	require.Equal(t, day("2025-10-01"), source.activityWindows[0].Start)
	require.Equal(t, day("2025-11-15"), source.activityWindows[0].End)
}

func TestIncrementalSleepRefetchesWatermarkDay(t *testing.T) {
	source := &fakeSource{sleep: map[string]domain.Sleep{
		"2025-11-13": sleepOn("2025-11-13"),
		"2025-11-14": sleepOn("2025-11-14"),
		"2025-11-15": sleepOn("2025-11-15"),
	}}
	store := newFakeStore()
	store.sleep["2025-11-13"] = sleepOn("2025-11-13")

	engine := newTestEngine(t, source, store)
	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntitySleep}, nil)

	res := resultFor(t, report, domain.EntitySleep)
	require.Equal(t, StateSucceeded, res.State)
	require.Equal(t, 3, res.Fetched)
	require.Equal(t, 1, res.Duplicates) // the watermark day, replaced in place
	require.Equal(t, 2, res.Added)
	require.Len(t, store.sleep, 3)

	latest, err := store.LatestDate(context.Background(), domain.EntitySleep)
	require.NoError(t, err)
	require.Equal(t, day("2025-11-15"), *latest)
}

func TestIncrementalTwiceAddsNothing(t *testing.T) {
	source := &fakeSource{
		activities: []domain.Activity{activity("a1", "2025-11-14"), activity("a2", "2025-11-15")},
		sleep: map[string]domain.Sleep{
			"2025-11-14": sleepOn("2025-11-14"),
			"2025-11-15": sleepOn("2025-11-15"),
		},
		daily: map[string]domain.DailySummary{
			"2025-11-14": summaryOn("2025-11-14"),
			"2025-11-15": summaryOn("2025-11-15"),
		},
	}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	first := engine.Incremental(context.Background(), domain.AllEntities(), nil)
	require.False(t, first.Failed())
	require.Equal(t, 6, first.TotalAdded())

	second := engine.Incremental(context.Background(), domain.AllEntities(), nil)
	require.False(t, second.Failed())
	require.Zero(t, second.TotalAdded())

	require.Len(t, store.activities, 2)
	require.Len(t, store.sleep, 2)
	require.Len(t, store.daily, 2)
}

func TestActivityDedupAcrossOverlappingWindows(t *testing.T) {
	source := &fakeSource{activities: []domain.Activity{
		activity("a1", "2025-11-05"),
		activity("a2", "2025-11-14"),
	}}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	backfill := engine.Backfill(context.Background(), day("2025-11-01"), day("2025-11-15"),
		[]domain.Entity{domain.EntityActivities})
	require.False(t, backfill.Failed())
	require.Equal(t, 2, backfill.TotalAdded())

	// Overlapping incremental run picks up one genuinely new activity.
	source.activities = append(source.activities, activity("a3", "2025-11-15"))
	incr := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	res := resultFor(t, incr, domain.EntityActivities)
	require.Equal(t, StateSucceeded, res.State)
	require.Equal(t, 1, res.Duplicates)
	require.Equal(t, 1, res.Added)
	require.Len(t, store.activities, 3, "no second row for a re-fetched id")
}

func TestPartialFailureIsolation(t *testing.T) {
	source := &fakeSource{
		activities: []domain.Activity{activity("a1", "2025-11-15")},
		sleepErrOn: map[string]error{
			"2025-10-16": fmt.Errorf("%w: rate limited", domain.ErrTransient),
		},
		daily: map[string]domain.DailySummary{"2025-11-15": summaryOn("2025-11-15")},
	}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	report := engine.Incremental(context.Background(), domain.AllEntities(), nil)

	require.True(t, report.Failed())
	require.Equal(t, StateSucceeded, resultFor(t, report, domain.EntityActivities).State)
	require.Equal(t, StateSucceeded, resultFor(t, report, domain.EntityDailySummary).State)

	sleepRes := resultFor(t, report, domain.EntitySleep)
	require.Equal(t, StateFailed, sleepRes.State)
	require.ErrorIs(t, sleepRes.Err, domain.ErrTransient)

	require.Len(t, store.activities, 1)
	require.Len(t, store.daily, 1)
}

func TestDayFailureKeepsEarlierDays(t *testing.T) {
	source := &fakeSource{
		sleep: map[string]domain.Sleep{
			"2025-11-13": sleepOn("2025-11-13"),
			"2025-11-15": sleepOn("2025-11-15"),
		},
		sleepErrOn: map[string]error{
			"2025-11-14": fmt.Errorf("%w: connection reset", domain.ErrTransient),
		},
	}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	override := day("2025-11-13")
	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntitySleep}, &override)

	res := resultFor(t, report, domain.EntitySleep)
	require.Equal(t, StateFailed, res.State)
	require.Equal(t, 1, res.Added, "days fetched before the failure are committed")

	// The watermark self-heals: it only covers committed days, so the next run
	// resumes at the failure point.
	latest, err := store.LatestDate(context.Background(), domain.EntitySleep)
	require.NoError(t, err)
	require.Equal(t, day("2025-11-13"), *latest)
}

func TestAuthFailureMarksEntityFailed(t *testing.T) {
	source := &fakeSource{activitiesErr: fmt.Errorf("%w: session rejected", domain.ErrAuth)}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	res := resultFor(t, report, domain.EntityActivities)
	require.Equal(t, StateFailed, res.State)
	require.ErrorIs(t, res.Err, domain.ErrAuth)
	require.Empty(t, store.activities)
}

func TestMalformedRecordsCountedNotFatal(t *testing.T) {
	source := &fakeSource{
		activities:        []domain.Activity{activity("a1", "2025-11-15")},
		activitiesSkipped: 4,
	}
	store := newFakeStore()
	engine := newTestEngine(t, source, store)

	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	res := resultFor(t, report, domain.EntityActivities)
	require.Equal(t, StateSucceeded, res.State)
	require.Equal(t, 4, res.Skipped)
	require.Equal(t, 1, res.Added)
}

func TestStoreWriteFailureMarksEntityFailed(t *testing.T) {
	source := &fakeSource{activities: []domain.Activity{activity("a1", "2025-11-15")}}
	store := newFakeStore()
	store.upsertErr[domain.EntityActivities] = fmt.Errorf("%w: disk full", domain.ErrStore)
	engine := newTestEngine(t, source, store)

	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)

	res := resultFor(t, report, domain.EntityActivities)
	require.Equal(t, StateFailed, res.State)
	require.ErrorIs(t, res.Err, domain.ErrStore)
}

func TestWatermarkReadFailureStillRunsOtherEntities(t *testing.T) {
	store := newFakeStore()
	store.latestErr = errors.New("connection refused")
	engine := newTestEngine(t, &fakeSource{}, store)

	report := engine.Incremental(context.Background(), domain.AllEntities(), nil)

	require.True(t, report.Failed())
	require.Len(t, report.Results, 3, "every entity reports an outcome")
}

func TestStartDateOverrideSkipsAutoDetection(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	store.activities["old"] = activity("old", "2025-11-01")
	engine := newTestEngine(t, source, store)

	override := day("2025-11-10")
	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, &override)

	require.False(t, report.Failed())
	require.Equal(t, day("2025-11-10"), source.activityWindows[0].Start)
}

func TestBackfillIgnoresWatermark(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()
	store.activities["recent"] = activity("recent", "2025-11-14")
	engine := newTestEngine(t, source, store)

	report := engine.Backfill(context.Background(), day("2022-11-15"), day("2025-11-15"),
		[]domain.Entity{domain.EntityActivities})

	require.False(t, report.Failed())
	require.Equal(t, day("2022-11-15"), source.activityWindows[0].Start)
}

func durationSnapshot(t *testing.T, entity domain.Entity) (uint64, float64) {
	t.Helper()
	obs, err := entityDuration.GetMetricWithLabelValues(string(entity))
	require.NoError(t, err)
	var metric dto.Metric
	require.NoError(t, obs.(prometheus.Metric).Write(&metric))
	h := metric.GetHistogram()
	return h.GetSampleCount(), h.GetSampleSum()
}

func TestEntityDurationUsesInjectedClock(t *testing.T) {
	countBefore, sumBefore := durationSnapshot(t, domain.EntityActivities)

	engine := newTestEngine(t, &fakeSource{}, newFakeStore())
	report := engine.Incremental(context.Background(), []domain.Entity{domain.EntityActivities}, nil)
	require.False(t, report.Failed())

	countAfter, sumAfter := durationSnapshot(t, domain.EntityActivities)
	require.Equal(t, countBefore+1, countAfter)
	// The test clock never advances, so the observed duration is exactly zero.
	require.Equal(t, sumBefore, sumAfter)
}

func TestReportSummaryLines(t *testing.T) {
	ok := EntityResult{
		Entity:     domain.EntitySleep,
		Window:     Window{Start: day("2025-11-13"), End: day("2025-11-15")},
		Fetched:    3,
		Duplicates: 1,
		Added:      2,
		State:      StateSucceeded,
	}
	require.Equal(t,
		"sleep: fetched 3, duplicates 1, added 2 (window 2025-11-13..2025-11-15)",
		ok.Summary())

	failed := EntityResult{
		Entity: domain.EntityActivities,
		Window: Window{Start: day("2025-11-13"), End: day("2025-11-15")},
		State:  StateFailed,
		Err:    fmt.Errorf("%w: rate limited", domain.ErrTransient),
	}
	require.Contains(t, failed.Summary(), "activities: failed")
	require.Contains(t, failed.Summary(), "rate limited")
}

type engineTestWriter struct {
	t *testing.T
}

func (w engineTestWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
