package sync

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

var (
	fetchedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_sync",
		Subsystem: "engine",
		Name:      "records_fetched_total",
		Help:      "Number of records fetched from the upstream per entity.",
	}, []string{"entity"})

	addedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_sync",
		Subsystem: "engine",
		Name:      "records_added_total",
		Help:      "Number of newly persisted records per entity.",
	}, []string{"entity"})

	duplicateCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_sync",
		Subsystem: "engine",
		Name:      "records_duplicate_total",
		Help:      "Number of fetched records already present in the store.",
	}, []string{"entity"})

	failureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmin_sync",
		Subsystem: "engine",
		Name:      "entity_failures_total",
		Help:      "Number of per-entity sync failures grouped by reason.",
	}, []string{"entity", "reason"})

	entityDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "garmin_sync",
		Subsystem: "engine",
		Name:      "entity_sync_duration_seconds",
		Help:      "Time spent syncing one entity within a run.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"entity"})
)

func init() {
	prometheus.MustRegister(fetchedCounter, addedCounter, duplicateCounter, failureCounter, entityDuration)
}

func recordResult(res EntityResult, elapsed time.Duration) {
	entity := string(res.Entity)
	fetchedCounter.WithLabelValues(entity).Add(float64(res.Fetched))
	addedCounter.WithLabelValues(entity).Add(float64(res.Added))
	duplicateCounter.WithLabelValues(entity).Add(float64(res.Duplicates))
	entityDuration.WithLabelValues(entity).Observe(elapsed.Seconds())
	if res.State == StateFailed {
		failureCounter.WithLabelValues(entity, failureReason(res.Err)).Inc()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuth):
		return "auth"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	case errors.Is(err, domain.ErrStore):
		return "store"
	default:
		return "other"
	}
}
