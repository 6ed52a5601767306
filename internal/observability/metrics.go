// Package observability holds cross-package Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

var watermarkGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "garmin_sync",
	Subsystem: "store",
	Name:      "watermark_timestamp_seconds",
	Help:      "Unix timestamp of the latest calendar date persisted per entity.",
}, []string{"entity"})

func init() {
	prometheus.MustRegister(watermarkGauge)
}

// RecordWatermark updates the persisted-watermark gauge for an entity.
func RecordWatermark(entity domain.Entity, day time.Time) {
	if day.IsZero() {
		return
	}
	watermarkGauge.WithLabelValues(string(entity)).Set(float64(day.Unix()))
}
