// Package domain defines the wellness entities persisted by the sync engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Entity identifies one of the synced data sets.
type Entity string

const (
	EntityActivities   Entity = "activities"
	EntitySleep        Entity = "sleep"
	EntityDailySummary Entity = "daily_summary"
)

// AllEntities returns every entity in sync order.
func AllEntities() []Entity {
	return []Entity{EntityActivities, EntitySleep, EntityDailySummary}
}

// ParseEntity maps a CLI/user supplied name to an Entity.
func ParseEntity(name string) (Entity, error) {
	switch Entity(strings.ToLower(strings.TrimSpace(name))) {
	case EntityActivities:
		return EntityActivities, nil
	case EntitySleep:
		return EntitySleep, nil
	case EntityDailySummary:
		return EntityDailySummary, nil
	default:
		return "", fmt.Errorf("unknown entity %q (expected one of activities, sleep, daily_summary)", name)
	}
}

// Day truncates a timestamp to its UTC calendar date. All date keys stored by
// this service are UTC midnights so they compare and scan cleanly.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Activity is one workout as reported upstream, keyed by the upstream-assigned
// activity ID. Multiple activities may share a calendar date.
type Activity struct {
	ActivityID     string
	Source         string
	StartTimeUTC   time.Time
	Date           time.Time
	ActivityType   string
	ActivityName   string
	DistanceKm     *float64
	DurationMin    *float64
	MovingTimeMin  *float64
	AvgHR          *float64
	MaxHR          *float64
	ElevationGainM *float64
	AvgSpeedKmh    *float64
	Calories       *float64
}

// Sleep is one night's sleep, keyed by calendar date (at most one per date).
type Sleep struct {
	Date           time.Time
	SleepStart     time.Time
	SleepEnd       time.Time
	DurationMin    float64
	DeepMin        float64
	LightMin       float64
	RemMin         float64
	AwakeMin       float64
	Score          *float64
	AvgHR          *float64
	LowestHR       *float64
	AvgRespiration *float64
}

// DailySummary is the day-level wellness rollup, keyed by calendar date.
type DailySummary struct {
	Date               time.Time
	Steps              *int64
	Calories           *float64
	RestingHR          *float64
	MinHR              *float64
	MaxHR              *float64
	StressAvg          *float64
	BodyBatteryCharged *float64
	BodyBatteryDrained *float64
	BodyBatteryHighest *float64
	BodyBatteryLowest  *float64
	FloorsClimbed      *int64
	DistanceKm         *float64
}
