package garmin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

// Unit conversions: the upstream reports meters, seconds, and meters/second;
// we store kilometers, minutes, and km/h.

type activityDTO struct {
	ActivityID     json.Number `json:"activityId"`
	ActivityName   string      `json:"activityName"`
	StartTimeGMT   string      `json:"startTimeGMT"`
	StartTimeLocal string      `json:"startTimeLocal"`
	ActivityType   struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	Distance       *float64 `json:"distance"`
	Duration       *float64 `json:"duration"`
	MovingDuration *float64 `json:"movingDuration"`
	AverageHR      *float64 `json:"averageHR"`
	MaxHR          *float64 `json:"maxHR"`
	ElevationGain  *float64 `json:"elevationGain"`
	AverageSpeed   *float64 `json:"averageSpeed"`
	Calories       *float64 `json:"calories"`
}

func normalizeActivity(raw json.RawMessage) (domain.Activity, error) {
	var dto activityDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.Activity{}, fmt.Errorf("decode activity: %w", err)
	}
	if dto.ActivityID.String() == "" {
		return domain.Activity{}, fmt.Errorf("activity missing activityId")
	}

	start, err := parseStartTime(dto.StartTimeGMT, dto.StartTimeLocal)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", dto.ActivityID, err)
	}

	return domain.Activity{
		ActivityID:     dto.ActivityID.String(),
		Source:         "garmin",
		StartTimeUTC:   start,
		Date:           domain.Day(start),
		ActivityType:   dto.ActivityType.TypeKey,
		ActivityName:   dto.ActivityName,
		DistanceKm:     scale(dto.Distance, 1.0/1000),
		DurationMin:    scale(dto.Duration, 1.0/60),
		MovingTimeMin:  scale(dto.MovingDuration, 1.0/60),
		AvgHR:          dto.AverageHR,
		MaxHR:          dto.MaxHR,
		ElevationGainM: dto.ElevationGain,
		AvgSpeedKmh:    scale(dto.AverageSpeed, 3.6),
		Calories:       dto.Calories,
	}, nil
}

func parseStartTime(gmt, local string) (time.Time, error) {
	for _, candidate := range []string{gmt, local} {
		if candidate == "" {
			continue
		}
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if ts, err := time.ParseInLocation(layout, candidate, time.UTC); err == nil {
				return ts, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("missing or unparseable start time")
}

type sleepDTO struct {
	SleepStartTimestampGMT *int64   `json:"sleepStartTimestampGMT"`
	SleepEndTimestampGMT   *int64   `json:"sleepEndTimestampGMT"`
	SleepTimeSeconds       *float64 `json:"sleepTimeSeconds"`
	DeepSleepSeconds       *float64 `json:"deepSleepSeconds"`
	LightSleepSeconds      *float64 `json:"lightSleepSeconds"`
	RemSleepSeconds        *float64 `json:"remSleepSeconds"`
	AwakeSleepSeconds      *float64 `json:"awakeSleepSeconds"`
	AverageHeartRate       *float64 `json:"averageHeartRate"`
	LowestHeartRate        *float64 `json:"lowestHeartRate"`
	AverageRespiration     *float64 `json:"averageRespirationValue"`
	SleepScores            *struct {
		Overall *struct {
			Value *float64 `json:"value"`
		} `json:"overall"`
	} `json:"sleepScores"`
}

// normalizeSleep returns nil when the DTO is absent or has no recorded sleep
// window; Garmin serves an empty DTO for nights without data.
func normalizeSleep(dto *sleepDTO, day time.Time) *domain.Sleep {
	if dto == nil || dto.SleepStartTimestampGMT == nil || dto.SleepEndTimestampGMT == nil {
		return nil
	}

	s := &domain.Sleep{
		Date:           day,
		SleepStart:     time.UnixMilli(*dto.SleepStartTimestampGMT).UTC(),
		SleepEnd:       time.UnixMilli(*dto.SleepEndTimestampGMT).UTC(),
		DurationMin:    minutes(dto.SleepTimeSeconds),
		DeepMin:        minutes(dto.DeepSleepSeconds),
		LightMin:       minutes(dto.LightSleepSeconds),
		RemMin:         minutes(dto.RemSleepSeconds),
		AwakeMin:       minutes(dto.AwakeSleepSeconds),
		AvgHR:          dto.AverageHeartRate,
		LowestHR:       dto.LowestHeartRate,
		AvgRespiration: dto.AverageRespiration,
	}
	if dto.SleepScores != nil && dto.SleepScores.Overall != nil {
		s.Score = dto.SleepScores.Overall.Value
	}
	return s
}

type dailySummaryDTO struct {
	CalendarDate       string   `json:"calendarDate"`
	TotalSteps         *int64   `json:"totalSteps"`
	ActiveKilocalories *float64 `json:"activeKilocalories"`
	RestingHeartRate   *float64 `json:"restingHeartRate"`
	MinHeartRate       *float64 `json:"minHeartRate"`
	MaxHeartRate       *float64 `json:"maxHeartRate"`
	AverageStressLevel *float64 `json:"averageStressLevel"`
	BodyBatteryCharged *float64 `json:"bodyBatteryChargedValue"`
	BodyBatteryDrained *float64 `json:"bodyBatteryDrainedValue"`
	BodyBatteryHighest *float64 `json:"bodyBatteryHighestValue"`
	BodyBatteryLowest  *float64 `json:"bodyBatteryLowestValue"`
	FloorsAscended     *int64   `json:"floorsAscended"`
	TotalDistanceM     *float64 `json:"totalDistanceMeters"`
}

// normalizeDailySummary returns nil for days the upstream has not recorded;
// those come back as a payload without a calendarDate.
func normalizeDailySummary(dto dailySummaryDTO, day time.Time) *domain.DailySummary {
	if dto.CalendarDate == "" {
		return nil
	}

	return &domain.DailySummary{
		Date:               day,
		Steps:              dto.TotalSteps,
		Calories:           dto.ActiveKilocalories,
		RestingHR:          dto.RestingHeartRate,
		MinHR:              dto.MinHeartRate,
		MaxHR:              dto.MaxHeartRate,
		StressAvg:          dto.AverageStressLevel,
		BodyBatteryCharged: dto.BodyBatteryCharged,
		BodyBatteryDrained: dto.BodyBatteryDrained,
		BodyBatteryHighest: dto.BodyBatteryHighest,
		BodyBatteryLowest:  dto.BodyBatteryLowest,
		FloorsClimbed:      dto.FloorsAscended,
		DistanceKm:         scale(dto.TotalDistanceM, 1.0/1000),
	}
}

func minutes(seconds *float64) float64 {
	if seconds == nil {
		return 0
	}
	return *seconds / 60
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v * factor
	return &scaled
}
