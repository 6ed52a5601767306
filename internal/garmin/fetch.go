package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

const (
	activitiesPath   = "/activitylist-service/activities/search/activities"
	sleepPath        = "/wellness-service/wellness/dailySleepData"
	dailySummaryPath = "/usersummary-service/usersummary/daily"
)

// FetchActivities returns all activities whose calendar date falls inside
// [start, end]. The upstream endpoint is paged newest-first and does not
// filter by date, so pages are fetched until one falls entirely before the
// window. The second return value counts records dropped because they could
// not be normalized.
func (c *Client) FetchActivities(ctx context.Context, start, end time.Time) ([]domain.Activity, int, error) {
	start = domain.Day(start)
	end = domain.Day(end)

	var out []domain.Activity
	skipped := 0

	for offset := 0; ; offset += c.pageSize {
		query := url.Values{
			"start": {strconv.Itoa(offset)},
			"limit": {strconv.Itoa(c.pageSize)},
		}

		var page []json.RawMessage
		if err := c.getJSON(ctx, activitiesPath, query, &page); err != nil {
			if errors.Is(err, errNotFound) {
				// An empty account legitimately 404s on the first page. Past
				// that the endpoint has been returning data, so a 404 is
				// upstream drift; surfacing it keeps a backfill from being
				// silently truncated.
				if offset == 0 {
					break
				}
				return nil, skipped, fmt.Errorf("%w: activity list returned 404 at offset %d", domain.ErrSchema, offset)
			}
			return nil, skipped, err
		}

		pastWindow := false
		for _, raw := range page {
			act, err := normalizeActivity(raw)
			if err != nil {
				skipped++
				c.logger.Printf("skipping malformed activity: %v", err)
				continue
			}
			if act.Date.Before(start) {
				pastWindow = true
				continue
			}
			if act.Date.After(end) {
				continue
			}
			out = append(out, act)
		}

		if pastWindow || len(page) < c.pageSize {
			break
		}
	}

	return out, skipped, nil
}

// FetchSleep returns the sleep record for one calendar date, or nil when the
// upstream has no data for that night.
func (c *Client) FetchSleep(ctx context.Context, day time.Time) (*domain.Sleep, error) {
	day = domain.Day(day)
	query := url.Values{"date": {day.Format("2006-01-02")}}

	var envelope struct {
		DailySleepDTO *sleepDTO `json:"dailySleepDTO"`
	}
	if err := c.getJSON(ctx, sleepPath, query, &envelope); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return normalizeSleep(envelope.DailySleepDTO, day), nil
}

// FetchDailySummary returns the wellness rollup for one calendar date, or nil
// when the upstream has no data for that day.
func (c *Client) FetchDailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	day = domain.Day(day)
	query := url.Values{"calendarDate": {day.Format("2006-01-02")}}

	var dto dailySummaryDTO
	if err := c.getJSON(ctx, dailySummaryPath, query, &dto); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return normalizeDailySummary(dto, day), nil
}
