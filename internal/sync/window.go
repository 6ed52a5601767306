package sync

import (
	"fmt"
	"time"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

// Window is an inclusive range of calendar dates to fetch.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar dates covered by the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

// ComputeWindow derives the incremental fetch window for an entity.
//
// With no watermark (entity never synced) the window is the default lookback
// ending today. With a watermark the window always starts on the watermark day
// itself: the watermark day is re-fetched because upstream data for a day keeps
// changing until the day closes, and a gap longer than the lookback is covered
// in full rather than truncated, so a long-idle deployment catches up without
// leaving a hole.
func ComputeWindow(latest *time.Time, today time.Time, lookbackDays int) Window {
	end := domain.Day(today)

	if latest == nil {
		return Window{Start: end.AddDate(0, 0, -lookbackDays), End: end}
	}

	start := domain.Day(*latest)
	if start.After(end) {
		start = end
	}
	return Window{Start: start, End: end}
}
