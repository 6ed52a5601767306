package sync

import (
	"fmt"
	"time"

	"github.com/ortalis97/garmin-ai-explorer/internal/domain"
)

// Mode identifies which entry point produced a Report.
type Mode string

const (
	ModeBackfill    Mode = "backfill"
	ModeIncremental Mode = "incremental"
)

// State tracks an entity's progress through one run.
type State string

const (
	StateIdle           State = "idle"
	StateWindowComputed State = "window_computed"
	StateFetching       State = "fetching"
	StateDeduplicating  State = "deduplicating"
	StateWriting        State = "writing"
	StateSucceeded      State = "succeeded"
	StateFailed         State = "failed"
)

// EntityResult is the outcome of syncing a single entity within one run.
// Added counts rows that were new to the store; Duplicates counts fetched
// records that already existed (dropped for activities, replaced in place for
// date-keyed entities); Skipped counts upstream records dropped as malformed.
type EntityResult struct {
	Entity     domain.Entity
	Window     Window
	Fetched    int
	Duplicates int
	Added      int
	Skipped    int
	State      State
	Err        error
}

// Summary renders the per-entity line reported at the end of every run.
func (r EntityResult) Summary() string {
	if r.State == StateFailed {
		return fmt.Sprintf("%s: failed (window %s, added %d before failure): %v",
			r.Entity, r.Window, r.Added, r.Err)
	}
	line := fmt.Sprintf("%s: fetched %d, duplicates %d, added %d (window %s)",
		r.Entity, r.Fetched, r.Duplicates, r.Added, r.Window)
	if r.Skipped > 0 {
		line += fmt.Sprintf(", skipped %d malformed", r.Skipped)
	}
	return line
}

// Report aggregates every entity's outcome for one run.
type Report struct {
	RunID      string
	Mode       Mode
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []EntityResult
}

// Failed reports whether any entity ended the run in StateFailed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.State == StateFailed {
			return true
		}
	}
	return false
}

// TotalAdded sums newly added records across entities.
func (r Report) TotalAdded() int {
	total := 0
	for _, res := range r.Results {
		total += res.Added
	}
	return total
}
