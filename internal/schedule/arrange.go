// Package schedule lays out timeline events into non-overlapping columns
// and derives the per-event rendering data the schedule page needs.
package schedule

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"hackweb/internal/model"
)

// ErrInvalidInterval is returned (wrapped in *IntervalError) for events whose
// end does not come after their start.
var ErrInvalidInterval = errors.New("schedule: invalid event interval")

// IntervalError reports the offending event.
type IntervalError struct {
	ID    string
	Start time.Time
	End   time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("schedule: event %q ends at %s, not after start %s",
		e.ID, e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// Column is one rendering track. Events are kept in placement order, which
// is not necessarily chronological once displacements happened.
type Column []model.Event

// Options tunes Arrange.
type Options struct {
	// MaxDisplacements caps how many times one event may be pushed out of a
	// column. An event dequeued beyond the cap gets a new column of its own.
	// Zero means len(events)+1.
	MaxDisplacements int
}

// Validate checks that every event has a non-zero start and ends after it
// starts.
func Validate(events []model.Event) error {
	for _, ev := range events {
		if ev.Start.IsZero() || !ev.End.After(ev.Start) {
			return &IntervalError{ID: ev.ID, Start: ev.Start, End: ev.End}
		}
	}
	return nil
}

// Arrange partitions events into columns such that no two events in the
// same column overlap. See ArrangeWithOptions.
func Arrange(events []model.Event) ([]Column, error) {
	return ArrangeWithOptions(events, Options{})
}

// ArrangeWithOptions processes events strictly in input order. Each event
// goes to the first column where it has no conflict. On a conflict the
// event yields unless it is strictly longer than every conflicting resident,
// in which case it takes the first resident's slot and the residents are
// pushed back onto the front of the queue, to be placed again from column 0.
//
// The input slice and its elements are not modified.
func ArrangeWithOptions(events []model.Event, opts Options) ([]Column, error) {
	if err := Validate(events); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []Column{}, nil
	}

	limit := opts.MaxDisplacements
	if limit <= 0 {
		limit = len(events) + 1
	}

	// Work on indices into events; displaced[i] counts evictions of events[i].
	queue := make([]int, len(events))
	for i := range queue {
		queue[i] = i
	}
	displaced := make([]int, len(events))
	columns := [][]int{{}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if displaced[cur] > limit {
			columns = append(columns, []int{cur})
			continue
		}

		placed := false
		for ci, col := range columns {
			conflicts := conflictsIn(events, col, cur)
			if len(conflicts) == 0 {
				columns[ci] = append(col, cur)
				placed = true
				break
			}
			if !outlastsAll(events, cur, col, conflicts) {
				continue
			}

			next, removed := takeSlot(col, conflicts, cur)
			columns[ci] = next
			for _, r := range removed {
				displaced[r]++
			}
			queue = append(removed, queue...)
			placed = true
			break
		}

		if !placed {
			columns = append(columns, []int{cur})
		}
	}

	out := make([]Column, 0, len(columns))
	for _, col := range columns {
		c := make(Column, 0, len(col))
		for _, i := range col {
			c = append(c, events[i])
		}
		out = append(out, c)
	}
	return out, nil
}

// conflictsIn returns positions within col whose events overlap events[cur].
func conflictsIn(events []model.Event, col []int, cur int) []int {
	var pos []int
	for p, i := range col {
		if Overlaps(events[i], events[cur]) {
			pos = append(pos, p)
		}
	}
	return pos
}

// outlastsAll reports whether events[cur] is strictly longer than every
// conflicting resident. Equal durations favour the resident.
func outlastsAll(events []model.Event, cur int, col, conflicts []int) bool {
	d := events[cur].Duration()
	for _, p := range conflicts {
		if events[col[p]].Duration() >= d {
			return false
		}
	}
	return true
}

// takeSlot puts cur where the first conflicting resident was and drops the
// other conflicting residents. Removed residents are returned in column order.
func takeSlot(col, conflicts []int, cur int) (next, removed []int) {
	next = make([]int, 0, len(col)-len(conflicts)+1)
	removed = make([]int, 0, len(conflicts))
	for p, i := range col {
		if !slices.Contains(conflicts, p) {
			next = append(next, i)
			continue
		}
		removed = append(removed, i)
		if p == conflicts[0] {
			next = append(next, cur)
		}
	}
	return next, removed
}

// Overlaps reports whether two events' [start, end) spans conflict: either
// start falls within the other span, or one span contains the other.
func Overlaps(a, b model.Event) bool {
	within := func(t, start, end time.Time) bool {
		return !t.Before(start) && t.Before(end)
	}
	contains := func(outer, inner model.Event) bool {
		return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
	}
	return within(a.Start, b.Start, b.End) ||
		within(b.Start, a.Start, a.End) ||
		contains(a, b) ||
		contains(b, a)
}

// SortByHint returns a copy of events stably sorted by their Column hint.
// Arrange ignores hints; applying this first makes hinted events reach
// lower columns earlier while keeping arrival order among equal hints.
func SortByHint(events []model.Event) []model.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return cmp.Compare(a.Column, b.Column)
	})
	return out
}
