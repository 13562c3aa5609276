package capacity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Interval is an existing reservation as seen by the validator.
type Interval struct {
	ID     uuid.UUID
	Start  time.Time
	End    time.Time
	Horses int
}

// Candidate is the reservation being admitted.
type Candidate struct {
	Start  time.Time
	End    time.Time
	Horses int
}

// Window is a half-open span of time.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalidRange     Reason = "invalid_range"
	ReasonHorsesRequired   Reason = "horses_required"
	ReasonTooManyHorses    Reason = "too_many_horses"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Valid          bool        `json:"valid"`
	Reason         Reason      `json:"reason,omitempty"`
	Message        string      `json:"message,omitempty"`
	MaxConcurrent  int         `json:"maxConcurrent"`
	PeakOccupancy  int         `json:"peakOccupancy"`
	ConflictWindow *Window     `json:"conflictWindow,omitempty"`
	Conflicting    []uuid.UUID `json:"conflicting,omitempty"`
}

// Overlaps is the half-open overlap predicate. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type event struct {
	at    time.Time
	delta int
}

// Peak sweeps interval endpoints clipped to w and returns the highest
// simultaneous horse count together with the first window where it holds.
// The window is nil when nothing intersects w.
func Peak(intervals []Interval, w Window) (int, *Window) {
	events := make([]event, 0, len(intervals)*2)
	for _, iv := range intervals {
		start, end := iv.Start, iv.End
		if start.Before(w.Start) {
			start = w.Start
		}
		if end.After(w.End) {
			end = w.End
		}
		if !start.Before(end) || iv.Horses <= 0 {
			continue
		}
		events = append(events, event{at: start, delta: iv.Horses}, event{at: end, delta: -iv.Horses})
	}
	if len(events) == 0 {
		return 0, nil
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	var (
		current, peak int
		peakWindow    *Window
	)
	for i := 0; i < len(events); {
		at := events[i].at
		for i < len(events) && events[i].at.Equal(at) {
			current += events[i].delta
			i++
		}
		if current > peak && i < len(events) {
			peak = current
			peakWindow = &Window{Start: at, End: events[i].at}
		}
	}
	return peak, peakWindow
}

// Evaluate decides whether candidate fits next to existing on a facility
// allowing maxConcurrent horses at once. The reservation with excludeID is
// ignored so an update never conflicts with itself.
func Evaluate(candidate Candidate, existing []Interval, maxConcurrent int, excludeID uuid.UUID) Decision {
	d := Decision{MaxConcurrent: maxConcurrent}

	if !candidate.End.After(candidate.Start) {
		d.Reason = ReasonInvalidRange
		d.Message = "end time must be after start time"
		return d
	}
	if candidate.Horses < 1 {
		d.Reason = ReasonHorsesRequired
		d.Message = "at least one horse is required"
		return d
	}
	if candidate.Horses > maxConcurrent {
		d.Reason = ReasonTooManyHorses
		d.Message = fmt.Sprintf("a single reservation may include at most %d horses", maxConcurrent)
		d.PeakOccupancy = candidate.Horses
		return d
	}

	window := Window{Start: candidate.Start, End: candidate.End}
	set := make([]Interval, 0, len(existing)+1)
	for _, iv := range existing {
		if excludeID != uuid.Nil && iv.ID == excludeID {
			continue
		}
		if !Overlaps(iv.Start, iv.End, candidate.Start, candidate.End) {
			continue
		}
		set = append(set, iv)
		d.Conflicting = append(d.Conflicting, iv.ID)
	}
	set = append(set, Interval{Start: candidate.Start, End: candidate.End, Horses: candidate.Horses})

	peak, at := Peak(set, window)
	d.PeakOccupancy = peak
	if peak > maxConcurrent {
		d.Reason = ReasonCapacityExceeded
		d.ConflictWindow = at
		d.Message = fmt.Sprintf("facility capacity exceeded: %d horses at %s, maximum is %d",
			peak, at.Start.UTC().Format(time.RFC3339), maxConcurrent)
		return d
	}

	d.Valid = true
	return d
}

// Source loads the active reservations of a facility overlapping [start, end).
type Source interface {
	ActiveOverlapping(ctx context.Context, facilityID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Interval, error)
}

// Validator runs Evaluate against reservations loaded from a Source.
type Validator struct {
	source Source
}

func NewValidator(source Source) *Validator {
	return &Validator{source: source}
}

func (v *Validator) Validate(ctx context.Context, facilityID uuid.UUID, candidate Candidate, maxConcurrent int, excludeID uuid.UUID) (Decision, error) {
	existing, err := v.source.ActiveOverlapping(ctx, facilityID, candidate.Start, candidate.End, excludeID)
	if err != nil {
		return Decision{}, fmt.Errorf("load overlapping reservations: %w", err)
	}
	return Evaluate(candidate, existing, maxConcurrent, excludeID), nil
}
