package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Containment is the outcome of checking a requested range against blocks.
type Containment int

const (
	// Contained means the range fits inside a single block.
	Contained Containment = iota
	// OutsideHours means the facility is open that day but not for the whole range.
	OutsideHours
	// Closed means there are no open blocks at all.
	Closed
)

func (c Containment) String() string {
	switch c {
	case Contained:
		return "contained"
	case OutsideHours:
		return "outside_hours"
	case Closed:
		return "closed"
	}
	return "unknown"
}

var (
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM")
	ErrInvalidRange     = errors.New("end time must be after start time on the same day")
)

// Check reports whether [start, end) lies entirely within one block.
// Adjacent blocks are never merged: a range crossing a block boundary is
// OutsideHours even if the blocks touch.
func Check(blocks []TimeBlock, start, end string) (Containment, error) {
	reqStart, reqEnd, err := parseRange(start, end)
	if err != nil {
		return OutsideHours, err
	}
	if len(blocks) == 0 {
		return Closed, nil
	}
	for _, b := range blocks {
		blockStart, blockEnd, err := parseRange(b.StartTime, b.EndTime)
		if err != nil {
			return OutsideHours, fmt.Errorf("invalid block %s-%s: %w", b.StartTime, b.EndTime, err)
		}
		if blockStart <= reqStart && reqEnd <= blockEnd {
			return Contained, nil
		}
	}
	return OutsideHours, nil
}

// IsWithin is the boolean form of Check. Malformed input is never within.
func IsWithin(blocks []TimeBlock, start, end string) bool {
	c, err := Check(blocks, start, end)
	return err == nil && c == Contained
}

// ClockRange converts absolute instants into facility-local HH:MM bounds.
// A range ending exactly at the following midnight is reported as "24:00";
// any other range that crosses midnight is rejected.
func ClockRange(start, end time.Time, loc *time.Location) (day time.Time, from, to string, err error) {
	if loc == nil {
		loc = time.UTC
	}
	ls, le := start.In(loc), end.In(loc)
	if !le.After(ls) {
		return time.Time{}, "", "", ErrInvalidRange
	}
	day = time.Date(ls.Year(), ls.Month(), ls.Day(), 0, 0, 0, 0, loc)
	from = ls.Format("15:04")
	nextMidnight := day.AddDate(0, 0, 1)
	switch {
	case le.Equal(nextMidnight):
		to = "24:00"
	case le.After(nextMidnight):
		return time.Time{}, "", "", ErrInvalidRange
	default:
		to = le.Format("15:04")
	}
	return day, from, to, nil
}

// OpenMinutes sums the length of all well-formed blocks.
func OpenMinutes(blocks []TimeBlock) int {
	total := 0
	for _, b := range blocks {
		start, end, err := parseRange(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		total += end - start
	}
	return total
}

func parseRange(start, end string) (int, int, error) {
	s, err := parseClock(start, false)
	if err != nil {
		return 0, 0, err
	}
	e, err := parseClock(end, true)
	if err != nil {
		return 0, 0, err
	}
	if e <= s {
		return 0, 0, ErrInvalidRange
	}
	return s, e, nil
}

// parseClock turns HH:MM into minutes after midnight. "24:00" is accepted
// only as an end bound.
func parseClock(v string, isEnd bool) (int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, v)
	}
	if h == 24 && m == 0 && isEnd {
		return 24 * 60, nil
	}
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, v)
	}
	return h*60 + m, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}
