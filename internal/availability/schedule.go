package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// TimeBlock is an open interval of a day in facility-local HH:MM.
type TimeBlock struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// WeeklySchedule maps lowercase weekday names ("monday") to ordered blocks.
type WeeklySchedule map[string][]TimeBlock

// DateOverride replaces the weekly pattern for one exact date. An empty
// Blocks list closes the facility for that date.
type DateOverride struct {
	Date   string      `json:"date"`
	Blocks []TimeBlock `json:"blocks"`
}

// Schedule is the availability configuration stored on a facility. Weekly
// is serialized without omitempty: null means never configured, {} means
// configured with every weekday closed.
type Schedule struct {
	Weekly    WeeklySchedule `json:"weekly"`
	Overrides []DateOverride `json:"overrides"`
}

// Source reports where an effective block list came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceWeekly   Source = "weekly"
	SourceDefault  Source = "default"
)

// Resolution is the effective availability of one date.
type Resolution struct {
	Date   string      `json:"date"`
	Blocks []TimeBlock `json:"blocks"`
	Source Source      `json:"source"`
}

// Closed reports whether the facility has no open block that day.
func (r Resolution) Closed() bool {
	return len(r.Blocks) == 0
}

var weekdayKeys = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayKey returns the schedule key used for wd.
func WeekdayKey(wd time.Weekday) string {
	return weekdayKeys[wd]
}

// DefaultSchedule is applied to facilities that never configured a schedule.
func DefaultSchedule() Schedule {
	weekly := make(WeeklySchedule, len(weekdayKeys))
	for _, day := range weekdayKeys {
		weekly[day] = []TimeBlock{{StartTime: "08:00", EndTime: "20:00"}}
	}
	return Schedule{Weekly: weekly}
}

// IsConfigured reports whether a weekly pattern was ever set. A non-nil
// empty weekly map is a configured schedule with every weekday closed.
// Overrides alone do not configure the week.
func (s Schedule) IsConfigured() bool {
	return s.Weekly != nil
}

// override looks up an override by exact date. The boolean is true when an
// override exists, even if it has no blocks.
func (s Schedule) override(date string) ([]TimeBlock, bool) {
	for _, o := range s.Overrides {
		if o.Date == date {
			return o.Blocks, true
		}
	}
	return nil, false
}

// Resolve returns the open blocks of date. Overrides win over the weekly
// pattern, including an override with no blocks.
func Resolve(s Schedule, date time.Time) []TimeBlock {
	return resolve(s, date).Blocks
}

func resolve(s Schedule, date time.Time) Resolution {
	key := date.Format(dateLayout)
	if blocks, ok := s.override(key); ok {
		return Resolution{Date: key, Blocks: cloneBlocks(blocks), Source: SourceOverride}
	}
	return Resolution{Date: key, Blocks: cloneBlocks(s.Weekly[WeekdayKey(date.Weekday())]), Source: SourceWeekly}
}

// Effective resolves date against s. Without a configured weekly pattern
// the week falls back to DefaultSchedule while overrides still apply.
func Effective(s *Schedule, date time.Time) Resolution {
	if s == nil {
		s = &Schedule{}
	}
	if s.IsConfigured() {
		return resolve(*s, date)
	}
	res := resolve(Schedule{Weekly: DefaultSchedule().Weekly, Overrides: s.Overrides}, date)
	if res.Source == SourceWeekly {
		res.Source = SourceDefault
	}
	return res
}

// Clone returns a deep copy. A nil weekly map stays nil.
func (s Schedule) Clone() Schedule {
	out := Schedule{}
	if s.Weekly != nil {
		out.Weekly = make(WeeklySchedule, len(s.Weekly))
		for day, blocks := range s.Weekly {
			out.Weekly[day] = cloneBlocks(blocks)
		}
	}
	if s.Overrides != nil {
		out.Overrides = make([]DateOverride, len(s.Overrides))
		for i, o := range s.Overrides {
			out.Overrides[i] = DateOverride{Date: o.Date, Blocks: cloneBlocks(o.Blocks)}
		}
	}
	return out
}

func cloneBlocks(in []TimeBlock) []TimeBlock {
	out := make([]TimeBlock, len(in))
	copy(out, in)
	return out
}

// ValidateSchedule checks a schedule at write time: well-formed times,
// start before end, blocks ordered and non-overlapping, known weekdays and
// unique override dates.
func ValidateSchedule(s Schedule) error {
	for day, blocks := range s.Weekly {
		if !isWeekdayKey(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if err := validateBlocks(blocks); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	seen := make(map[string]struct{}, len(s.Overrides))
	for _, o := range s.Overrides {
		if _, err := time.Parse(dateLayout, o.Date); err != nil {
			return fmt.Errorf("override date %q must be YYYY-MM-DD", o.Date)
		}
		if _, dup := seen[o.Date]; dup {
			return fmt.Errorf("duplicate override for %s", o.Date)
		}
		seen[o.Date] = struct{}{}
		if err := validateBlocks(o.Blocks); err != nil {
			return fmt.Errorf("override %s: %w", o.Date, err)
		}
	}
	return nil
}

func isWeekdayKey(day string) bool {
	for _, k := range weekdayKeys {
		if k == day {
			return true
		}
	}
	return false
}

func validateBlocks(blocks []TimeBlock) error {
	prevEnd := -1
	for i, b := range blocks {
		start, end, err := parseRange(b.StartTime, b.EndTime)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if start < prevEnd {
			return fmt.Errorf("block %d overlaps or is out of order", i)
		}
		prevEnd = end
	}
	return nil
}

// Normalize lowercases weekday keys and sorts blocks and overrides. It does
// not merge overlapping blocks.
func Normalize(s Schedule) Schedule {
	out := Schedule{}
	if s.Weekly != nil {
		out.Weekly = make(WeeklySchedule, len(s.Weekly))
		for day, blocks := range s.Weekly {
			sorted := cloneBlocks(blocks)
			sortBlocks(sorted)
			out.Weekly[strings.ToLower(strings.TrimSpace(day))] = sorted
		}
	}
	if len(s.Overrides) > 0 {
		out.Overrides = make([]DateOverride, len(s.Overrides))
		for i, o := range s.Overrides {
			blocks := cloneBlocks(o.Blocks)
			sortBlocks(blocks)
			out.Overrides[i] = DateOverride{Date: o.Date, Blocks: blocks}
		}
		sort.SliceStable(out.Overrides, func(i, j int) bool {
			return out.Overrides[i].Date < out.Overrides[j].Date
		})
	}
	return out
}

func sortBlocks(blocks []TimeBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartTime < blocks[j].StartTime
	})
}
