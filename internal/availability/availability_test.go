package availability

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}

func TestResolveOverrideBeatsWeekly(t *testing.T) {
	// 2025-03-03 is a Monday
	s := Schedule{
		Weekly: WeeklySchedule{
			"monday": {{StartTime: "09:00", EndTime: "17:00"}},
		},
		Overrides: []DateOverride{
			{Date: "2025-03-03", Blocks: []TimeBlock{{StartTime: "12:00", EndTime: "14:00"}}},
			{Date: "2025-03-10", Blocks: []TimeBlock{}},
		},
	}

	assert.Equal(t, []TimeBlock{{StartTime: "12:00", EndTime: "14:00"}}, Resolve(s, mustDate(t, "2025-03-03")))
	assert.Empty(t, Resolve(s, mustDate(t, "2025-03-10")), "empty override closes the day")
	assert.Equal(t, []TimeBlock{{StartTime: "09:00", EndTime: "17:00"}}, Resolve(s, mustDate(t, "2025-03-17")))
	assert.Empty(t, Resolve(s, mustDate(t, "2025-03-04")), "tuesday has no weekly blocks")
}

func TestEffectiveSources(t *testing.T) {
	monday := mustDate(t, "2025-03-03")

	res := Effective(nil, monday)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, []TimeBlock{{StartTime: "08:00", EndTime: "20:00"}}, res.Blocks)

	closed := Schedule{Weekly: WeeklySchedule{}}
	res = Effective(&closed, monday)
	assert.Equal(t, SourceWeekly, res.Source)
	assert.True(t, res.Closed())

	withOverride := Schedule{Overrides: []DateOverride{{Date: "2025-03-03"}}}
	res = Effective(&withOverride, monday)
	assert.Equal(t, SourceOverride, res.Source)
	assert.True(t, res.Closed())
	assert.Equal(t, "2025-03-03", res.Date)
}

func TestOverridesWithoutWeeklyKeepDefaultHours(t *testing.T) {
	s := Schedule{Overrides: []DateOverride{
		{Date: "2025-12-25", Blocks: []TimeBlock{}},
		{Date: "2025-12-24", Blocks: []TimeBlock{{StartTime: "08:00", EndTime: "12:00"}}},
	}}
	assert.False(t, s.IsConfigured())

	res := Effective(&s, mustDate(t, "2025-03-03"))
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, []TimeBlock{{StartTime: "08:00", EndTime: "20:00"}}, res.Blocks)

	res = Effective(&s, mustDate(t, "2025-12-25"))
	assert.Equal(t, SourceOverride, res.Source)
	assert.True(t, res.Closed())

	res = Effective(&s, mustDate(t, "2025-12-24"))
	assert.Equal(t, SourceOverride, res.Source)
	assert.Equal(t, []TimeBlock{{StartTime: "08:00", EndTime: "12:00"}}, res.Blocks)
}

func TestResolveReturnsCopy(t *testing.T) {
	s := Schedule{Weekly: WeeklySchedule{"monday": {{StartTime: "09:00", EndTime: "17:00"}}}}
	blocks := Resolve(s, mustDate(t, "2025-03-03"))
	blocks[0].StartTime = "00:00"
	assert.Equal(t, "09:00", s.Weekly["monday"][0].StartTime)
}

func TestCheckContainment(t *testing.T) {
	block := []TimeBlock{{StartTime: "08:00", EndTime: "12:00"}}

	tests := []struct {
		name       string
		blocks     []TimeBlock
		start, end string
		want       Containment
	}{
		{"inside", block, "09:00", "10:00", Contained},
		{"exact bounds", block, "08:00", "12:00", Contained},
		{"starts early", block, "07:30", "10:00", OutsideHours},
		{"ends late", block, "11:00", "12:30", OutsideHours},
		{"closed", nil, "09:00", "10:00", Closed},
		{"adjacent blocks are not merged", []TimeBlock{
			{StartTime: "08:00", EndTime: "10:00"},
			{StartTime: "10:00", EndTime: "12:00"},
		}, "09:30", "10:30", OutsideHours},
		{"second block", []TimeBlock{
			{StartTime: "08:00", EndTime: "10:00"},
			{StartTime: "14:00", EndTime: "18:00"},
		}, "15:00", "16:00", Contained},
		{"end of day", []TimeBlock{{StartTime: "20:00", EndTime: "24:00"}}, "23:00", "24:00", Contained},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.blocks, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == Contained, IsWithin(tt.blocks, tt.start, tt.end))
		})
	}
}

func TestCheckRejectsMalformedRanges(t *testing.T) {
	block := []TimeBlock{{StartTime: "08:00", EndTime: "12:00"}}

	_, err := Check(block, "11:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Check(block, "10:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Check(block, "9:00", "10:00")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)

	_, err = Check(block, "24:00", "24:00")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)

	for _, clock := range []string{"+9:00", "-9:00", "09:+5", "0x:00", "09:5 "} {
		_, err = Check(block, clock, "11:00")
		assert.ErrorIs(t, err, ErrInvalidTimeOfDay, clock)
	}

	assert.False(t, IsWithin(block, "25:00", "26:00"))
}

func TestClockRange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	day, from, to, err := ClockRange(start, start.Add(time.Hour), loc)
	require.NoError(t, err)
	assert.Equal(t, "10:00", from)
	assert.Equal(t, "11:00", to)
	assert.Equal(t, time.Monday, day.Weekday())

	lateStart := time.Date(2025, 3, 3, 22, 0, 0, 0, time.UTC)
	_, from, to, err = ClockRange(lateStart, lateStart.Add(2*time.Hour), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "22:00", from)
	assert.Equal(t, "24:00", to)

	_, _, _, err = ClockRange(lateStart, lateStart.Add(3*time.Hour), time.UTC)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, _, err = ClockRange(start, start, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestValidateSchedule(t *testing.T) {
	valid := Schedule{
		Weekly: WeeklySchedule{
			"monday": {{StartTime: "08:00", EndTime: "12:00"}, {StartTime: "13:00", EndTime: "17:00"}},
		},
		Overrides: []DateOverride{{Date: "2025-12-25", Blocks: []TimeBlock{}}},
	}
	assert.NoError(t, ValidateSchedule(valid))

	assert.Error(t, ValidateSchedule(Schedule{Weekly: WeeklySchedule{"funday": nil}}))
	assert.Error(t, ValidateSchedule(Schedule{Weekly: WeeklySchedule{
		"monday": {{StartTime: "08:00", EndTime: "12:00"}, {StartTime: "11:00", EndTime: "14:00"}},
	}}))
	assert.Error(t, ValidateSchedule(Schedule{Weekly: WeeklySchedule{
		"monday": {{StartTime: "12:00", EndTime: "08:00"}},
	}}))
	assert.Error(t, ValidateSchedule(Schedule{Weekly: WeeklySchedule{
		"monday": {{StartTime: "+8:00", EndTime: "12:00"}},
	}}))
	assert.Error(t, ValidateSchedule(Schedule{Overrides: []DateOverride{{Date: "25-12-2025"}}}))
	assert.Error(t, ValidateSchedule(Schedule{Overrides: []DateOverride{{Date: "2025-12-25"}, {Date: "2025-12-25"}}}))
}

func TestNormalizeSortsAndLowercases(t *testing.T) {
	in := Schedule{
		Weekly: WeeklySchedule{
			"Monday": {{StartTime: "13:00", EndTime: "17:00"}, {StartTime: "08:00", EndTime: "12:00"}},
		},
		Overrides: []DateOverride{{Date: "2025-12-26"}, {Date: "2025-12-25"}},
	}
	out := Normalize(in)

	require.Contains(t, out.Weekly, "monday")
	assert.Equal(t, "08:00", out.Weekly["monday"][0].StartTime)
	assert.Equal(t, "2025-12-25", out.Overrides[0].Date)
	assert.NotNil(t, out.Overrides[0].Blocks, "closed override stays an explicit empty list")
	assert.NoError(t, ValidateSchedule(out))
}

func TestOpenMinutes(t *testing.T) {
	assert.Equal(t, 0, OpenMinutes(nil))
	assert.Equal(t, 8*60, OpenMinutes([]TimeBlock{
		{StartTime: "08:00", EndTime: "12:00"},
		{StartTime: "13:00", EndTime: "17:00"},
	}))
}

func TestScheduleJSONKeepsClosedWeekDistinct(t *testing.T) {
	raw, err := json.Marshal(Schedule{Weekly: WeeklySchedule{}})
	require.NoError(t, err)

	var closed Schedule
	require.NoError(t, json.Unmarshal(raw, &closed))
	assert.True(t, closed.IsConfigured())

	var never Schedule
	require.NoError(t, json.Unmarshal([]byte(`{}`), &never))
	assert.False(t, never.IsConfigured())
}
