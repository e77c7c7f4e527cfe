package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/dayplan-backend/internal/types"
)

// Interval is a half-open [Start, End) span of wall-clock time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (iv Interval) Duration() time.Duration {
	if iv.End.Before(iv.Start) {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Minutes() int {
	return int(iv.Duration() / time.Minute)
}

// Overlaps reports whether two half-open intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Merge sorts intervals by start and coalesces overlapping or adjacent ones.
// Empty and inverted inputs are dropped.
func Merge(intervals []Interval) []Interval {
	items := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Start) {
			items = append(items, iv)
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })

	merged := []Interval{items[0]}
	for _, cur := range items[1:] {
		last := &merged[len(merged)-1]
		if !cur.Start.After(last.End) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// FreeIntervals subtracts the busy set from [start, end) and returns the
// ordered complement. Zero-length gaps are omitted. Pure: never touches
// storage.
func FreeIntervals(busy []Interval, start, end time.Time) []Interval {
	if !end.After(start) {
		return nil
	}
	merged := Merge(busy)
	if len(merged) == 0 {
		return []Interval{{Start: start, End: end}}
	}

	var free []Interval
	cursor := start
	for _, iv := range merged {
		if !iv.End.After(start) {
			continue
		}
		if !iv.Start.Before(end) {
			break
		}
		ivStart := iv.Start
		if ivStart.Before(start) {
			ivStart = start
		}
		ivEnd := iv.End
		if ivEnd.After(end) {
			ivEnd = end
		}
		if ivStart.After(cursor) {
			free = append(free, Interval{Start: cursor, End: ivStart})
		}
		if ivEnd.After(cursor) {
			cursor = ivEnd
		}
	}
	if cursor.Before(end) {
		free = append(free, Interval{Start: cursor, End: end})
	}
	return free
}

// ParseClock parses a "HH:MM" wall-clock string.
func ParseClock(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, fmt.Errorf("invalid clock %q", s)
	}
	return hh, mm, nil
}

// At combines a calendar day with a "HH:MM" clock. Malformed clocks fall
// back to midnight.
func At(day time.Time, clock string) time.Time {
	hh, mm, err := ParseClock(clock)
	if err != nil {
		hh, mm = 0, 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, day.Location())
}

func ceilToMinute(ts time.Time) time.Time {
	truncated := ts.Truncate(time.Minute)
	if truncated.Equal(ts) {
		return ts
	}
	return truncated.Add(time.Minute)
}

// Window is one day's plannable span.
type Window struct {
	DayStart     time.Time
	DayEnd       time.Time
	MorningStart time.Time
	MorningEnd   time.Time
}

// DayWindow derives the plannable window for a day from the user's routine:
// morning runs from wakeup for the post-wake buffer, the plannable span runs
// from the morning end to bedtime minus the pre-sleep buffer. Bedtime at or
// before wakeup rolls to the next day. For "now"'s own day the start clamps
// forward so nothing is planned in the past.
func DayWindow(day time.Time, routine *types.RoutineConfig, now time.Time) Window {
	wake := At(day, routine.Wakeup)
	bed := At(day, routine.Bedtime)
	if !bed.After(wake) {
		bed = bed.AddDate(0, 0, 1)
	}

	morningStart := wake
	morningEnd := wake.Add(time.Duration(routine.PostWakeBufferMin) * time.Minute)
	dayStart := morningEnd
	dayEnd := bed.Add(-time.Duration(routine.PreSleepBufferMin) * time.Minute)

	if SameDay(now, day) {
		nowCeiled := ceilToMinute(now)
		if nowCeiled.After(dayStart) {
			dayStart = nowCeiled
		}
	}

	return Window{
		DayStart:     dayStart,
		DayEnd:       dayEnd,
		MorningStart: morningStart,
		MorningEnd:   morningEnd,
	}
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats a day for anchor keys and API payloads.
func DayKey(day time.Time) string {
	return day.Format("2006-01-02")
}
