package schedule

import (
	"testing"
	"time"

	"github.com/yungbote/dayplan-backend/internal/types"
)

func at(t *testing.T, day time.Time, clock string) time.Time {
	t.Helper()
	hh, mm, err := ParseClock(clock)
	if err != nil {
		t.Fatalf("bad clock %q: %v", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, time.UTC)
}

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   [][2]string
		want [][2]string
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "disjoint_sorted",
			in:   [][2]string{{"09:00", "10:00"}, {"11:00", "12:00"}},
			want: [][2]string{{"09:00", "10:00"}, {"11:00", "12:00"}},
		},
		{
			name: "overlapping_unsorted",
			in:   [][2]string{{"11:00", "12:00"}, {"09:00", "11:30"}},
			want: [][2]string{{"09:00", "12:00"}},
		},
		{
			name: "adjacent_coalesce",
			in:   [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}},
			want: [][2]string{{"09:00", "11:00"}},
		},
		{
			name: "inverted_dropped",
			in:   [][2]string{{"10:00", "09:00"}, {"12:00", "13:00"}},
			want: [][2]string{{"12:00", "13:00"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var in []Interval
			for _, p := range tc.in {
				in = append(in, Interval{Start: at(t, testDay, p[0]), End: at(t, testDay, p[1])})
			}
			got := Merge(in)
			if len(got) != len(tc.want) {
				t.Fatalf("Merge: got %d intervals, want %d", len(got), len(tc.want))
			}
			for i, p := range tc.want {
				if !got[i].Start.Equal(at(t, testDay, p[0])) || !got[i].End.Equal(at(t, testDay, p[1])) {
					t.Fatalf("Merge[%d] = %v..%v, want %s..%s", i, got[i].Start, got[i].End, p[0], p[1])
				}
			}
		})
	}
}

func TestFreeIntervals(t *testing.T) {
	dayStart := at(t, testDay, "08:15")
	dayEnd := at(t, testDay, "23:30")

	cases := []struct {
		name string
		busy [][2]string
		want [][2]string
	}{
		{
			name: "no_busy_whole_window",
			busy: nil,
			want: [][2]string{{"08:15", "23:30"}},
		},
		{
			name: "single_block_splits",
			busy: [][2]string{{"12:00", "13:00"}},
			want: [][2]string{{"08:15", "12:00"}, {"13:00", "23:30"}},
		},
		{
			name: "block_at_window_start_no_zero_gap",
			busy: [][2]string{{"08:15", "09:00"}},
			want: [][2]string{{"09:00", "23:30"}},
		},
		{
			name: "block_straddles_window_end",
			busy: [][2]string{{"22:00", "23:59"}},
			want: [][2]string{{"08:15", "22:00"}},
		},
		{
			name: "block_outside_window_ignored",
			busy: [][2]string{{"06:00", "07:00"}},
			want: [][2]string{{"08:15", "23:30"}},
		},
		{
			name: "fully_occupied",
			busy: [][2]string{{"08:00", "23:59"}},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var busy []Interval
			for _, p := range tc.busy {
				busy = append(busy, Interval{Start: at(t, testDay, p[0]), End: at(t, testDay, p[1])})
			}
			got := FreeIntervals(busy, dayStart, dayEnd)
			if len(got) != len(tc.want) {
				t.Fatalf("FreeIntervals: got %v, want %d gaps", got, len(tc.want))
			}
			for i, p := range tc.want {
				if !got[i].Start.Equal(at(t, testDay, p[0])) || !got[i].End.Equal(at(t, testDay, p[1])) {
					t.Fatalf("FreeIntervals[%d] = %v..%v, want %s..%s", i, got[i].Start, got[i].End, p[0], p[1])
				}
			}
		})
	}
}

func TestFreeIntervalsInvertedWindow(t *testing.T) {
	got := FreeIntervals(nil, at(t, testDay, "12:00"), at(t, testDay, "10:00"))
	if got != nil {
		t.Fatalf("expected no gaps for inverted window, got %v", got)
	}
}

func testRoutine() *types.RoutineConfig {
	return &types.RoutineConfig{
		Wakeup:                 "07:30",
		Bedtime:                "23:45",
		PreSleepBufferMin:      15,
		PostWakeBufferMin:      45,
		MealDurationMin:        45,
		MealBufferAfterMin:     5,
		BreakfastStart:         "07:00",
		BreakfastEnd:           "10:00",
		LunchStart:             "12:00",
		LunchEnd:               "15:00",
		DinnerStart:            "17:00",
		DinnerEnd:              "20:00",
		WorkoutEnabled:         true,
		WorkoutBlockMin:        60,
		WorkoutTravelOnewayMin: 15,
	}
}

func TestDayWindow(t *testing.T) {
	routine := testRoutine()

	t.Run("future_day", func(t *testing.T) {
		now := at(t, testDay.AddDate(0, 0, -1), "20:00")
		w := DayWindow(testDay, routine, now)
		if !w.MorningStart.Equal(at(t, testDay, "07:30")) {
			t.Fatalf("morning start = %v", w.MorningStart)
		}
		if !w.MorningEnd.Equal(at(t, testDay, "08:15")) {
			t.Fatalf("morning end = %v", w.MorningEnd)
		}
		if !w.DayStart.Equal(at(t, testDay, "08:15")) {
			t.Fatalf("day start = %v", w.DayStart)
		}
		if !w.DayEnd.Equal(at(t, testDay, "23:30")) {
			t.Fatalf("day end = %v", w.DayEnd)
		}
	})

	t.Run("today_clamps_to_now", func(t *testing.T) {
		now := at(t, testDay, "13:00").Add(20 * time.Second)
		w := DayWindow(testDay, routine, now)
		if !w.DayStart.Equal(at(t, testDay, "13:01")) {
			t.Fatalf("day start = %v, want 13:01 (now ceiled)", w.DayStart)
		}
	})

	t.Run("bedtime_past_midnight", func(t *testing.T) {
		r := testRoutine()
		r.Bedtime = "01:00"
		now := at(t, testDay.AddDate(0, 0, -1), "20:00")
		w := DayWindow(testDay, r, now)
		next := testDay.AddDate(0, 0, 1)
		if !w.DayEnd.Equal(at(t, next, "00:45")) {
			t.Fatalf("day end = %v, want next-day 00:45", w.DayEnd)
		}
	})
}
