package schedule

import (
	"time"

	"github.com/yungbote/dayplan-backend/internal/types"
)

// BusyIntervals converts a day's planned, not-done tasks into occupied
// intervals. Meals reserve their after-meal buffer; workouts reserve travel
// on both sides of the in-gym block. The result is merged and ordered.
func BusyIntervals(tasks []*types.Task, routine *types.RoutineConfig) []Interval {
	var intervals []Interval
	for _, t := range tasks {
		if t == nil || !t.Planned() || t.IsDone {
			continue
		}
		start := *t.PlannedStart
		end := *t.PlannedEnd
		switch t.Kind {
		case types.TaskKindMeal:
			end = end.Add(time.Duration(routine.MealBufferAfterMin) * time.Minute)
		case types.TaskKindWorkout:
			travel := time.Duration(routine.WorkoutTravelOnewayMin) * time.Minute
			start = start.Add(-travel)
			end = end.Add(travel)
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return Merge(intervals)
}

// MealEnds collects the planned end times of meal anchors, used for the
// workout adjacency rule.
func MealEnds(tasks []*types.Task) []time.Time {
	var ends []time.Time
	for _, t := range tasks {
		if t == nil || !t.Planned() {
			continue
		}
		if t.TaskType == types.TaskTypeAnchor && t.Kind == types.TaskKindMeal {
			ends = append(ends, *t.PlannedEnd)
		}
	}
	return ends
}

// SlotRequest describes what a single task needs from a free interval.
type SlotRequest struct {
	// DurationMin is the task's own span: the stored planned pair covers
	// exactly this many minutes.
	DurationMin int
	Kind        string
	// TravelOnewayMin widens the required block on both sides for
	// workouts; the stored pair still records only the inner session.
	TravelOnewayMin int
	// MealEnds are planned meal-anchor ends; a workout session must not
	// start flush against one.
	MealEnds []time.Time
}

func (req SlotRequest) blockDuration() time.Duration {
	dur := time.Duration(req.DurationMin) * time.Minute
	if req.Kind == types.TaskKindWorkout {
		travel := time.Duration(req.TravelOnewayMin) * time.Minute
		return travel + dur + travel
	}
	return dur
}

func (req SlotRequest) startsAtMealEnd(sessionStart time.Time) bool {
	if req.Kind != types.TaskKindWorkout {
		return false
	}
	for _, end := range req.MealEnds {
		if sessionStart.Equal(end) {
			return true
		}
	}
	return false
}

// FindSlot returns the earliest placement for the request within the free
// intervals, starting no earlier than earliest. For workouts the free
// interval must hold travel + session + travel, and the returned interval is
// the inner session only; a session that would start exactly at a meal
// anchor's end is rejected and the next free interval is tried. Returns
// ok=false when no interval satisfies the constraints.
func FindSlot(req SlotRequest, free []Interval, earliest time.Time) (Interval, bool) {
	block := req.blockDuration()
	travel := time.Duration(0)
	if req.Kind == types.TaskKindWorkout {
		travel = time.Duration(req.TravelOnewayMin) * time.Minute
	}

	for _, gap := range free {
		if !gap.End.After(earliest) {
			continue
		}
		blockStart := gap.Start
		if blockStart.Before(earliest) {
			blockStart = earliest
		}
		if blockStart.Add(block).After(gap.End) {
			continue
		}
		sessionStart := blockStart.Add(travel)
		if req.startsAtMealEnd(sessionStart) {
			continue
		}
		return Interval{
			Start: sessionStart,
			End:   sessionStart.Add(time.Duration(req.DurationMin) * time.Minute),
		}, true
	}
	return Interval{}, false
}

// SlotOption is one candidate free interval with the feasible start range
// for the request, used by the read-only slot query.
type SlotOption struct {
	Gap           Interval  `json:"gap"`
	EarliestStart time.Time `json:"earliest_start"`
	LatestStart   time.Time `json:"latest_start"`
	Fits          bool      `json:"fits"`
}

// CandidateSlots enumerates every free interval with the range of session
// starts that would fit the request there, earliest first. Intervals that
// cannot fit are included with Fits=false so callers can show why.
func CandidateSlots(req SlotRequest, free []Interval, earliest time.Time) []SlotOption {
	dur := time.Duration(req.DurationMin) * time.Minute
	travel := time.Duration(0)
	if req.Kind == types.TaskKindWorkout {
		travel = time.Duration(req.TravelOnewayMin) * time.Minute
	}

	options := make([]SlotOption, 0, len(free))
	for _, gap := range free {
		gapStart := gap.Start
		if gapStart.Before(earliest) {
			gapStart = earliest
		}
		earliestStart := gapStart.Add(travel)
		latestStart := gap.End.Add(-(dur + travel))
		fits := !latestStart.Before(earliestStart) && gap.End.After(earliest)
		if fits && req.startsAtMealEnd(earliestStart) {
			// The flush-against-meal start is excluded for workouts;
			// any later start within the range is still valid.
			if latestStart.After(earliestStart) {
				earliestStart = earliestStart.Add(time.Minute)
			} else {
				fits = false
			}
		}
		options = append(options, SlotOption{
			Gap:           gap,
			EarliestStart: earliestStart,
			LatestStart:   latestStart,
			Fits:          fits,
		})
	}
	return options
}
