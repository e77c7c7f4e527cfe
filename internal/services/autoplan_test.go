package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dayplan-backend/internal/schedule"
	"github.com/yungbote/dayplan-backend/internal/types"
)

var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func backlogTask(t *testing.T, priority int, createdAt time.Time, id string) *types.Task {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("bad uuid %q: %v", id, err)
	}
	return &types.Task{
		ID:        parsed,
		Title:     "task " + id[:8],
		Priority:  priority,
		CreatedAt: createdAt,
	}
}

func TestOrderCandidates(t *testing.T) {
	base := testDay.Add(9 * time.Hour)
	idA := "11111111-1111-1111-1111-111111111111"
	idB := "22222222-2222-2222-2222-222222222222"
	idC := "33333333-3333-3333-3333-333333333333"
	idD := "44444444-4444-4444-4444-444444444444"

	low := backlogTask(t, 3, base, idA)
	high := backlogTask(t, 1, base.Add(time.Hour), idB)
	oldMid := backlogTask(t, 2, base, idC)
	newMid := backlogTask(t, 2, base.Add(time.Minute), idD)

	done := backlogTask(t, 1, base, "55555555-5555-5555-5555-555555555555")
	done.IsDone = true
	start := base
	end := base.Add(30 * time.Minute)
	planned := backlogTask(t, 1, base, "66666666-6666-6666-6666-666666666666")
	planned.PlannedStart = &start
	planned.PlannedEnd = &end

	got := orderCandidates([]*types.Task{low, done, newMid, planned, high, oldMid})

	want := []uuid.UUID{high.ID, oldMid.ID, newMid.ID, low.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestOrderCandidatesIDTieBreak(t *testing.T) {
	base := testDay.Add(9 * time.Hour)
	second := backlogTask(t, 2, base, "bbbbbbbb-0000-0000-0000-000000000000")
	first := backlogTask(t, 2, base, "aaaaaaaa-0000-0000-0000-000000000000")

	got := orderCandidates([]*types.Task{second, first})
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("id tie-break not applied: got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestRoutineAnchors(t *testing.T) {
	win := schedule.Window{
		MorningStart: testDay.Add(7*time.Hour + 30*time.Minute),
		MorningEnd:   testDay.Add(8*time.Hour + 15*time.Minute),
		DayStart:     testDay.Add(8*time.Hour + 15*time.Minute),
		DayEnd:       testDay.Add(23*time.Hour + 30*time.Minute),
	}
	stepID := uuid.MustParse("77777777-7777-7777-7777-777777777777")
	steps := []*types.RoutineStep{
		{ID: stepID, Title: "Stretch", OffsetMin: 10, DurationMin: 15, Kind: types.TaskKindMorning, IsActive: true},
		{ID: uuid.New(), Title: "Disabled", OffsetMin: 0, DurationMin: 5, Kind: types.TaskKindMorning, IsActive: false},
	}

	anchors := routineAnchors(steps, testDay, win)
	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2 (morning + one active step)", len(anchors))
	}

	morning := anchors[0]
	if morning.Key != "morning:2026-03-02" {
		t.Errorf("morning key = %q", morning.Key)
	}
	if !morning.Slot.Start.Equal(win.MorningStart) || !morning.Slot.End.Equal(win.MorningEnd) {
		t.Errorf("morning slot = %v..%v, want %v..%v", morning.Slot.Start, morning.Slot.End, win.MorningStart, win.MorningEnd)
	}

	step := anchors[1]
	if step.Key != "routine:"+stepID.String()+":2026-03-02" {
		t.Errorf("step key = %q", step.Key)
	}
	wantStart := win.MorningEnd.Add(10 * time.Minute)
	if !step.Slot.Start.Equal(wantStart) {
		t.Errorf("step start = %v, want %v", step.Slot.Start, wantStart)
	}
	if !step.Slot.End.Equal(wantStart.Add(15 * time.Minute)) {
		t.Errorf("step end = %v, want %v", step.Slot.End, wantStart.Add(15*time.Minute))
	}
}

func TestMealDefs(t *testing.T) {
	routine := &types.RoutineConfig{
		BreakfastStart: "07:00", BreakfastEnd: "10:00",
		LunchStart: "12:00", LunchEnd: "15:00",
		DinnerStart: "17:00", DinnerEnd: "20:00",
	}
	defs := mealDefs(routine)
	if len(defs) != 3 {
		t.Fatalf("got %d meal defs, want 3", len(defs))
	}
	wantNames := []string{"breakfast", "lunch", "dinner"}
	for i, name := range wantNames {
		if defs[i].Name != name {
			t.Errorf("meal %d = %q, want %q", i, defs[i].Name, name)
		}
	}
	if defs[1].WindowStart != "12:00" || defs[1].WindowEnd != "15:00" {
		t.Errorf("lunch window = %s..%s", defs[1].WindowStart, defs[1].WindowEnd)
	}
}
