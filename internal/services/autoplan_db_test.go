package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/repos"
	"github.com/yungbote/dayplan-backend/internal/requestdata"
	"github.com/yungbote/dayplan-backend/internal/schedule"
	"github.com/yungbote/dayplan-backend/internal/sse"
	"github.com/yungbote/dayplan-backend/internal/types"
)

// The model tags carry postgres-only column defaults (uuid_generate_v4), so
// the fixture creates the tables by hand; every row in these tests sets its
// id and fields explicitly.
var testDDL = []string{
	`CREATE TABLE task (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		task_type text NOT NULL DEFAULT 'user',
		kind text NOT NULL DEFAULT 'other',
		title text NOT NULL DEFAULT '',
		notes text NOT NULL DEFAULT '',
		anchor_key text,
		idempotency_key text,
		planned_start datetime,
		planned_end datetime,
		due_at datetime,
		estimate_minutes integer NOT NULL DEFAULT 30,
		priority integer NOT NULL DEFAULT 0,
		is_done numeric NOT NULL DEFAULT false,
		schedule_source text NOT NULL DEFAULT 'manual',
		checklist text,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
	`CREATE UNIQUE INDEX uq_task_user_anchor_key ON task(user_id, anchor_key)`,
	`CREATE UNIQUE INDEX uq_task_user_idempotency_key ON task(user_id, idempotency_key)`,
	`CREATE TABLE routine_config (
		id text PRIMARY KEY,
		user_id text NOT NULL UNIQUE,
		bedtime text NOT NULL DEFAULT '23:45',
		wakeup text NOT NULL DEFAULT '07:30',
		pre_sleep_buffer_min integer NOT NULL DEFAULT 0,
		post_wake_buffer_min integer NOT NULL DEFAULT 0,
		meal_duration_min integer NOT NULL DEFAULT 45,
		meal_buffer_after_min integer NOT NULL DEFAULT 0,
		breakfast_start text NOT NULL DEFAULT '07:00',
		breakfast_end text NOT NULL DEFAULT '10:00',
		lunch_start text NOT NULL DEFAULT '12:00',
		lunch_end text NOT NULL DEFAULT '15:00',
		dinner_start text NOT NULL DEFAULT '17:00',
		dinner_end text NOT NULL DEFAULT '20:00',
		workout_enabled numeric NOT NULL DEFAULT true,
		workout_block_min integer NOT NULL DEFAULT 120,
		workout_travel_oneway_min integer NOT NULL DEFAULT 15,
		workout_days_per_week integer NOT NULL DEFAULT 3,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
	`CREATE TABLE routine_step (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		title text NOT NULL DEFAULT '',
		offset_min integer NOT NULL DEFAULT 0,
		duration_min integer NOT NULL DEFAULT 10,
		kind text NOT NULL DEFAULT 'morning',
		position integer NOT NULL DEFAULT 0,
		is_active numeric NOT NULL DEFAULT true,
		created_at datetime,
		updated_at datetime,
		deleted_at datetime
	)`,
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, userID uuid.UUID, event sse.SSEEvent, data any) {}

type engineFixture struct {
	db       *gorm.DB
	taskRepo repos.TaskRepo
	service  *autoplanService
	userID   uuid.UUID
	ctx      context.Context
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	for _, stmt := range testDDL {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema: %v", err)
		}
	}

	taskRepo := repos.NewTaskRepo(db, log)
	routineRepo := repos.NewRoutineRepo(db, log)
	stepRepo := repos.NewRoutineStepRepo(db, log)
	svc := NewAutoplanService(db, log, taskRepo, routineRepo, stepRepo, nopNotifier{}).(*autoplanService)

	userID := uuid.New()
	ctx := requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})

	// A short plannable day: morning block 08:00-09:00, window ends 13:00.
	routine := &types.RoutineConfig{
		ID:                     uuid.New(),
		UserID:                 userID,
		Bedtime:                "13:00",
		Wakeup:                 "08:00",
		PreSleepBufferMin:      0,
		PostWakeBufferMin:      60,
		MealDurationMin:        45,
		MealBufferAfterMin:     5,
		BreakfastStart:         "07:00",
		BreakfastEnd:           "10:00",
		LunchStart:             "12:00",
		LunchEnd:               "15:00",
		DinnerStart:            "17:00",
		DinnerEnd:              "20:00",
		WorkoutEnabled:         true,
		WorkoutBlockMin:        120,
		WorkoutTravelOnewayMin: 15,
		WorkoutDaysPerWeek:     3,
	}
	if _, err := routineRepo.Create(ctx, nil, routine); err != nil {
		t.Fatalf("routine create: %v", err)
	}

	return &engineFixture{db: db, taskRepo: taskRepo, service: svc, userID: userID, ctx: ctx}
}

// Days far in the future so the today clamp never interferes.
var engineDay = time.Date(2099, 1, 5, 0, 0, 0, 0, time.UTC)

func (f *engineFixture) addBacklogTask(t *testing.T, title string, priority, estimateMin int) uuid.UUID {
	t.Helper()
	task := &types.Task{
		ID:              uuid.New(),
		UserID:          f.userID,
		TaskType:        types.TaskTypeUser,
		Kind:            types.TaskKindWork,
		Title:           title,
		Priority:        priority,
		EstimateMinutes: estimateMin,
		ScheduleSource:  types.ScheduleSourceManual,
	}
	if _, err := f.taskRepo.Create(f.ctx, nil, []*types.Task{task}); err != nil {
		t.Fatalf("task create: %v", err)
	}
	return task.ID
}

type placementSnapshot map[uuid.UUID][2]time.Time

func (f *engineFixture) snapshot(t *testing.T) placementSnapshot {
	t.Helper()
	tasks, err := f.taskRepo.ListByUser(f.ctx, nil, f.userID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	snap := placementSnapshot{}
	for _, task := range tasks {
		if task.Planned() {
			snap[task.ID] = [2]time.Time{task.PlannedStart.UTC(), task.PlannedEnd.UTC()}
		} else {
			snap[task.ID] = [2]time.Time{}
		}
	}
	return snap
}

func samePlacements(t *testing.T, before, after placementSnapshot) {
	t.Helper()
	if len(before) != len(after) {
		t.Fatalf("task count changed: %d -> %d", len(before), len(after))
	}
	for id, pair := range before {
		got, ok := after[id]
		if !ok {
			t.Fatalf("task %s disappeared", id)
		}
		if !got[0].Equal(pair[0]) || !got[1].Equal(pair[1]) {
			t.Errorf("task %s placement moved: %v..%v -> %v..%v", id, pair[0], pair[1], got[0], got[1])
		}
	}
}

func TestEnsureAnchorsIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Now()
	routine, err := f.service.routineRepo.GetByUserID(f.ctx, nil, f.userID)
	if err != nil || routine == nil {
		t.Fatalf("routine fetch: %v", err)
	}
	win := schedule.DayWindow(engineDay, routine, now)

	first, err := f.service.ensureAnchors(f.ctx, f.userID, routine, nil, engineDay, win, now)
	if err != nil {
		t.Fatalf("first ensureAnchors: %v", err)
	}
	if first < 4 {
		t.Fatalf("anchors = %d, want morning + three meals", first)
	}
	before := f.snapshot(t)

	second, err := f.service.ensureAnchors(f.ctx, f.userID, routine, nil, engineDay, win, now)
	if err != nil {
		t.Fatalf("second ensureAnchors: %v", err)
	}
	if second != first {
		t.Errorf("anchor count changed on repeat: %d -> %d", first, second)
	}
	samePlacements(t, before, f.snapshot(t))
}

func TestEnsureAnchorsKeepsMovedAnchor(t *testing.T) {
	f := newEngineFixture(t)
	now := time.Now()
	routine, err := f.service.routineRepo.GetByUserID(f.ctx, nil, f.userID)
	if err != nil || routine == nil {
		t.Fatalf("routine fetch: %v", err)
	}
	win := schedule.DayWindow(engineDay, routine, now)
	if _, err := f.service.ensureAnchors(f.ctx, f.userID, routine, nil, engineDay, win, now); err != nil {
		t.Fatalf("ensureAnchors: %v", err)
	}

	key := "meal:breakfast:" + schedule.DayKey(engineDay)
	breakfast, err := f.taskRepo.GetByAnchorKey(f.ctx, nil, f.userID, key)
	if err != nil || breakfast == nil {
		t.Fatalf("breakfast anchor missing: %v", err)
	}

	movedStart := engineDay.Add(9*time.Hour + 30*time.Minute)
	movedEnd := movedStart.Add(45 * time.Minute)
	if _, err := f.taskRepo.UpdateFields(f.ctx, nil, f.userID, breakfast.ID, map[string]interface{}{
		"planned_start": movedStart,
		"planned_end":   movedEnd,
	}); err != nil {
		t.Fatalf("move anchor: %v", err)
	}

	if _, err := f.service.ensureAnchors(f.ctx, f.userID, routine, nil, engineDay, win, now); err != nil {
		t.Fatalf("ensureAnchors after move: %v", err)
	}
	breakfast, err = f.taskRepo.GetByAnchorKey(f.ctx, nil, f.userID, key)
	if err != nil || breakfast == nil {
		t.Fatalf("breakfast anchor missing after rerun: %v", err)
	}
	if !breakfast.PlannedStart.Equal(movedStart) || !breakfast.PlannedEnd.Equal(movedEnd) {
		t.Fatalf("moved anchor was repositioned: %v..%v", breakfast.PlannedStart, breakfast.PlannedEnd)
	}
}

func TestAutoplanRerunIsNonDestructive(t *testing.T) {
	f := newEngineFixture(t)

	manualStart := engineDay.Add(10 * time.Hour)
	manualEnd := manualStart.Add(time.Hour)
	manual := &types.Task{
		ID:              uuid.New(),
		UserID:          f.userID,
		TaskType:        types.TaskTypeUser,
		Kind:            types.TaskKindWork,
		Title:           "standing meeting",
		PlannedStart:    &manualStart,
		PlannedEnd:      &manualEnd,
		EstimateMinutes: 60,
		Priority:        2,
		ScheduleSource:  types.ScheduleSourceManual,
	}
	if _, err := f.taskRepo.Create(f.ctx, nil, []*types.Task{manual}); err != nil {
		t.Fatalf("manual task create: %v", err)
	}
	backlogID := f.addBacklogTask(t, "write summary", 1, 60)

	first, err := f.service.Autoplan(f.ctx, engineDay, 1)
	if err != nil {
		t.Fatalf("first autoplan: %v", err)
	}
	if first.Placed != 1 {
		t.Fatalf("first run placed = %d, want 1", first.Placed)
	}
	placed, err := f.taskRepo.GetByID(f.ctx, nil, f.userID, backlogID)
	if err != nil || placed == nil || !placed.Planned() {
		t.Fatalf("backlog task not placed: %v", err)
	}
	if placed.ScheduleSource != types.ScheduleSourceAutoplan {
		t.Errorf("schedule_source = %q, want autoplan", placed.ScheduleSource)
	}
	before := f.snapshot(t)

	second, err := f.service.Autoplan(f.ctx, engineDay, 1)
	if err != nil {
		t.Fatalf("second autoplan: %v", err)
	}
	if second.Placed != 0 {
		t.Errorf("second run placed = %d, want 0", second.Placed)
	}
	samePlacements(t, before, f.snapshot(t))

	manualAfter, err := f.taskRepo.GetByID(f.ctx, nil, f.userID, manual.ID)
	if err != nil || manualAfter == nil {
		t.Fatalf("manual task fetch: %v", err)
	}
	if !manualAfter.PlannedStart.Equal(manualStart) || !manualAfter.PlannedEnd.Equal(manualEnd) {
		t.Fatalf("manual placement moved: %v..%v", manualAfter.PlannedStart, manualAfter.PlannedEnd)
	}
	if manualAfter.ScheduleSource != types.ScheduleSourceManual {
		t.Errorf("manual schedule_source changed to %q", manualAfter.ScheduleSource)
	}
}

func TestAutoplanDefersLoserToNextDay(t *testing.T) {
	// With the fixture routine the plannable span holds exactly one
	// 180-minute gap (09:00-12:00) after anchors land.
	f := newEngineFixture(t)
	winnerID := f.addBacklogTask(t, "deep work block", 1, 180)
	loserID := f.addBacklogTask(t, "research block", 2, 180)

	result, err := f.service.Autoplan(f.ctx, engineDay, 2)
	if err != nil {
		t.Fatalf("autoplan: %v", err)
	}
	if len(result.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(result.Days))
	}
	if result.Days[0].Placed != 1 || result.Days[1].Placed != 1 {
		t.Fatalf("per-day placed = %d/%d, want 1/1", result.Days[0].Placed, result.Days[1].Placed)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("skipped = %v, want none", result.Skipped)
	}

	winner, err := f.taskRepo.GetByID(f.ctx, nil, f.userID, winnerID)
	if err != nil || winner == nil || !winner.Planned() {
		t.Fatalf("winner not placed: %v", err)
	}
	if !schedule.SameDay(*winner.PlannedStart, engineDay) {
		t.Errorf("priority-1 task landed on %v, want first day", winner.PlannedStart)
	}
	loser, err := f.taskRepo.GetByID(f.ctx, nil, f.userID, loserID)
	if err != nil || loser == nil || !loser.Planned() {
		t.Fatalf("loser not placed: %v", err)
	}
	if !schedule.SameDay(*loser.PlannedStart, engineDay.AddDate(0, 0, 1)) {
		t.Errorf("deferred task landed on %v, want second day", loser.PlannedStart)
	}
}

func TestAutoplanSkipsWhenRangeExhausted(t *testing.T) {
	f := newEngineFixture(t)
	f.addBacklogTask(t, "deep work block", 1, 180)
	loserID := f.addBacklogTask(t, "research block", 2, 180)

	result, err := f.service.Autoplan(f.ctx, engineDay, 1)
	if err != nil {
		t.Fatalf("autoplan: %v", err)
	}
	if result.Placed != 1 {
		t.Fatalf("placed = %d, want 1", result.Placed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != loserID {
		t.Fatalf("skipped = %v, want [%s]", result.Skipped, loserID)
	}
	loser, err := f.taskRepo.GetByID(f.ctx, nil, f.userID, loserID)
	if err != nil || loser == nil {
		t.Fatalf("loser fetch: %v", err)
	}
	if loser.Planned() {
		t.Fatalf("skipped task has a placement: %v..%v", loser.PlannedStart, loser.PlannedEnd)
	}
}
