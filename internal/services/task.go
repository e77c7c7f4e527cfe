package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/repos"
	"github.com/yungbote/dayplan-backend/internal/requestdata"
	"github.com/yungbote/dayplan-backend/internal/schedule"
	"github.com/yungbote/dayplan-backend/internal/sse"
	"github.com/yungbote/dayplan-backend/internal/types"
)

var validTaskKinds = map[string]struct{}{
	types.TaskKindWorkout: {},
	types.TaskKindMeal:    {},
	types.TaskKindMorning: {},
	types.TaskKindWork:    {},
	types.TaskKindOther:   {},
}

type TaskCreate struct {
	Title           string     `json:"title"`
	Notes           string     `json:"notes"`
	Kind            string     `json:"kind"`
	Priority        *int       `json:"priority"`
	EstimateMinutes *int       `json:"estimate_minutes"`
	PlannedStart    *time.Time `json:"planned_start"`
	PlannedEnd      *time.Time `json:"planned_end"`
	DueAt           *time.Time `json:"due_at"`
	Checklist       []string   `json:"checklist"`
	IdempotencyKey  string     `json:"idempotency_key"`
}

// TaskPatch carries a partial update. ClearPlanned drops the planned pair and
// returns the task to the backlog; it cannot be combined with a new pair.
type TaskPatch struct {
	Title           *string    `json:"title"`
	Notes           *string    `json:"notes"`
	Kind            *string    `json:"kind"`
	Priority        *int       `json:"priority"`
	EstimateMinutes *int       `json:"estimate_minutes"`
	PlannedStart    *time.Time `json:"planned_start"`
	PlannedEnd      *time.Time `json:"planned_end"`
	DueAt           *time.Time `json:"due_at"`
	IsDone          *bool      `json:"is_done"`
	ClearPlanned    bool       `json:"clear_planned"`
	ScheduleSource  *string    `json:"schedule_source"`
}

// WeekView is seven consecutive days of scheduled tasks plus the backlog.
type WeekView struct {
	Start   string                   `json:"start"`
	Days    map[string][]*types.Task `json:"days"`
	Backlog []*types.Task            `json:"backlog"`
}

type TaskService interface {
	Create(ctx context.Context, in TaskCreate) (*types.Task, error)
	Get(ctx context.Context, taskID uuid.UUID) (*types.Task, error)
	Update(ctx context.Context, taskID uuid.UUID, patch TaskPatch) (*types.Task, error)
	Delete(ctx context.Context, taskID uuid.UUID) error
	ListDay(ctx context.Context, day time.Time) ([]*types.Task, error)
	ListBacklog(ctx context.Context) ([]*types.Task, error)
	Week(ctx context.Context, start time.Time) (*WeekView, error)
	SlotOptions(ctx context.Context, taskID uuid.UUID, day time.Time) ([]schedule.SlotOption, error)
}

type taskService struct {
	db          *gorm.DB
	log         *logger.Logger
	taskRepo    repos.TaskRepo
	routineRepo repos.RoutineRepo
	notifier    PlanNotifier
}

func NewTaskService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, routineRepo repos.RoutineRepo, notifier PlanNotifier) TaskService {
	serviceLog := log.With("service", "TaskService")
	return &taskService{
		db:          db,
		log:         serviceLog,
		taskRepo:    taskRepo,
		routineRepo: routineRepo,
		notifier:    notifier,
	}
}

// inferKind guesses a kind from title keywords when the client sends none.
func inferKind(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(t, w) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("workout", "gym", "training", "lift", "cardio", "run"):
		return types.TaskKindWorkout
	case contains("breakfast", "lunch", "dinner", "meal", "eat", "food"):
		return types.TaskKindMeal
	case contains("morning", "wake", "wakeup", "wake-up"):
		return types.TaskKindMorning
	case contains("work", "dev", "code", "meeting", "project", "study"):
		return types.TaskKindWork
	default:
		return types.TaskKindOther
	}
}

// validatePlannedPair enforces that a placement is both-or-neither with
// start strictly before end.
func validatePlannedPair(start, end *time.Time) error {
	if (start == nil) != (end == nil) {
		return fmt.Errorf("%w: planned_start and planned_end must be set together", apperrors.ErrInvalidArgument)
	}
	if start != nil && !start.Before(*end) {
		return fmt.Errorf("%w: planned_start must be before planned_end", apperrors.ErrInvalidArgument)
	}
	return nil
}

func validateTaskCreate(in TaskCreate) (TaskCreate, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, fmt.Errorf("%w: title required", apperrors.ErrInvalidArgument)
	}
	if in.Kind == "" {
		in.Kind = inferKind(in.Title)
	}
	in.Kind = strings.ToLower(strings.TrimSpace(in.Kind))
	if _, ok := validTaskKinds[in.Kind]; !ok {
		return in, fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidArgument, in.Kind)
	}
	if in.Priority != nil && (*in.Priority < 1 || *in.Priority > 3) {
		return in, fmt.Errorf("%w: priority must be 1..3", apperrors.ErrInvalidArgument)
	}
	if in.EstimateMinutes != nil && *in.EstimateMinutes < 1 {
		return in, fmt.Errorf("%w: estimate_minutes must be >= 1", apperrors.ErrInvalidArgument)
	}
	if err := validatePlannedPair(in.PlannedStart, in.PlannedEnd); err != nil {
		return in, err
	}
	return in, nil
}

func (ts *taskService) Create(ctx context.Context, in TaskCreate) (*types.Task, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	in, err := validateTaskCreate(in)
	if err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		existing, gErr := ts.taskRepo.GetByIdempotencyKey(ctx, nil, rd.UserID, key)
		if gErr != nil {
			return nil, fmt.Errorf("error checking idempotency key: %w", gErr)
		}
		if existing != nil {
			return existing, nil
		}
	}

	task := &types.Task{
		ID:              uuid.New(),
		UserID:          rd.UserID,
		TaskType:        types.TaskTypeUser,
		Kind:            in.Kind,
		Title:           in.Title,
		Notes:           in.Notes,
		PlannedStart:    in.PlannedStart,
		PlannedEnd:      in.PlannedEnd,
		DueAt:           in.DueAt,
		Priority:        2,
		EstimateMinutes: 30,
		ScheduleSource:  types.ScheduleSourceManual,
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.EstimateMinutes != nil {
		task.EstimateMinutes = *in.EstimateMinutes
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		task.IdempotencyKey = &key
	}
	if len(in.Checklist) > 0 {
		raw, mErr := checklistJSON(in.Checklist)
		if mErr != nil {
			return nil, mErr
		}
		task.Checklist = raw
	}

	if txErr := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.Planned() {
			count, oErr := ts.taskRepo.CountOverlapping(ctx, tx, rd.UserID, *task.PlannedStart, *task.PlannedEnd, uuid.Nil)
			if oErr != nil {
				return oErr
			}
			if count > 0 {
				return fmt.Errorf("%w: planned window overlaps an existing task", apperrors.ErrConflict)
			}
		}
		_, cErr := ts.taskRepo.Create(ctx, tx, []*types.Task{task})
		return cErr
	}); txErr != nil {
		return nil, txErr
	}

	ts.notifier.Notify(ctx, rd.UserID, sse.SSEEventTaskCreated, task)
	return task, nil
}

func (ts *taskService) Get(ctx context.Context, taskID uuid.UUID) (*types.Task, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	task, err := ts.taskRepo.GetByID(ctx, nil, rd.UserID, taskID)
	if err != nil {
		return nil, fmt.Errorf("error fetching task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound
	}
	return task, nil
}

func (ts *taskService) Update(ctx context.Context, taskID uuid.UUID, patch TaskPatch) (*types.Task, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	fields, err := taskPatchFields(patch)
	if err != nil {
		return nil, err
	}

	var out *types.Task
	if txErr := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, gErr := ts.taskRepo.GetByID(ctx, tx, rd.UserID, taskID)
		if gErr != nil {
			return gErr
		}
		if task == nil {
			return apperrors.ErrNotFound
		}

		if len(fields) == 0 {
			out = task
			return nil
		}

		if patch.PlannedStart != nil && patch.PlannedEnd != nil {
			count, oErr := ts.taskRepo.CountOverlapping(ctx, tx, rd.UserID, *patch.PlannedStart, *patch.PlannedEnd, taskID)
			if oErr != nil {
				return oErr
			}
			if count > 0 {
				return fmt.Errorf("%w: planned window overlaps an existing task", apperrors.ErrConflict)
			}
		}

		fields["updated_at"] = time.Now()
		if _, uErr := ts.taskRepo.UpdateFields(ctx, tx, rd.UserID, taskID, fields); uErr != nil {
			return uErr
		}
		task, gErr = ts.taskRepo.GetByID(ctx, tx, rd.UserID, taskID)
		if gErr != nil || task == nil {
			return fmt.Errorf("failed to reload task")
		}
		out = task
		return nil
	}); txErr != nil {
		return nil, txErr
	}

	ts.notifier.Notify(ctx, rd.UserID, sse.SSEEventTaskUpdated, out)
	return out, nil
}

func (ts *taskService) Delete(ctx context.Context, taskID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apperrors.ErrUnauthorized
	}

	affected, err := ts.taskRepo.FullDeleteByID(ctx, nil, rd.UserID, taskID)
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	ts.notifier.Notify(ctx, rd.UserID, sse.SSEEventTaskDeleted, map[string]any{"id": taskID})
	return nil
}

func (ts *taskService) ListDay(ctx context.Context, day time.Time) ([]*types.Task, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return ts.taskRepo.ListScheduledInRange(ctx, nil, rd.UserID, from, from.AddDate(0, 0, 1))
}

func (ts *taskService) ListBacklog(ctx context.Context) ([]*types.Task, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return ts.taskRepo.ListBacklog(ctx, nil, rd.UserID)
}

func (ts *taskService) Week(ctx context.Context, start time.Time) (*WeekView, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	view := &WeekView{
		Start: schedule.DayKey(start),
		Days:  make(map[string][]*types.Task, 7),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		g.Go(func() error {
			tasks, err := ts.taskRepo.ListScheduledInRange(gctx, nil, rd.UserID, day, day.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			mu.Lock()
			view.Days[schedule.DayKey(day)] = tasks
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		backlog, err := ts.taskRepo.ListBacklog(gctx, nil, rd.UserID)
		if err != nil {
			return err
		}
		mu.Lock()
		view.Backlog = backlog
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error building week view: %w", err)
	}
	return view, nil
}

func (ts *taskService) SlotOptions(ctx context.Context, taskID uuid.UUID, day time.Time) ([]schedule.SlotOption, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	task, err := ts.taskRepo.GetByID(ctx, nil, rd.UserID, taskID)
	if err != nil {
		return nil, fmt.Errorf("error fetching task: %w", err)
	}
	if task == nil {
		return nil, apperrors.ErrNotFound
	}
	routine, err := ts.routineRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("error fetching routine: %w", err)
	}
	if routine == nil {
		return nil, apperrors.ErrNotFound
	}

	now := time.Now()
	win := schedule.DayWindow(day, routine, now)
	scheduled, err := ts.taskRepo.ListScheduledInRange(ctx, nil, rd.UserID, win.MorningStart, win.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("error fetching scheduled tasks: %w", err)
	}

	busy := schedule.BusyIntervals(scheduled, routine)
	free := schedule.FreeIntervals(busy, win.DayStart, win.DayEnd)
	req := schedule.SlotRequest{
		DurationMin: task.DurationMinutes(),
		Kind:        task.Kind,
		MealEnds:    schedule.MealEnds(scheduled),
	}
	if task.Kind == types.TaskKindWorkout {
		req.TravelOnewayMin = routine.WorkoutTravelOnewayMin
	}
	return schedule.CandidateSlots(req, free, win.DayStart), nil
}

func taskPatchFields(patch TaskPatch) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", apperrors.ErrInvalidArgument)
		}
		fields["title"] = title
	}
	if patch.Notes != nil {
		fields["notes"] = *patch.Notes
	}
	if patch.Kind != nil {
		kind := strings.ToLower(strings.TrimSpace(*patch.Kind))
		if _, ok := validTaskKinds[kind]; !ok {
			return nil, fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidArgument, *patch.Kind)
		}
		fields["kind"] = kind
	}
	if patch.Priority != nil {
		if *patch.Priority < 1 || *patch.Priority > 3 {
			return nil, fmt.Errorf("%w: priority must be 1..3", apperrors.ErrInvalidArgument)
		}
		fields["priority"] = *patch.Priority
	}
	if patch.EstimateMinutes != nil {
		if *patch.EstimateMinutes < 1 {
			return nil, fmt.Errorf("%w: estimate_minutes must be >= 1", apperrors.ErrInvalidArgument)
		}
		fields["estimate_minutes"] = *patch.EstimateMinutes
	}
	if patch.DueAt != nil {
		fields["due_at"] = *patch.DueAt
	}
	if patch.IsDone != nil {
		fields["is_done"] = *patch.IsDone
	}

	source := types.ScheduleSourceManual
	if patch.ScheduleSource != nil {
		source = strings.ToLower(strings.TrimSpace(*patch.ScheduleSource))
		if source != types.ScheduleSourceManual && source != types.ScheduleSourceAutoplan {
			return nil, fmt.Errorf("%w: unknown schedule_source %q", apperrors.ErrInvalidArgument, *patch.ScheduleSource)
		}
	}

	if patch.ClearPlanned {
		if patch.PlannedStart != nil || patch.PlannedEnd != nil {
			return nil, fmt.Errorf("%w: clear_planned cannot be combined with a planned pair", apperrors.ErrInvalidArgument)
		}
		fields["planned_start"] = nil
		fields["planned_end"] = nil
		fields["schedule_source"] = source
	} else {
		if err := validatePlannedPair(patch.PlannedStart, patch.PlannedEnd); err != nil {
			return nil, err
		}
		if patch.PlannedStart != nil {
			fields["planned_start"] = *patch.PlannedStart
			fields["planned_end"] = *patch.PlannedEnd
			fields["schedule_source"] = source
		}
	}

	return fields, nil
}

func checklistJSON(items []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid checklist", apperrors.ErrInvalidArgument)
	}
	return datatypes.JSON(raw), nil
}
