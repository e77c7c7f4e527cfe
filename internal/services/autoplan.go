package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/observability"
	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/repos"
	"github.com/yungbote/dayplan-backend/internal/requestdata"
	"github.com/yungbote/dayplan-backend/internal/schedule"
	"github.com/yungbote/dayplan-backend/internal/sse"
	"github.com/yungbote/dayplan-backend/internal/types"
)

// AutoplanDay summarizes one planned day.
type AutoplanDay struct {
	Date    string `json:"date"`
	Anchors int    `json:"anchors"`
	Placed  int    `json:"placed"`
}

// AutoplanResult is the outcome of one run: per-day placements plus the
// tasks no day in the range could hold.
type AutoplanResult struct {
	Start   string        `json:"start"`
	Days    []AutoplanDay `json:"days"`
	Placed  int           `json:"placed"`
	Skipped []uuid.UUID   `json:"skipped"`
}

type AutoplanService interface {
	Autoplan(ctx context.Context, startDay time.Time, days int) (*AutoplanResult, error)
}

type autoplanService struct {
	db          *gorm.DB
	log         *logger.Logger
	taskRepo    repos.TaskRepo
	routineRepo repos.RoutineRepo
	stepRepo    repos.RoutineStepRepo
	notifier    PlanNotifier
	locks       userLocks
}

func NewAutoplanService(db *gorm.DB, log *logger.Logger, taskRepo repos.TaskRepo, routineRepo repos.RoutineRepo, stepRepo repos.RoutineStepRepo, notifier PlanNotifier) AutoplanService {
	serviceLog := log.With("service", "AutoplanService")
	return &autoplanService{
		db:          db,
		log:         serviceLog,
		taskRepo:    taskRepo,
		routineRepo: routineRepo,
		stepRepo:    stepRepo,
		notifier:    notifier,
	}
}

// userLocks serializes autoplan runs per user within this process. Placement
// commits still re-check overlap inside their transaction, so concurrent
// instances degrade to conflicts rather than double-booking.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (ul *userLocks) forUser(userID uuid.UUID) *sync.Mutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	if ul.locks == nil {
		ul.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	lock, ok := ul.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		ul.locks[userID] = lock
	}
	return lock
}

// orderCandidates filters the backlog down to plannable tasks and fixes the
// placement order for the whole run: priority ascending, then creation
// order, then id.
func orderCandidates(backlog []*types.Task) []*types.Task {
	candidates := make([]*types.Task, 0, len(backlog))
	for _, t := range backlog {
		if t.IsDone || t.Planned() {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return candidates
}

// stepAnchor is one fixed-time anchor derived from the routine: the morning
// block itself plus one entry per active routine step.
type stepAnchor struct {
	Key   string
	Title string
	Kind  string
	Slot  schedule.Interval
}

// routineAnchors derives the fixed-time anchors for a day. Steps offset from
// the end of the morning block; the morning anchor spans wake to morning end.
func routineAnchors(steps []*types.RoutineStep, day time.Time, win schedule.Window) []stepAnchor {
	dayKey := schedule.DayKey(day)
	anchors := []stepAnchor{{
		Key:   "morning:" + dayKey,
		Title: "Morning start",
		Kind:  types.TaskKindMorning,
		Slot:  schedule.Interval{Start: win.MorningStart, End: win.MorningEnd},
	}}
	for _, step := range steps {
		if !step.IsActive {
			continue
		}
		start := win.MorningEnd.Add(time.Duration(step.OffsetMin) * time.Minute)
		anchors = append(anchors, stepAnchor{
			Key:   "routine:" + step.ID.String() + ":" + dayKey,
			Title: step.Title,
			Kind:  step.Kind,
			Slot:  schedule.Interval{Start: start, End: start.Add(time.Duration(step.DurationMin) * time.Minute)},
		})
	}
	return anchors
}

type mealDef struct {
	Name        string
	Title       string
	WindowStart string
	WindowEnd   string
}

func mealDefs(routine *types.RoutineConfig) []mealDef {
	return []mealDef{
		{Name: "breakfast", Title: "Breakfast", WindowStart: routine.BreakfastStart, WindowEnd: routine.BreakfastEnd},
		{Name: "lunch", Title: "Lunch", WindowStart: routine.LunchStart, WindowEnd: routine.LunchEnd},
		{Name: "dinner", Title: "Dinner", WindowStart: routine.DinnerStart, WindowEnd: routine.DinnerEnd},
	}
}

func (as *autoplanService) Autoplan(ctx context.Context, startDay time.Time, days int) (*AutoplanResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be >= 1", apperrors.ErrInvalidArgument)
	}

	ctx, span := observability.Tracer("autoplan").Start(ctx, "Autoplan")
	defer span.End()

	lock := as.locks.forUser(rd.UserID)
	lock.Lock()
	defer lock.Unlock()

	routine, err := as.routineRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("error fetching routine: %w", err)
	}
	if routine == nil {
		routine = &types.RoutineConfig{ID: uuid.New(), UserID: rd.UserID}
		if _, cErr := as.routineRepo.Create(ctx, nil, routine); cErr != nil {
			return nil, fmt.Errorf("error creating default routine: %w", cErr)
		}
	}
	steps, err := as.stepRepo.ListByUser(ctx, nil, rd.UserID, true)
	if err != nil {
		return nil, fmt.Errorf("error fetching routine steps: %w", err)
	}
	backlog, err := as.taskRepo.ListBacklog(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("error fetching backlog: %w", err)
	}

	now := time.Now()
	startDay = time.Date(startDay.Year(), startDay.Month(), startDay.Day(), 0, 0, 0, 0, startDay.Location())
	candidates := orderCandidates(backlog)

	result := &AutoplanResult{Start: schedule.DayKey(startDay)}
	for offset := 0; offset < days; offset++ {
		day := startDay.AddDate(0, 0, offset)
		win := schedule.DayWindow(day, routine, now)

		anchors, aErr := as.ensureAnchors(ctx, rd.UserID, routine, steps, day, win, now)
		if aErr != nil {
			return nil, aErr
		}

		placed := 0
		remaining := candidates[:0:0]
		for _, task := range candidates {
			ok, pErr := as.placeTask(ctx, rd.UserID, routine, task, day, win)
			if pErr != nil {
				return nil, pErr
			}
			if ok {
				placed++
			} else {
				remaining = append(remaining, task)
			}
		}
		candidates = remaining

		result.Days = append(result.Days, AutoplanDay{
			Date:    schedule.DayKey(day),
			Anchors: anchors,
			Placed:  placed,
		})
		result.Placed += placed
	}
	for _, task := range candidates {
		result.Skipped = append(result.Skipped, task.ID)
	}

	as.log.Info("autoplan run complete",
		"user_id", rd.UserID,
		"start", result.Start,
		"days", days,
		"placed", result.Placed,
		"skipped", len(result.Skipped))
	as.notifier.Notify(ctx, rd.UserID, sse.SSEEventAutoplanCompleted, result)
	return result, nil
}

// ensureAnchors makes the day's anchor rows exist: the morning block, one
// per active routine step, and the three meals placed first-fit inside their
// windows. Existing anchors keep their placement untouched; only
// title/kind/estimate are refreshed when the routine changed. Returns the
// number of anchors present for the day.
func (as *autoplanService) ensureAnchors(ctx context.Context, userID uuid.UUID, routine *types.RoutineConfig, steps []*types.RoutineStep, day time.Time, win schedule.Window, now time.Time) (int, error) {
	count := 0
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, anchor := range routineAnchors(steps, day, win) {
			if uErr := as.upsertAnchor(ctx, tx, userID, anchor.Key, anchor.Title, anchor.Kind, anchor.Slot); uErr != nil {
				return uErr
			}
			count++
		}

		for _, meal := range mealDefs(routine) {
			key := "meal:" + meal.Name + ":" + schedule.DayKey(day)
			existing, gErr := as.taskRepo.GetByAnchorKey(ctx, tx, userID, key)
			if gErr != nil {
				return gErr
			}
			if existing != nil {
				if uErr := as.refreshAnchorMeta(ctx, tx, userID, existing, meal.Title, types.TaskKindMeal, existing.DurationMinutes()); uErr != nil {
					return uErr
				}
				count++
				continue
			}

			windowStart := schedule.At(day, meal.WindowStart)
			windowEnd := schedule.At(day, meal.WindowEnd)
			// Today's meals never land in the past.
			if schedule.SameDay(now, day) && windowStart.Before(win.DayStart) {
				windowStart = win.DayStart
			}

			scheduled, lErr := as.taskRepo.ListScheduledInRange(ctx, tx, userID, win.MorningStart, win.DayEnd)
			if lErr != nil {
				return lErr
			}
			busy := schedule.BusyIntervals(scheduled, routine)
			free := schedule.FreeIntervals(busy, windowStart, windowEnd)
			slot, ok := schedule.FindSlot(schedule.SlotRequest{
				DurationMin: routine.MealDurationMin,
				Kind:        types.TaskKindMeal,
			}, free, windowStart)
			if !ok {
				// Window already full; the meal is dropped for the day.
				continue
			}
			if uErr := as.upsertAnchor(ctx, tx, userID, key, meal.Title, types.TaskKindMeal, slot); uErr != nil {
				return uErr
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error ensuring anchors: %w", err)
	}
	return count, nil
}

// upsertAnchor inserts the anchor row if missing. An existing row keeps its
// placement; the slot argument only seeds new rows.
func (as *autoplanService) upsertAnchor(ctx context.Context, tx *gorm.DB, userID uuid.UUID, key, title, kind string, slot schedule.Interval) error {
	existing, err := as.taskRepo.GetByAnchorKey(ctx, tx, userID, key)
	if err != nil {
		return err
	}
	if existing != nil {
		return as.refreshAnchorMeta(ctx, tx, userID, existing, title, kind, slot.Minutes())
	}

	anchorKey := key
	start, end := slot.Start, slot.End
	task := &types.Task{
		ID:              uuid.New(),
		UserID:          userID,
		TaskType:        types.TaskTypeAnchor,
		Kind:            kind,
		Title:           title,
		AnchorKey:       &anchorKey,
		PlannedStart:    &start,
		PlannedEnd:      &end,
		EstimateMinutes: slot.Minutes(),
		Priority:        0,
		ScheduleSource:  types.ScheduleSourceAutoplan,
	}
	_, err = as.taskRepo.Create(ctx, tx, []*types.Task{task})
	return err
}

func (as *autoplanService) refreshAnchorMeta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, existing *types.Task, title, kind string, estimateMin int) error {
	fields := map[string]interface{}{}
	if existing.Title != title {
		fields["title"] = title
	}
	if existing.Kind != kind {
		fields["kind"] = kind
	}
	if estimateMin > 0 && existing.EstimateMinutes != estimateMin {
		fields["estimate_minutes"] = estimateMin
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	_, err := as.taskRepo.UpdateFields(ctx, tx, userID, existing.ID, fields)
	return err
}

// placeTask tries to schedule one backlog task into the day. The free
// timeline is recomputed from the DB for every attempt and the commit
// re-validates non-overlap, so a placement that raced another writer turns
// into a deferral instead of a double booking.
func (as *autoplanService) placeTask(ctx context.Context, userID uuid.UUID, routine *types.RoutineConfig, task *types.Task, day time.Time, win schedule.Window) (bool, error) {
	scheduled, err := as.taskRepo.ListScheduledInRange(ctx, nil, userID, win.MorningStart, win.DayEnd)
	if err != nil {
		return false, fmt.Errorf("error fetching scheduled tasks: %w", err)
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
		if routine.WorkoutBlockMin > req.DurationMin {
			req.DurationMin = routine.WorkoutBlockMin
		}
	}

	slot, ok := schedule.FindSlot(req, free, win.DayStart)
	if !ok {
		return false, nil
	}

	txErr := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, oErr := as.taskRepo.CountOverlapping(ctx, tx, userID, slot.Start, slot.End, task.ID)
		if oErr != nil {
			return oErr
		}
		if count > 0 {
			return apperrors.ErrConflict
		}
		_, uErr := as.taskRepo.UpdateFields(ctx, tx, userID, task.ID, map[string]interface{}{
			"planned_start":   slot.Start,
			"planned_end":     slot.End,
			"schedule_source": types.ScheduleSourceAutoplan,
			"updated_at":      time.Now(),
		})
		return uErr
	})
	if errors.Is(txErr, apperrors.ErrConflict) {
		as.log.Warn("placement lost a race, deferring task", "task_id", task.ID, "day", schedule.DayKey(day))
		return false, nil
	}
	if txErr != nil {
		return false, fmt.Errorf("error committing placement: %w", txErr)
	}
	return true, nil
}
