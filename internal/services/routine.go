package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/repos"
	"github.com/yungbote/dayplan-backend/internal/requestdata"
	"github.com/yungbote/dayplan-backend/internal/schedule"
	"github.com/yungbote/dayplan-backend/internal/types"
)

// RoutinePatch carries partial routine-config updates; nil fields are left
// unchanged.
type RoutinePatch struct {
	Bedtime            *string `json:"bedtime"`
	Wakeup             *string `json:"wakeup"`
	PreSleepBufferMin  *int    `json:"pre_sleep_buffer_min"`
	PostWakeBufferMin  *int    `json:"post_wake_buffer_min"`
	MealDurationMin    *int    `json:"meal_duration_min"`
	MealBufferAfterMin *int    `json:"meal_buffer_after_min"`
	BreakfastStart     *string `json:"breakfast_start"`
	BreakfastEnd       *string `json:"breakfast_end"`
	LunchStart         *string `json:"lunch_start"`
	LunchEnd           *string `json:"lunch_end"`
	DinnerStart        *string `json:"dinner_start"`
	DinnerEnd          *string `json:"dinner_end"`
	WorkoutEnabled     *bool   `json:"workout_enabled"`
	WorkoutBlockMin    *int    `json:"workout_block_min"`
	WorkoutTravelMin   *int    `json:"workout_travel_oneway_min"`
	WorkoutDaysPerWeek *int    `json:"workout_days_per_week"`
}

type StepCreate struct {
	Title       string `json:"title"`
	OffsetMin   int    `json:"offset_min"`
	DurationMin int    `json:"duration_min"`
	Kind        string `json:"kind"`
	Position    int    `json:"position"`
}

type RoutineService interface {
	GetRoutine(ctx context.Context) (*types.RoutineConfig, error)
	PatchRoutine(ctx context.Context, patch RoutinePatch) (*types.RoutineConfig, error)
	ListSteps(ctx context.Context) ([]*types.RoutineStep, error)
	AddStep(ctx context.Context, in StepCreate) (*types.RoutineStep, error)
	DeleteStep(ctx context.Context, stepID uuid.UUID) error
}

type routineService struct {
	db          *gorm.DB
	log         *logger.Logger
	routineRepo repos.RoutineRepo
	stepRepo    repos.RoutineStepRepo
}

func NewRoutineService(db *gorm.DB, log *logger.Logger, routineRepo repos.RoutineRepo, stepRepo repos.RoutineStepRepo) RoutineService {
	serviceLog := log.With("service", "RoutineService")
	return &routineService{
		db:          db,
		log:         serviceLog,
		routineRepo: routineRepo,
		stepRepo:    stepRepo,
	}
}

func (rs *routineService) GetRoutine(ctx context.Context) (*types.RoutineConfig, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	routine, err := rs.routineRepo.GetByUserID(ctx, nil, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("error fetching routine: %w", err)
	}
	if routine != nil {
		return routine, nil
	}

	// Older accounts may predate the register-time default row.
	routine = &types.RoutineConfig{ID: uuid.New(), UserID: rd.UserID}
	if _, cErr := rs.routineRepo.Create(ctx, nil, routine); cErr != nil {
		return nil, fmt.Errorf("error creating default routine: %w", cErr)
	}
	return routine, nil
}

func (rs *routineService) PatchRoutine(ctx context.Context, patch RoutinePatch) (*types.RoutineConfig, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	fields, err := routinePatchFields(patch)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return rs.GetRoutine(ctx)
	}
	fields["updated_at"] = time.Now()

	var out *types.RoutineConfig
	if txErr := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, uErr := rs.routineRepo.UpdateFields(ctx, tx, rd.UserID, fields)
		if uErr != nil {
			return uErr
		}
		if affected == 0 {
			return apperrors.ErrNotFound
		}
		routine, gErr := rs.routineRepo.GetByUserID(ctx, tx, rd.UserID)
		if gErr != nil || routine == nil {
			return fmt.Errorf("failed to reload routine")
		}
		out = routine
		return nil
	}); txErr != nil {
		return nil, txErr
	}
	return out, nil
}

func (rs *routineService) ListSteps(ctx context.Context) ([]*types.RoutineStep, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}
	return rs.stepRepo.ListByUser(ctx, nil, rd.UserID, false)
}

func (rs *routineService) AddStep(ctx context.Context, in StepCreate) (*types.RoutineStep, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", apperrors.ErrInvalidArgument)
	}
	if in.OffsetMin < 0 {
		return nil, fmt.Errorf("%w: offset_min must be >= 0", apperrors.ErrInvalidArgument)
	}
	if in.DurationMin < 1 {
		return nil, fmt.Errorf("%w: duration_min must be >= 1", apperrors.ErrInvalidArgument)
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = types.TaskKindMorning
	}
	if _, ok := validTaskKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidArgument, in.Kind)
	}

	step := &types.RoutineStep{
		ID:          uuid.New(),
		UserID:      rd.UserID,
		Title:       title,
		OffsetMin:   in.OffsetMin,
		DurationMin: in.DurationMin,
		Kind:        kind,
		Position:    in.Position,
		IsActive:    true,
	}
	if _, err := rs.stepRepo.Create(ctx, nil, []*types.RoutineStep{step}); err != nil {
		return nil, fmt.Errorf("error creating routine step: %w", err)
	}
	return step, nil
}

func (rs *routineService) DeleteStep(ctx context.Context, stepID uuid.UUID) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apperrors.ErrUnauthorized
	}

	affected, err := rs.stepRepo.FullDeleteByID(ctx, nil, rd.UserID, stepID)
	if err != nil {
		return fmt.Errorf("error deleting routine step: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func routinePatchFields(patch RoutinePatch) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	setClock := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		if _, _, err := schedule.ParseClock(*value); err != nil {
			return fmt.Errorf("%w: %s must be HH:MM", apperrors.ErrInvalidArgument, column)
		}
		fields[column] = strings.TrimSpace(*value)
		return nil
	}
	setMin := func(column string, value *int, min int) error {
		if value == nil {
			return nil
		}
		if *value < min {
			return fmt.Errorf("%w: %s must be >= %d", apperrors.ErrInvalidArgument, column, min)
		}
		fields[column] = *value
		return nil
	}

	if err := setClock("bedtime", patch.Bedtime); err != nil {
		return nil, err
	}
	if err := setClock("wakeup", patch.Wakeup); err != nil {
		return nil, err
	}
	if err := setMin("pre_sleep_buffer_min", patch.PreSleepBufferMin, 0); err != nil {
		return nil, err
	}
	if err := setMin("post_wake_buffer_min", patch.PostWakeBufferMin, 0); err != nil {
		return nil, err
	}
	if err := setMin("meal_duration_min", patch.MealDurationMin, 1); err != nil {
		return nil, err
	}
	if err := setMin("meal_buffer_after_min", patch.MealBufferAfterMin, 0); err != nil {
		return nil, err
	}
	if err := setClock("breakfast_start", patch.BreakfastStart); err != nil {
		return nil, err
	}
	if err := setClock("breakfast_end", patch.BreakfastEnd); err != nil {
		return nil, err
	}
	if err := setClock("lunch_start", patch.LunchStart); err != nil {
		return nil, err
	}
	if err := setClock("lunch_end", patch.LunchEnd); err != nil {
		return nil, err
	}
	if err := setClock("dinner_start", patch.DinnerStart); err != nil {
		return nil, err
	}
	if err := setClock("dinner_end", patch.DinnerEnd); err != nil {
		return nil, err
	}
	if patch.WorkoutEnabled != nil {
		fields["workout_enabled"] = *patch.WorkoutEnabled
	}
	if err := setMin("workout_block_min", patch.WorkoutBlockMin, 1); err != nil {
		return nil, err
	}
	if err := setMin("workout_travel_oneway_min", patch.WorkoutTravelMin, 0); err != nil {
		return nil, err
	}
	if err := setMin("workout_days_per_week", patch.WorkoutDaysPerWeek, 0); err != nil {
		return nil, err
	}

	return fields, nil
}
