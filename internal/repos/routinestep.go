package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/types"
)

type RoutineStepRepo interface {
	Create(ctx context.Context, tx *gorm.DB, steps []*types.RoutineStep) ([]*types.RoutineStep, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, stepID uuid.UUID) (*types.RoutineStep, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activeOnly bool) ([]*types.RoutineStep, error)
	FullDeleteByID(ctx context.Context, tx *gorm.DB, userID, stepID uuid.UUID) (int64, error)
}

type routineStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineStepRepo(db *gorm.DB, baseLog *logger.Logger) RoutineStepRepo {
	repoLog := baseLog.With("repo", "RoutineStepRepo")
	return &routineStepRepo{db: db, log: repoLog}
}

func (rsr *routineStepRepo) Create(ctx context.Context, tx *gorm.DB, steps []*types.RoutineStep) ([]*types.RoutineStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = rsr.db
	}

	if len(steps) == 0 {
		return []*types.RoutineStep{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (rsr *routineStepRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, stepID uuid.UUID) (*types.RoutineStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = rsr.db
	}

	var results []*types.RoutineStep
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, stepID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (rsr *routineStepRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, activeOnly bool) ([]*types.RoutineStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = rsr.db
	}

	query := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var results []*types.RoutineStep
	if err := query.
		Order("position ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rsr *routineStepRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, userID, stepID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rsr.db
	}

	res := transaction.WithContext(ctx).
		Unscoped().
		Where("user_id = ? AND id = ?", userID, stepID).
		Delete(&types.RoutineStep{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
