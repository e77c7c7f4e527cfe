package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/types"
)

type RoutineRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RoutineConfig, error)
	Create(ctx context.Context, tx *gorm.DB, routine *types.RoutineConfig) (*types.RoutineConfig, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (int64, error)
}

type routineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineRepo(db *gorm.DB, baseLog *logger.Logger) RoutineRepo {
	repoLog := baseLog.With("repo", "RoutineRepo")
	return &routineRepo{db: db, log: repoLog}
}

func (rr *routineRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.RoutineConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.RoutineConfig
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (rr *routineRepo) Create(ctx context.Context, tx *gorm.DB, routine *types.RoutineConfig) (*types.RoutineConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if routine == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).Create(routine).Error; err != nil {
		return nil, err
	}
	return routine, nil
}

func (rr *routineRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID uuid.UUID, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	if len(fields) == 0 {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.RoutineConfig{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
