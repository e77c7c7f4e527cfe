package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dayplan-backend/internal/logger"
	"github.com/yungbote/dayplan-backend/internal/types"
)

type TaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID) (*types.Task, error)
	GetByAnchorKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, anchorKey string) (*types.Task, error)
	GetByIdempotencyKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, idempotencyKey string) (*types.Task, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Task, error)
	ListScheduledInRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.Task, error)
	ListBacklog(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Task, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID, fields map[string]interface{}) (int64, error)
	FullDeleteByID(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID) (int64, error)
	CountOverlapping(ctx context.Context, tx *gorm.DB, userID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	repoLog := baseLog.With("repo", "TaskRepo")
	return &taskRepo{db: db, log: repoLog}
}

func (tr *taskRepo) Create(ctx context.Context, tx *gorm.DB, tasks []*types.Task) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(tasks) == 0 {
		return []*types.Task{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

func (tr *taskRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, taskID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (tr *taskRepo) GetByAnchorKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, anchorKey string) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND anchor_key = ?", userID, anchorKey).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (tr *taskRepo) GetByIdempotencyKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, idempotencyKey string) (*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (tr *taskRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListScheduledInRange returns tasks whose planned start falls in [from, to),
// ordered by planned start. Anchors and placed tasks alike.
func (tr *taskRepo) ListScheduledInRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND planned_start >= ? AND planned_start < ?", userID, from, to).
		Order("planned_start ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListBacklog returns not-done user/system tasks without a placement,
// ordered by priority then creation order. Anchors never appear here.
func (tr *taskRepo) ListBacklog(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Task, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Task
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND planned_start IS NULL AND is_done = ? AND task_type IN ?",
			userID, false, []string{types.TaskTypeUser, types.TaskTypeSystem}).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *taskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID, fields map[string]interface{}) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(fields) == 0 {
		return 0, nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(fields)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (tr *taskRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, userID, taskID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	res := transaction.WithContext(ctx).
		Unscoped().
		Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&types.Task{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountOverlapping counts planned, not-done tasks whose [planned_start,
// planned_end) intersects [start, end), excluding at most one task id.
// Placement commits call this inside their transaction to re-validate
// non-overlap right before writing.
func (tr *taskRepo) CountOverlapping(ctx context.Context, tx *gorm.DB, userID uuid.UUID, start, end time.Time, excludeID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.Task{}).
		Where("user_id = ? AND is_done = ? AND planned_start IS NOT NULL AND planned_end IS NOT NULL", userID, false).
		Where("planned_start < ? AND planned_end > ?", end, start)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
