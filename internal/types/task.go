package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task classification values. Anchor rows are system-managed and keyed by
// AnchorKey; user rows are created directly by the owner.
const (
	TaskTypeUser   = "user"
	TaskTypeAnchor = "anchor"
	TaskTypeSystem = "system"

	TaskKindWorkout = "workout"
	TaskKindMeal    = "meal"
	TaskKindMorning = "morning"
	TaskKindWork    = "work"
	TaskKindOther   = "other"

	ScheduleSourceManual   = "manual"
	ScheduleSourceAutoplan = "autoplan"
)

type Task struct {
	gorm.Model
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"not null;index;uniqueIndex:uq_task_user_anchor_key,priority:1;uniqueIndex:uq_task_user_idempotency_key,priority:1;index:ix_task_user_planned_start,priority:1;column:user_id" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	TaskType string `gorm:"not null;default:'user';index;column:task_type" json:"task_type"`
	Kind     string `gorm:"not null;default:'other';index;column:kind" json:"kind"`

	Title string `gorm:"not null;column:title" json:"title"`
	Notes string `gorm:"column:notes" json:"notes,omitempty"`

	// AnchorKey identifies a system-managed anchor row; IdempotencyKey
	// dedupes user creates delivered more than once. Both unique per user.
	AnchorKey      *string `gorm:"uniqueIndex:uq_task_user_anchor_key,priority:2;column:anchor_key" json:"anchor_key,omitempty"`
	IdempotencyKey *string `gorm:"uniqueIndex:uq_task_user_idempotency_key,priority:2;column:idempotency_key" json:"idempotency_key,omitempty"`

	// PlannedStart/PlannedEnd are set together or not at all.
	PlannedStart *time.Time `gorm:"index:ix_task_user_planned_start,priority:2;column:planned_start" json:"planned_start,omitempty"`
	PlannedEnd   *time.Time `gorm:"column:planned_end" json:"planned_end,omitempty"`
	DueAt        *time.Time `gorm:"column:due_at" json:"due_at,omitempty"`

	EstimateMinutes int  `gorm:"not null;default:30;column:estimate_minutes" json:"estimate_minutes"`
	Priority        int  `gorm:"not null;default:2;column:priority" json:"priority"`
	IsDone          bool `gorm:"not null;default:false;index;column:is_done" json:"is_done"`

	// ScheduleSource records who last set the placement; autoplan never
	// overwrites a manual placement.
	ScheduleSource string `gorm:"not null;default:'manual';index;column:schedule_source" json:"schedule_source"`

	Checklist datatypes.JSON `gorm:"column:checklist" json:"checklist,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Task) TableName() string {
	return "task"
}

// Planned reports whether the task currently occupies calendar time.
func (t *Task) Planned() bool {
	return t.PlannedStart != nil && t.PlannedEnd != nil
}

// DurationMinutes is the duration used for placement: the planned pair when
// present, otherwise the estimate, defaulting to 30.
func (t *Task) DurationMinutes() int {
	if t.Planned() {
		return int(t.PlannedEnd.Sub(*t.PlannedStart) / time.Minute)
	}
	if t.EstimateMinutes > 0 {
		return t.EstimateMinutes
	}
	return 30
}
