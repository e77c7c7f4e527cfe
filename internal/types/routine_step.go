package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoutineStep is one recurring morning-routine item. Each active step
// produces one anchor task per day, offset from the end of the morning block.
type RoutineStep struct {
	gorm.Model
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"index:ix_routine_step_user_pos,priority:1;not null;column:user_id" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	Title       string `gorm:"not null;column:title" json:"title"`
	OffsetMin   int    `gorm:"not null;default:0;column:offset_min" json:"offset_min"`
	DurationMin int    `gorm:"not null;default:10;column:duration_min" json:"duration_min"`
	Kind        string `gorm:"not null;default:'morning';column:kind" json:"kind"`
	Position    int    `gorm:"index:ix_routine_step_user_pos,priority:2;not null;default:0;column:position" json:"position"`
	IsActive    bool   `gorm:"not null;default:true;column:is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RoutineStep) TableName() string {
	return "routine_step"
}
