package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoutineConfig holds one user's daily anchor configuration: the awake
// window, meal windows and the workout policy consumed by autoplan.
type RoutineConfig struct {
	gorm.Model
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"uniqueIndex;not null;column:user_id" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

	// Sleep target, "HH:MM" wall clock. Bedtime at or before wakeup is
	// treated as next-day.
	Bedtime string `gorm:"not null;default:'23:45';column:bedtime" json:"bedtime"`
	Wakeup  string `gorm:"not null;default:'07:30';column:wakeup" json:"wakeup"`

	PreSleepBufferMin int `gorm:"not null;default:15;column:pre_sleep_buffer_min" json:"pre_sleep_buffer_min"`
	PostWakeBufferMin int `gorm:"not null;default:45;column:post_wake_buffer_min" json:"post_wake_buffer_min"`

	MealDurationMin    int    `gorm:"not null;default:45;column:meal_duration_min" json:"meal_duration_min"`
	MealBufferAfterMin int    `gorm:"not null;default:5;column:meal_buffer_after_min" json:"meal_buffer_after_min"`
	BreakfastStart     string `gorm:"not null;default:'07:00';column:breakfast_start" json:"breakfast_start"`
	BreakfastEnd       string `gorm:"not null;default:'10:00';column:breakfast_end" json:"breakfast_end"`
	LunchStart         string `gorm:"not null;default:'12:00';column:lunch_start" json:"lunch_start"`
	LunchEnd           string `gorm:"not null;default:'15:00';column:lunch_end" json:"lunch_end"`
	DinnerStart        string `gorm:"not null;default:'17:00';column:dinner_start" json:"dinner_start"`
	DinnerEnd          string `gorm:"not null;default:'20:00';column:dinner_end" json:"dinner_end"`

	WorkoutEnabled         bool `gorm:"not null;default:true;column:workout_enabled" json:"workout_enabled"`
	WorkoutBlockMin        int  `gorm:"not null;default:120;column:workout_block_min" json:"workout_block_min"`
	WorkoutTravelOnewayMin int  `gorm:"not null;default:15;column:workout_travel_oneway_min" json:"workout_travel_oneway_min"`
	WorkoutDaysPerWeek     int  `gorm:"not null;default:3;column:workout_days_per_week" json:"workout_days_per_week"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RoutineConfig) TableName() string {
	return "routine_config"
}
