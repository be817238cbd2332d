package model

import (
	"time"

	"github.com/google/uuid"
)

// UserPlanModel mirrors the 'user_plan' table. user_id and plan_id are
// logical references without database foreign keys.
type UserPlanModel struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;index:ix_user_plan_user_id"`
	PlanID    uuid.UUID `gorm:"type:varchar(36);not null;index:ix_user_plan_plan_id"`
	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null;index:ix_user_plan_active_end_date,priority:2"`
	Active    bool      `gorm:"not null;index:ix_user_plan_active_end_date,priority:1"`
}

// TableName explicitly sets the table name for GORM.
func (UserPlanModel) TableName() string {
	return "user_plan"
}

// All returns every row model, in migration order.
func All() []any {
	return []any{&PlanModel{}, &UserModel{}, &UserPlanModel{}}
}
