package model

import (
	"github.com/google/uuid"
)

// PlanModel mirrors the 'plans' table.
type PlanModel struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text;not null"`
	Price       int       `gorm:"not null"`
	Validity    int       `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (PlanModel) TableName() string {
	return "plans"
}
