package model

import (
	"github.com/google/uuid"
)

// UserModel mirrors the 'user_model' table. IDs are generated by the application.
type UserModel struct {
	ID             uuid.UUID  `gorm:"type:varchar(36);primaryKey"`
	Email          string     `gorm:"type:varchar(254);uniqueIndex:ix_user_model_email;not null"`
	HashedPassword string     `gorm:"type:varchar(128);not null"`
	FirstName      string     `gorm:"type:varchar(128);not null"`
	LastName       string     `gorm:"type:varchar(128);not null"`
	MobileNumber   string     `gorm:"type:varchar(128);not null"`
	PostalAddress  string     `gorm:"type:text;not null"`
	ActivePlanID   *uuid.UUID `gorm:"type:varchar(36)"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "user_model"
}
