package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserInterest struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	InterestName string    `gorm:"not null;column:interest_name;index" json:"interest_name"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (UserInterest) TableName() string { return "user_interest" }

func (ui *UserInterest) BeforeCreate(tx *gorm.DB) error {
	if ui.ID == uuid.Nil {
		ui.ID = uuid.New()
	}
	return nil
}
