package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName  string         `gorm:"not null;column:last_name" json:"last_name"`
	AvatarURL string         `gorm:"column:avatar_url" json:"avatar_url"`
	City      string         `gorm:"column:city;index:idx_user_location" json:"city"`
	State     string         `gorm:"column:state;index:idx_user_location" json:"state"`
	IsActive  bool           `gorm:"not null;default:true;column:is_active;index" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
