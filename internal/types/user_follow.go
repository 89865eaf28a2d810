package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFollow is one directed follow edge: FollowerID follows FollowingID.
// The pair is unique and self-edges are rejected before the row is written.
type UserFollow struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FollowerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair;index" json:"follower_id"`
	Follower    *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:FollowerID;references:ID" json:"follower,omitempty"`
	FollowingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_follow_pair;index" json:"following_id"`
	Following   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:FollowingID;references:ID" json:"following,omitempty"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

func (UserFollow) TableName() string { return "user_follow" }

func (uf *UserFollow) BeforeCreate(tx *gorm.DB) error {
	if uf.ID == uuid.Nil {
		uf.ID = uuid.New()
	}
	return nil
}
