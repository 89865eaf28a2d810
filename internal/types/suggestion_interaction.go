package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InteractionViewed    = "viewed"
	InteractionDismissed = "dismissed"
	InteractionFollowed  = "followed"
)

var validInteractions = map[string]struct{}{
	InteractionViewed:    {},
	InteractionDismissed: {},
	InteractionFollowed:  {},
}

func ValidInteraction(action string) bool {
	_, ok := validInteractions[action]
	return ok
}

// SuggestionInteraction is an append-only log row used for analytics only.
type SuggestionInteraction struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	SuggestedUserID  uuid.UUID `gorm:"type:uuid;not null" json:"suggested_user_id"`
	Action           string    `gorm:"not null;column:action" json:"action"`
	SuggestionReason string    `gorm:"column:suggestion_reason" json:"suggestion_reason"`
	CreatedAt        time.Time `gorm:"not null;index" json:"created_at"`
}

func (SuggestionInteraction) TableName() string { return "suggestion_interaction" }

func (si *SuggestionInteraction) BeforeCreate(tx *gorm.DB) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	return nil
}
