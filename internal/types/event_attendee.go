package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AttendeeStatusAttending = "attending"
	AttendeeStatusDeclined  = "declined"
	AttendeeStatusMaybe     = "maybe"
)

// EventAttendee joins users to events they responded to. Events themselves
// live outside this core; only the attendance edge is queried here.
type EventAttendee struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendee;index" json:"event_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendee;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Status    string    `gorm:"not null;column:status" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (EventAttendee) TableName() string { return "event_attendee" }

func (ea *EventAttendee) BeforeCreate(tx *gorm.DB) error {
	if ea.ID == uuid.Nil {
		ea.ID = uuid.New()
	}
	return nil
}
