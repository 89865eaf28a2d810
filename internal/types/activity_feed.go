package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubjectKind tags what an activity row points at. Targets are resolved
// through subjectKindTables, never through runtime type inspection.
type SubjectKind string

const (
	SubjectKindUser       SubjectKind = "user"
	SubjectKindFollow     SubjectKind = "follow"
	SubjectKindEvent      SubjectKind = "event"
	SubjectKindSuggestion SubjectKind = "friend_suggestion"
)

var subjectKindTables = map[SubjectKind]string{
	SubjectKindUser:       "user",
	SubjectKindFollow:     "user_follow",
	SubjectKindEvent:      "event_attendee",
	SubjectKindSuggestion: "friend_suggestion",
}

func (k SubjectKind) Valid() bool {
	_, ok := subjectKindTables[k]
	return ok
}

// Table returns the table the subject id resolves against.
func (k SubjectKind) Table() string { return subjectKindTables[k] }

type ActivityFeed struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Type          string         `gorm:"column:type;not null;index" json:"type"`
	SubjectKind   SubjectKind    `gorm:"column:subject_kind;not null" json:"subject_kind"`
	SubjectID     *uuid.UUID     `gorm:"type:uuid;column:subject_id" json:"subject_id,omitempty"`
	LikesCount    int            `gorm:"not null;default:0;column:likes_count" json:"likes_count"`
	CommentsCount int            `gorm:"not null;default:0;column:comments_count" json:"comments_count"`
	Context       datatypes.JSON `gorm:"type:jsonb;column:context" json:"context,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ActivityFeed) TableName() string { return "activity_feed" }

func (af *ActivityFeed) BeforeCreate(tx *gorm.DB) error {
	if af.ID == uuid.Nil {
		af.ID = uuid.New()
	}
	return nil
}
