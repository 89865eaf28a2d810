package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Suggestion types persisted on FriendSuggestion rows.
const (
	SuggestionTypeMutualFriends   = "mutual_friends"
	SuggestionTypeSharedInterests = "shared_interests"
	SuggestionTypeSharedEvents    = "shared_events"
	SuggestionTypeLocationBased   = "location_based"
	SuggestionTypeActivityBased   = "activity_based"
	SuggestionTypeNetworkAnalysis = "network_analysis"
)

// FriendSuggestion is the durable suggestion record, one row per
// (user, suggested user) pair, refreshed by upsert. The dismissed/contacted/
// followed flags record user interaction state and are never regressed by a
// refresh.
type FriendSuggestion struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_pair;index" json:"user_id"`
	User                 *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SuggestedUserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_suggestion_pair" json:"suggested_user_id"`
	SuggestedUser        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:SuggestedUserID;references:ID" json:"suggested_user,omitempty"`
	SuggestionType       string         `gorm:"not null;column:suggestion_type" json:"suggestion_type"`
	ConfidenceScore      float64        `gorm:"not null;default:0;column:confidence_score" json:"confidence_score"`
	SuggestionReasons    datatypes.JSON `gorm:"type:jsonb;column:suggestion_reasons" json:"suggestion_reasons"`
	MutualConnections    datatypes.JSON `gorm:"type:jsonb;column:mutual_connections" json:"mutual_connections"`
	MutualFriendsCount   int            `gorm:"not null;default:0;column:mutual_friends_count" json:"mutual_friends_count"`
	SharedInterestsCount int            `gorm:"not null;default:0;column:shared_interests_count" json:"shared_interests_count"`
	SharedEventsCount    int            `gorm:"not null;default:0;column:shared_events_count" json:"shared_events_count"`
	IsDismissed          bool           `gorm:"not null;default:false;column:is_dismissed;index" json:"is_dismissed"`
	DismissedAt          *time.Time     `gorm:"column:dismissed_at" json:"dismissed_at,omitempty"`
	IsContacted          bool           `gorm:"not null;default:false;column:is_contacted" json:"is_contacted"`
	ContactedAt          *time.Time     `gorm:"column:contacted_at" json:"contacted_at,omitempty"`
	IsFollowed           bool           `gorm:"not null;default:false;column:is_followed" json:"is_followed"`
	FollowedAt           *time.Time     `gorm:"column:followed_at" json:"followed_at,omitempty"`
	ExpiresAt            *time.Time     `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null" json:"updated_at"`
}

func (FriendSuggestion) TableName() string { return "friend_suggestion" }

func (fs *FriendSuggestion) BeforeCreate(tx *gorm.DB) error {
	if fs.ID == uuid.Nil {
		fs.ID = uuid.New()
	}
	return nil
}

func (fs *FriendSuggestion) IsExpired(now time.Time) bool {
	return fs.ExpiresAt != nil && !fs.ExpiresAt.After(now)
}

// IsActiveAt reports the active-suggestion invariant: not dismissed and not
// expired.
func (fs *FriendSuggestion) IsActiveAt(now time.Time) bool {
	return !fs.IsDismissed && !fs.IsExpired(now)
}
