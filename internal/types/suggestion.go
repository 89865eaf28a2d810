package types

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SuggestionReason labels which signal produced a candidate.
type SuggestionReason string

const (
	ReasonMutualConnections SuggestionReason = "mutual_connections"
	ReasonSharedInterests   SuggestionReason = "shared_interests"
	ReasonLocationProximity SuggestionReason = "location_proximity"
	ReasonSimilarActivities SuggestionReason = "similar_activities"
	ReasonTrending          SuggestionReason = "trending"
)

// SuggestionType maps a reason onto the persisted suggestion_type value.
func (r SuggestionReason) SuggestionType() string {
	switch r {
	case ReasonMutualConnections:
		return SuggestionTypeMutualFriends
	case ReasonSharedInterests:
		return SuggestionTypeSharedInterests
	case ReasonLocationProximity:
		return SuggestionTypeLocationBased
	case ReasonSimilarActivities:
		return SuggestionTypeActivityBased
	default:
		return SuggestionTypeNetworkAnalysis
	}
}

// SuggestionCandidate is one scored, explainable suggestion. Produced fresh
// per aggregation call; never persisted as-is.
type SuggestionCandidate struct {
	User              *User                  `json:"user"`
	SuggestionScore   float64                `json:"suggestion_score"`
	Reason            SuggestionReason       `json:"suggestion_reason"`
	MutualCount       int                    `json:"mutual_count,omitempty"`
	MutualConnections []uuid.UUID            `json:"mutual_connections,omitempty"`
	SharedInterests   int                    `json:"shared_interests,omitempty"`
	SharedEvents      int                    `json:"shared_events,omitempty"`
	LocationScore     int                    `json:"location_score,omitempty"`
	Details           map[string]interface{} `json:"suggestion_details,omitempty"`
}

// SuggestionFilters narrows a suggestion query. All fields are optional;
// presence is checked with plain conditionals.
type SuggestionFilters struct {
	ExcludeIDs []uuid.UUID      `json:"exclude_ids,omitempty"`
	Reason     SuggestionReason `json:"reason,omitempty"`
	MinScore   *float64         `json:"min_score,omitempty"`
}

// Hash returns a stable digest of the filter set for cache keying.
func (f SuggestionFilters) Hash() string {
	ids := make([]string, 0, len(f.ExcludeIDs))
	for _, id := range f.ExcludeIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("exclude=")
	b.WriteString(strings.Join(ids, ","))
	b.WriteString(";reason=")
	b.WriteString(string(f.Reason))
	if f.MinScore != nil {
		fmt.Fprintf(&b, ";min_score=%.4f", *f.MinScore)
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type SuggestionStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Dismissed      int `json:"dismissed"`
	Contacted      int `json:"contacted"`
	Followed       int `json:"followed"`
	HighConfidence int `json:"high_confidence"`
}

// SuggestionAnalytics is the interaction-log roll-up for one user.
type SuggestionAnalytics struct {
	TotalViewed    int                            `json:"total_suggestions_viewed"`
	TotalFollowed  int                            `json:"total_suggestions_followed"`
	TotalDismissed int                            `json:"total_suggestions_dismissed"`
	FollowRate     float64                        `json:"follow_rate"`
	DismissRate    float64                        `json:"dismiss_rate"`
	ByReason       map[string]InteractionBreakdown `json:"by_reason"`
}

type InteractionBreakdown struct {
	Viewed    int `json:"viewed"`
	Followed  int `json:"followed"`
	Dismissed int `json:"dismissed"`
}
