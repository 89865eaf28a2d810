package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

const (
	DefaultSuggestionLimit = 20
	MaxSuggestionLimit     = 50
	RefreshSuggestionLimit = 50
	SuggestionExpiryDays   = 30

	// people-you-may-know keeps only strong signals
	pymkMinScore = 5.0
)

// SuggestionService merges the four candidate generators into one ranked,
// explainable suggestion list, persists suggestion rows, and tracks user
// interaction with them.
type SuggestionService interface {
	// GetSuggestions runs the generators in priority order and returns the
	// merged list sorted by score. A failing generator contributes zero
	// candidates instead of failing the call.
	GetSuggestions(ctx context.Context, userID uuid.UUID, limit int, filters types.SuggestionFilters) ([]*types.SuggestionCandidate, error)
	GetPeopleYouMayKnow(ctx context.Context, userID uuid.UUID, limit int) ([]*types.SuggestionCandidate, error)
	GetTrendingUsers(ctx context.Context, userID uuid.UUID, timeframe string, limit int) ([]*types.TrendingUser, error)

	// RefreshSuggestions recomputes and upserts durable suggestion rows,
	// returning how many were written.
	RefreshSuggestions(ctx context.Context, userID uuid.UUID) (int, error)
	ActiveSuggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.FriendSuggestion, error)

	DismissSuggestion(ctx context.Context, userID, suggestedUserID uuid.UUID) error
	MarkContacted(ctx context.Context, userID, suggestedUserID uuid.UUID) error
	MarkFollowed(ctx context.Context, userID, suggestedUserID uuid.UUID) error
	BulkDismiss(ctx context.Context, userID uuid.UUID) (int64, error)

	RecordInteraction(ctx context.Context, userID, suggestedUserID uuid.UUID, action, reason string) error
	GetAnalytics(ctx context.Context, userID uuid.UUID, timeframe string) (*types.SuggestionAnalytics, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*types.SuggestionStats, error)
}

type suggestionService struct {
	db              *gorm.DB
	log             *logger.Logger
	cache           cache.Cache
	graph           GraphService
	followRepo      repos.UserFollowRepo
	suggestionRepo  repos.FriendSuggestionRepo
	interactionRepo repos.SuggestionInteractionRepo
	activityLog     ActivityLogService
	weights         ScoreWeights
	clock           func() time.Time
}

func NewSuggestionService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
	suggestionRepo repos.FriendSuggestionRepo,
	interactionRepo repos.SuggestionInteractionRepo,
	activityLog ActivityLogService,
	weights ScoreWeights,
	clock func() time.Time,
) SuggestionService {
	serviceLog := log.With("service", "SuggestionService")
	if clock == nil {
		clock = time.Now
	}
	return &suggestionService{
		db:              db,
		log:             serviceLog,
		cache:           c,
		graph:           graph,
		followRepo:      followRepo,
		suggestionRepo:  suggestionRepo,
		interactionRepo: interactionRepo,
		activityLog:     activityLog,
		weights:         weights,
		clock:           clock,
	}
}

func (ss *suggestionService) GetSuggestions(ctx context.Context, userID uuid.UUID, limit int, filters types.SuggestionFilters) ([]*types.SuggestionCandidate, error) {
	if limit < 0 {
		return nil, apierr.InvalidArgument("limit must be non-negative, got %d", limit)
	}
	if limit == 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}
	if filters.Reason != "" && !validReason(filters.Reason) {
		return nil, apierr.InvalidArgument("unknown suggestion reason %q", filters.Reason)
	}

	key := cache.SuggestionsKey(userID, fmt.Sprintf("%s.%d", filters.Hash(), limit))
	var cached []*types.SuggestionCandidate
	if hit, err := ss.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	// graph.FollowingIDs also verifies the user exists
	following, err := ss.graph.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	exclude := make([]uuid.UUID, 0, len(filters.ExcludeIDs)+len(following)+1)
	exclude = append(exclude, filters.ExcludeIDs...)
	exclude = append(exclude, following...)
	exclude = append(exclude, userID)

	suggestions := make([]*types.SuggestionCandidate, 0, limit)
	for _, gen := range ss.generators() {
		if len(suggestions) >= limit {
			break
		}
		if filters.Reason != "" && filters.Reason != gen.reason {
			continue
		}

		candidates, err := gen.generate(ctx, userID, exclude, limit-len(suggestions))
		if err != nil {
			// partial-result degradation: a broken signal never fails the
			// whole aggregation
			ss.activityLog.LogError(ctx, err, map[string]interface{}{
				"user_id":   userID,
				"generator": string(gen.reason),
				"operation": "get_suggestions",
			})
			continue
		}

		for _, c := range candidates {
			suggestions = append(suggestions, c)
			exclude = append(exclude, c.User.ID)
		}
	}

	if filters.MinScore != nil {
		kept := suggestions[:0]
		for _, c := range suggestions {
			if c.SuggestionScore >= *filters.MinScore {
				kept = append(kept, c)
			}
		}
		suggestions = kept
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].SuggestionScore != suggestions[j].SuggestionScore {
			return suggestions[i].SuggestionScore > suggestions[j].SuggestionScore
		}
		return suggestions[i].User.ID.String() < suggestions[j].User.ID.String()
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	if err := ss.cache.Set(ctx, key, suggestions, cache.TTLSuggestions); err != nil {
		ss.log.Warn("Failed to cache suggestions", "userID", userID, "error", err)
	}
	return suggestions, nil
}

type generator struct {
	reason   types.SuggestionReason
	generate func(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.SuggestionCandidate, error)
}

// priority order: mutual > interests > location > activity
func (ss *suggestionService) generators() []generator {
	return []generator{
		{types.ReasonMutualConnections, ss.mutualConnectionCandidates},
		{types.ReasonSharedInterests, ss.sharedInterestCandidates},
		{types.ReasonLocationProximity, ss.locationCandidates},
		{types.ReasonSimilarActivities, ss.sharedActivityCandidates},
	}
}

func validReason(r types.SuggestionReason) bool {
	switch r {
	case types.ReasonMutualConnections, types.ReasonSharedInterests,
		types.ReasonLocationProximity, types.ReasonSimilarActivities:
		return true
	}
	return false
}

func (ss *suggestionService) mutualConnectionCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.SuggestionCandidate, error) {
	counts, err := ss.graph.MutualCandidates(ctx, userID, excludeIDs)
	if err != nil {
		return nil, err
	}

	ranked := rankCounts(counts, limit)
	candidates, err := ss.buildCandidates(ctx, ranked, func(c *types.SuggestionCandidate, count int) {
		c.SuggestionScore = float64(count) * ss.weights.MutualPerConnection
		c.Reason = types.ReasonMutualConnections
		c.MutualCount = count
		c.Details = map[string]interface{}{
			"mutual_count": count,
			"reason_text":  fmt.Sprintf("You have %d mutual connections", count),
		}
	})
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		mutual, err := ss.graph.MutualConnectionIDs(ctx, userID, c.User.ID)
		if err != nil {
			ss.log.Warn("Failed to resolve mutual connection ids", "error", err)
			continue
		}
		c.MutualConnections = mutual
	}
	return candidates, nil
}

func (ss *suggestionService) sharedInterestCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.SuggestionCandidate, error) {
	interests, err := ss.graph.InterestNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(interests) == 0 {
		return nil, nil
	}

	counts, err := ss.graph.SharedInterestUsers(ctx, userID, 2, excludeIDs)
	if err != nil {
		return nil, err
	}

	return ss.buildCandidates(ctx, rankCounts(counts, limit), func(c *types.SuggestionCandidate, count int) {
		c.SuggestionScore = float64(count) * ss.weights.InterestPerShared
		c.Reason = types.ReasonSharedInterests
		c.SharedInterests = count
		c.Details = map[string]interface{}{
			"shared_count": count,
			"reason_text":  fmt.Sprintf("You share %d interests", count),
		}
	})
}

func (ss *suggestionService) locationCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.SuggestionCandidate, error) {
	scores, err := ss.graph.SameLocationUsers(ctx, userID, excludeIDs)
	if err != nil {
		return nil, err
	}

	return ss.buildCandidates(ctx, rankCounts(scores, limit), func(c *types.SuggestionCandidate, score int) {
		c.SuggestionScore = float64(score)
		c.Reason = types.ReasonLocationProximity
		c.LocationScore = score
		reasonText := "Lives in your state"
		if score >= 4 {
			reasonText = "Lives in your city"
		}
		c.Details = map[string]interface{}{
			"location":    fmt.Sprintf("%s, %s", c.User.City, c.User.State),
			"reason_text": reasonText,
		}
	})
}

func (ss *suggestionService) sharedActivityCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID, limit int) ([]*types.SuggestionCandidate, error) {
	counts, err := ss.graph.SharedEventAttendanceUsers(ctx, userID, excludeIDs)
	if err != nil {
		return nil, err
	}

	return ss.buildCandidates(ctx, rankCounts(counts, limit), func(c *types.SuggestionCandidate, count int) {
		c.SuggestionScore = float64(count) * ss.weights.EventPerShared
		c.Reason = types.ReasonSimilarActivities
		c.SharedEvents = count
		c.Details = map[string]interface{}{
			"shared_events": count,
			"reason_text":   fmt.Sprintf("Attended %d similar events", count),
		}
	})
}

type rankedCandidate struct {
	id    uuid.UUID
	count int
}

// rankCounts orders a candidate map by count descending with id as the tie
// break, so generator output is deterministic regardless of map iteration.
func rankCounts(counts map[uuid.UUID]int, limit int) []rankedCandidate {
	ranked := make([]rankedCandidate, 0, len(counts))
	for id, count := range counts {
		ranked = append(ranked, rankedCandidate{id: id, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].id.String() < ranked[j].id.String()
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (ss *suggestionService) buildCandidates(ctx context.Context, ranked []rankedCandidate, fill func(*types.SuggestionCandidate, int)) ([]*types.SuggestionCandidate, error) {
	if len(ranked) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.id)
	}
	users, err := ss.graph.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	candidates := make([]*types.SuggestionCandidate, 0, len(ranked))
	for _, r := range ranked {
		user, ok := byID[r.id]
		if !ok {
			continue
		}
		c := &types.SuggestionCandidate{User: user}
		fill(c, r.count)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (ss *suggestionService) GetPeopleYouMayKnow(ctx context.Context, userID uuid.UUID, limit int) ([]*types.SuggestionCandidate, error) {
	if limit <= 0 {
		limit = 10
	}

	suggestions, err := ss.GetSuggestions(ctx, userID, DefaultSuggestionLimit, types.SuggestionFilters{})
	if err != nil {
		return nil, err
	}

	strong := make([]*types.SuggestionCandidate, 0, limit)
	for _, c := range suggestions {
		if c.SuggestionScore >= pymkMinScore {
			strong = append(strong, c)
			if len(strong) >= limit {
				break
			}
		}
	}
	return strong, nil
}

func (ss *suggestionService) GetTrendingUsers(ctx context.Context, userID uuid.UUID, timeframe string, limit int) ([]*types.TrendingUser, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 20 {
		limit = 20
	}
	if timeframe != "week" && timeframe != "month" {
		timeframe = "week"
	}

	key := cache.TrendingKey(userID, timeframe, limit)
	var cached []*types.TrendingUser
	if hit, err := ss.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	following, err := ss.graph.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := ss.clock().UTC()
	since := now.AddDate(0, 0, -7)
	if timeframe == "month" {
		since = now.AddDate(0, -1, 0)
	}

	exclude := append(append([]uuid.UUID{}, following...), userID)
	gains, err := ss.followRepo.NewFollowerCounts(ctx, nil, since, exclude)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}

	ranked := rankCounts(gains, limit)
	ids := make([]uuid.UUID, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.id)
	}
	users, err := ss.graph.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	trending := make([]*types.TrendingUser, 0, len(ranked))
	for _, r := range ranked {
		user, ok := byID[r.id]
		if !ok {
			continue
		}
		trending = append(trending, &types.TrendingUser{
			User:         user,
			NewFollowers: r.count,
			TrendScore:   float64(r.count),
		})
	}

	if err := ss.cache.Set(ctx, key, trending, cache.TTLTrending); err != nil {
		ss.log.Warn("Failed to cache trending users", "userID", userID, "error", err)
	}
	return trending, nil
}

func (ss *suggestionService) RefreshSuggestions(ctx context.Context, userID uuid.UUID) (int, error) {
	candidates, err := ss.GetSuggestions(ctx, userID, RefreshSuggestionLimit, types.SuggestionFilters{})
	if err != nil {
		return 0, err
	}

	now := ss.clock().UTC()
	expires := now.AddDate(0, 0, SuggestionExpiryDays)

	count := 0
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range candidates {
			row, err := ss.toSuggestionRow(userID, c, now, expires)
			if err != nil {
				return err
			}
			if err := ss.suggestionRepo.Upsert(ctx, tx, row); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}

	ss.activityLog.LogActivity(ctx, userID, "suggestions_refreshed", types.SubjectKindSuggestion, nil, map[string]interface{}{
		"generated_count": count,
	})
	return count, nil
}

func (ss *suggestionService) toSuggestionRow(userID uuid.UUID, c *types.SuggestionCandidate, now, expires time.Time) (*types.FriendSuggestion, error) {
	confidence := ss.weights.Confidence(c.MutualCount, c.SharedInterests, c.SharedEvents, c.LocationScore)

	var reasons []string
	if c.Details != nil {
		if text, ok := c.Details["reason_text"].(string); ok {
			reasons = append(reasons, text)
		}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, err
	}
	mutualJSON, err := json.Marshal(c.MutualConnections)
	if err != nil {
		return nil, err
	}

	return &types.FriendSuggestion{
		UserID:               userID,
		SuggestedUserID:      c.User.ID,
		SuggestionType:       c.Reason.SuggestionType(),
		ConfidenceScore:      confidence,
		SuggestionReasons:    datatypes.JSON(reasonsJSON),
		MutualConnections:    datatypes.JSON(mutualJSON),
		MutualFriendsCount:   c.MutualCount,
		SharedInterestsCount: c.SharedInterests,
		SharedEventsCount:    c.SharedEvents,
		ExpiresAt:            &expires,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (ss *suggestionService) ActiveSuggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*types.FriendSuggestion, error) {
	if limit < 0 {
		return nil, apierr.InvalidArgument("limit must be non-negative, got %d", limit)
	}
	rows, err := ss.suggestionRepo.ActiveForUser(ctx, nil, userID, ss.clock().UTC(), limit)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return rows, nil
}

func (ss *suggestionService) DismissSuggestion(ctx context.Context, userID, suggestedUserID uuid.UUID) error {
	if err := ss.markSuggestion(ctx, userID, suggestedUserID, ss.suggestionRepo.Dismiss); err != nil {
		return err
	}
	if err := ss.cache.InvalidatePrefix(ctx, cache.SuggestionsPrefix(userID)); err != nil {
		ss.log.Warn("Failed to invalidate suggestion cache", "userID", userID, "error", err)
	}
	return nil
}

func (ss *suggestionService) MarkContacted(ctx context.Context, userID, suggestedUserID uuid.UUID) error {
	return ss.markSuggestion(ctx, userID, suggestedUserID, ss.suggestionRepo.MarkContacted)
}

func (ss *suggestionService) MarkFollowed(ctx context.Context, userID, suggestedUserID uuid.UUID) error {
	return ss.markSuggestion(ctx, userID, suggestedUserID, ss.suggestionRepo.MarkFollowed)
}

type markFn func(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error)

func (ss *suggestionService) markSuggestion(ctx context.Context, userID, suggestedUserID uuid.UUID, mark markFn) error {
	if _, err := ss.suggestionRepo.GetByPair(ctx, nil, userID, suggestedUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("suggestion for pair (%s, %s) not found", userID, suggestedUserID)
		}
		return apierr.DataUnavailable(err)
	}

	// already-set flags report false; still a success
	if _, err := mark(ctx, nil, userID, suggestedUserID, ss.clock().UTC()); err != nil {
		return apierr.DataUnavailable(err)
	}
	return nil
}

func (ss *suggestionService) BulkDismiss(ctx context.Context, userID uuid.UUID) (int64, error) {
	affected, err := ss.suggestionRepo.BulkDismiss(ctx, nil, userID, ss.clock().UTC())
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	if err := ss.cache.InvalidatePrefix(ctx, cache.SuggestionsPrefix(userID)); err != nil {
		ss.log.Warn("Failed to invalidate suggestion cache", "userID", userID, "error", err)
	}
	return affected, nil
}

func (ss *suggestionService) RecordInteraction(ctx context.Context, userID, suggestedUserID uuid.UUID, action, reason string) error {
	if !types.ValidInteraction(action) {
		return apierr.InvalidArgument("unknown interaction action %q", action)
	}

	row := &types.SuggestionInteraction{
		UserID:           userID,
		SuggestedUserID:  suggestedUserID,
		Action:           action,
		SuggestionReason: reason,
		CreatedAt:        ss.clock().UTC(),
	}
	if err := ss.interactionRepo.Append(ctx, nil, row); err != nil {
		return apierr.DataUnavailable(err)
	}

	if action == types.InteractionDismissed {
		if err := ss.cache.InvalidatePrefix(ctx, cache.SuggestionsPrefix(userID)); err != nil {
			ss.log.Warn("Failed to invalidate suggestion cache", "userID", userID, "error", err)
		}
	}

	ss.activityLog.LogActivity(ctx, userID, "suggestion_interaction", types.SubjectKindUser, &suggestedUserID, map[string]interface{}{
		"action": action,
		"reason": reason,
	})
	return nil
}

func (ss *suggestionService) GetAnalytics(ctx context.Context, userID uuid.UUID, timeframe string) (*types.SuggestionAnalytics, error) {
	now := ss.clock().UTC()
	var since time.Time
	switch timeframe {
	case "week":
		since = now.AddDate(0, 0, -7)
	case "quarter":
		since = now.AddDate(0, -3, 0)
	default:
		since = now.AddDate(0, -1, 0)
	}

	cells, err := ss.interactionRepo.AggregateSince(ctx, nil, userID, since)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}

	analytics := &types.SuggestionAnalytics{
		ByReason: map[string]types.InteractionBreakdown{},
	}
	for _, cell := range cells {
		breakdown := analytics.ByReason[cell.SuggestionReason]
		switch cell.Action {
		case types.InteractionViewed:
			analytics.TotalViewed += cell.Total
			breakdown.Viewed = cell.Total
		case types.InteractionFollowed:
			analytics.TotalFollowed += cell.Total
			breakdown.Followed = cell.Total
		case types.InteractionDismissed:
			analytics.TotalDismissed += cell.Total
			breakdown.Dismissed = cell.Total
		}
		analytics.ByReason[cell.SuggestionReason] = breakdown
	}

	if analytics.TotalViewed > 0 {
		analytics.FollowRate = round2(float64(analytics.TotalFollowed) / float64(analytics.TotalViewed) * 100)
		analytics.DismissRate = round2(float64(analytics.TotalDismissed) / float64(analytics.TotalViewed) * 100)
	}
	return analytics, nil
}

func (ss *suggestionService) GetStats(ctx context.Context, userID uuid.UUID) (*types.SuggestionStats, error) {
	stats, err := ss.suggestionRepo.StatsForUser(ctx, nil, userID, ss.clock().UTC())
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return stats, nil
}
