package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache is the TTL cache consumed by every service in the social graph core.
// Invalidation is always by key prefix, never a whole-cache flush.
type Cache interface {
	// Get unmarshals the cached value into dest and reports whether the key
	// was present.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	Close() error
}

// TTLs per operation family.
const (
	TTLMetrics     = time.Hour
	TTLMutual      = 30 * time.Minute
	TTLPath        = 30 * time.Minute
	TTLSuggestions = 30 * time.Minute
	TTLCommunities = 2 * time.Hour
	TTLRankings    = time.Hour
	TTLTrends      = time.Hour
	TTLTrending    = time.Hour
)

func MetricsKey(userID uuid.UUID) string {
	return fmt.Sprintf("social_graph.user_metrics.%s", userID)
}

func MetricsPrefix(userID uuid.UUID) string {
	return MetricsKey(userID)
}

// MutualKey keys a mutual-connection result for one ordering of the pair.
// Callers write the value under both orderings so that MutualPrefix
// invalidation for either user clears every pair containing them.
func MutualKey(a, b uuid.UUID) string {
	return fmt.Sprintf("social_graph.mutual.%s.%s", a, b)
}

func MutualPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("social_graph.mutual.%s.", userID)
}

func CommunitiesKey(userID uuid.UUID, minSize, maxCommunities int) string {
	return fmt.Sprintf("social_graph.communities.%s.%d.%d", userID, minSize, maxCommunities)
}

func CommunitiesPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("social_graph.communities.%s.", userID)
}

func PathKey(from, to uuid.UUID, maxDepth int) string {
	return fmt.Sprintf("social_graph.path.%s.%s.%d", from, to, maxDepth)
}

func SuggestionsKey(userID uuid.UUID, filtersHash string) string {
	return fmt.Sprintf("friend_suggestions.user.%s.%s", userID, filtersHash)
}

func SuggestionsPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("friend_suggestions.user.%s.", userID)
}

func TrendingKey(userID uuid.UUID, timeframe string, limit int) string {
	return fmt.Sprintf("trending_users.%s.%s.%d", userID, timeframe, limit)
}

func RankingsKey(timeframe string, limit int) string {
	return fmt.Sprintf("social_graph.influence_rankings.%s.%d", timeframe, limit)
}

func GrowthTrendsKey(periods int) string {
	return fmt.Sprintf("social_graph.growth_trends.%d", periods)
}
