package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// NetworkAnalyticsService produces the network-wide roll-ups: the influence
// leaderboard and connection growth trends.
type NetworkAnalyticsService interface {
	GetInfluenceRankings(ctx context.Context, timeframe string, limit int) ([]types.InfluenceRanking, error)
	GetNetworkGrowthTrends(ctx context.Context, timeframe string, periods int) (*types.GrowthTrendReport, error)
}

type networkAnalyticsService struct {
	db           *gorm.DB
	log          *logger.Logger
	cache        cache.Cache
	graph        GraphService
	followRepo   repos.UserFollowRepo
	activityRepo repos.ActivityFeedRepo
	clock        func() time.Time
}

func NewNetworkAnalyticsService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
	activityRepo repos.ActivityFeedRepo,
	clock func() time.Time,
) NetworkAnalyticsService {
	serviceLog := log.With("service", "NetworkAnalyticsService")
	if clock == nil {
		clock = time.Now
	}
	return &networkAnalyticsService{
		db:           db,
		log:          serviceLog,
		cache:        c,
		graph:        graph,
		followRepo:   followRepo,
		activityRepo: activityRepo,
		clock:        clock,
	}
}

func (ns *networkAnalyticsService) GetInfluenceRankings(ctx context.Context, timeframe string, limit int) ([]types.InfluenceRanking, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	timeframe = normalizeTimeframe(timeframe)

	key := cache.RankingsKey(timeframe, limit)
	var cached []types.InfluenceRanking
	if hit, err := ns.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	since := ns.timeframeStart(timeframe)
	followerCounts, err := ns.followRepo.FollowerCounts(ctx, nil)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	engagement, err := ns.activityRepo.TotalsByUser(ctx, nil, since)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}

	ids := make(map[uuid.UUID]struct{}, len(followerCounts)+len(engagement))
	for id := range followerCounts {
		ids[id] = struct{}{}
	}
	for id := range engagement {
		ids[id] = struct{}{}
	}

	rankings := make([]types.InfluenceRanking, 0, len(ids))
	for id := range ids {
		followers := followerCounts[id]
		totals := engagement[id]
		score := float64(followers)*2 +
			float64(totals.Activities) +
			float64(totals.Likes)*0.5 +
			float64(totals.Comments)
		rankings = append(rankings, types.InfluenceRanking{
			UserID:         id,
			FollowersCount: followers,
			ActivityCount:  int(totals.Activities),
			TotalLikes:     int(totals.Likes),
			TotalComments:  int(totals.Comments),
			InfluenceScore: round2(score),
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].InfluenceScore != rankings[j].InfluenceScore {
			return rankings[i].InfluenceScore > rankings[j].InfluenceScore
		}
		return rankings[i].UserID.String() < rankings[j].UserID.String()
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}

	rankedIDs := make([]uuid.UUID, 0, len(rankings))
	for _, r := range rankings {
		rankedIDs = append(rankedIDs, r.UserID)
	}
	users, err := ns.graph.UsersByIDs(ctx, rankedIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for i := range rankings {
		rankings[i].Rank = i + 1
		if u, ok := byID[rankings[i].UserID]; ok {
			rankings[i].FirstName = u.FirstName
			rankings[i].LastName = u.LastName
			rankings[i].AvatarURL = u.AvatarURL
		}
	}

	if err := ns.cache.Set(ctx, key, rankings, cache.TTLRankings); err != nil {
		ns.log.Warn("Failed to cache influence rankings", "error", err)
	}
	return rankings, nil
}

func (ns *networkAnalyticsService) GetNetworkGrowthTrends(ctx context.Context, timeframe string, periods int) (*types.GrowthTrendReport, error) {
	if periods <= 0 {
		periods = 12
	}
	timeframe = normalizeTimeframe(timeframe)

	key := fmt.Sprintf("%s.%s", cache.GrowthTrendsKey(periods), timeframe)
	var cached types.GrowthTrendReport
	if hit, err := ns.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	now := ns.clock().UTC()
	since := ns.periodsStart(now, timeframe, periods)
	edges, err := ns.followRepo.CreatedSince(ctx, nil, since)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}

	// bucket edges per period in insertion order
	type bucket struct {
		newConnections int
		actors         map[uuid.UUID]struct{}
	}
	buckets := map[string]*bucket{}
	var order []string
	for _, e := range edges {
		period := formatPeriod(e.CreatedAt.UTC(), timeframe)
		b, ok := buckets[period]
		if !ok {
			b = &bucket{actors: map[uuid.UUID]struct{}{}}
			buckets[period] = b
			order = append(order, period)
		}
		b.newConnections++
		b.actors[e.FollowerID] = struct{}{}
	}
	sort.Strings(order)

	report := &types.GrowthTrendReport{Trends: make([]types.GrowthTrend, 0, len(order))}
	previous := 0
	peakConnections := 0
	var growthSum float64
	for _, period := range order {
		b := buckets[period]

		growthRate := 0.0
		if previous > 0 {
			growthRate = float64(b.newConnections-previous) / float64(previous) * 100
		}
		perUser := 0.0
		if len(b.actors) > 0 {
			perUser = float64(b.newConnections) / float64(len(b.actors))
		}

		report.Trends = append(report.Trends, types.GrowthTrend{
			Period:             period,
			NewConnections:     b.newConnections,
			ActiveUsers:        len(b.actors),
			GrowthRate:         round2(growthRate),
			ConnectionsPerUser: round2(perUser),
		})

		report.Summary.TotalNewConnections += b.newConnections
		report.Summary.TotalActiveUsers += len(b.actors)
		growthSum += growthRate
		if b.newConnections > peakConnections {
			peakConnections = b.newConnections
			report.Summary.PeakPeriod = period
		}
		previous = b.newConnections
	}
	if len(report.Trends) > 0 {
		report.Summary.AverageGrowthRate = round2(growthSum / float64(len(report.Trends)))
	}

	if err := ns.cache.Set(ctx, key, report, cache.TTLTrends); err != nil {
		ns.log.Warn("Failed to cache growth trends", "error", err)
	}
	return report, nil
}

func normalizeTimeframe(timeframe string) string {
	switch timeframe {
	case "day", "week", "month", "quarter":
		return timeframe
	default:
		return "month"
	}
}

func (ns *networkAnalyticsService) timeframeStart(timeframe string) time.Time {
	now := ns.clock().UTC()
	switch timeframe {
	case "day":
		return now.AddDate(0, 0, -1)
	case "week":
		return now.AddDate(0, 0, -7)
	case "quarter":
		return now.AddDate(0, -3, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

func (ns *networkAnalyticsService) periodsStart(now time.Time, timeframe string, periods int) time.Time {
	switch timeframe {
	case "day":
		return now.AddDate(0, 0, -periods)
	case "week":
		return now.AddDate(0, 0, -7*periods)
	default:
		return now.AddDate(0, -periods, 0)
	}
}

func formatPeriod(t time.Time, timeframe string) string {
	switch timeframe {
	case "day":
		return t.Format("2006-01-02")
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}
