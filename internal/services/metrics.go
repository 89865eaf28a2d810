package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// NetworkMetricsService computes the per-user metrics snapshot. The whole
// object is cached for an hour and replaced atomically; a failing collaborator
// aborts the computation rather than producing a partial snapshot.
type NetworkMetricsService interface {
	GetNetworkMetrics(ctx context.Context, userID uuid.UUID) (*types.NetworkMetrics, error)
}

type networkMetricsService struct {
	db           *gorm.DB
	log          *logger.Logger
	cache        cache.Cache
	graph        GraphService
	followRepo   repos.UserFollowRepo
	activityRepo repos.ActivityFeedRepo
	weights      ScoreWeights
	clock        func() time.Time
}

func NewNetworkMetricsService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
	activityRepo repos.ActivityFeedRepo,
	weights ScoreWeights,
	clock func() time.Time,
) NetworkMetricsService {
	serviceLog := log.With("service", "NetworkMetricsService")
	if clock == nil {
		clock = time.Now
	}
	return &networkMetricsService{
		db:           db,
		log:          serviceLog,
		cache:        c,
		graph:        graph,
		followRepo:   followRepo,
		activityRepo: activityRepo,
		weights:      weights,
		clock:        clock,
	}
}

func (ms *networkMetricsService) GetNetworkMetrics(ctx context.Context, userID uuid.UUID) (*types.NetworkMetrics, error) {
	key := cache.MetricsKey(userID)
	var cached types.NetworkMetrics
	if hit, err := ms.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	if _, err := ms.graph.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := ms.clock().UTC()
	monthAgo := now.AddDate(0, -1, 0)

	var (
		following, followers []uuid.UUID
		mutualCount, reach   int
		engagement           repos.EngagementTotals
		activeUsers          int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := ms.graph.FollowingIDs(gctx, userID)
		following = ids
		return err
	})
	g.Go(func() error {
		ids, err := ms.graph.FollowerIDs(gctx, userID)
		followers = ids
		return err
	})
	g.Go(func() error {
		count, err := ms.graph.MutualConnectionCount(gctx, userID)
		mutualCount = count
		return err
	})
	g.Go(func() error {
		count, err := ms.graph.SecondDegreeReach(gctx, userID)
		reach = count
		return err
	})
	g.Go(func() error {
		totals, err := ms.activityRepo.TotalsForUser(gctx, nil, userID, monthAgo)
		if err != nil {
			return apierr.DataUnavailable(err)
		}
		engagement = totals
		return nil
	})
	g.Go(func() error {
		count, err := ms.graph.ActiveUserCount(gctx)
		activeUsers = count
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	interactions := float64(engagement.Likes + engagement.Comments)
	engagementRate := 0.0
	if engagement.Activities > 0 {
		engagementRate = interactions / float64(engagement.Activities)
	}

	influence := ms.weights.Influence(len(followers), len(following), interactions)

	newThisMonth, growthRate, err := ms.connectionGrowth(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	density, err := ms.networkDensity(ctx, userID, following, followers)
	if err != nil {
		return nil, err
	}

	centrality := 0.0
	if activeUsers > 1 {
		centrality = float64(len(followers)+len(following)) / float64(activeUsers-1)
	}

	metrics := &types.NetworkMetrics{
		FollowingCount:       len(following),
		FollowersCount:       len(followers),
		MutualConnections:    mutualCount,
		NetworkReach:         reach,
		InfluenceScore:       round2(influence),
		EngagementRate:       round2(engagementRate),
		ConnectionGrowthRate: round2(growthRate),
		NewConnectionsMonth:  newThisMonth,
		NetworkDensity:       round3(density),
		CentralityScore:      round3(centrality),
	}

	if err := ms.cache.Set(ctx, key, metrics, cache.TTLMetrics); err != nil {
		ms.log.Warn("Failed to cache network metrics", "userID", userID, "error", err)
	}
	return metrics, nil
}

// connectionGrowth compares follow edges created by the user this calendar
// month against last month.
func (ms *networkMetricsService) connectionGrowth(ctx context.Context, userID uuid.UUID, now time.Time) (int, float64, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	thisMonth, err := ms.followRepo.CountCreatedBetween(ctx, nil, userID, monthStart, now.Add(time.Second))
	if err != nil {
		return 0, 0, apierr.DataUnavailable(err)
	}
	lastMonth, err := ms.followRepo.CountCreatedBetween(ctx, nil, userID, lastMonthStart, monthStart)
	if err != nil {
		return 0, 0, apierr.DataUnavailable(err)
	}

	growthRate := 0.0
	if lastMonth > 0 {
		growthRate = float64(thisMonth-lastMonth) / float64(lastMonth) * 100
	}
	return int(thisMonth), growthRate, nil
}

// networkDensity is the fraction of ordered pairs among the user's direct
// connections (followers and followees, deduplicated) that hold a follow
// edge.
func (ms *networkMetricsService) networkDensity(ctx context.Context, userID uuid.UUID, following, followers []uuid.UUID) (float64, error) {
	seen := make(map[uuid.UUID]struct{}, len(following)+len(followers))
	connections := make([]uuid.UUID, 0, len(following)+len(followers))
	for _, id := range append(append([]uuid.UUID{}, following...), followers...) {
		if id == userID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		connections = append(connections, id)
	}

	n := len(connections)
	if n < 2 {
		return 0, nil
	}

	internal, err := ms.followRepo.CountEdgesAmong(ctx, nil, connections)
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	return float64(internal) / float64(n*(n-1)), nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
