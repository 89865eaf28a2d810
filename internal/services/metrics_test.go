package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/repos"
)

func TestNetworkMetricsService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	graph := newFakeGraph()
	me := graph.addUser("me")
	a := graph.addUser("a")
	b := graph.addUser("b")
	c := graph.addUser("c")
	d := graph.addUser("d")

	// followers of me: a, b. me follows: a, c. second degree: d.
	graph.follow(a.ID, me.ID)
	graph.follow(b.ID, me.ID)
	graph.follow(me.ID, a.ID)
	graph.follow(me.ID, c.ID)
	graph.follow(a.ID, d.ID)
	graph.follow(c.ID, d.ID)

	followRepo := &fakeFollowRepo{
		following:  graph.following,
		edgesAmong: 2,
		createdByWindow: map[string]int64{
			"2026-03": 6,
			"2026-02": 4,
		},
	}
	activityRepo := &fakeActivityRepo{
		totals: map[uuid.UUID]repos.EngagementTotals{
			me.ID: {Activities: 10, Likes: 12, Comments: 3},
		},
	}

	fc := newFakeCache()
	svc := NewNetworkMetricsService(nil, testLogger(), fc, graph, followRepo, activityRepo, DefaultScoreWeights(), fixedClock(now))

	got, err := svc.GetNetworkMetrics(ctx, me.ID)
	if err != nil {
		t.Fatalf("GetNetworkMetrics: %v", err)
	}

	if got.FollowingCount != 2 || got.FollowersCount != 2 {
		t.Fatalf("counts = %d following, %d followers, want 2/2", got.FollowingCount, got.FollowersCount)
	}
	if got.MutualConnections != 1 {
		t.Fatalf("MutualConnections = %d, want 1 (only d)", got.MutualConnections)
	}
	if got.NetworkReach != 1 {
		t.Fatalf("NetworkReach = %d, want 1", got.NetworkReach)
	}
	// (12+3)/10 activities
	if got.EngagementRate != 1.5 {
		t.Fatalf("EngagementRate = %v, want 1.5", got.EngagementRate)
	}
	// 2 followers * 2 + 15 interactions * 0.5 + (2/2) * 10
	if got.InfluenceScore != 21.5 {
		t.Fatalf("InfluenceScore = %v, want 21.5", got.InfluenceScore)
	}
	if got.NewConnectionsMonth != 6 {
		t.Fatalf("NewConnectionsMonth = %d, want 6", got.NewConnectionsMonth)
	}
	// 6 this month vs 4 last month
	if got.ConnectionGrowthRate != 50 {
		t.Fatalf("ConnectionGrowthRate = %v, want 50", got.ConnectionGrowthRate)
	}
	// 2 edges among the 3-user neighborhood, 6 ordered pairs
	if got.NetworkDensity != 0.333 {
		t.Fatalf("NetworkDensity = %v, want 0.333", got.NetworkDensity)
	}
	if got.NetworkDensity < 0 || got.NetworkDensity > 1 {
		t.Fatalf("NetworkDensity %v out of [0,1]", got.NetworkDensity)
	}
	// degree 4 over 4 other active users
	if got.CentralityScore != 1 {
		t.Fatalf("CentralityScore = %v, want 1", got.CentralityScore)
	}

	// second lookup comes from cache
	calls := graph.followingCalls
	again, err := svc.GetNetworkMetrics(ctx, me.ID)
	if err != nil {
		t.Fatalf("GetNetworkMetrics cached: %v", err)
	}
	if *again != *got {
		t.Fatalf("cached metrics = %+v, want %+v", again, got)
	}
	if graph.followingCalls != calls {
		t.Fatal("cached lookup hit the graph again")
	}

	if _, err := svc.GetNetworkMetrics(ctx, uuid.New()); !apierr.IsNotFound(err) {
		t.Fatalf("unknown user error = %v", err)
	}
}

func TestNetworkMetricsIsolatedUser(t *testing.T) {
	ctx := context.Background()
	graph := newFakeGraph()
	loner := graph.addUser("loner")

	followRepo := &fakeFollowRepo{following: graph.following}
	activityRepo := &fakeActivityRepo{}
	svc := NewNetworkMetricsService(nil, testLogger(), newFakeCache(), graph, followRepo, activityRepo, DefaultScoreWeights(), fixedClock(time.Now()))

	got, err := svc.GetNetworkMetrics(ctx, loner.ID)
	if err != nil {
		t.Fatalf("GetNetworkMetrics: %v", err)
	}
	if got.FollowingCount != 0 || got.FollowersCount != 0 {
		t.Fatalf("isolated user counts = %+v", got)
	}
	if got.EngagementRate != 0 || got.InfluenceScore != 0 || got.NetworkDensity != 0 || got.ConnectionGrowthRate != 0 {
		t.Fatalf("isolated user rates not zero: %+v", got)
	}
}
