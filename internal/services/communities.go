package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

const (
	DefaultMinCommunitySize = 3
	DefaultMaxCommunities   = 10
)

// CommunityService clusters a user's direct connections into loose
// communities using mutual-connection overlap as the similarity signal.
type CommunityService interface {
	DetectCommunities(ctx context.Context, userID uuid.UUID, minSize, maxCommunities int) ([]types.Community, error)
}

type communityService struct {
	db           *gorm.DB
	log          *logger.Logger
	cache        cache.Cache
	graph        GraphService
	followRepo   repos.UserFollowRepo
	interestRepo repos.UserInterestRepo
	activityRepo repos.ActivityFeedRepo
	clock        func() time.Time
}

func NewCommunityService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
	interestRepo repos.UserInterestRepo,
	activityRepo repos.ActivityFeedRepo,
	clock func() time.Time,
) CommunityService {
	serviceLog := log.With("service", "CommunityService")
	if clock == nil {
		clock = time.Now
	}
	return &communityService{
		db:           db,
		log:          serviceLog,
		cache:        c,
		graph:        graph,
		followRepo:   followRepo,
		interestRepo: interestRepo,
		activityRepo: activityRepo,
		clock:        clock,
	}
}

var communityNamePool = []string{"Network", "Circle", "Group", "Community", "Cluster"}

func (cs *communityService) DetectCommunities(ctx context.Context, userID uuid.UUID, minSize, maxCommunities int) ([]types.Community, error) {
	if minSize <= 0 {
		minSize = DefaultMinCommunitySize
	}
	if maxCommunities <= 0 {
		maxCommunities = DefaultMaxCommunities
	}

	key := cache.CommunitiesKey(userID, minSize, maxCommunities)
	var cached []types.Community
	if hit, err := cs.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	connections, err := cs.directConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(connections) < minSize {
		return []types.Community{}, nil
	}

	clusters, err := cs.cluster(ctx, connections, minSize)
	if err != nil {
		return nil, err
	}
	if len(clusters) > maxCommunities {
		clusters = clusters[:maxCommunities]
	}

	communities := make([]types.Community, 0, len(clusters))
	for i, cluster := range clusters {
		community, err := cs.annotate(ctx, i, cluster)
		if err != nil {
			return nil, err
		}
		communities = append(communities, community)
	}

	if err := cs.cache.Set(ctx, key, communities, cache.TTLCommunities); err != nil {
		cs.log.Warn("Failed to cache communities", "userID", userID, "error", err)
	}
	return communities, nil
}

// directConnections is the deduplicated union of the user's followers and
// followees, in fetch order, self excluded.
func (cs *communityService) directConnections(ctx context.Context, userID uuid.UUID) ([]*types.User, error) {
	following, err := cs.graph.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := cs.graph.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(following)+len(followers))
	ids := make([]uuid.UUID, 0, len(following)+len(followers))
	for _, id := range append(append([]uuid.UUID{}, following...), followers...) {
		if id == userID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	users, err := cs.graph.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]*types.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// cluster runs a greedy single pass: each unprocessed connection seeds a
// cluster and pulls in remaining connections sharing at least two mutual
// connections with the seed.
// Any mutual-lookup failure aborts the whole detection rather than
// returning a cluster set missing edges.
func (cs *communityService) cluster(ctx context.Context, connections []*types.User, minSize int) ([][]*types.User, error) {
	var clusters [][]*types.User
	processed := make(map[uuid.UUID]struct{}, len(connections))

	for _, seed := range connections {
		if _, done := processed[seed.ID]; done {
			continue
		}
		cluster := []*types.User{seed}
		processed[seed.ID] = struct{}{}

		for _, candidate := range connections {
			if _, done := processed[candidate.ID]; done {
				continue
			}
			mutual, err := cs.graph.MutualConnectionIDs(ctx, seed.ID, candidate.ID)
			if err != nil {
				return nil, err
			}
			if len(mutual) >= 2 {
				cluster = append(cluster, candidate)
				processed[candidate.ID] = struct{}{}
			}
		}

		if len(cluster) >= minSize {
			clusters = append(clusters, cluster)
		}
	}
	return clusters, nil
}

func (cs *communityService) annotate(ctx context.Context, index int, members []*types.User) (types.Community, error) {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	minCount := len(ids) / 2
	if minCount < 2 {
		minCount = 2
	}
	interests, err := cs.interestRepo.TopSharedAmong(ctx, nil, ids, minCount, 5)
	if err != nil {
		return types.Community{}, apierr.DataUnavailable(err)
	}

	monthAgo := cs.clock().UTC().AddDate(0, -1, 0)
	activityCounts, err := cs.activityRepo.CountByUserIDs(ctx, nil, ids, monthAgo)
	if err != nil {
		return types.Community{}, apierr.DataUnavailable(err)
	}
	var totalActivity int64
	for _, c := range activityCounts {
		totalActivity += c
	}

	cohesion := 1.0
	if len(ids) >= 2 {
		internal, err := cs.followRepo.CountEdgesAmong(ctx, nil, ids)
		if err != nil {
			return types.Community{}, apierr.DataUnavailable(err)
		}
		cohesion = float64(internal) / float64(len(ids)*(len(ids)-1))
	}

	return types.Community{
		ID:              index + 1,
		Name:            communityName(index, len(members)),
		Size:            len(members),
		Members:         members,
		CommonInterests: interests,
		ActivityLevel:   round2(float64(totalActivity) / float64(len(members))),
		CohesionScore:   round3(cohesion),
	}, nil
}

// communityName is a cosmetic label; stable per (position, size) so cached
// results do not flap.
func communityName(index, size int) string {
	return fmt.Sprintf("%s %d", communityNamePool[index%len(communityNamePool)], size)
}
