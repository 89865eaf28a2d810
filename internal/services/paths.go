package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

const DefaultMaxPathDepth = 6

// PathFinderService runs a depth-bounded breadth-first search over the
// following direction. A nil result (no path within maxDepth) is cached too,
// so repeated misses stay cheap.
type PathFinderService interface {
	// ShortestPath returns nil when no path exists within maxDepth.
	ShortestPath(ctx context.Context, from, to uuid.UUID, maxDepth int) (*types.PathResult, error)
}

// cachedPath wraps the result so a cached "no path" is distinguishable from
// a cache miss.
type cachedPath struct {
	Found  bool              `json:"found"`
	Result *types.PathResult `json:"result,omitempty"`
}

type pathFinderService struct {
	db         *gorm.DB
	log        *logger.Logger
	cache      cache.Cache
	graph      GraphService
	followRepo repos.UserFollowRepo
}

func NewPathFinderService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
) PathFinderService {
	serviceLog := log.With("service", "PathFinderService")
	return &pathFinderService{
		db:         db,
		log:        serviceLog,
		cache:      c,
		graph:      graph,
		followRepo: followRepo,
	}
}

func (ps *pathFinderService) ShortestPath(ctx context.Context, from, to uuid.UUID, maxDepth int) (*types.PathResult, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxPathDepth
	}

	fromUser, err := ps.graph.GetUser(ctx, from)
	if err != nil {
		return nil, err
	}
	if from == to {
		return &types.PathResult{
			Path:   []uuid.UUID{from},
			Length: 0,
			Users:  []*types.User{fromUser},
		}, nil
	}
	if _, err := ps.graph.GetUser(ctx, to); err != nil {
		return nil, err
	}

	key := cache.PathKey(from, to, maxDepth)
	var cached cachedPath
	if hit, err := ps.cache.Get(ctx, key, &cached); err == nil && hit {
		if !cached.Found {
			return nil, nil
		}
		return cached.Result, nil
	}

	result, err := ps.search(ctx, from, to, maxDepth)
	if err != nil {
		return nil, err
	}

	if err := ps.cache.Set(ctx, key, cachedPath{Found: result != nil, Result: result}, cache.TTLPath); err != nil {
		ps.log.Warn("Failed to cache path result", "error", err)
	}
	return result, nil
}

func (ps *pathFinderService) search(ctx context.Context, from, to uuid.UUID, maxDepth int) (*types.PathResult, error) {
	queue := [][]uuid.UUID{{from}}
	visited := map[uuid.UUID]struct{}{from: {}}

	for depth := 0; len(queue) > 0 && depth < maxDepth; depth++ {
		var next [][]uuid.UUID

		for _, path := range queue {
			current := path[len(path)-1]
			followees, err := ps.followRepo.FollowingIDs(ctx, nil, current)
			if err != nil {
				return nil, apierr.DataUnavailable(err)
			}

			for _, id := range followees {
				if id == to {
					full := append(append([]uuid.UUID{}, path...), id)
					return ps.enrich(ctx, full)
				}
				if _, seen := visited[id]; seen {
					continue
				}
				visited[id] = struct{}{}
				next = append(next, append(append([]uuid.UUID{}, path...), id))
			}
		}
		queue = next
	}
	return nil, nil
}

func (ps *pathFinderService) enrich(ctx context.Context, path []uuid.UUID) (*types.PathResult, error) {
	users, err := ps.graph.UsersByIDs(ctx, path)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]*types.User, 0, len(path))
	for _, id := range path {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return &types.PathResult{
		Path:   path,
		Length: len(path) - 1,
		Users:  ordered,
	}, nil
}
