package services

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// GraphService is the query layer every other social-graph service builds
// on: thin, bounded lookups over follow edges, interests, location and event
// attendance. All lookups exclude inactive users.
type GraphService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// MutualConnectionIDs returns the users followed by both a and b, minus
	// the pair itself, sorted for determinism. Symmetric in its arguments.
	MutualConnectionIDs(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error)
	// MutualConnectionCount counts users followed by at least one of the
	// user's followees, excluding the user.
	MutualConnectionCount(ctx context.Context, userID uuid.UUID) (int, error)
	// SecondDegreeReach counts distinct two-hop users, excluding the user
	// and direct followees.
	SecondDegreeReach(ctx context.Context, userID uuid.UUID) (int, error)

	MutualCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	SharedInterestUsers(ctx context.Context, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	SameLocationUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	SharedEventAttendanceUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)

	InterestNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	CommonInterests(ctx context.Context, userID, otherID uuid.UUID) ([]string, error)
	ActiveUserCount(ctx context.Context) (int64, error)
	UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.User, error)
}

type graphService struct {
	db           *gorm.DB
	log          *logger.Logger
	cache        cache.Cache
	userRepo     repos.UserRepo
	followRepo   repos.UserFollowRepo
	interestRepo repos.UserInterestRepo
	attendeeRepo repos.EventAttendeeRepo
}

func NewGraphService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	userRepo repos.UserRepo,
	followRepo repos.UserFollowRepo,
	interestRepo repos.UserInterestRepo,
	attendeeRepo repos.EventAttendeeRepo,
) GraphService {
	serviceLog := log.With("service", "GraphService")
	return &graphService{
		db:           db,
		log:          serviceLog,
		cache:        c,
		userRepo:     userRepo,
		followRepo:   followRepo,
		interestRepo: interestRepo,
		attendeeRepo: attendeeRepo,
	}
}

func (gs *graphService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := gs.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user %s not found", userID)
		}
		return nil, apierr.DataUnavailable(err)
	}
	return user, nil
}

func (gs *graphService) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := gs.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := gs.followRepo.FollowingIDs(ctx, nil, userID)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return ids, nil
}

func (gs *graphService) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := gs.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := gs.followRepo.FollowerIDs(ctx, nil, userID)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return ids, nil
}

func (gs *graphService) MutualConnectionIDs(ctx context.Context, a, b uuid.UUID) ([]uuid.UUID, error) {
	var cached []uuid.UUID
	if hit, err := gs.cache.Get(ctx, cache.MutualKey(a, b), &cached); err == nil && hit {
		return cached, nil
	}

	var aFollowing, bFollowing []uuid.UUID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := gs.FollowingIDs(gctx, a)
		aFollowing = ids
		return err
	})
	g.Go(func() error {
		ids, err := gs.FollowingIDs(gctx, b)
		bFollowing = ids
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inB := make(map[uuid.UUID]struct{}, len(bFollowing))
	for _, id := range bFollowing {
		inB[id] = struct{}{}
	}
	mutual := make([]uuid.UUID, 0)
	for _, id := range aFollowing {
		if id == a || id == b {
			continue
		}
		if _, ok := inB[id]; ok {
			mutual = append(mutual, id)
		}
	}
	sort.Slice(mutual, func(i, j int) bool { return mutual[i].String() < mutual[j].String() })

	// written under both orderings so per-user prefix invalidation clears
	// every pair containing that user
	if err := gs.cache.Set(ctx, cache.MutualKey(a, b), mutual, cache.TTLMutual); err != nil {
		gs.log.Warn("Failed to cache mutual connections", "error", err)
	}
	if err := gs.cache.Set(ctx, cache.MutualKey(b, a), mutual, cache.TTLMutual); err != nil {
		gs.log.Warn("Failed to cache mutual connections", "error", err)
	}
	return mutual, nil
}

func (gs *graphService) MutualConnectionCount(ctx context.Context, userID uuid.UUID) (int, error) {
	counts, err := gs.followRepo.FolloweesOfFollowees(ctx, nil, userID, nil)
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	return len(counts), nil
}

func (gs *graphService) SecondDegreeReach(ctx context.Context, userID uuid.UUID) (int, error) {
	reach, err := gs.followRepo.SecondDegreeCount(ctx, nil, userID)
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	return int(reach), nil
}

func (gs *graphService) MutualCandidates(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts, err := gs.followRepo.FolloweesOfFollowees(ctx, nil, userID, excludeIDs)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return counts, nil
}

func (gs *graphService) SharedInterestUsers(ctx context.Context, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts, err := gs.interestRepo.SharedInterestCounts(ctx, nil, userID, minShared, excludeIDs)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return counts, nil
}

func (gs *graphService) SameLocationUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	user, err := gs.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.City == "" || user.State == "" {
		return map[uuid.UUID]int{}, nil
	}

	exclude := append([]uuid.UUID{userID}, excludeIDs...)
	scores, err := gs.userRepo.SameLocationScores(ctx, nil, user.City, user.State, exclude)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return scores, nil
}

func (gs *graphService) SharedEventAttendanceUsers(ctx context.Context, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts, err := gs.attendeeRepo.SharedAttendanceCounts(ctx, nil, userID, 1, excludeIDs)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return counts, nil
}

func (gs *graphService) InterestNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	names, err := gs.interestRepo.InterestNames(ctx, nil, userID)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return names, nil
}

func (gs *graphService) CommonInterests(ctx context.Context, userID, otherID uuid.UUID) ([]string, error) {
	names, err := gs.interestRepo.CommonInterests(ctx, nil, userID, otherID)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return names, nil
}

func (gs *graphService) ActiveUserCount(ctx context.Context) (int64, error) {
	count, err := gs.userRepo.ActiveCount(ctx, nil)
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	return count, nil
}

func (gs *graphService) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.User, error) {
	users, err := gs.userRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, apierr.DataUnavailable(err)
	}
	return users, nil
}
