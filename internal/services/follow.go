package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/cache"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// FollowService owns the follow/unfollow write path and the cache
// invalidation that keeps graph reads coherent after an edge change.
type FollowService interface {
	// Follow creates the edge. A duplicate follow is a no-op success.
	Follow(ctx context.Context, followerID, followingID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error
	IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
}

type followService struct {
	db             *gorm.DB
	log            *logger.Logger
	cache          cache.Cache
	graph          GraphService
	followRepo     repos.UserFollowRepo
	suggestionRepo repos.FriendSuggestionRepo
	activityLog    ActivityLogService
	clock          func() time.Time
}

func NewFollowService(
	db *gorm.DB,
	log *logger.Logger,
	c cache.Cache,
	graph GraphService,
	followRepo repos.UserFollowRepo,
	suggestionRepo repos.FriendSuggestionRepo,
	activityLog ActivityLogService,
	clock func() time.Time,
) FollowService {
	serviceLog := log.With("service", "FollowService")
	if clock == nil {
		clock = time.Now
	}
	return &followService{
		db:             db,
		log:            serviceLog,
		cache:          c,
		graph:          graph,
		followRepo:     followRepo,
		suggestionRepo: suggestionRepo,
		activityLog:    activityLog,
		clock:          clock,
	}
}

func (fs *followService) Follow(ctx context.Context, followerID, followingID uuid.UUID) error {
	if followerID == followingID {
		return apierr.InvalidArgument("cannot follow yourself")
	}
	if _, err := fs.graph.GetUser(ctx, followerID); err != nil {
		return err
	}
	if _, err := fs.graph.GetUser(ctx, followingID); err != nil {
		return err
	}

	now := fs.clock().UTC()
	created, err := fs.followRepo.Create(ctx, nil, followerID, followingID, now)
	if err != nil {
		return apierr.DataUnavailable(err)
	}
	if !created {
		// duplicate edge, nothing changed
		return nil
	}

	// a fulfilled suggestion is marked followed, if one exists
	if _, err := fs.suggestionRepo.MarkFollowed(ctx, nil, followerID, followingID, now); err != nil {
		fs.log.Warn("Failed to mark suggestion followed", "followerID", followerID, "error", err)
	}

	fs.invalidate(ctx, followerID, followingID)
	fs.activityLog.LogActivity(ctx, followerID, "user_followed", types.SubjectKindUser, &followingID, nil)
	return nil
}

func (fs *followService) Unfollow(ctx context.Context, followerID, followingID uuid.UUID) error {
	if followerID == followingID {
		return apierr.InvalidArgument("cannot unfollow yourself")
	}
	if _, err := fs.graph.GetUser(ctx, followerID); err != nil {
		return err
	}
	if _, err := fs.graph.GetUser(ctx, followingID); err != nil {
		return err
	}

	if err := fs.followRepo.Delete(ctx, nil, followerID, followingID); err != nil {
		return apierr.DataUnavailable(err)
	}

	fs.invalidate(ctx, followerID, followingID)
	fs.activityLog.LogActivity(ctx, followerID, "user_unfollowed", types.SubjectKindUser, &followingID, nil)
	return nil
}

func (fs *followService) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	exists, err := fs.followRepo.Exists(ctx, nil, followerID, followingID)
	if err != nil {
		return false, apierr.DataUnavailable(err)
	}
	return exists, nil
}

// invalidate clears every cache family an edge change can stale: metrics,
// mutual pairs and communities for both endpoints, and the acting user's
// suggestion lists.
func (fs *followService) invalidate(ctx context.Context, followerID, followingID uuid.UUID) {
	prefixes := []string{
		cache.MetricsPrefix(followerID),
		cache.MetricsPrefix(followingID),
		cache.MutualPrefix(followerID),
		cache.MutualPrefix(followingID),
		cache.CommunitiesPrefix(followerID),
		cache.CommunitiesPrefix(followingID),
		cache.SuggestionsPrefix(followerID),
	}
	for _, prefix := range prefixes {
		if err := fs.cache.InvalidatePrefix(ctx, prefix); err != nil {
			fs.log.Warn("Cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
}
