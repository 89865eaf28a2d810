package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

type UserFollowRepo interface {
	Exists(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) (bool, error)
	// Create inserts the edge, reporting false when the pair already existed.
	Create(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) error

	// FollowingIDs returns the active users the given user follows.
	FollowingIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)
	// FollowerIDs returns the active users following the given user.
	FollowerIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error)

	CountCreatedBetween(ctx context.Context, tx *gorm.DB, followerID uuid.UUID, from, to time.Time) (int64, error)
	// CountEdgesAmong counts directed edges whose both endpoints are in ids.
	CountEdgesAmong(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error)

	// FolloweesOfFollowees maps each active user reachable in exactly two
	// following hops onto the number of the caller's followees who follow
	// them. The caller and excludeIDs are left out.
	FolloweesOfFollowees(ctx context.Context, tx *gorm.DB, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// SecondDegreeCount counts distinct two-hop users, excluding the caller
	// and the caller's direct followees.
	SecondDegreeCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)

	CreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.UserFollow, error)
	// NewFollowerCounts maps active users onto the number of followers they
	// gained since the given time, excluding excludeIDs.
	NewFollowerCounts(ctx context.Context, tx *gorm.DB, since time.Time, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// FollowerCounts maps every active user with at least one follower onto
	// their all-time follower count.
	FollowerCounts(ctx context.Context, tx *gorm.DB) (map[uuid.UUID]int, error)
}

type userFollowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserFollowRepo(db *gorm.DB, baseLog *logger.Logger) UserFollowRepo {
	repoLog := baseLog.With("repo", "UserFollowRepo")
	return &userFollowRepo{db: db, log: repoLog}
}

func (fr *userFollowRepo) Exists(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserFollow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (fr *userFollowRepo) Create(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	edge := &types.UserFollow{
		ID:          uuid.New(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   at,
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (fr *userFollowRepo) Delete(ctx context.Context, tx *gorm.DB, followerID, followingID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	return transaction.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&types.UserFollow{}).Error
}

func (fr *userFollowRepo) FollowingIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.UserFollow{}).
		Joins(`JOIN "user" u ON u.id = user_follow.following_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("user_follow.follower_id = ?", userID).
		Pluck("user_follow.following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (fr *userFollowRepo) FollowerIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.UserFollow{}).
		Joins(`JOIN "user" u ON u.id = user_follow.follower_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("user_follow.following_id = ?", userID).
		Pluck("user_follow.follower_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (fr *userFollowRepo) CountCreatedBetween(ctx context.Context, tx *gorm.DB, followerID uuid.UUID, from, to time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserFollow{}).
		Where("follower_id = ? AND created_at >= ? AND created_at < ?", followerID, from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (fr *userFollowRepo) CountEdgesAmong(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (int64, error) {
	if len(ids) < 2 {
		return 0, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserFollow{}).
		Where("follower_id IN ? AND following_id IN ?", ids, ids).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (fr *userFollowRepo) FolloweesOfFollowees(ctx context.Context, tx *gorm.DB, userID uuid.UUID, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	query := transaction.WithContext(ctx).
		Table("user_follow AS uf1").
		Select("uf2.following_id AS user_id, COUNT(DISTINCT uf1.following_id) AS mutual_count").
		Joins("JOIN user_follow uf2 ON uf2.follower_id = uf1.following_id").
		Joins(`JOIN "user" u ON u.id = uf2.following_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("uf1.follower_id = ?", userID).
		Where("uf2.following_id <> ?", userID)
	if len(excludeIDs) > 0 {
		query = query.Where("uf2.following_id NOT IN ?", excludeIDs)
	}
	query = query.Group("uf2.following_id")

	var rows []struct {
		UserID      uuid.UUID
		MutualCount int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.MutualCount
	}
	return counts, nil
}

func (fr *userFollowRepo) SecondDegreeCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var count int64
	err := transaction.WithContext(ctx).
		Table("user_follow AS uf1").
		Joins("JOIN user_follow uf2 ON uf2.follower_id = uf1.following_id").
		Where("uf1.follower_id = ?", userID).
		Where("uf2.following_id <> ?", userID).
		Where("uf2.following_id NOT IN (?)",
			transaction.Model(&types.UserFollow{}).Select("following_id").Where("follower_id = ?", userID)).
		Distinct("uf2.following_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (fr *userFollowRepo) CreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.UserFollow, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var edges []*types.UserFollow
	if err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (fr *userFollowRepo) FollowerCounts(ctx context.Context, tx *gorm.DB) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	var rows []struct {
		UserID    uuid.UUID
		Followers int
	}
	err := transaction.WithContext(ctx).
		Table("user_follow AS uf").
		Select("uf.following_id AS user_id, COUNT(*) AS followers").
		Joins(`JOIN "user" u ON u.id = uf.following_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Group("uf.following_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Followers
	}
	return counts, nil
}

func (fr *userFollowRepo) NewFollowerCounts(ctx context.Context, tx *gorm.DB, since time.Time, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	query := transaction.WithContext(ctx).
		Table("user_follow AS uf").
		Select("uf.following_id AS user_id, COUNT(*) AS new_followers").
		Joins(`JOIN "user" u ON u.id = uf.following_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("uf.created_at >= ?", since)
	if len(excludeIDs) > 0 {
		query = query.Where("uf.following_id NOT IN ?", excludeIDs)
	}
	query = query.Group("uf.following_id")

	var rows []struct {
		UserID       uuid.UUID
		NewFollowers int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.NewFollowers
	}
	return counts, nil
}
