package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

type UserInterestRepo interface {
	InterestNames(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error)
	// SharedInterestCounts maps candidate users onto the number of interests
	// they share with the given user, keeping only candidates with at least
	// minShared in common. The user and excludeIDs are left out.
	SharedInterestCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// CommonInterests lists the interest names two users share.
	CommonInterests(ctx context.Context, tx *gorm.DB, userID, otherID uuid.UUID) ([]string, error)
	// TopSharedAmong returns up to limit interest names held by at least
	// minCount of the given users, most frequent first.
	TopSharedAmong(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, minCount, limit int) ([]string, error)
}

type userInterestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserInterestRepo(db *gorm.DB, baseLog *logger.Logger) UserInterestRepo {
	repoLog := baseLog.With("repo", "UserInterestRepo")
	return &userInterestRepo{db: db, log: repoLog}
}

func (ir *userInterestRepo) InterestNames(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var names []string
	if err := transaction.WithContext(ctx).
		Model(&types.UserInterest{}).
		Where("user_id = ?", userID).
		Order("interest_name ASC").
		Pluck("interest_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (ir *userInterestRepo) SharedInterestCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	query := transaction.WithContext(ctx).
		Table("user_interest AS mine").
		Select("theirs.user_id AS user_id, COUNT(DISTINCT theirs.interest_name) AS shared").
		Joins("JOIN user_interest theirs ON theirs.interest_name = mine.interest_name").
		Joins(`JOIN "user" u ON u.id = theirs.user_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("mine.user_id = ?", userID).
		Where("theirs.user_id <> ?", userID)
	if len(excludeIDs) > 0 {
		query = query.Where("theirs.user_id NOT IN ?", excludeIDs)
	}
	query = query.Group("theirs.user_id").
		Having("COUNT(DISTINCT theirs.interest_name) >= ?", minShared)

	var rows []struct {
		UserID uuid.UUID
		Shared int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Shared
	}
	return counts, nil
}

func (ir *userInterestRepo) TopSharedAmong(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, minCount, limit int) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var names []string
	err := transaction.WithContext(ctx).
		Model(&types.UserInterest{}).
		Select("interest_name").
		Where("user_id IN ?", userIDs).
		Group("interest_name").
		Having("COUNT(DISTINCT user_id) >= ?", minCount).
		Order("COUNT(DISTINCT user_id) DESC, interest_name ASC").
		Limit(limit).
		Pluck("interest_name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (ir *userInterestRepo) CommonInterests(ctx context.Context, tx *gorm.DB, userID, otherID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var names []string
	if err := transaction.WithContext(ctx).
		Table("user_interest AS mine").
		Joins("JOIN user_interest theirs ON theirs.interest_name = mine.interest_name AND theirs.user_id = ?", otherID).
		Where("mine.user_id = ?", userID).
		Order("mine.interest_name ASC").
		Pluck("mine.interest_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
