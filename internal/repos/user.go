package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

type UserRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error)
	ActiveCount(ctx context.Context, tx *gorm.DB) (int64, error)
	ActiveIDs(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
	// SameLocationScores maps active users sharing the given location onto a
	// proximity score: 4 for a city+state match, 2 for state only.
	SameLocationScores(ctx context.Context, tx *gorm.DB, city, state string, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var u types.User
	err := transaction.WithContext(ctx).
		Where("id = ?", userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetByIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ur *userRepo) ActiveCount(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (ur *userRepo) ActiveIDs(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.User{}).
		Where("is_active = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (ur *userRepo) SameLocationScores(ctx context.Context, tx *gorm.DB, city, state string, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = ur.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.User{}).
		Select(`id, CASE WHEN city = ? AND state = ? THEN 4 ELSE 2 END AS score`, city, state).
		Where("is_active = ?", true).
		Where("state = ?", state)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var rows []struct {
		ID    uuid.UUID
		Score int
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	scores := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		scores[r.ID] = r.Score
	}
	return scores, nil
}
