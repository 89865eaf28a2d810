package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// EngagementTotals aggregates a user's feed activity over a window.
type EngagementTotals struct {
	Activities int64
	Likes      int64
	Comments   int64
}

type ActivityFeedRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ActivityFeed) error
	TotalsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (EngagementTotals, error)
	// TotalsByUser aggregates per-user engagement since the given time,
	// restricted to active users.
	TotalsByUser(ctx context.Context, tx *gorm.DB, since time.Time) (map[uuid.UUID]EngagementTotals, error)
	// CountByUserIDs maps each of the given users onto their activity count
	// since the given time. Users without activity are absent.
	CountByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int64, error)
}

type activityFeedRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityFeedRepo(db *gorm.DB, baseLog *logger.Logger) ActivityFeedRepo {
	repoLog := baseLog.With("repo", "ActivityFeedRepo")
	return &activityFeedRepo{db: db, log: repoLog}
}

func (ar *activityFeedRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ActivityFeed) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	return transaction.WithContext(ctx).Create(entry).Error
}

func (ar *activityFeedRepo) TotalsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (EngagementTotals, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var row struct {
		Activities int64
		Likes      int64
		Comments   int64
	}
	err := transaction.WithContext(ctx).
		Model(&types.ActivityFeed{}).
		Select("COUNT(*) AS activities, COALESCE(SUM(likes_count), 0) AS likes, COALESCE(SUM(comments_count), 0) AS comments").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&row).Error
	if err != nil {
		return EngagementTotals{}, err
	}
	return EngagementTotals{Activities: row.Activities, Likes: row.Likes, Comments: row.Comments}, nil
}

func (ar *activityFeedRepo) TotalsByUser(ctx context.Context, tx *gorm.DB, since time.Time) (map[uuid.UUID]EngagementTotals, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var rows []struct {
		UserID     uuid.UUID
		Activities int64
		Likes      int64
		Comments   int64
	}
	err := transaction.WithContext(ctx).
		Table("activity_feed AS af").
		Select("af.user_id AS user_id, COUNT(*) AS activities, COALESCE(SUM(af.likes_count), 0) AS likes, COALESCE(SUM(af.comments_count), 0) AS comments").
		Joins(`JOIN "user" u ON u.id = af.user_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("af.created_at >= ?", since).
		Group("af.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]EngagementTotals, len(rows))
	for _, r := range rows {
		totals[r.UserID] = EngagementTotals{Activities: r.Activities, Likes: r.Likes, Comments: r.Comments}
	}
	return totals, nil
}

func (ar *activityFeedRepo) CountByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int64, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var rows []struct {
		UserID uuid.UUID
		Total  int64
	}
	err := transaction.WithContext(ctx).
		Model(&types.ActivityFeed{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ? AND created_at >= ?", userIDs, since).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Total
	}
	return counts, nil
}
