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

type FriendSuggestionRepo interface {
	// Upsert inserts the suggestion or refreshes the existing row for the
	// same (user, suggested user) pair. Interaction flags on the existing
	// row are preserved.
	Upsert(ctx context.Context, tx *gorm.DB, suggestion *types.FriendSuggestion) error
	GetByPair(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID) (*types.FriendSuggestion, error)
	// ActiveForUser returns non-dismissed, non-expired suggestions whose
	// suggested user is still active, highest confidence first.
	ActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*types.FriendSuggestion, error)

	Dismiss(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error)
	MarkContacted(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error)
	MarkFollowed(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error)
	// BulkDismiss dismisses every active suggestion for the user, returning
	// the number affected.
	BulkDismiss(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) (int64, error)

	DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error)
	DeleteDismissedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

	StatsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) (*types.SuggestionStats, error)
}

type friendSuggestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFriendSuggestionRepo(db *gorm.DB, baseLog *logger.Logger) FriendSuggestionRepo {
	repoLog := baseLog.With("repo", "FriendSuggestionRepo")
	return &friendSuggestionRepo{db: db, log: repoLog}
}

func (sr *friendSuggestionRepo) Upsert(ctx context.Context, tx *gorm.DB, suggestion *types.FriendSuggestion) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "suggested_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"suggestion_type",
				"confidence_score",
				"suggestion_reasons",
				"mutual_connections",
				"mutual_friends_count",
				"shared_interests_count",
				"shared_events_count",
				"expires_at",
				"updated_at",
			}),
		}).
		Create(suggestion).Error
}

func (sr *friendSuggestionRepo) GetByPair(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID) (*types.FriendSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var suggestion types.FriendSuggestion
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND suggested_user_id = ?", userID, suggestedUserID).
		First(&suggestion).Error; err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (sr *friendSuggestionRepo) ActiveForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time, limit int) ([]*types.FriendSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	query := transaction.WithContext(ctx).
		Model(&types.FriendSuggestion{}).
		Joins(`JOIN "user" u ON u.id = friend_suggestion.suggested_user_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("friend_suggestion.user_id = ?", userID).
		Where("friend_suggestion.is_dismissed = ?", false).
		Where("(friend_suggestion.expires_at IS NULL OR friend_suggestion.expires_at > ?)", now).
		Order("friend_suggestion.confidence_score DESC, friend_suggestion.suggested_user_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var suggestions []*types.FriendSuggestion
	if err := query.Find(&suggestions).Error; err != nil {
		return nil, err
	}
	return suggestions, nil
}

func (sr *friendSuggestionRepo) Dismiss(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	return sr.markFlag(ctx, tx, userID, suggestedUserID, "is_dismissed", "dismissed_at", at)
}

func (sr *friendSuggestionRepo) MarkContacted(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	return sr.markFlag(ctx, tx, userID, suggestedUserID, "is_contacted", "contacted_at", at)
}

func (sr *friendSuggestionRepo) MarkFollowed(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, at time.Time) (bool, error) {
	return sr.markFlag(ctx, tx, userID, suggestedUserID, "is_followed", "followed_at", at)
}

// markFlag sets a flag/timestamp pair once; repeated calls are no-ops.
func (sr *friendSuggestionRepo) markFlag(ctx context.Context, tx *gorm.DB, userID, suggestedUserID uuid.UUID, flagColumn, atColumn string, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.FriendSuggestion{}).
		Where("user_id = ? AND suggested_user_id = ?", userID, suggestedUserID).
		Where(flagColumn+" = ?", false).
		Updates(map[string]interface{}{
			flagColumn:   true,
			atColumn:     at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (sr *friendSuggestionRepo) BulkDismiss(ctx context.Context, tx *gorm.DB, userID uuid.UUID, at time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.FriendSuggestion{}).
		Where("user_id = ? AND is_dismissed = ?", userID, false).
		Updates(map[string]interface{}{
			"is_dismissed": true,
			"dismissed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *friendSuggestionRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&types.FriendSuggestion{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *friendSuggestionRepo) DeleteDismissedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	res := transaction.WithContext(ctx).
		Where("is_dismissed = ? AND dismissed_at < ?", true, cutoff).
		Delete(&types.FriendSuggestion{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (sr *friendSuggestionRepo) StatsForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) (*types.SuggestionStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var row struct {
		Total          int
		Active         int
		Dismissed      int
		Contacted      int
		Followed       int
		HighConfidence int
	}
	err := transaction.WithContext(ctx).
		Model(&types.FriendSuggestion{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_dismissed = ? AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN is_dismissed = ? THEN 1 ELSE 0 END), 0) AS dismissed,
			COALESCE(SUM(CASE WHEN is_contacted = ? THEN 1 ELSE 0 END), 0) AS contacted,
			COALESCE(SUM(CASE WHEN is_followed = ? THEN 1 ELSE 0 END), 0) AS followed,
			COALESCE(SUM(CASE WHEN confidence_score >= 0.8 THEN 1 ELSE 0 END), 0) AS high_confidence`,
			false, now, true, true, true).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &types.SuggestionStats{
		Total:          row.Total,
		Active:         row.Active,
		Dismissed:      row.Dismissed,
		Contacted:      row.Contacted,
		Followed:       row.Followed,
		HighConfidence: row.HighConfidence,
	}, nil
}
