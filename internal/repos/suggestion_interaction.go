package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// InteractionCount is one (reason, action) cell of the analytics roll-up.
type InteractionCount struct {
	SuggestionReason string
	Action           string
	Total            int
}

type SuggestionInteractionRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.SuggestionInteraction) error
	// AggregateSince counts interactions per (suggestion reason, action) for
	// the user over the window.
	AggregateSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]InteractionCount, error)
}

type suggestionInteractionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSuggestionInteractionRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionInteractionRepo {
	repoLog := baseLog.With("repo", "SuggestionInteractionRepo")
	return &suggestionInteractionRepo{db: db, log: repoLog}
}

func (ir *suggestionInteractionRepo) Append(ctx context.Context, tx *gorm.DB, row *types.SuggestionInteraction) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	return transaction.WithContext(ctx).Create(row).Error
}

func (ir *suggestionInteractionRepo) AggregateSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]InteractionCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	var rows []InteractionCount
	err := transaction.WithContext(ctx).
		Model(&types.SuggestionInteraction{}).
		Select("suggestion_reason, action, COUNT(*) AS total").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("suggestion_reason").
		Group("action").
		Order("suggestion_reason ASC, action ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
