package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/types"
)

type EventAttendeeRepo interface {
	// SharedAttendanceCounts maps candidate users onto the number of events
	// both they and the given user attended, keeping only candidates with at
	// least minShared events in common. The user and excludeIDs are left out.
	SharedAttendanceCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error)
	// SharedEventIDs lists events both users attended.
	SharedEventIDs(ctx context.Context, tx *gorm.DB, userID, otherID uuid.UUID) ([]uuid.UUID, error)
}

type eventAttendeeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventAttendeeRepo(db *gorm.DB, baseLog *logger.Logger) EventAttendeeRepo {
	repoLog := baseLog.With("repo", "EventAttendeeRepo")
	return &eventAttendeeRepo{db: db, log: repoLog}
}

func (er *eventAttendeeRepo) SharedAttendanceCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID, minShared int, excludeIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	query := transaction.WithContext(ctx).
		Table("event_attendee AS mine").
		Select("theirs.user_id AS user_id, COUNT(DISTINCT theirs.event_id) AS shared").
		Joins("JOIN event_attendee theirs ON theirs.event_id = mine.event_id AND theirs.status = ?", types.AttendeeStatusAttending).
		Joins(`JOIN "user" u ON u.id = theirs.user_id AND u.is_active = ? AND u.deleted_at IS NULL`, true).
		Where("mine.user_id = ? AND mine.status = ?", userID, types.AttendeeStatusAttending).
		Where("theirs.user_id <> ?", userID)
	if len(excludeIDs) > 0 {
		query = query.Where("theirs.user_id NOT IN ?", excludeIDs)
	}
	query = query.Group("theirs.user_id").
		Having("COUNT(DISTINCT theirs.event_id) >= ?", minShared)

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

func (er *eventAttendeeRepo) SharedEventIDs(ctx context.Context, tx *gorm.DB, userID, otherID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var ids []uuid.UUID
	err := transaction.WithContext(ctx).
		Table("event_attendee AS mine").
		Joins("JOIN event_attendee theirs ON theirs.event_id = mine.event_id AND theirs.user_id = ? AND theirs.status = ?", otherID, types.AttendeeStatusAttending).
		Where("mine.user_id = ? AND mine.status = ?", userID, types.AttendeeStatusAttending).
		Order("mine.event_id ASC").
		Pluck("mine.event_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
