package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// ActivityLogService is the structured logging sink. Both operations are
// fire-and-forget: failures are logged and swallowed, never surfaced to the
// primary operation.
type ActivityLogService interface {
	LogError(ctx context.Context, err error, context map[string]interface{})
	LogActivity(ctx context.Context, userID uuid.UUID, action string, subjectKind types.SubjectKind, subjectID *uuid.UUID, context map[string]interface{})
}

type activityLogService struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.ActivityFeedRepo
	clock        func() time.Time
}

func NewActivityLogService(db *gorm.DB, log *logger.Logger, activityRepo repos.ActivityFeedRepo, clock func() time.Time) ActivityLogService {
	serviceLog := log.With("service", "ActivityLogService")
	if clock == nil {
		clock = time.Now
	}
	return &activityLogService{
		db:           db,
		log:          serviceLog,
		activityRepo: activityRepo,
		clock:        clock,
	}
}

func (as *activityLogService) LogError(ctx context.Context, err error, context map[string]interface{}) {
	fields := make([]interface{}, 0, 2+2*len(context))
	fields = append(fields, "error", err)
	for k, v := range context {
		fields = append(fields, k, v)
	}
	as.log.Error("Operation failed", fields...)
}

func (as *activityLogService) LogActivity(ctx context.Context, userID uuid.UUID, action string, subjectKind types.SubjectKind, subjectID *uuid.UUID, context map[string]interface{}) {
	if !subjectKind.Valid() {
		as.log.Warn("Dropping activity with unknown subject kind", "kind", subjectKind, "action", action)
		return
	}

	var payload datatypes.JSON
	if len(context) > 0 {
		raw, err := json.Marshal(context)
		if err != nil {
			as.log.Warn("Failed to encode activity context", "action", action, "error", err)
		} else {
			payload = datatypes.JSON(raw)
		}
	}

	entry := &types.ActivityFeed{
		UserID:      userID,
		Type:        action,
		SubjectKind: subjectKind,
		SubjectID:   subjectID,
		Context:     payload,
		CreatedAt:   as.clock().UTC(),
	}
	if err := as.activityRepo.Append(ctx, nil, entry); err != nil {
		as.log.Warn("Failed to append activity", "userID", userID, "action", action, "error", err)
	}
}
