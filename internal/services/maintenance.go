package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/repos"
)

const DismissedRetentionDays = 30

// MaintenanceService garbage-collects suggestion rows: expired ones, and
// dismissed ones older than the retention window.
type MaintenanceService interface {
	CleanupExpiredSuggestions(ctx context.Context) (int64, error)
	CleanupDismissedSuggestions(ctx context.Context) (int64, error)
}

type maintenanceService struct {
	db             *gorm.DB
	log            *logger.Logger
	suggestionRepo repos.FriendSuggestionRepo
	clock          func() time.Time
}

func NewMaintenanceService(db *gorm.DB, log *logger.Logger, suggestionRepo repos.FriendSuggestionRepo, clock func() time.Time) MaintenanceService {
	serviceLog := log.With("service", "MaintenanceService")
	if clock == nil {
		clock = time.Now
	}
	return &maintenanceService{
		db:             db,
		log:            serviceLog,
		suggestionRepo: suggestionRepo,
		clock:          clock,
	}
}

func (ms *maintenanceService) CleanupExpiredSuggestions(ctx context.Context) (int64, error) {
	deleted, err := ms.suggestionRepo.DeleteExpired(ctx, nil, ms.clock().UTC())
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	if deleted > 0 {
		ms.log.Info("Deleted expired suggestions", "count", deleted)
	}
	return deleted, nil
}

func (ms *maintenanceService) CleanupDismissedSuggestions(ctx context.Context) (int64, error) {
	cutoff := ms.clock().UTC().AddDate(0, 0, -DismissedRetentionDays)
	deleted, err := ms.suggestionRepo.DeleteDismissedBefore(ctx, nil, cutoff)
	if err != nil {
		return 0, apierr.DataUnavailable(err)
	}
	if deleted > 0 {
		ms.log.Info("Deleted stale dismissed suggestions", "count", deleted)
	}
	return deleted, nil
}
