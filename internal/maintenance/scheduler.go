package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/funlynk/funlynk-backend/internal/logger"
	"github.com/funlynk/funlynk-backend/internal/services"
)

// DefaultCleanupSpec runs the suggestion garbage collection nightly, off
// peak.
const DefaultCleanupSpec = "0 3 * * *"

// Scheduler runs the periodic maintenance jobs on a cron cadence.
type Scheduler struct {
	log         *logger.Logger
	cron        *cron.Cron
	maintenance services.MaintenanceService
}

func NewScheduler(log *logger.Logger, maintenance services.MaintenanceService) *Scheduler {
	return &Scheduler{
		log:         log.With("component", "MaintenanceScheduler"),
		cron:        cron.New(),
		maintenance: maintenance,
	}
}

func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultCleanupSpec
	}
	if _, err := s.cron.AddFunc(spec, s.runCleanup); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Maintenance scheduler started", "spec", spec)
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Maintenance scheduler stopped")
}

func (s *Scheduler) runCleanup() {
	ctx := context.Background()

	expired, err := s.maintenance.CleanupExpiredSuggestions(ctx)
	if err != nil {
		s.log.Error("Expired suggestion cleanup failed", "error", err)
	}
	dismissed, err := s.maintenance.CleanupDismissedSuggestions(ctx)
	if err != nil {
		s.log.Error("Dismissed suggestion cleanup failed", "error", err)
	}
	s.log.Info("Suggestion cleanup finished", "expired", expired, "dismissed", dismissed)
}
