package processor

import (
	"context"

	"carteras/pkg/logger"

	"github.com/robfig/cron/v3"
)

// CleanupRunner - один проход фоновой очистки осиротевших изображений
type CleanupRunner interface {
	Run(ctx context.Context) error
}

type CronScheduler struct {
	cron       *cron.Cron
	cleanupSvc CleanupRunner
}

func NewCronScheduler(cleanupSvc CleanupRunner) *CronScheduler {
	return &CronScheduler{
		cron:       cron.New(),
		cleanupSvc: cleanupSvc,
	}
}

func (s *CronScheduler) Start(ctx context.Context, schedule string) error {
	logger.Info().Str("schedule", schedule).Msg("starting cron scheduler")

	_, err := s.cron.AddFunc(schedule, func() {
		logger.Info().Msg("cron job triggered: orphaned assets cleanup")

		if err := s.cleanupSvc.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("orphaned assets cleanup failed")
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().Msg("cron scheduler started")

	return nil
}

func (s *CronScheduler) Stop() {
	logger.Info().Msg("stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("cron scheduler stopped")
}

func (s *CronScheduler) GetEntries() []cron.Entry {
	return s.cron.Entries()
}
