package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/domain/models"
	"github.com/mamadbah2/agrimarket/internal/service/reporting"
)

// ReportRunner produces and stores the daily report.
type ReportRunner interface {
	RunDaily(ctx context.Context) (models.DailyReport, error)
}

// CoordinateBackfiller caches missing buyer coordinates.
type CoordinateBackfiller interface {
	BackfillCoordinates(ctx context.Context) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	reports    ReportRunner
	backfiller CoordinateBackfiller
	cfg        config.ReportingConfig
	logger     *zap.Logger
}

// NewScheduler creates a scheduler whose cron expressions are evaluated in
// cfg.Timezone. Either job may be nil.
func NewScheduler(cfg config.ReportingConfig, reports ReportRunner, backfiller CoordinateBackfiller, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reports:    reports,
		backfiller: backfiller,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.reports != nil {
		if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailyReport); err != nil {
			return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
		}
	}
	if s.backfiller != nil && s.cfg.BackfillCronSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.BackfillCronSchedule, s.runBackfill); err != nil {
			return fmt.Errorf("schedule coordinate backfill %q: %w", s.cfg.BackfillCronSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyReport() {
	s.logger.Info("generating daily marketplace report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reports.RunDaily(ctx)
	if err != nil {
		s.logger.Error("daily report incomplete", zap.Error(err))
		return
	}
	s.logger.Info("daily report stored", zap.String("summary", reporting.Summary(report)))
}

func (s *Scheduler) runBackfill() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.backfiller.BackfillCoordinates(ctx)
	if err != nil {
		s.logger.Error("coordinate backfill failed", zap.Int("updated", n), zap.Error(err))
	}
}
