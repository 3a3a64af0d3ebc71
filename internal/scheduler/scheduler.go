package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/config"
	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const (
	watchlistTimeout = 5 * time.Minute
	digestTimeout    = 2 * time.Minute
	digestWindowDays = 7
)

// ForecastRunner produces forecasts for watchlist entries.
type ForecastRunner interface {
	GetForecast(ctx context.Context, req models.ForecastRequest) models.Forecast
}

// DigestBuilder summarizes the forecasts served in a period.
type DigestBuilder interface {
	WeeklySummary(ctx context.Context, start, end time.Time) (models.ForecastDigest, error)
}

// DigestStore persists digests.
type DigestStore interface {
	SaveDigest(ctx context.Context, digest models.ForecastDigest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.SchedulerConfig
	forecasts ForecastRunner
	digests   DigestBuilder
	store     DigestStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. digests and store may be nil,
// in which case the weekly digest job is not registered.
func NewScheduler(cfg config.SchedulerConfig, forecasts ForecastRunner, digests DigestBuilder, store DigestStore, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		cfg:       cfg,
		forecasts: forecasts,
		digests:   digests,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if len(s.cfg.Watchlist) > 0 {
		if _, err := s.cron.AddFunc(s.cfg.WatchlistCron, s.refreshWatchlist); err != nil {
			return fmt.Errorf("schedule watchlist refresh %q: %w", s.cfg.WatchlistCron, err)
		}
	}

	if s.digests != nil {
		if _, err := s.cron.AddFunc(s.cfg.DigestCron, s.buildWeeklyDigest); err != nil {
			return fmt.Errorf("schedule weekly digest %q: %w", s.cfg.DigestCron, err)
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

func (s *Scheduler) refreshWatchlist() {
	ctx, cancel := context.WithTimeout(context.Background(), watchlistTimeout)
	defer cancel()

	for _, item := range s.cfg.Watchlist {
		season, err := models.ParseSeason(item.Season)
		if err != nil {
			s.logger.Warn("skip watchlist entry", zap.String("crop", item.Crop), zap.Error(err))
			continue
		}

		f := s.forecasts.GetForecast(ctx, models.ForecastRequest{
			Crop:     item.Crop,
			Region:   item.Region,
			Season:   season,
			Quantity: item.Quantity,
		})

		s.logger.Info("watchlist forecast refreshed",
			zap.String("crop", f.Crop),
			zap.String("district", f.Region),
			zap.String("glut_risk", string(f.GlutRisk)),
			zap.String("source", string(f.Source)))
	}
}

func (s *Scheduler) buildWeeklyDigest() {
	s.logger.Info("generating weekly digest")
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	end := s.now()
	start := end.AddDate(0, 0, -(digestWindowDays - 1))

	digest, err := s.digests.WeeklySummary(ctx, start, end)
	if err != nil {
		s.logger.Error("failed to generate weekly digest", zap.Error(err))
		return
	}

	s.logger.Info("weekly digest ready", zap.String("summary", digest.Summary))

	if s.store == nil {
		return
	}
	if err := s.store.SaveDigest(ctx, digest); err != nil {
		s.logger.Error("failed to save weekly digest", zap.Error(err))
	}
}
