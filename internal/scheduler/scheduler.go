package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/AmitJPatil13/ESahayak-Task/internal/config"
	"github.com/AmitJPatil13/ESahayak-Task/internal/search"
	"github.com/AmitJPatil13/ESahayak-Task/internal/store"
)

// Scheduler runs the nightly search reindex job.
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	search    *search.SearchClient
	config    *config.Config
	log       *zap.Logger
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(st store.Store, sc *search.SearchClient, cfg *config.Config, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		store:  st,
		search: sc,
		config: cfg,
		log:    log,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Reindex.Enabled {
		s.log.Info("scheduler: daily reindex is disabled in configuration")
		return nil
	}
	if s.search == nil {
		s.log.Info("scheduler: search is not configured, skipping reindex job")
		return nil
	}

	cronSpec := s.parseDailyRunTime(s.config.Reindex.DailyTime)

	_, err := s.cron.AddFunc(cronSpec, func() {
		s.log.Info("scheduler: starting daily reindex job")
		if err := s.runReindex(context.Background()); err != nil {
			s.log.Error("scheduler: daily reindex failed", zap.Error(err))
		} else {
			s.log.Info("scheduler: daily reindex completed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.log.Info("scheduler: started",
		zap.String("dailyTime", s.config.Reindex.DailyTime),
		zap.String("cron", cronSpec))

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if s.isRunning {
		s.cron.Stop()
		s.isRunning = false
		s.log.Info("scheduler: stopped")
	}
}

// runReindex pushes every buyer into the search index in one pass.
func (s *Scheduler) runReindex(ctx context.Context) error {
	buyers, err := s.store.ListAll(ctx, store.Filters{})
	if err != nil {
		return fmt.Errorf("load buyers: %w", err)
	}

	s.log.Info("scheduler: reindexing buyers", zap.Int("count", len(buyers)))

	if err := s.search.IndexBuyers(buyers); err != nil {
		return fmt.Errorf("index buyers: %w", err)
	}
	return nil
}

// RunNow immediately executes the reindex job (for manual trigger).
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, fmt.Errorf("search is not configured")
	}
	buyers, err := s.store.ListAll(ctx, store.Filters{})
	if err != nil {
		return 0, fmt.Errorf("load buyers: %w", err)
	}
	if err := s.search.IndexBuyers(buyers); err != nil {
		return 0, fmt.Errorf("index buyers: %w", err)
	}
	return len(buyers), nil
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "03:00" -> "0 3 * * *" (run at 3:00 AM every day)
func (s *Scheduler) parseDailyRunTime(timeStr string) string {
	var hour, minute int
	n, _ := fmt.Sscanf(timeStr, "%d:%d", &hour, &minute)
	if n == 2 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}

	s.log.Warn("scheduler: failed to parse daily time, using default 03:00",
		zap.String("value", timeStr))
	return "0 3 * * *"
}
