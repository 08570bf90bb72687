package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduler"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
)

type finishedCourseLister interface {
	ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type courseScheduleDeleter interface {
	DeleteByCourse(ctx context.Context, courseID string) (int64, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ScheduleSweeperConfig controls retention of stored schedules.
type ScheduleSweeperConfig struct {
	Spec          string
	RetentionDays int
	Timeout       time.Duration
	Location      *time.Location
}

// ScheduleSweeper periodically deletes schedules of courses that ended long ago.
type ScheduleSweeper struct {
	courses   finishedCourseLister
	schedules courseScheduleDeleter
	cache     cacheInvalidator
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ScheduleSweeperConfig
	schedule  cron.Schedule
	now       func() time.Time

	mu sync.Mutex
	c  *cron.Cron
}

var sweepParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduleSweeper validates the cron spec and builds a sweeper.
func NewScheduleSweeper(courses finishedCourseLister, schedules courseScheduleDeleter, invalidator cacheInvalidator, metrics *MetricsService, logger *zap.Logger, cfg ScheduleSweeperConfig) (*ScheduleSweeper, error) {
	if cfg.Spec == "" {
		cfg.Spec = "@daily"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schedule, err := sweepParser.Parse(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep spec %q: %w", cfg.Spec, err)
	}
	return &ScheduleSweeper{
		courses:   courses,
		schedules: schedules,
		cache:     invalidator,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		schedule:  schedule,
		now:       time.Now,
	}, nil
}

// Start registers the sweep entry. A negative retention disables sweeping.
func (s *ScheduleSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || s.cfg.RetentionDays < 0 {
		return
	}
	s.c = cron.New(cron.WithParser(sweepParser), cron.WithLocation(s.cfg.Location))
	s.c.Schedule(s.schedule, cron.FuncJob(func() {
		runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		if _, err := s.Sweep(runCtx); err != nil {
			s.logger.Error("schedule sweep failed", zap.Error(err))
		}
	}))
	s.c.Start()
	s.logger.Info("schedule sweeper started",
		zap.String("spec", s.cfg.Spec),
		zap.Int("retention_days", s.cfg.RetentionDays),
		zap.Time("next_run", s.schedule.Next(s.now().In(s.cfg.Location))),
	)
}

// Stop waits for a running sweep to finish.
func (s *ScheduleSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}

// Sweep deletes schedules of courses finished before today minus the retention window.
func (s *ScheduleSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := scheduler.DateOf(s.now()).AddDate(0, 0, -s.cfg.RetentionDays)
	courseIDs, err := s.courses.ListFinishedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, courseID := range courseIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := s.schedules.DeleteByCourse(ctx, courseID)
		if err != nil {
			return total, fmt.Errorf("sweep course %s: %w", courseID, err)
		}
		total += deleted
		if deleted > 0 && s.cache != nil {
			_ = s.cache.Invalidate(ctx, cache.CourseSchedulePattern(courseID))
		}
	}

	s.metrics.AddSweptSchedules(total)
	s.logger.Info("schedule sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("courses", len(courseIDs)),
		zap.Int64("rows", total),
	)
	return total, nil
}
