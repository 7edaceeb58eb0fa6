package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wallpaperverse/api/internal/ingest"
)

type Job string

const (
	JobSync         Job = "sync"
	JobCacheCleanup Job = "cache_cleanup"
	JobStatistics   Job = "statistics"
	JobRetention    Job = "retention"
)

var ErrUnknownJob = errors.New("unknown job")

type Syncer interface {
	SyncFromAllSources(ctx context.Context) (*ingest.SyncReport, error)
	UpdateStatistics(ctx context.Context) error
}

type CacheCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

type EventCleaner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

type Config struct {
	Enabled           bool
	SyncSchedule      string
	CleanupSchedule   string
	StatsSchedule     string
	RetentionSchedule string
	RetentionDays     int // 0 disables the retention job
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler runs the periodic sync, cache cleanup, statistics and retention
// jobs. Runs of the same job may overlap when one outlasts its interval.
type Scheduler struct {
	syncer Syncer
	cache  CacheCleaner
	events EventCleaner
	config Config
	logger *slog.Logger

	cron       *cron.Cron
	entries    map[Job]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	jobCtx     context.Context
	cancelFunc context.CancelFunc
	now        func() time.Time
}

func New(syncer Syncer, cache CacheCleaner, events EventCleaner, cfg Config, logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		syncer:  syncer,
		cache:   cache,
		events:  events,
		config:  cfg,
		logger:  logger,
		entries: make(map[Job]cron.EntryID),
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		now: time.Now,
	}
}

func (s *Scheduler) schedules() map[Job]string {
	jobs := map[Job]string{
		JobSync:         s.config.SyncSchedule,
		JobCacheCleanup: s.config.CleanupSchedule,
		JobStatistics:   s.config.StatsSchedule,
	}
	if s.config.RetentionDays > 0 && s.events != nil {
		jobs[JobRetention] = s.config.RetentionSchedule
	}
	return jobs
}

// Start registers every job and starts the cron loop. Cancelling ctx stops
// the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("cron jobs disabled")
		return nil
	}

	schedules := s.schedules()
	for job, expr := range schedules {
		if err := ValidateSchedule(expr); err != nil {
			return fmt.Errorf("%s job: %w", job, err)
		}
	}

	s.jobCtx, s.cancelFunc = context.WithCancel(ctx)
	for job, expr := range schedules {
		job := job
		id, err := s.cron.AddFunc(expr, func() {
			if err := s.Run(s.jobCtx, job); err != nil {
				s.logger.Error("job failed", "job", job, "error", err)
			}
		})
		if err != nil {
			s.cancelFunc()
			return fmt.Errorf("failed to schedule %s job: %w", job, err)
		}
		s.entries[job] = id
		s.logger.Info("job scheduled", "job", job, "schedule", expr)
	}

	s.cron.Start()
	s.isRunning = true

	go func(done <-chan struct{}) {
		<-done
		s.Stop()
	}(s.jobCtx.Done())

	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()

	for job, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, job)
	}
	s.isRunning = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRuns returns the next activation of every scheduled job.
func (s *Scheduler) NextRuns() map[Job]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := make(map[Job]time.Time, len(s.entries))
	for job, id := range s.entries {
		next[job] = s.cron.Entry(id).Next
	}
	return next
}

// Jobs lists the jobs this configuration would schedule.
func (s *Scheduler) Jobs() []Job {
	jobs := make([]Job, 0, 4)
	for job := range s.schedules() {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i] < jobs[j] })
	return jobs
}

// RunNow triggers a job in the background.
func (s *Scheduler) RunNow(job Job) error {
	if _, ok := s.schedules()[job]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}
	go func() {
		if err := s.Run(context.Background(), job); err != nil {
			s.logger.Error("job failed", "job", job, "error", err)
		}
	}()
	return nil
}

// Run executes a job synchronously.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	start := s.now()
	s.logger.Info("job started", "job", job)

	var err error
	switch job {
	case JobSync:
		err = s.runSync(ctx)
	case JobCacheCleanup:
		err = s.runCacheCleanup(ctx)
	case JobStatistics:
		err = s.syncer.UpdateStatistics(ctx)
	case JobRetention:
		err = s.runRetention(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}
	if err != nil {
		return err
	}

	s.logger.Info("job finished", "job", job, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Scheduler) runSync(ctx context.Context) error {
	report, err := s.syncer.SyncFromAllSources(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	s.logger.Info("scheduled sync complete",
		"categories", report.Categories,
		"failed_categories", report.FailedCategories,
		"saved", report.Saved,
		"created", report.Created,
	)
	return nil
}

func (s *Scheduler) runCacheCleanup(ctx context.Context) error {
	removed, err := s.cache.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}
	s.logger.Info("cache cleanup complete", "removed", removed)
	return nil
}

func (s *Scheduler) runRetention(ctx context.Context) error {
	if s.events == nil || s.config.RetentionDays <= 0 {
		return nil
	}
	cutoff := s.now().Add(-time.Duration(s.config.RetentionDays) * 24 * time.Hour)
	deleted, err := s.events.DeleteOldEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("event retention: %w", err)
	}
	s.logger.Info("old events deleted", "deleted", deleted, "retention_days", s.config.RetentionDays)
	return nil
}

// cronLogger routes cron's own messages (including recovered panics) to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
