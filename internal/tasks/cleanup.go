package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"
)

const DefaultEventRetentionDays = 90

// EventCleaner deletes view and download events older than a cutoff.
type EventCleaner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error)
}

// CleanupEventsTask removes analytics events older than the retention period.
type CleanupEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   retention(),
	}
}

func CleanupEventsProcessor(cleaner EventCleaner, logger *slog.Logger) backlite.QueueProcessor[CleanupEventsTask] {
	return func(ctx context.Context, task CleanupEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("event cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = DefaultEventRetentionDays
		}
		cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

		deleted, err := cleaner.DeleteOldEvents(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup events: %w", err)
		}

		logger.Info("old events cleaned up", "deleted", deleted, "retention_days", days)
		return nil
	}
}

func NewCleanupEventsQueue(cleaner EventCleaner, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupEventsProcessor(cleaner, logger))
}

// OrphanTagsCleaner provides the ability to delete orphan tags.
type OrphanTagsCleaner interface {
	DeleteOrphanTags(ctx context.Context) (int64, error)
}

// CleanupOrphanTagsTask removes tags no wallpaper references.
type CleanupOrphanTagsTask struct{}

func (t CleanupOrphanTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_orphan_tags",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention:   retention(),
	}
}

func CleanupOrphanTagsProcessor(cleaner OrphanTagsCleaner, logger *slog.Logger) backlite.QueueProcessor[CleanupOrphanTagsTask] {
	return func(ctx context.Context, task CleanupOrphanTagsTask) error {
		if cleaner == nil {
			return fmt.Errorf("orphan tags cleaner not configured")
		}

		deleted, err := cleaner.DeleteOrphanTags(ctx)
		if err != nil {
			return fmt.Errorf("cleanup orphan tags: %w", err)
		}

		logger.Info("orphan tags cleaned up", "deleted", deleted)
		return nil
	}
}

func NewCleanupOrphanTagsQueue(cleaner OrphanTagsCleaner, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupOrphanTagsProcessor(cleaner, logger))
}
