package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/wallpaperverse/api/internal/ingest"
)

// Syncer is the part of the ingestion pipeline the sync queues drive.
type Syncer interface {
	SyncFromAllSources(ctx context.Context) (*ingest.SyncReport, error)
	SyncCategoryBySlug(ctx context.Context, slug string) (*ingest.CategoryReport, error)
	UpdateStatistics(ctx context.Context) error
}

func retention() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}

// SyncAllTask runs a full sync across every active category.
type SyncAllTask struct{}

func (t SyncAllTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_all",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention:   retention(),
	}
}

func SyncAllProcessor(syncer Syncer, logger *slog.Logger) backlite.QueueProcessor[SyncAllTask] {
	return func(ctx context.Context, task SyncAllTask) error {
		if syncer == nil {
			return fmt.Errorf("syncer not configured")
		}

		report, err := syncer.SyncFromAllSources(ctx)
		if err != nil {
			return fmt.Errorf("sync all: %w", err)
		}

		logger.Info("sync task complete",
			"categories", report.Categories,
			"failed_categories", report.FailedCategories,
			"saved", report.Saved,
			"created", report.Created,
		)
		return nil
	}
}

func NewSyncAllQueue(syncer Syncer, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(SyncAllProcessor(syncer, logger))
}

// SyncCategoryTask syncs a single category by slug.
type SyncCategoryTask struct {
	Slug string `json:"slug"`
}

func (t SyncCategoryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_category",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention:   retention(),
	}
}

func SyncCategoryProcessor(syncer Syncer, logger *slog.Logger) backlite.QueueProcessor[SyncCategoryTask] {
	return func(ctx context.Context, task SyncCategoryTask) error {
		if syncer == nil {
			return fmt.Errorf("syncer not configured")
		}
		if task.Slug == "" {
			return fmt.Errorf("category slug is required")
		}

		report, err := syncer.SyncCategoryBySlug(ctx, task.Slug)
		if err != nil {
			return fmt.Errorf("sync category %s: %w", task.Slug, err)
		}

		logger.Info("category sync task complete",
			"category", report.Category,
			"fetched", report.Fetched,
			"saved", report.Saved,
			"failed", report.Failed,
		)
		return nil
	}
}

func NewSyncCategoryQueue(syncer Syncer, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(SyncCategoryProcessor(syncer, logger))
}

// UpdateStatisticsTask recomputes denormalized category and tag counts.
type UpdateStatisticsTask struct{}

func (t UpdateStatisticsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "update_statistics",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention:   retention(),
	}
}

func UpdateStatisticsProcessor(syncer Syncer, logger *slog.Logger) backlite.QueueProcessor[UpdateStatisticsTask] {
	return func(ctx context.Context, task UpdateStatisticsTask) error {
		if syncer == nil {
			return fmt.Errorf("syncer not configured")
		}
		if err := syncer.UpdateStatistics(ctx); err != nil {
			return fmt.Errorf("update statistics: %w", err)
		}
		logger.Info("statistics updated")
		return nil
	}
}

func NewUpdateStatisticsQueue(syncer Syncer, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(UpdateStatisticsProcessor(syncer, logger))
}
