// Package sync provides database operations for sync run history.
//
// This package implements the RunRecorder interface used by the ingestion pipeline.
//
// # Usage
//
//	repo := sync.NewRepository(db)
//	run, err := repo.StartRun(ctx, len(categories))
//	...
//	err = repo.CompleteRun(ctx, run)
package sync

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

// StaleAfter is how long a run may stay "running" before it is considered interrupted.
const StaleAfter = time.Hour

// Repository handles all sync run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// StartRun creates a running sync record.
func (r *Repository) StartRun(ctx context.Context, categories int) (*entities.SyncRun, error) {
	run := &entities.SyncRun{
		Status:     entities.SyncStatusRunning,
		Categories: categories,
		StartedAt:  time.Now(),
	}
	if err := database.Conn(ctx, r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun stores the final counters of run and marks it completed, or
// failed when run.Error is set.
func (r *Repository) CompleteRun(ctx context.Context, run *entities.SyncRun) error {
	now := time.Now()
	run.CompletedAt = &now
	run.Status = entities.SyncStatusCompleted
	if run.Error != "" {
		run.Status = entities.SyncStatusFailed
	}

	return database.Conn(ctx, r.db).Model(&entities.SyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":       run.Status,
			"fetched":      run.Fetched,
			"saved":        run.Saved,
			"created":      run.Created,
			"failed":       run.Failed,
			"error":        run.Error,
			"completed_at": now,
		}).Error
}

// Latest returns the most recently started run.
func (r *Repository) Latest(ctx context.Context) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := database.Conn(ctx, r.db).Order("started_at DESC").Order("id DESC").First(&run).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &run, nil
}

// Recent returns up to limit runs, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	err := database.Conn(ctx, r.db).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// IsSyncRunning checks if a sync is currently in progress.
// A run that has been running longer than StaleAfter is marked failed instead.
func (r *Repository) IsSyncRunning(ctx context.Context) (bool, error) {
	var run entities.SyncRun
	err := database.Conn(ctx, r.db).
		Where("status = ?", entities.SyncStatusRunning).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if run.StartedAt.Before(time.Now().Add(-StaleAfter)) {
		run.Error = "sync was interrupted"
		_ = r.CompleteRun(ctx, &run)
		return false, nil
	}

	return true, nil
}
