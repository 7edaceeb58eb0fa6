package events

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RecordView appends a view event.
func (r *Repository) RecordView(ctx context.Context, wallpaperID uint, meta entities.EventMeta) error {
	return database.Conn(ctx, r.db).Create(&entities.View{
		WallpaperID: wallpaperID,
		UserID:      meta.UserID,
		UserAgent:   truncate(meta.UserAgent, 500),
		IPAddress:   meta.IPAddress,
		Referrer:    truncate(meta.Referrer, 1024),
		CreatedAt:   time.Now(),
	}).Error
}

// RecordDownload appends a download event.
func (r *Repository) RecordDownload(ctx context.Context, wallpaperID uint, meta entities.EventMeta) error {
	return database.Conn(ctx, r.db).Create(&entities.Download{
		WallpaperID: wallpaperID,
		UserID:      meta.UserID,
		UserAgent:   truncate(meta.UserAgent, 500),
		IPAddress:   meta.IPAddress,
		Referrer:    truncate(meta.Referrer, 1024),
		CreatedAt:   time.Now(),
	}).Error
}

// CountSince returns the number of views and downloads recorded after since.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (views, downloads int64, err error) {
	conn := database.Conn(ctx, r.db)
	if err = conn.Model(&entities.View{}).Where("created_at > ?", since).Count(&views).Error; err != nil {
		return 0, 0, err
	}
	if err = conn.Model(&entities.Download{}).Where("created_at > ?", since).Count(&downloads).Error; err != nil {
		return 0, 0, err
	}
	return views, downloads, nil
}

// DeleteOldEvents removes view and download events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	conn := database.Conn(ctx, r.db)
	views := conn.Where("created_at < ?", olderThan).Delete(&entities.View{})
	if views.Error != nil {
		return 0, views.Error
	}
	downloads := conn.Where("created_at < ?", olderThan).Delete(&entities.Download{})
	if downloads.Error != nil {
		return views.RowsAffected, downloads.Error
	}
	return views.RowsAffected + downloads.RowsAffected, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
