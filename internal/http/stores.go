package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/ingest"
	"github.com/wallpaperverse/api/internal/query"
	"github.com/wallpaperverse/api/internal/scheduler"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// WallpaperQueries is the read side used by the public API.
type WallpaperQueries interface {
	Trending(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	Latest(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	Featured(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	GetWallpaper(ctx context.Context, id uint) (*entities.Wallpaper, error)
	Exists(ctx context.Context, id uint) (bool, error)
	ByCategory(ctx context.Context, slug, sort string, page, limit int) (*query.Page, error)
	Search(ctx context.Context, term string, page, limit int) (*query.Page, error)
	Categories(ctx context.Context) ([]entities.Category, error)
	PopularTags(ctx context.Context, limit int) ([]entities.Tag, error)
	Stats(ctx context.Context) (*query.Stats, error)
	RecordView(ctx context.Context, id uint, meta entities.EventMeta)
	RecordDownload(ctx context.Context, id uint, meta entities.EventMeta)
}

// AdminQueries are the cache and curation operations behind the admin API.
type AdminQueries interface {
	SetFeatured(ctx context.Context, id uint, featured bool) error
	ClearCache(ctx context.Context, pattern string) (int64, error)
}

// FavouritesStore defines database operations for visitor favourites.
type FavouritesStore interface {
	Add(ctx context.Context, visitorID string, wallpaperID uint) error
	Remove(ctx context.Context, visitorID string, wallpaperID uint) error
	List(ctx context.Context, visitorID string, limit, offset int) ([]entities.Wallpaper, int64, error)
	IsFavourite(ctx context.Context, visitorID string, wallpaperID uint) (bool, error)
}

// Syncer triggers ingestion synchronously.
type Syncer interface {
	SyncFromAllSources(ctx context.Context) (*ingest.SyncReport, error)
	SyncCategoryBySlug(ctx context.Context, slug string) (*ingest.CategoryReport, error)
	UpdateStatistics(ctx context.Context) error
}

type SyncRunStore interface {
	Recent(ctx context.Context, limit int) ([]entities.SyncRun, error)
	IsSyncRunning(ctx context.Context) (bool, error)
}

type CategoryLookup interface {
	GetBySlug(ctx context.Context, slug string) (*entities.Category, error)
}

// TaskQueue enqueues admin jobs on the background task queue.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type ScheduleInfo interface {
	NextRuns() map[scheduler.Job]time.Time
}
