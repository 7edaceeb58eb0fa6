package ingest

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/sources"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, page, perPage int) []sources.ExternalItem
}

type WallpaperStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*entities.Wallpaper, error)
	Create(ctx context.Context, w *entities.Wallpaper) error
	UpdateCounters(ctx context.Context, id uint, views, downloads, likes int64) error
}

type TagStore interface {
	UpsertTag(ctx context.Context, name string) (*entities.Tag, error)
	LinkToWallpaper(ctx context.Context, wallpaperID, tagID uint) error
	RecomputeCounts(ctx context.Context) error
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]entities.Category, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Category, error)
	IncrementCount(ctx context.Context, id uint) error
	RecomputeCounts(ctx context.Context) error
}

type Invalidator interface {
	ClearPattern(ctx context.Context, pattern string) (int64, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishWallpaperCreated(ctx context.Context, w *entities.Wallpaper) error
}

type RunRecorder interface {
	StartRun(ctx context.Context, categories int) (*entities.SyncRun, error)
	CompleteRun(ctx context.Context, run *entities.SyncRun) error
}
