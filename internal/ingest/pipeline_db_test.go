package ingest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/categories"
	"github.com/wallpaperverse/api/internal/database/tags"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/sources"
)

type staticSource struct {
	name  string
	items []sources.ExternalItem
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(context.Context, string, int, int) []sources.ExternalItem {
	return s.items
}

// barrierStore holds every FindByExternalID call until n callers have arrived,
// so concurrent saves of the same id all see "not found".
type barrierStore struct {
	*wallpapers.Repository
	wg *sync.WaitGroup
}

func (b *barrierStore) FindByExternalID(ctx context.Context, externalID string) (*entities.Wallpaper, error) {
	w, err := b.Repository.FindByExternalID(ctx, externalID)
	b.wg.Done()
	b.wg.Wait()
	return w, err
}

type dbFixture struct {
	db         *database.Database
	wallpapers *wallpapers.Repository
	tags       *tags.Repository
	categories *categories.Repository
	cache      *cache.MemoryCache
	nature     *entities.Category
}

func setupDB(t *testing.T) *dbFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ingest.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &dbFixture{
		db:         db,
		wallpapers: wallpapers.NewRepository(db.DB),
		tags:       tags.NewRepository(db.DB),
		categories: categories.NewRepository(db.DB),
		cache:      cache.NewMemoryCache(),
	}
	f.nature, err = f.categories.GetBySlug(context.Background(), "nature")
	require.NoError(t, err)
	return f
}

func (f *dbFixture) pipeline(store WallpaperStore, srcs ...Source) *Pipeline {
	return NewPipeline(srcs, store, f.tags, f.categories, f.cache, f.db,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{ItemsPerSync: 99, SaveConcurrency: 8})
}

func countWallpapers(t *testing.T, db *database.Database) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.DB.Model(&entities.Wallpaper{}).Count(&n).Error)
	return n
}

func TestSaveWallpaper_SameExternalIDTwice(t *testing.T) {
	f := setupDB(t)
	ctx := context.Background()
	p := f.pipeline(f.wallpapers)

	item := sources.ExternalItem{
		ID:          "unsplash_dup",
		Title:       "First title",
		Description: "First description",
		Width:       3000,
		Height:      2000,
		Tags:        []string{"Sunset", "sea"},
		Views:       10,
		Likes:       4,
	}
	first := p.SaveWallpaper(ctx, item, f.nature.ID, "unsplash")
	require.NotNil(t, first)

	space, err := f.categories.GetBySlug(ctx, "space")
	require.NoError(t, err)

	again := item
	again.Title = "Changed title"
	again.Description = "Changed description"
	again.Width, again.Height = 100, 400
	again.Views = 25
	again.Likes = 0
	second := p.SaveWallpaper(ctx, again, space.ID, "unsplash")
	require.NotNil(t, second)

	assert.Equal(t, int64(1), countWallpapers(t, f.db))

	stored, err := f.wallpapers.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First title", stored.Title)
	assert.Equal(t, "First description", stored.Description)
	assert.Equal(t, f.nature.ID, stored.CategoryID)
	assert.Equal(t, 1.5, stored.AspectRatio)
	assert.Equal(t, int64(25), stored.Views)
	assert.Equal(t, int64(4), stored.Likes, "zero from the provider keeps the stored count")
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
	assert.Len(t, stored.Tags, 2)

	sunset, err := f.tags.GetByName(ctx, "sunset")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sunset.WallpaperCount, "re-sync must not re-link tags")

	nature, err := f.categories.GetBySlug(ctx, "nature")
	require.NoError(t, err)
	assert.Equal(t, int64(1), nature.WallpaperCount)
}

func TestSaveWallpaper_RepeatedTagCountsOnce(t *testing.T) {
	f := setupDB(t)
	ctx := context.Background()
	p := f.pipeline(f.wallpapers)

	w := p.SaveWallpaper(ctx, sources.ExternalItem{
		ID:     "pixabay_77",
		Width:  1920,
		Height: 1080,
		Tags:   []string{"Sunset", "sunset ", ""},
	}, f.nature.ID, "pixabay")
	require.NotNil(t, w)

	sunset, err := f.tags.GetByName(ctx, "sunset")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sunset.WallpaperCount)

	var links int64
	require.NoError(t, f.db.DB.Model(&entities.WallpaperTag{}).Where("tag_id = ?", sunset.ID).Count(&links).Error)
	assert.Equal(t, int64(1), links)
}

func TestSaveWallpaper_ConcurrentDuplicate(t *testing.T) {
	f := setupDB(t)
	ctx := context.Background()

	var barrier sync.WaitGroup
	barrier.Add(2)
	p := f.pipeline(&barrierStore{Repository: f.wallpapers, wg: &barrier})

	space, err := f.categories.GetBySlug(ctx, "space")
	require.NoError(t, err)

	item := sources.ExternalItem{ID: "pexels_race", Width: 1920, Height: 1080}
	results := make([]*entities.Wallpaper, 2)
	var wg sync.WaitGroup
	for i, categoryID := range []uint{f.nature.ID, space.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.SaveWallpaper(ctx, item, categoryID, "pexels")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), countWallpapers(t, f.db))
	saved := 0
	for _, r := range results {
		if r != nil {
			saved++
		}
	}
	assert.Equal(t, 1, saved, "exactly one writer wins")
}

func TestSyncCategory_WithDatabase(t *testing.T) {
	f := setupDB(t)
	ctx := context.Background()

	unsplash := &staticSource{name: "unsplash", items: []sources.ExternalItem{
		{ID: "unsplash_1", Width: 1600, Height: 900, Tags: []string{"Forest", "fog"}},
		{ID: "unsplash_2", Width: 1600, Height: 900, Tags: []string{"forest"}},
	}}
	pexels := &staticSource{name: "pexels"}
	pixabay := &staticSource{name: "pixabay", items: []sources.ExternalItem{
		{ID: "pixabay_1", Width: 1920, Height: 1080, Tags: []string{"lake"}, Views: 3},
	}}

	require.NoError(t, f.cache.Set(ctx, "latest_wallpapers_20", "stale", time.Hour))
	require.NoError(t, f.cache.Set(ctx, "trending_wallpapers_12", "stale", time.Hour))
	require.NoError(t, f.cache.Set(ctx, "category_wallpapers_nature_latest_1_20", "stale", time.Hour))
	require.NoError(t, f.cache.Set(ctx, "category_wallpapers_space_latest_1_20", "other", time.Hour))

	p := f.pipeline(f.wallpapers, unsplash, pexels, pixabay)
	report, err := p.SyncCategory(ctx, f.nature)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 3, report.Created)
	assert.Equal(t, int64(3), countWallpapers(t, f.db))

	forest, err := f.tags.GetByName(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, int64(2), forest.WallpaperCount)

	nature, err := f.categories.GetBySlug(ctx, "nature")
	require.NoError(t, err)
	assert.Equal(t, int64(3), nature.WallpaperCount)

	_, ok, _ := f.cache.Get(ctx, "latest_wallpapers_20")
	assert.False(t, ok)
	_, ok, _ = f.cache.Get(ctx, "trending_wallpapers_12")
	assert.False(t, ok, "counter updates change trending order")
	_, ok, _ = f.cache.Get(ctx, "category_wallpapers_nature_latest_1_20")
	assert.False(t, ok)
	_, ok, _ = f.cache.Get(ctx, "category_wallpapers_space_latest_1_20")
	assert.True(t, ok)

	// Drift the denormalized counters, then reconcile.
	require.NoError(t, f.db.DB.Model(&entities.Category{}).Where("id = ?", f.nature.ID).Update("wallpaper_count", 40).Error)
	require.NoError(t, f.db.DB.Model(&entities.Tag{}).Where("id = ?", forest.ID).Update("wallpaper_count", 0).Error)
	require.NoError(t, p.UpdateStatistics(ctx))

	nature, err = f.categories.GetBySlug(ctx, "nature")
	require.NoError(t, err)
	assert.Equal(t, int64(3), nature.WallpaperCount)
	forest, err = f.tags.GetByName(ctx, "forest")
	require.NoError(t, err)
	assert.Equal(t, int64(2), forest.WallpaperCount)
	_, ok, _ = f.cache.Get(ctx, "category_wallpapers_space_latest_1_20")
	assert.False(t, ok)
}
