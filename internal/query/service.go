// Package query implements the read side of the gallery. Every listing is
// read through the cache: a hit is decoded and returned, a miss runs the
// database query and stores the encoded result with a fixed TTL.
//
// Cache failures never fail a read. A Get error is a miss and a Set error is
// only logged.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/entities"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	DefaultTTL       = time.Hour
	DefaultSearchTTL = 30 * time.Minute
)

var ErrEmptyQuery = errors.New("search query is empty")

type WallpaperReader interface {
	GetByID(ctx context.Context, id uint) (*entities.Wallpaper, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Trending(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	Latest(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	Featured(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	HighQuality(ctx context.Context, limit int) ([]entities.Wallpaper, error)
	ByCategory(ctx context.Context, categoryID uint, sort string, limit, offset int) ([]entities.Wallpaper, int64, error)
	Search(ctx context.Context, term string, limit, offset int) ([]entities.Wallpaper, int64, error)
	IncrementViews(ctx context.Context, id uint) error
	IncrementDownloads(ctx context.Context, id uint) error
	SetFeatured(ctx context.Context, id uint, featured bool) error
	Totals(ctx context.Context) (*wallpapers.Totals, error)
}

type CategoryReader interface {
	ListActive(ctx context.Context) ([]entities.Category, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Category, error)
}

type TagReader interface {
	Popular(ctx context.Context, limit int) ([]entities.Tag, error)
}

type EventRecorder interface {
	RecordView(ctx context.Context, wallpaperID uint, meta entities.EventMeta) error
	RecordDownload(ctx context.Context, wallpaperID uint, meta entities.EventMeta) error
	CountSince(ctx context.Context, since time.Time) (views, downloads int64, err error)
}

type Config struct {
	TTL       time.Duration
	SearchTTL time.Duration
}

type Service struct {
	wallpapers WallpaperReader
	categories CategoryReader
	tags       TagReader
	events     EventRecorder
	cache      cache.Cache
	logger     *slog.Logger
	ttl        time.Duration
	searchTTL  time.Duration
}

func NewService(
	wallpapers WallpaperReader,
	categories CategoryReader,
	tags TagReader,
	events EventRecorder,
	c cache.Cache,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SearchTTL <= 0 {
		cfg.SearchTTL = DefaultSearchTTL
	}
	return &Service{
		wallpapers: wallpapers,
		categories: categories,
		tags:       tags,
		events:     events,
		cache:      c,
		logger:     logger.With("component", "query"),
		ttl:        cfg.TTL,
		searchTTL:  cfg.SearchTTL,
	}
}

// Page is one page of a paginated listing.
type Page struct {
	Wallpapers []entities.Wallpaper `json:"wallpapers"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

// NewPage builds a page, rendering a nil slice as empty.
func NewPage(items []entities.Wallpaper, total int64, page, limit int) *Page {
	if items == nil {
		items = []entities.Wallpaper{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Page{Wallpapers: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

type Stats struct {
	Wallpapers       int64            `json:"wallpapers"`
	Featured         int64            `json:"featured"`
	Categories       int              `json:"categories"`
	Views            int64            `json:"views"`
	Downloads        int64            `json:"downloads"`
	Likes            int64            `json:"likes"`
	BySource         map[string]int64 `json:"by_source"`
	ViewsLast24h     int64            `json:"views_last_24h"`
	DownloadsLast24h int64            `json:"downloads_last_24h"`
}

// NormalizeLimit clamps a requested page size to 1..MaxLimit, defaulting to DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage returns page, or 1 when page is not positive.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func (s *Service) Trending(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	limit = NormalizeLimit(limit)
	return readThrough(ctx, s, TrendingKey(limit), s.ttl, func() ([]entities.Wallpaper, error) {
		return s.wallpapers.Trending(ctx, limit)
	})
}

func (s *Service) Latest(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	limit = NormalizeLimit(limit)
	return readThrough(ctx, s, LatestKey(limit), s.ttl, func() ([]entities.Wallpaper, error) {
		return s.wallpapers.Latest(ctx, limit)
	})
}

// Featured returns curated wallpapers, or the high-quality set when nothing
// has been curated.
func (s *Service) Featured(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	limit = NormalizeLimit(limit)
	return readThrough(ctx, s, FeaturedKey(limit), s.ttl, func() ([]entities.Wallpaper, error) {
		items, err := s.wallpapers.Featured(ctx, limit)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items, nil
		}
		return s.wallpapers.HighQuality(ctx, limit)
	})
}

func (s *Service) ByCategory(ctx context.Context, slug, sort string, page, limit int) (*Page, error) {
	page = NormalizePage(page)
	limit = NormalizeLimit(limit)
	if sort == "" {
		sort = wallpapers.SortLatest
	}
	if sort != wallpapers.SortLatest && sort != wallpapers.SortPopular {
		return nil, fmt.Errorf("unknown sort %q", sort)
	}

	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return readThrough(ctx, s, CategoryKey(slug, sort, page, limit), s.ttl, func() (*Page, error) {
		items, total, err := s.wallpapers.ByCategory(ctx, category.ID, sort, limit, (page-1)*limit)
		if err != nil {
			return nil, err
		}
		return NewPage(items, total, page, limit), nil
	})
}

func (s *Service) Search(ctx context.Context, term string, page, limit int) (*Page, error) {
	term = NormalizeTerm(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	page = NormalizePage(page)
	limit = NormalizeLimit(limit)

	return readThrough(ctx, s, SearchKey(term, page, limit), s.searchTTL, func() (*Page, error) {
		items, total, err := s.wallpapers.Search(ctx, term, limit, (page-1)*limit)
		if err != nil {
			return nil, err
		}
		return NewPage(items, total, page, limit), nil
	})
}

func (s *Service) GetWallpaper(ctx context.Context, id uint) (*entities.Wallpaper, error) {
	return readThrough(ctx, s, WallpaperKey(id), s.ttl, func() (*entities.Wallpaper, error) {
		return s.wallpapers.GetByID(ctx, id)
	})
}

func (s *Service) Categories(ctx context.Context) ([]entities.Category, error) {
	return readThrough(ctx, s, KeyCategories, s.ttl, func() ([]entities.Category, error) {
		return s.categories.ListActive(ctx)
	})
}

func (s *Service) PopularTags(ctx context.Context, limit int) ([]entities.Tag, error) {
	limit = NormalizeLimit(limit)
	return readThrough(ctx, s, PopularTagsKey(limit), s.ttl, func() ([]entities.Tag, error) {
		return s.tags.Popular(ctx, limit)
	})
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return readThrough(ctx, s, KeyStatsOverview, s.ttl, func() (*Stats, error) {
		totals, err := s.wallpapers.Totals(ctx)
		if err != nil {
			return nil, err
		}
		categories, err := s.categories.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		views, downloads, err := s.events.CountSince(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			return nil, err
		}
		return &Stats{
			Wallpapers:       totals.Wallpapers,
			Featured:         totals.Featured,
			Categories:       len(categories),
			Views:            totals.Views,
			Downloads:        totals.Downloads,
			Likes:            totals.Likes,
			BySource:         totals.BySource,
			ViewsLast24h:     views,
			DownloadsLast24h: downloads,
		}, nil
	})
}

// Exists reports whether an active wallpaper exists. It bypasses the cache.
func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	return s.wallpapers.Exists(ctx, id)
}

// RecordView appends a view event and bumps the counter. Failures are logged
// and never returned.
func (s *Service) RecordView(ctx context.Context, id uint, meta entities.EventMeta) {
	if err := s.events.RecordView(ctx, id, meta); err != nil {
		s.logger.Error("failed to record view event", "wallpaper_id", id, "error", err)
	}
	if err := s.wallpapers.IncrementViews(ctx, id); err != nil {
		s.logger.Error("failed to increment views", "wallpaper_id", id, "error", err)
	}
	s.invalidate(ctx, WallpaperKey(id))
	s.invalidate(ctx, PatternTrending)
}

// RecordDownload appends a download event and bumps the counter. Failures are
// logged and never returned.
func (s *Service) RecordDownload(ctx context.Context, id uint, meta entities.EventMeta) {
	if err := s.events.RecordDownload(ctx, id, meta); err != nil {
		s.logger.Error("failed to record download event", "wallpaper_id", id, "error", err)
	}
	if err := s.wallpapers.IncrementDownloads(ctx, id); err != nil {
		s.logger.Error("failed to increment downloads", "wallpaper_id", id, "error", err)
	}
	s.invalidate(ctx, WallpaperKey(id))
	s.invalidate(ctx, PatternTrending)
}

// SetFeatured curates a wallpaper in or out of the featured listing.
func (s *Service) SetFeatured(ctx context.Context, id uint, featured bool) error {
	if err := s.wallpapers.SetFeatured(ctx, id, featured); err != nil {
		return err
	}
	s.invalidate(ctx, WallpaperKey(id))
	s.invalidate(ctx, PatternFeatured)
	return nil
}

// ClearCache drops every cached entry matching pattern ("*" for everything).
func (s *Service) ClearCache(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "*"
	}
	return s.cache.ClearPattern(ctx, pattern)
}

func (s *Service) invalidate(ctx context.Context, pattern string) {
	if _, err := s.cache.ClearPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", "pattern", pattern, "error", err)
	}
}

func readThrough[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed, falling back to database", "key", key, "error", err)
	}
	if ok {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return value, nil
	}
	if err := s.cache.Set(ctx, key, string(encoded), ttl); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
	return value, nil
}
