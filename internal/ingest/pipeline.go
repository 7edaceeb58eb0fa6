// Package ingest pulls wallpapers from the stock photo providers into the
// database.
//
// A full sync walks the active categories one at a time. Within a category
// every provider is queried concurrently and every returned item is saved
// concurrently. Failures are contained at the smallest unit: a provider that
// errors contributes nothing, an item that fails to save is counted, and a
// category that fails is logged while the next one proceeds.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/tags"
	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/sources"
)

// Defaults match the upstream providers' combined rate limits.
const (
	DefaultItemsPerSync    = 99
	DefaultCategoryDelay   = 2 * time.Second
	DefaultSaveConcurrency = 8
)

type Config struct {
	ItemsPerSync    int               // per category, split evenly across sources
	CategoryDelay   time.Duration     // pause between categories
	SaveConcurrency int               // concurrent saves within a category
	Queries         map[string]string // category slug -> provider search term
}

type Pipeline struct {
	sources    []Source
	wallpapers WallpaperStore
	tags       TagStore
	categories CategoryStore
	cache      Invalidator
	txManager  TransactionManager
	publisher  Publisher
	runs       RunRecorder
	logger     *slog.Logger
	config     Config
}

type Option func(*Pipeline)

// WithPublisher announces newly created wallpapers.
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithRunRecorder stores a SyncRun row for every full sync.
func WithRunRecorder(r RunRecorder) Option {
	return func(pl *Pipeline) { pl.runs = r }
}

func NewPipeline(
	srcs []Source,
	wallpapers WallpaperStore,
	tags TagStore,
	categories CategoryStore,
	cache Invalidator,
	txManager TransactionManager,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Pipeline {
	if cfg.ItemsPerSync <= 0 {
		cfg.ItemsPerSync = DefaultItemsPerSync
	}
	if cfg.SaveConcurrency <= 0 {
		cfg.SaveConcurrency = DefaultSaveConcurrency
	}
	if cfg.CategoryDelay < 0 {
		cfg.CategoryDelay = 0
	}

	p := &Pipeline{
		sources:    srcs,
		wallpapers: wallpapers,
		tags:       tags,
		categories: categories,
		cache:      cache,
		txManager:  txManager,
		logger:     logger.With("component", "ingest"),
		config:     cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SourceReport is the outcome of one provider fetch within a category.
type SourceReport struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
}

type CategoryReport struct {
	Category string         `json:"category"`
	Query    string         `json:"query"`
	Sources  []SourceReport `json:"sources"`
	Fetched  int            `json:"fetched"`
	Saved    int            `json:"saved"`
	Created  int            `json:"created"`
	Failed   int            `json:"failed"`
	Duration time.Duration  `json:"duration"`
}

type SyncReport struct {
	Categories       int              `json:"categories"`
	FailedCategories int              `json:"failed_categories"`
	Fetched          int              `json:"fetched"`
	Saved            int              `json:"saved"`
	Created          int              `json:"created"`
	Failed           int              `json:"failed"`
	Duration         time.Duration    `json:"duration"`
	PerCategory      []CategoryReport `json:"per_category"`
}

// QueryFor returns the provider search term for a category slug, falling back
// to the slug itself.
func (p *Pipeline) QueryFor(slug string) string {
	if q, ok := p.config.Queries[slug]; ok && q != "" {
		return q
	}
	return slug
}

// PerSourceBudget is the number of items requested from each source.
func (p *Pipeline) PerSourceBudget() int {
	if len(p.sources) == 0 {
		return 0
	}
	return p.config.ItemsPerSync / len(p.sources)
}

// SyncFromAllSources syncs every active category in turn. Only a failure to
// list the categories is returned; everything below that is logged and counted.
func (p *Pipeline) SyncFromAllSources(ctx context.Context) (*SyncReport, error) {
	start := time.Now()
	p.logger.Info("starting sync from all sources", "sources", len(p.sources))

	categories, err := p.categories.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}

	var run *entities.SyncRun
	if p.runs != nil {
		if run, err = p.runs.StartRun(ctx, len(categories)); err != nil {
			p.logger.Warn("failed to record sync run start", "error", err)
			run = nil
		}
	}

	report := &SyncReport{}
	for i := range categories {
		if i > 0 && p.config.CategoryDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.config.CategoryDelay):
			}
		}
		if ctx.Err() != nil {
			p.logger.Warn("sync cancelled", "remaining_categories", len(categories)-i)
			break
		}

		category := categories[i]
		cr, err := p.SyncCategory(ctx, &category)
		if err != nil {
			report.FailedCategories++
			p.logger.Error("error syncing category", "category", category.Slug, "error", err)
			continue
		}
		report.Categories++
		report.Fetched += cr.Fetched
		report.Saved += cr.Saved
		report.Created += cr.Created
		report.Failed += cr.Failed
		report.PerCategory = append(report.PerCategory, *cr)
	}

	for _, pattern := range []string{"*wallpapers_*", "search_*"} {
		p.invalidate(ctx, pattern)
	}

	report.Duration = time.Since(start)

	if run != nil {
		run.Fetched = report.Fetched
		run.Saved = report.Saved
		run.Created = report.Created
		run.Failed = report.Failed
		if ctx.Err() != nil {
			run.Error = ctx.Err().Error()
		}
		if err := p.runs.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
			p.logger.Warn("failed to record sync run completion", "error", err)
		}
	}

	p.logger.Info("sync completed",
		"categories", report.Categories,
		"failed_categories", report.FailedCategories,
		"fetched", report.Fetched,
		"saved", report.Saved,
		"created", report.Created,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

// SyncCategoryBySlug resolves an active category and syncs it.
func (p *Pipeline) SyncCategoryBySlug(ctx context.Context, slug string) (*CategoryReport, error) {
	category, err := p.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", slug, err)
	}
	return p.SyncCategory(ctx, category)
}

// SyncCategory fetches one page from every source concurrently and saves the
// results concurrently. Individual save failures are counted, not returned.
func (p *Pipeline) SyncCategory(ctx context.Context, category *entities.Category) (*CategoryReport, error) {
	if category == nil {
		return nil, errors.New("category is nil")
	}
	if len(p.sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	start := time.Now()
	query := p.QueryFor(category.Slug)
	perSource := p.PerSourceBudget()
	logger := p.logger.With("category", category.Slug)

	// Sources never fail a fetch; they log and return an empty slice.
	results := make([][]sources.ExternalItem, len(p.sources))
	var fetches errgroup.Group
	for i, src := range p.sources {
		fetches.Go(func() error {
			results[i] = src.Fetch(ctx, query, 1, perSource)
			return nil
		})
	}
	_ = fetches.Wait()

	report := &CategoryReport{Category: category.Slug, Query: query}
	for i, src := range p.sources {
		n := len(results[i])
		report.Sources = append(report.Sources, SourceReport{Source: src.Name(), Fetched: n})
		report.Fetched += n
		if n == 0 {
			logger.Warn("source returned no items", "source", src.Name(), "query", query)
		} else {
			logger.Debug("fetched from source", "source", src.Name(), "count", n)
		}
	}

	var (
		mu    sync.Mutex
		saves errgroup.Group
	)
	saves.SetLimit(p.config.SaveConcurrency)
	for i, src := range p.sources {
		for _, item := range results[i] {
			saves.Go(func() error {
				_, created, err := p.saveWallpaper(ctx, item, category.ID, src.Name())

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed++
					return nil
				}
				report.Saved++
				if created {
					report.Created++
				}
				return nil
			})
		}
	}
	_ = saves.Wait()

	for _, pattern := range []string{
		"category_wallpapers_" + category.Slug + "_*",
		"latest_wallpapers_*",
		"trending_wallpapers_*",
		"wallpaper_*",
		"categories_*",
	} {
		p.invalidate(ctx, pattern)
	}

	report.Duration = time.Since(start)
	logger.Info("category synced",
		"query", query,
		"fetched", report.Fetched,
		"saved", report.Saved,
		"created", report.Created,
		"failed", report.Failed,
	)
	return report, nil
}

// SaveWallpaper upserts one item. It returns nil when the item could not be
// saved; the error is logged.
func (p *Pipeline) SaveWallpaper(ctx context.Context, item sources.ExternalItem, categoryID uint, source string) *entities.Wallpaper {
	w, _, err := p.saveWallpaper(ctx, item, categoryID, source)
	if err != nil {
		return nil
	}
	return w
}

func (p *Pipeline) saveWallpaper(ctx context.Context, item sources.ExternalItem, categoryID uint, source string) (*entities.Wallpaper, bool, error) {
	logger := p.logger.With("external_id", item.ID, "source", source)

	existing, err := p.wallpapers.FindByExternalID(ctx, item.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		logger.Error("error looking up wallpaper", "error", err)
		return nil, false, err
	}

	if existing != nil {
		views := replaceIfSet(existing.Views, item.Views)
		downloads := replaceIfSet(existing.Downloads, item.Downloads)
		likes := replaceIfSet(existing.Likes, item.Likes)
		if err := p.wallpapers.UpdateCounters(ctx, existing.ID, views, downloads, likes); err != nil {
			logger.Error("error updating wallpaper counters", "error", err)
			return nil, false, err
		}
		existing.Views, existing.Downloads, existing.Likes = views, downloads, likes
		existing.UpdatedAt = time.Now()
		return existing, false, nil
	}

	w := newWallpaper(item, categoryID, source)
	err = p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.wallpapers.Create(txCtx, w); err != nil {
			return fmt.Errorf("create wallpaper: %w", err)
		}
		for _, name := range uniqueTags(item.Tags) {
			tag, err := p.tags.UpsertTag(txCtx, name)
			if err != nil {
				return fmt.Errorf("upsert tag %q: %w", name, err)
			}
			if err := p.tags.LinkToWallpaper(txCtx, w.ID, tag.ID); err != nil {
				return fmt.Errorf("link tag %q: %w", name, err)
			}
		}
		if err := p.categories.IncrementCount(txCtx, categoryID); err != nil {
			return fmt.Errorf("increment category count: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("error saving wallpaper", "error", err)
		return nil, false, err
	}

	if p.publisher != nil {
		if err := p.publisher.PublishWallpaperCreated(ctx, w); err != nil {
			logger.Warn("failed to publish wallpaper created event", "error", err)
		}
	}

	return w, true, nil
}

// UpdateStatistics recomputes the denormalized category and tag counts from
// their source rows, then drops every cached listing that shows them.
func (p *Pipeline) UpdateStatistics(ctx context.Context) error {
	p.logger.Info("updating statistics")

	if err := p.categories.RecomputeCounts(ctx); err != nil {
		return fmt.Errorf("recompute category counts: %w", err)
	}
	if err := p.tags.RecomputeCounts(ctx); err != nil {
		return fmt.Errorf("recompute tag counts: %w", err)
	}

	for _, pattern := range []string{"*wallpapers_*", "category_*", "categories_*", "tags_*", "stats_*"} {
		p.invalidate(ctx, pattern)
	}

	p.logger.Info("statistics updated")
	return nil
}

func (p *Pipeline) invalidate(ctx context.Context, pattern string) {
	if p.cache == nil {
		return
	}
	n, err := p.cache.ClearPattern(ctx, pattern)
	if err != nil {
		p.logger.Warn("cache invalidation failed", "pattern", pattern, "error", err)
		return
	}
	p.logger.Debug("cache invalidated", "pattern", pattern, "deleted", n)
}

func newWallpaper(item sources.ExternalItem, categoryID uint, source string) *entities.Wallpaper {
	altText := item.AltText
	if altText == "" {
		altText = item.Title
	}
	if altText == "" {
		altText = item.Description
	}
	now := time.Now()
	return &entities.Wallpaper{
		ExternalID:     item.ID,
		Source:         source,
		Title:          item.Title,
		Description:    item.Description,
		AltText:        altText,
		URLSmall:       item.URLs.Small,
		URLRegular:     item.URLs.Regular,
		URLFull:        item.URLs.Full,
		URLRaw:         item.URLs.Raw,
		URLThumb:       item.URLs.Thumb,
		Width:          item.Width,
		Height:         item.Height,
		AspectRatio:    entities.ComputeAspectRatio(item.Width, item.Height),
		Color:          item.Color,
		BlurHash:       item.BlurHash,
		AuthorName:     item.Attribution.Name,
		AuthorUsername: item.Attribution.Username,
		AuthorURL:      item.Attribution.ProfileURL,
		Views:          item.Views,
		Downloads:      item.Downloads,
		Likes:          item.Likes,
		IsActive:       true,
		CategoryID:     categoryID,
		PublishedAt:    now,
	}
}

// uniqueTags normalizes tag names and drops blanks and repeats, so one item
// never counts towards the same tag twice.
func uniqueTags(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = tags.Normalize(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// replaceIfSet keeps the stored counter when the provider reports zero.
func replaceIfSet(current, incoming int64) int64 {
	if incoming != 0 {
		return incoming
	}
	return current
}
