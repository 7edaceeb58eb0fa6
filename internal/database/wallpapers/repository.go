// Package wallpapers provides database operations for wallpapers.
//
// The repository serves both sides of the application: the ingestion pipeline
// (FindByExternalID, Create, UpdateCounters) and the query service (the
// ordered listings, search and counters).
//
// # Usage
//
//	repo := wallpapers.NewRepository(db)
//	items, err := repo.Trending(ctx, 20)
package wallpapers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

const (
	SortLatest  = "latest"
	SortPopular = "popular"
)

// High-quality thresholds used when nothing has been curated as featured.
const (
	HighQualityMinViews     = 1000
	HighQualityMinDownloads = 100
)

// Repository handles all wallpaper database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new wallpapers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Totals summarises the wallpaper table for the stats endpoint.
type Totals struct {
	Wallpapers int64            `json:"wallpapers"`
	Featured   int64            `json:"featured"`
	Views      int64            `json:"views"`
	Downloads  int64            `json:"downloads"`
	Likes      int64            `json:"likes"`
	BySource   map[string]int64 `json:"by_source"`
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *Repository) active(ctx context.Context) *gorm.DB {
	return r.conn(ctx).Model(&entities.Wallpaper{}).Where("wallpapers.is_active = ?", true)
}

// FindByExternalID looks a wallpaper up by its provider-qualified id.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*entities.Wallpaper, error) {
	var w entities.Wallpaper
	err := r.conn(ctx).Where("external_id = ?", externalID).First(&w).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &w, nil
}

// Create inserts a new wallpaper. Tags are linked separately so that their
// counters can be maintained.
func (r *Repository) Create(ctx context.Context, w *entities.Wallpaper) error {
	return r.conn(ctx).Omit("Tags", "Category").Create(w).Error
}

// UpdateCounters overwrites the counters and bumps updated_at. Content fields
// are never touched.
func (r *Repository) UpdateCounters(ctx context.Context, id uint, views, downloads, likes int64) error {
	return r.conn(ctx).Model(&entities.Wallpaper{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"views":      views,
			"downloads":  downloads,
			"likes":      likes,
			"updated_at": time.Now(),
		}).Error
}

// IncrementViews adds one to the view counter.
func (r *Repository) IncrementViews(ctx context.Context, id uint) error {
	return r.increment(ctx, id, "views")
}

// IncrementDownloads adds one to the download counter.
func (r *Repository) IncrementDownloads(ctx context.Context, id uint) error {
	return r.increment(ctx, id, "downloads")
}

func (r *Repository) increment(ctx context.Context, id uint, column string) error {
	result := r.conn(ctx).Model(&entities.Wallpaper{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetByID retrieves an active wallpaper with its category and tags.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Wallpaper, error) {
	var w entities.Wallpaper
	err := r.active(ctx).Preload("Category").Preload("Tags").First(&w, id).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &w, nil
}

// Exists reports whether an active wallpaper with the given id exists.
func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.active(ctx).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Trending orders by views, downloads, likes and creation time, with the id
// as a final tie-breaker so the order is total.
func (r *Repository) Trending(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	var items []entities.Wallpaper
	err := r.active(ctx).Preload("Category").
		Order("views DESC").
		Order("downloads DESC").
		Order("likes DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Latest returns the newest wallpapers first.
func (r *Repository) Latest(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	var items []entities.Wallpaper
	err := r.active(ctx).Preload("Category").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// Featured returns curated wallpapers, newest first.
func (r *Repository) Featured(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	var items []entities.Wallpaper
	err := r.active(ctx).Preload("Category").
		Where("is_featured = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// HighQuality returns popular wallpapers and stands in for Featured when no
// wallpaper has been curated yet.
func (r *Repository) HighQuality(ctx context.Context, limit int) ([]entities.Wallpaper, error) {
	var items []entities.Wallpaper
	err := r.active(ctx).Preload("Category").
		Where("views >= ? AND downloads >= ?", HighQualityMinViews, HighQualityMinDownloads).
		Order("views DESC").
		Order("downloads DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// ByCategory returns one page of a category's wallpapers and the category total.
func (r *Repository) ByCategory(ctx context.Context, categoryID uint, sort string, limit, offset int) ([]entities.Wallpaper, int64, error) {
	var total int64
	if err := r.active(ctx).Where("category_id = ?", categoryID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.active(ctx).Preload("Category").Where("category_id = ?", categoryID)
	switch sort {
	case SortPopular:
		query = query.Order("views DESC").Order("downloads DESC").Order("likes DESC")
	case "", SortLatest:
	default:
		return nil, 0, fmt.Errorf("unknown sort %q", sort)
	}

	var items []entities.Wallpaper
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, total, err
}

// Search matches the term case-insensitively against title, description, alt
// text and tag names.
func (r *Repository) Search(ctx context.Context, term string, limit, offset int) ([]entities.Wallpaper, int64, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	tagMatch := r.conn(ctx).Table("wallpaper_tags").
		Select("wallpaper_tags.wallpaper_id").
		Joins("JOIN tags ON tags.id = wallpaper_tags.tag_id").
		Where("tags.name LIKE ?", pattern)

	filter := func(db *gorm.DB) *gorm.DB {
		return db.Where(
			r.conn(ctx).Where("LOWER(title) LIKE ?", pattern).
				Or("LOWER(description) LIKE ?", pattern).
				Or("LOWER(alt_text) LIKE ?", pattern).
				Or("wallpapers.id IN (?)", tagMatch),
		)
	}

	var total int64
	if err := r.active(ctx).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []entities.Wallpaper
	err := r.active(ctx).Scopes(filter).Preload("Category").
		Order("views DESC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	return items, total, err
}

// SetFeatured flags or unflags a wallpaper for curation.
func (r *Repository) SetFeatured(ctx context.Context, id uint, featured bool) error {
	result := r.conn(ctx).Model(&entities.Wallpaper{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_featured": featured, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// Totals aggregates counters across active wallpapers.
func (r *Repository) Totals(ctx context.Context) (*Totals, error) {
	var sums struct {
		Wallpapers int64
		Views      int64
		Downloads  int64
		Likes      int64
	}
	err := r.active(ctx).
		Select("COUNT(*) AS wallpapers, COALESCE(SUM(views), 0) AS views, COALESCE(SUM(downloads), 0) AS downloads, COALESCE(SUM(likes), 0) AS likes").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	totals := &Totals{
		Wallpapers: sums.Wallpapers,
		Views:      sums.Views,
		Downloads:  sums.Downloads,
		Likes:      sums.Likes,
		BySource:   make(map[string]int64),
	}
	if err := r.active(ctx).Where("is_featured = ?", true).Count(&totals.Featured).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Source string
		Count  int64
	}
	if err := r.active(ctx).Select("source, COUNT(*) AS count").Group("source").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		totals.BySource[row.Source] = row.Count
	}
	return totals, nil
}
