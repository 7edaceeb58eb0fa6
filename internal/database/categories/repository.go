// Package categories provides database operations for wallpaper categories.
package categories

import (
	"context"

	"gorm.io/gorm"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

// Repository handles all category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new categories repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns the categories eligible for sync and display.
func (r *Repository) ListActive(ctx context.Context) ([]entities.Category, error) {
	var categories []entities.Category
	err := database.Conn(ctx, r.db).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("name ASC").
		Find(&categories).Error
	return categories, err
}

// GetBySlug retrieves an active category by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*entities.Category, error) {
	var category entities.Category
	err := database.Conn(ctx, r.db).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&category).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &category, nil
}

// IncrementCount bumps the denormalized wallpaper count by one.
func (r *Repository) IncrementCount(ctx context.Context, id uint) error {
	return database.Conn(ctx, r.db).Model(&entities.Category{}).
		Where("id = ?", id).
		UpdateColumn("wallpaper_count", gorm.Expr("wallpaper_count + ?", 1)).Error
}

// RecomputeCounts rebuilds every category's wallpaper count from the active
// wallpapers it owns.
func (r *Repository) RecomputeCounts(ctx context.Context) error {
	return database.Conn(ctx, r.db).Exec(`
		UPDATE categories SET wallpaper_count = (
			SELECT COUNT(*) FROM wallpapers
			WHERE wallpapers.category_id = categories.id
			AND wallpapers.is_active = ?
		)`, true).Error
}
