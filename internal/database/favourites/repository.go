// Package favourites provides database operations for visitor favourites.
//
// Visitors are anonymous; a visitor id is a UUID stored in the visitor's
// session cookie.
//
// # Usage
//
//	repo := favourites.NewRepository(db)
//	wallpapers, total, err := repo.List(ctx, visitorID, 20, 0)
package favourites

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

// Repository handles all favourites database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new favourites repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add marks a wallpaper as a visitor's favourite. Adding twice is a no-op.
func (r *Repository) Add(ctx context.Context, visitorID string, wallpaperID uint) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.Favorite{VisitorID: visitorID, WallpaperID: wallpaperID}).Error
}

// Remove deletes a favourite. Returns database.ErrNotFound if it did not exist.
func (r *Repository) Remove(ctx context.Context, visitorID string, wallpaperID uint) error {
	result := database.Conn(ctx, r.db).
		Where("visitor_id = ? AND wallpaper_id = ?", visitorID, wallpaperID).
		Delete(&entities.Favorite{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// List returns a visitor's favourite wallpapers, most recently added first.
// Returns the wallpapers, total count, and any error.
func (r *Repository) List(ctx context.Context, visitorID string, limit, offset int) ([]entities.Wallpaper, int64, error) {
	var total int64
	conn := database.Conn(ctx, r.db)

	if err := conn.Model(&entities.Favorite{}).Where("visitor_id = ?", visitorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := conn.Preload("Wallpaper").Preload("Wallpaper.Category").
		Where("visitor_id = ?", visitorID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var favorites []entities.Favorite
	if err := query.Find(&favorites).Error; err != nil {
		return nil, 0, err
	}

	wallpapers := make([]entities.Wallpaper, 0, len(favorites))
	for _, f := range favorites {
		if f.Wallpaper != nil {
			wallpapers = append(wallpapers, *f.Wallpaper)
		}
	}
	return wallpapers, total, nil
}

// IsFavourite reports whether the visitor has favourited the wallpaper.
func (r *Repository) IsFavourite(ctx context.Context, visitorID string, wallpaperID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entities.Favorite{}).
		Where("visitor_id = ? AND wallpaper_id = ?", visitorID, wallpaperID).
		Count(&count).Error
	return count > 0, err
}
