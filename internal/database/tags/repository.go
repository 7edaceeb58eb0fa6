// Package tags provides database operations for tag management.
//
// Tag names are normalized (trimmed, lower-cased) before they reach the
// database, so "Sunset " and "sunset" are the same tag.
//
// # Usage
//
//	repo := tags.NewRepository(db)
//	tag, err := repo.UpsertTag(ctx, "Sunset")
//	err = repo.LinkToWallpaper(ctx, wallpaperID, tag.ID)
package tags

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/entities"
)

var ErrEmptyName = errors.New("tag name is empty")

// Repository handles all tag database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tags repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Normalize returns the canonical form of a tag name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UpsertTag creates the tag with a count of one, or increments the count of
// the existing tag with the same normalized name.
func (r *Repository) UpsertTag(ctx context.Context, name string) (*entities.Tag, error) {
	name = Normalize(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	conn := database.Conn(ctx, r.db)
	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"wallpaper_count": gorm.Expr("tags.wallpaper_count + ?", 1),
		}),
	}).Create(&entities.Tag{Name: name, WallpaperCount: 1}).Error
	if err != nil {
		return nil, err
	}

	var tag entities.Tag
	if err := conn.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// LinkToWallpaper associates a tag with a wallpaper. Linking twice is a no-op.
func (r *Repository) LinkToWallpaper(ctx context.Context, wallpaperID, tagID uint) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entities.WallpaperTag{WallpaperID: wallpaperID, TagID: tagID}).Error
}

// GetByName retrieves a tag by name (normalized first).
func (r *Repository) GetByName(ctx context.Context, name string) (*entities.Tag, error) {
	var tag entities.Tag
	err := database.Conn(ctx, r.db).Where("name = ?", Normalize(name)).First(&tag).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &tag, nil
}

// Popular returns the tags with the most wallpapers.
func (r *Repository) Popular(ctx context.Context, limit int) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := database.Conn(ctx, r.db).
		Where("wallpaper_count > ?", 0).
		Order("wallpaper_count DESC").
		Order("name ASC").
		Limit(limit).
		Find(&tags).Error
	return tags, err
}

// RecomputeCounts rebuilds every tag's wallpaper count from the join table.
func (r *Repository) RecomputeCounts(ctx context.Context) error {
	return database.Conn(ctx, r.db).Exec(`
		UPDATE tags SET wallpaper_count = (
			SELECT COUNT(*) FROM wallpaper_tags
			WHERE wallpaper_tags.tag_id = tags.id
		)`).Error
}

// DeleteOrphanTags removes tags that no wallpaper references.
func (r *Repository) DeleteOrphanTags(ctx context.Context) (int64, error) {
	result := database.Conn(ctx, r.db).Exec(`
		DELETE FROM tags
		WHERE id NOT IN (SELECT tag_id FROM wallpaper_tags)
	`)
	return result.RowsAffected, result.Error
}
