package query

import (
	"fmt"
	"net/url"
	"strings"
)

// Cache keys are deterministic in the operation's parameters. The pattern
// constants below are what writers clear after a change.
const (
	KeyCategories    = "categories_all"
	KeyStatsOverview = "stats_overview"

	PatternTrending = "trending_wallpapers_*"
	PatternFeatured = "featured_wallpapers_*"
)

func TrendingKey(limit int) string {
	return fmt.Sprintf("trending_wallpapers_%d", limit)
}

func LatestKey(limit int) string {
	return fmt.Sprintf("latest_wallpapers_%d", limit)
}

func FeaturedKey(limit int) string {
	return fmt.Sprintf("featured_wallpapers_%d", limit)
}

func CategoryKey(slug, sort string, page, limit int) string {
	return fmt.Sprintf("category_wallpapers_%s_%s_%d_%d", slug, sort, page, limit)
}

// SearchKey escapes the normalized term so that glob characters or slashes in
// user input cannot leak into invalidation patterns.
func SearchKey(term string, page, limit int) string {
	return fmt.Sprintf("search_%s_%d_%d", url.QueryEscape(NormalizeTerm(term)), page, limit)
}

func WallpaperKey(id uint) string {
	return fmt.Sprintf("wallpaper_%d", id)
}

func PopularTagsKey(limit int) string {
	return fmt.Sprintf("tags_popular_%d", limit)
}

// NormalizeTerm trims, lower-cases and collapses whitespace in a search term.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}
