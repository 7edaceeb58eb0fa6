package entities

import "time"

type Wallpaper struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ExternalID  string `gorm:"uniqueIndex;size:128;not null" json:"external_id"` // "<provider>_<nativeId>"
	Source      string `gorm:"index;size:20" json:"source"`
	Title       string `gorm:"size:512" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	AltText     string `gorm:"size:512" json:"alt_text,omitempty"`

	URLSmall   string `gorm:"size:2048" json:"url_small"`
	URLRegular string `gorm:"size:2048" json:"url_regular"`
	URLFull    string `gorm:"size:2048" json:"url_full"`
	URLRaw     string `gorm:"size:2048" json:"url_raw,omitempty"`
	URLThumb   string `gorm:"size:2048" json:"url_thumb,omitempty"`

	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"` // width / height, computed once at creation
	Color       string  `gorm:"size:16" json:"color,omitempty"`
	BlurHash    string  `gorm:"size:64" json:"blur_hash,omitempty"`

	AuthorName     string `gorm:"size:256" json:"author_name,omitempty"`
	AuthorUsername string `gorm:"size:256" json:"author_username,omitempty"`
	AuthorURL      string `gorm:"size:1024" json:"author_url,omitempty"`

	Views     int64 `gorm:"index;default:0" json:"views"`
	Downloads int64 `gorm:"index;default:0" json:"downloads"`
	Likes     int64 `gorm:"default:0" json:"likes"`

	IsActive   bool `gorm:"index;default:true" json:"is_active"`
	IsFeatured bool `gorm:"index;default:false" json:"is_featured"`

	CategoryID uint      `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:wallpaper_tags;" json:"tags,omitempty"`

	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Wallpaper) TableName() string {
	return "wallpapers"
}

// ComputeAspectRatio returns width/height, or 0 when height is unknown.
func ComputeAspectRatio(width, height int) float64 {
	if height <= 0 {
		return 0
	}
	return float64(width) / float64(height)
}

type Category struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Slug           string    `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	Icon           string    `gorm:"size:16" json:"icon,omitempty"`
	SortOrder      int       `gorm:"default:0" json:"sort_order"`
	IsActive       bool      `gorm:"index;default:true" json:"is_active"`
	WallpaperCount int64     `gorm:"default:0" json:"wallpaper_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Tag names are stored normalized (trimmed, lower-cased).
type Tag struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	WallpaperCount int64     `gorm:"default:0" json:"wallpaper_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

// WallpaperTag is the join model behind Wallpaper.Tags.
type WallpaperTag struct {
	WallpaperID uint      `gorm:"primaryKey" json:"wallpaper_id"`
	TagID       uint      `gorm:"primaryKey;index" json:"tag_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WallpaperTag) TableName() string {
	return "wallpaper_tags"
}
