package entities

import "time"

// View and Download are append-only analytics events. Wallpaper counters are
// maintained separately for fast reads.
type View struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WallpaperID uint      `gorm:"index" json:"wallpaper_id"`
	UserID      string    `gorm:"index;size:64" json:"user_id,omitempty"`
	UserAgent   string    `gorm:"size:500" json:"user_agent,omitempty"`
	IPAddress   string    `gorm:"size:45" json:"ip_address,omitempty"`
	Referrer    string    `gorm:"size:1024" json:"referrer,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (View) TableName() string {
	return "wallpaper_views"
}

type Download struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WallpaperID uint      `gorm:"index" json:"wallpaper_id"`
	UserID      string    `gorm:"index;size:64" json:"user_id,omitempty"`
	UserAgent   string    `gorm:"size:500" json:"user_agent,omitempty"`
	IPAddress   string    `gorm:"size:45" json:"ip_address,omitempty"`
	Referrer    string    `gorm:"size:1024" json:"referrer,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (Download) TableName() string {
	return "wallpaper_downloads"
}

// EventMeta carries the request metadata attached to a view or download.
type EventMeta struct {
	UserID    string
	UserAgent string
	IPAddress string
	Referrer  string
}

// Favorite links an anonymous visitor (identified by a session-held UUID) to a wallpaper.
type Favorite struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	VisitorID   string     `gorm:"uniqueIndex:idx_visitor_wallpaper;size:64;not null" json:"visitor_id"`
	WallpaperID uint       `gorm:"uniqueIndex:idx_visitor_wallpaper;not null" json:"wallpaper_id"`
	Wallpaper   *Wallpaper `gorm:"foreignKey:WallpaperID" json:"wallpaper,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Favorite) TableName() string {
	return "favorites"
}
