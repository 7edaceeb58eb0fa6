package http

import (
	"log/slog"

	"github.com/wallpaperverse/api/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Logger  *slog.Logger
	Version string

	// Health checks
	Database Pinger
	Cache    Pinger

	// Public read side
	Queries WallpaperQueries

	// Favourites, enabled when both are set
	FavouritesStore FavouritesStore
	SessionManager  *auth.SessionManager

	// CSRF protection for session-backed writes; empty disables it
	CSRFSecret     []byte
	SecureCookies  bool
	AllowedOrigins []string

	// Rate limiting
	RateLimit       auth.RateLimitConfig
	SearchRateLimit auth.RateLimitConfig

	// Admin API
	AdminAuth  *auth.AdminMiddleware
	Admin      AdminQueries
	Syncer     Syncer
	Categories CategoryLookup
	SyncRuns   SyncRunStore
	TaskQueue  TaskQueue    // optional
	Schedule   ScheduleInfo // optional
}
