package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/categories"
	"github.com/wallpaperverse/api/internal/database/events"
	"github.com/wallpaperverse/api/internal/database/favourites"
	syncrepo "github.com/wallpaperverse/api/internal/database/sync"
	"github.com/wallpaperverse/api/internal/database/tags"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/http"
	"github.com/wallpaperverse/api/internal/ingest"
	"github.com/wallpaperverse/api/internal/publisher"
	"github.com/wallpaperverse/api/internal/query"
	"github.com/wallpaperverse/api/internal/scheduler"
	"github.com/wallpaperverse/api/internal/sources/pexels"
	"github.com/wallpaperverse/api/internal/sources/pixabay"
	"github.com/wallpaperverse/api/internal/sources/unsplash"
	"github.com/wallpaperverse/api/internal/tasks"
)

// =============================================================================
// Cache
// =============================================================================

var _ cache.Cache = (*cache.RedisCache)(nil)
var _ cache.Cache = (*cache.MemoryCache)(nil)

// =============================================================================
// Ingestion Pipeline
// =============================================================================

// Source implementations
var _ ingest.Source = (*unsplash.Source)(nil)
var _ ingest.Source = (*pexels.Source)(nil)
var _ ingest.Source = (*pixabay.Source)(nil)

// Storage
var _ ingest.WallpaperStore = (*wallpapers.Repository)(nil)
var _ ingest.TagStore = (*tags.Repository)(nil)
var _ ingest.CategoryStore = (*categories.Repository)(nil)
var _ ingest.TransactionManager = (*database.Database)(nil)
var _ ingest.RunRecorder = (*syncrepo.Repository)(nil)
var _ ingest.Invalidator = (cache.Cache)(nil)

// Publisher implementations
var _ ingest.Publisher = (*publisher.RabbitMQ)(nil)

// =============================================================================
// Query Service
// =============================================================================

var _ query.WallpaperReader = (*wallpapers.Repository)(nil)
var _ query.CategoryReader = (*categories.Repository)(nil)
var _ query.TagReader = (*tags.Repository)(nil)
var _ query.EventRecorder = (*events.Repository)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.Syncer = (*ingest.Pipeline)(nil)
var _ scheduler.EventCleaner = (*events.Repository)(nil)
var _ scheduler.CacheCleaner = (cache.Cache)(nil)

var _ tasks.Syncer = (*ingest.Pipeline)(nil)
var _ tasks.EventCleaner = (*events.Repository)(nil)
var _ tasks.OrphanTagsCleaner = (*tags.Repository)(nil)

// =============================================================================
// HTTP Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.Pinger = (cache.Cache)(nil)
var _ http.WallpaperQueries = (*query.Service)(nil)
var _ http.AdminQueries = (*query.Service)(nil)
var _ http.FavouritesStore = (*favourites.Repository)(nil)
var _ http.Syncer = (*ingest.Pipeline)(nil)
var _ http.SyncRunStore = (*syncrepo.Repository)(nil)
var _ http.CategoryLookup = (*categories.Repository)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.ScheduleInfo = (*scheduler.Scheduler)(nil)
