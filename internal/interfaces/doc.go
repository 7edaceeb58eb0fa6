// Package interfaces documents the core abstractions used throughout the application.
//
// Interfaces are declared by the package that consumes them; this package only
// lists them and holds the compile-time checks in checks.go.
//
// # Interface Categories
//
// ## Ingestion
//
//   - Source: a wallpaper provider search API (internal/ingest/interfaces.go)
//   - WallpaperStore, TagStore, CategoryStore: persistence used while saving (internal/ingest/interfaces.go)
//   - Publisher: announces newly created wallpapers (internal/ingest/interfaces.go)
//   - RunRecorder: sync run history (internal/ingest/interfaces.go)
//
// ## Read Side
//
//   - WallpaperReader, CategoryReader, TagReader, EventRecorder (internal/query/service.go)
//   - cache.Cache: Redis or in-memory key-value store (internal/cache/cache.go)
//
// ## HTTP
//
//   - WallpaperQueries, AdminQueries, FavouritesStore, Syncer, TaskQueue (internal/http/stores.go)
//
// ## Background Work
//
//   - scheduler.Syncer, CacheCleaner, EventCleaner (internal/scheduler/scheduler.go)
//   - tasks.Syncer, EventCleaner, OrphanTagsCleaner (internal/tasks/)
//
// # Adding a New Wallpaper Provider
//
//  1. Create a package under internal/sources/
//
//     type Source struct {
//         httpClient *http.Client
//         apiKey     string
//     }
//
//     func (s *Source) Name() string { return "flickr" }
//     func (s *Source) Fetch(ctx context.Context, query string, page, perPage int) []sources.ExternalItem
//
//     Fetch never returns an error: failures are logged and yield an empty slice.
//     External ids are built with sources.ExternalID(provider, nativeID).
//
//  2. Add a key to config.Sources and construct the source in entrypoint.BuildSources.
//
//  3. Add a compile-time check to checks.go:
//
//     var _ ingest.Source = (*flickr.Source)(nil)
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Use database.Conn(ctx, r.db) so calls join a transaction started by
//     Database.WithTransaction, and return database.ErrNotFound for missing rows.
//
//  4. Add compile-time check:
//
//     var _ SomeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for examples.
package interfaces
