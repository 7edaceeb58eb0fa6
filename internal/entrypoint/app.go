package entrypoint

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/wallpaperverse/api/internal/cache"
	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/categories"
	"github.com/wallpaperverse/api/internal/database/events"
	"github.com/wallpaperverse/api/internal/database/favourites"
	syncrepo "github.com/wallpaperverse/api/internal/database/sync"
	"github.com/wallpaperverse/api/internal/database/tags"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/ingest"
	"github.com/wallpaperverse/api/internal/publisher"
	"github.com/wallpaperverse/api/internal/query"
	"github.com/wallpaperverse/api/internal/sources/pexels"
	"github.com/wallpaperverse/api/internal/sources/pixabay"
	"github.com/wallpaperverse/api/internal/sources/unsplash"
)

// App holds the components shared by the server and the CLI commands.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB         *database.Database
	Cache      cache.Cache
	Wallpapers *wallpapers.Repository
	Categories *categories.Repository
	Tags       *tags.Repository
	Events     *events.Repository
	Favourites *favourites.Repository
	SyncRuns   *syncrepo.Repository

	Pipeline *ingest.Pipeline
	Query    *query.Service

	publisher *publisher.RabbitMQ
}

// NewApp opens the database and cache and wires the ingestion pipeline and
// query service on top of them. Close releases everything it opened.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewDatabase(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	store, err := cache.New(cfg.Cache, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache: %w", err)
	}

	queries, err := config.LoadCategoryQueries(cfg.Sync.CategoryQueriesFile)
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		DB:         db,
		Cache:      store,
		Wallpapers: wallpapers.NewRepository(db.DB),
		Categories: categories.NewRepository(db.DB),
		Tags:       tags.NewRepository(db.DB),
		Events:     events.NewRepository(db.DB),
		Favourites: favourites.NewRepository(db.DB),
		SyncRuns:   syncrepo.NewRepository(db.DB),
	}

	opts := []ingest.Option{ingest.WithRunRecorder(app.SyncRuns)}
	if cfg.RabbitMQ.URL != "" {
		pub, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, wallpaper events will not be published", "error", err)
		} else {
			app.publisher = pub
			opts = append(opts, ingest.WithPublisher(pub))
		}
	}

	srcs := BuildSources(cfg.Sources, logger)
	if !HasSourceKeys(cfg.Sources) {
		logger.Warn("no wallpaper source API keys configured, sync will fetch nothing")
	}

	app.Pipeline = ingest.NewPipeline(
		srcs,
		app.Wallpapers,
		app.Tags,
		app.Categories,
		store,
		db,
		logger,
		ingest.Config{
			ItemsPerSync:    cfg.Sync.ItemsPerSync,
			CategoryDelay:   cfg.Sync.CategoryDelay,
			SaveConcurrency: cfg.Sync.SaveConcurrency,
			Queries:         queries,
		},
		opts...,
	)

	app.Query = query.NewService(
		app.Wallpapers,
		app.Categories,
		app.Tags,
		app.Events,
		store,
		logger,
		query.Config{TTL: cfg.Cache.TTL, SearchTTL: cfg.Cache.SearchTTL},
	)

	return app, nil
}

// BuildSources returns every provider. A provider without a key logs a
// warning on each fetch and contributes nothing, so the per-source budget
// stays a third of the total.
func BuildSources(cfg config.Sources, logger *slog.Logger) []ingest.Source {
	return []ingest.Source{
		unsplash.New(unsplash.Config{
			AccessKey: cfg.UnsplashAccessKey,
			BaseURL:   cfg.UnsplashBaseURL,
			Timeout:   cfg.Timeout,
		}, logger),
		pexels.New(pexels.Config{
			APIKey:  cfg.PexelsAPIKey,
			BaseURL: cfg.PexelsBaseURL,
			Timeout: cfg.Timeout,
		}, logger),
		pixabay.New(pixabay.Config{
			APIKey:  cfg.PixabayAPIKey,
			BaseURL: cfg.PixabayBaseURL,
			Timeout: cfg.Timeout,
		}, logger),
	}
}

// HasSourceKeys reports whether at least one provider key is configured.
func HasSourceKeys(cfg config.Sources) bool {
	return cfg.UnsplashAccessKey != "" || cfg.PexelsAPIKey != "" || cfg.PixabayAPIKey != ""
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.Cache.Close(), a.DB.Close())
	return errors.Join(errs...)
}
