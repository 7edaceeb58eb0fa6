package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wallpaperverse/api/internal/config"
	"github.com/wallpaperverse/api/internal/entities"
)

// ErrNotFound is returned by repositories instead of gorm.ErrRecordNotFound.
var ErrNotFound = errors.New("record not found")

var defaultCategories = []entities.Category{
	{Name: "Nature", Slug: "nature", Icon: "🌿", Description: "Landscapes, forests, mountains and seas", SortOrder: 1},
	{Name: "Architecture", Slug: "architecture", Icon: "🏢", Description: "Cities, buildings and skylines", SortOrder: 2},
	{Name: "Animals", Slug: "animals", Icon: "🐾", Description: "Wildlife and pets", SortOrder: 3},
	{Name: "Abstract", Slug: "abstract", Icon: "🎨", Description: "Shapes, textures and colour", SortOrder: 4},
	{Name: "Space", Slug: "space", Icon: "🌌", Description: "Galaxies, nebulae and the night sky", SortOrder: 5},
	{Name: "Technology", Slug: "technology", Icon: "💻", Description: "Devices, code and circuitry", SortOrder: 6},
	{Name: "People", Slug: "people", Icon: "👥", Description: "Portraits and street photography", SortOrder: 7},
	{Name: "Food", Slug: "food", Icon: "🍽️", Description: "Dishes, drinks and ingredients", SortOrder: 8},
}

type Database struct {
	DB     *gorm.DB
	driver string
	log    *slog.Logger
}

// newGormLogger routes gorm output through slog. Missing rows are an expected
// outcome of lookups and are not logged.
func newGormLogger(log *slog.Logger) logger.Interface {
	level, slogLevel := logger.Warn, slog.LevelWarn
	if log.Enabled(context.Background(), slog.LevelDebug) {
		level, slogLevel = logger.Info, slog.LevelDebug
	}
	return logger.New(
		slog.NewLogLogger(log.With("component", "gorm").Handler(), slogLevel),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func NewDatabase(cfg config.Database, log *slog.Logger) (*Database, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent saves.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db, driver: cfg.Driver, log: log.With("component", "database")}

	if err := database.seedCategories(); err != nil {
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	database.log.Info("database initialized", "driver", cfg.Driver)

	return database, nil
}

func openDialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", config.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = config.DefaultDatabasePath
		}
		return sqlite.Open(path + "?_journal_mode=WAL&_busy_timeout=5000"), nil
	case config.DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("DATABASE_DSN is required for the postgres driver")
		}
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the schema. The wallpaper_tags join table has its
// own model, so it must be registered before AutoMigrate runs.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&entities.Wallpaper{}, "Tags", &entities.WallpaperTag{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&entities.Category{},
		&entities.Tag{},
		&entities.Wallpaper{},
		&entities.WallpaperTag{},
		&entities.View{},
		&entities.Download{},
		&entities.Favorite{},
		&entities.SyncRun{},
	)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) seedCategories() error {
	for _, category := range defaultCategories {
		var existing entities.Category
		result := d.DB.Where("slug = ?", category.Slug).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			category.IsActive = true
			if err := d.DB.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", category.Slug, err)
			}
			d.log.Info("created category", "slug", category.Slug)
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

type txKey struct{}

// WithTransaction runs fn inside a database transaction. Repositories pick the
// transaction up from the context through Conn.
func (d *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the transaction carried by ctx, or db bound to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// NotFound maps gorm.ErrRecordNotFound to ErrNotFound and passes other errors through.
func NotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
