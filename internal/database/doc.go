// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, category seeding, transactions
//	├── wallpapers/      # Wallpaper upserts, counters and read queries
//	├── categories/      # Category listing and denormalized counts
//	├── tags/            # Tag upserts, wallpaper links and counts
//	├── events/          # View/download event log
//	├── favourites/      # Visitor favourites
//	└── sync/            # Sync run history
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database, logger)
//
//	wallpapersRepo := wallpapers.NewRepository(db.DB)
//	tagsRepo := tags.NewRepository(db.DB)
//
//	err = db.WithTransaction(ctx, func(ctx context.Context) error {
//		if err := wallpapersRepo.Create(ctx, w); err != nil {
//			return err
//		}
//		_, err := tagsRepo.UpsertTag(ctx, "sunset")
//		return err
//	})
//
// Every repository method resolves its connection through Conn, so calls made
// with a context returned by WithTransaction join that transaction.
//
// # Drivers
//
// SQLite (default) runs in WAL mode with a single open connection. PostgreSQL
// is selected with DATABASE_DRIVER=postgres and DATABASE_DSN.
package database
