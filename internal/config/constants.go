package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./wallpaperverse.db"

	// DefaultCategoryQueriesFile is read when present and CATEGORY_QUERIES_FILE is unset.
	DefaultCategoryQueriesFile = "./category_queries.yaml"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
