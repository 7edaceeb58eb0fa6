package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Log
		Database
		Cache
		Sources
		Sync
		Scheduler
		Tasks
		Admin
		Session
		CORS
		RateLimit
		RabbitMQ
		Events
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		Environment              string // "development" or "production"
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // json or text
	}
	Database struct {
		Driver string // sqlite or postgres
		Path   string // sqlite file path
		DSN    string // postgres DSN
	}
	Cache struct {
		RedisURL  string // empty selects the in-memory cache
		KeyPrefix string
		TTL       time.Duration
		SearchTTL time.Duration
	}
	Sources struct {
		UnsplashAccessKey string
		UnsplashBaseURL   string
		PexelsAPIKey      string
		PexelsBaseURL     string
		PixabayAPIKey     string
		PixabayBaseURL    string
		Timeout           time.Duration
	}
	Sync struct {
		ItemsPerSync        int           // total budget per category, split across providers
		CategoryDelay       time.Duration // pause between categories
		SaveConcurrency     int
		CategoryQueriesFile string // optional YAML slug -> query overrides
	}
	Scheduler struct {
		Enabled           bool
		SyncSchedule      string // Cron format: "0 */2 * * *" = every 2 hours
		CleanupSchedule   string // Cron format: "0 2 * * *" = daily at 02:00
		StatsSchedule     string // Cron format: "0 * * * *" = hourly
		RetentionSchedule string // Cron format, only used when Events.RetentionDays > 0
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Admin struct {
		TokenHash string // bcrypt hash of the admin bearer token
	}
	Session struct {
		Enabled       bool
		Lifetime      time.Duration
		SecureCookies bool
		CSRFSecret    string
	}
	CORS struct {
		AllowedOrigins []string
	}
	RateLimit struct {
		Requests       int
		Window         time.Duration
		SearchRequests int
		SearchWindow   time.Duration
	}
	RabbitMQ struct {
		URL        string // empty disables event publishing
		Exchange   string
		RoutingKey string
		QueueName  string
	}
	Events struct {
		RetentionDays int // 0 keeps view/download events forever
	}
)

func (g Global) IsProduction() bool {
	return g.Environment == "production"
}

func NewConfig() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 5000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	v.SetDefault("redis_url", "")
	v.SetDefault("cache_key_prefix", "wv:")
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("cache_search_ttl", "30m")

	v.SetDefault("unsplash_base_url", "https://api.unsplash.com")
	v.SetDefault("pexels_base_url", "https://api.pexels.com/v1")
	v.SetDefault("pixabay_base_url", "https://pixabay.com/api")
	v.SetDefault("source_timeout", "15s")

	v.SetDefault("sync_items_per_category", 99)
	v.SetDefault("sync_category_delay", "2s")
	v.SetDefault("sync_save_concurrency", 8)
	v.SetDefault("category_queries_file", "")

	v.SetDefault("enable_cron_jobs", true)
	v.SetDefault("sync_schedule", "0 */2 * * *")
	v.SetDefault("cache_cleanup_schedule", "0 2 * * *")
	v.SetDefault("stats_schedule", "0 * * * *")
	v.SetDefault("retention_schedule", "30 3 * * *")

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "2h")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("admin_token_hash", "")

	v.SetDefault("session_enabled", true)
	v.SetDefault("session_lifetime", "8760h") // favorites survive a year
	v.SetDefault("session_secure_cookies", false)
	v.SetDefault("csrf_secret", "")

	v.SetDefault("cors_allowed_origins", "http://localhost:3000 http://127.0.0.1:3000")

	v.SetDefault("rate_limit_requests", 1000)
	v.SetDefault("rate_limit_window", "15m")
	v.SetDefault("search_rate_limit_requests", 20)
	v.SetDefault("search_rate_limit_window", "1m")

	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("rabbitmq_exchange", "wallpaperverse")
	v.SetDefault("rabbitmq_routing_key", "wallpaper.created")
	v.SetDefault("rabbitmq_queue_name", "wallpaper_events")

	v.SetDefault("event_retention_days", 0)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Environment:              v.GetString("APP_ENV"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Driver: v.GetString("DATABASE_DRIVER"),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Cache: Cache{
			RedisURL:  v.GetString("REDIS_URL"),
			KeyPrefix: v.GetString("CACHE_KEY_PREFIX"),
			TTL:       v.GetDuration("CACHE_TTL"),
			SearchTTL: v.GetDuration("CACHE_SEARCH_TTL"),
		},
		Sources: Sources{
			UnsplashAccessKey: v.GetString("UNSPLASH_ACCESS_KEY"),
			UnsplashBaseURL:   v.GetString("UNSPLASH_BASE_URL"),
			PexelsAPIKey:      v.GetString("PEXELS_API_KEY"),
			PexelsBaseURL:     v.GetString("PEXELS_BASE_URL"),
			PixabayAPIKey:     v.GetString("PIXABAY_API_KEY"),
			PixabayBaseURL:    v.GetString("PIXABAY_BASE_URL"),
			Timeout:           v.GetDuration("SOURCE_TIMEOUT"),
		},
		Sync: Sync{
			ItemsPerSync:        v.GetInt("SYNC_ITEMS_PER_CATEGORY"),
			CategoryDelay:       v.GetDuration("SYNC_CATEGORY_DELAY"),
			SaveConcurrency:     v.GetInt("SYNC_SAVE_CONCURRENCY"),
			CategoryQueriesFile: v.GetString("CATEGORY_QUERIES_FILE"),
		},
		Scheduler: Scheduler{
			Enabled:           v.GetBool("ENABLE_CRON_JOBS"),
			SyncSchedule:      v.GetString("SYNC_SCHEDULE"),
			CleanupSchedule:   v.GetString("CACHE_CLEANUP_SCHEDULE"),
			StatsSchedule:     v.GetString("STATS_SCHEDULE"),
			RetentionSchedule: v.GetString("RETENTION_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Admin: Admin{
			TokenHash: v.GetString("ADMIN_TOKEN_HASH"),
		},
		Session: Session{
			Enabled:       v.GetBool("SESSION_ENABLED"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
			CSRFSecret:    v.GetString("CSRF_SECRET"),
		},
		CORS: CORS{
			AllowedOrigins: v.GetStringSlice("CORS_ALLOWED_ORIGINS"),
		},
		RateLimit: RateLimit{
			Requests:       v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:         v.GetDuration("RATE_LIMIT_WINDOW"),
			SearchRequests: v.GetInt("SEARCH_RATE_LIMIT_REQUESTS"),
			SearchWindow:   v.GetDuration("SEARCH_RATE_LIMIT_WINDOW"),
		},
		RabbitMQ: RabbitMQ{
			URL:        v.GetString("RABBITMQ_URL"),
			Exchange:   v.GetString("RABBITMQ_EXCHANGE"),
			RoutingKey: v.GetString("RABBITMQ_ROUTING_KEY"),
			QueueName:  v.GetString("RABBITMQ_QUEUE_NAME"),
		},
		Events: Events{
			RetentionDays: v.GetInt("EVENT_RETENTION_DAYS"),
		},
	}
}
