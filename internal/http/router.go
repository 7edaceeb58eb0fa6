package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wallpaperverse/api/internal/auth"
)

// Router is the configured gin engine plus the rate limiters it owns.
type Router struct {
	*gin.Engine
	limiters []*auth.RateLimiter
}

// Close stops the rate limiter cleanup goroutines.
func (r *Router) Close() {
	for _, rl := range r.limiters {
		rl.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(RequestLogger(cfg.Logger.With("component", "http")))
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	r := &Router{Engine: router}

	apiLimiter := auth.NewRateLimiter(cfg.RateLimit)
	searchLimiter := auth.NewRateLimiter(cfg.SearchRateLimit)
	r.limiters = append(r.limiters, apiLimiter, searchLimiter)

	health := NewHealthController(cfg.Database, cfg.Cache, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api", apiLimiter.Middleware())
	api.GET("", health.Index)

	wallpapers := NewWallpapersController(cfg.Queries, cfg.SessionManager)
	categories := NewCategoriesController(cfg.Queries)
	search := NewSearchController(cfg.Queries)
	tags := NewTagsController(cfg.Queries)
	stats := NewStatsController(cfg.Queries)

	api.GET("/wallpapers/trending", wallpapers.Trending)
	api.GET("/wallpapers/latest", wallpapers.Latest)
	api.GET("/wallpapers/featured", wallpapers.Featured)
	api.GET("/wallpapers/:id", wallpapers.Get)

	api.GET("/categories", categories.List)
	api.GET("/categories/:slug/wallpapers", categories.Wallpapers)
	api.GET("/search", searchLimiter.Middleware(), search.Search)
	api.GET("/tags/popular", tags.Popular)
	api.GET("/stats", stats.Overview)

	// View and download events pick up the visitor id when a session exists.
	events := api.Group("")
	if cfg.SessionManager != nil {
		events.Use(cfg.SessionManager.LoadAndSave())
	}
	events.POST("/wallpapers/:id/view", wallpapers.RecordView)
	events.POST("/wallpapers/:id/download", wallpapers.RecordDownload)

	if cfg.FavouritesStore != nil && cfg.SessionManager != nil {
		// Session runs after CSRF so the session context is not replaced by
		// CSRF's request copy.
		visitor := api.Group("")
		if len(cfg.CSRFSecret) > 0 {
			visitor.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, trustedHosts(cfg.AllowedOrigins)...))
		}
		visitor.Use(cfg.SessionManager.LoadAndSave())

		favourites := NewFavouritesController(cfg.FavouritesStore, cfg.Queries, cfg.SessionManager)
		visitor.GET("/favorites", favourites.List)
		visitor.GET("/favorites/:id", favourites.Status)
		visitor.POST("/favorites/:id", favourites.Add)
		visitor.DELETE("/favorites/:id", favourites.Remove)
	}

	if cfg.AdminAuth != nil && cfg.Syncer != nil {
		adminController := NewAdminController(cfg.Syncer, cfg.Admin, cfg.Categories, cfg.SyncRuns, cfg.TaskQueue, cfg.Schedule)
		admin := api.Group("/admin", cfg.AdminAuth.RequireAdmin())
		admin.POST("/sync", adminController.SyncAll)
		admin.POST("/sync/:slug", adminController.SyncCategory)
		admin.GET("/sync/status", adminController.SyncStatus)
		admin.POST("/statistics", adminController.UpdateStatistics)
		admin.POST("/cache/clear", adminController.ClearCache)
		admin.PATCH("/wallpapers/:id/featured", adminController.SetFeatured)
		admin.GET("/tasks/:id", adminController.TaskStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})

	return r
}

// trustedHosts turns CORS origins into the bare hosts gorilla/csrf compares
// the Origin header against.
func trustedHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", auth.CSRFTokenHeader},
		ExposeHeaders:    []string{auth.CSRFTokenHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
