package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	db      Pinger
	cache   Pinger
	version string
}

func NewHealthController(db, cache Pinger, version string) *HealthController {
	return &HealthController{
		db:      db,
		cache:   cache,
		version: version,
	}
}

// Status reports database and cache connectivity. Only the database is
// critical; a broken cache degrades to direct reads.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	if h.db == nil {
		checks["database"] = "not configured"
	} else if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "ok"
	}

	if h.cache == nil {
		checks["cache"] = "not configured"
	} else if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = "error: " + err.Error()
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		checks["cache"] = "ok"
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// Index describes the API.
func (h *HealthController) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "WallpaperVerse API",
		"version": h.version,
		"endpoints": gin.H{
			"wallpapers": []string{
				"GET /api/wallpapers/trending",
				"GET /api/wallpapers/latest",
				"GET /api/wallpapers/featured",
				"GET /api/wallpapers/:id",
				"POST /api/wallpapers/:id/view",
				"POST /api/wallpapers/:id/download",
			},
			"categories": []string{
				"GET /api/categories",
				"GET /api/categories/:slug/wallpapers",
			},
			"search":    []string{"GET /api/search?q="},
			"tags":      []string{"GET /api/tags/popular"},
			"stats":     []string{"GET /api/stats"},
			"favorites": []string{"GET /api/favorites", "POST /api/favorites/:id", "DELETE /api/favorites/:id"},
		},
	})
}
