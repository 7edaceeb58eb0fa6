package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wallpaperverse/api/internal/auth"
	"github.com/wallpaperverse/api/internal/entities"
	"github.com/wallpaperverse/api/internal/query"
)

type WallpapersController struct {
	query    WallpaperQueries
	sessions *auth.SessionManager
}

// NewWallpapersController creates the controller. sessions may be nil, in
// which case events are recorded without a visitor id.
func NewWallpapersController(q WallpaperQueries, sessions *auth.SessionManager) *WallpapersController {
	return &WallpapersController{query: q, sessions: sessions}
}

// Trending handles GET /api/wallpapers/trending
func (wc *WallpapersController) Trending(c *gin.Context) {
	items, err := wc.query.Trending(c.Request.Context(), queryInt(c, "limit", query.DefaultLimit))
	if err != nil {
		respondInternalError(c, err, "trending wallpapers")
		return
	}
	c.JSON(http.StatusOK, newListResponse(items))
}

// Latest handles GET /api/wallpapers/latest
func (wc *WallpapersController) Latest(c *gin.Context) {
	items, err := wc.query.Latest(c.Request.Context(), queryInt(c, "limit", query.DefaultLimit))
	if err != nil {
		respondInternalError(c, err, "latest wallpapers")
		return
	}
	c.JSON(http.StatusOK, newListResponse(items))
}

// Featured handles GET /api/wallpapers/featured
func (wc *WallpapersController) Featured(c *gin.Context) {
	items, err := wc.query.Featured(c.Request.Context(), queryInt(c, "limit", query.DefaultLimit))
	if err != nil {
		respondInternalError(c, err, "featured wallpapers")
		return
	}
	c.JSON(http.StatusOK, newListResponse(items))
}

// Get handles GET /api/wallpapers/:id
func (wc *WallpapersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	w, err := wc.query.GetWallpaper(c.Request.Context(), id)
	if err != nil {
		respondLookupError(c, err, "wallpaper")
		return
	}
	c.JSON(http.StatusOK, w)
}

// RecordView handles POST /api/wallpapers/:id/view
func (wc *WallpapersController) RecordView(c *gin.Context) {
	id, ok := wc.existingID(c)
	if !ok {
		return
	}
	wc.query.RecordView(c.Request.Context(), id, wc.eventMeta(c))
	respondSuccess(c, "view recorded")
}

// RecordDownload handles POST /api/wallpapers/:id/download
func (wc *WallpapersController) RecordDownload(c *gin.Context) {
	id, ok := wc.existingID(c)
	if !ok {
		return
	}
	wc.query.RecordDownload(c.Request.Context(), id, wc.eventMeta(c))
	respondSuccess(c, "download recorded")
}

func (wc *WallpapersController) existingID(c *gin.Context) (uint, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, false
	}

	exists, err := wc.query.Exists(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "check wallpaper")
		return 0, false
	}
	if !exists {
		respondNotFound(c, "wallpaper")
		return 0, false
	}
	return id, true
}

func (wc *WallpapersController) eventMeta(c *gin.Context) entities.EventMeta {
	meta := entities.EventMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referrer:  c.Request.Referer(),
	}
	if wc.sessions != nil {
		meta.UserID = wc.sessions.VisitorID(c.Request.Context())
	}
	return meta
}
