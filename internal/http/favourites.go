package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wallpaperverse/api/internal/auth"
	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/query"
)

// FavouritesController serves the per-visitor favourites list. Visitors are
// identified by the session, never by a request parameter.
type FavouritesController struct {
	store    FavouritesStore
	query    WallpaperQueries
	sessions *auth.SessionManager
}

func NewFavouritesController(store FavouritesStore, q WallpaperQueries, sessions *auth.SessionManager) *FavouritesController {
	return &FavouritesController{store: store, query: q, sessions: sessions}
}

// List handles GET /api/favorites?page=&limit=
func (fc *FavouritesController) List(c *gin.Context) {
	page := query.NormalizePage(queryInt(c, "page", 1))
	limit := query.NormalizeLimit(queryInt(c, "limit", query.DefaultLimit))

	visitorID := fc.sessions.VisitorID(c.Request.Context())
	if visitorID == "" {
		c.JSON(http.StatusOK, query.NewPage(nil, 0, page, limit))
		return
	}

	items, total, err := fc.store.List(c.Request.Context(), visitorID, limit, (page-1)*limit)
	if err != nil {
		respondInternalError(c, err, "list favourites")
		return
	}

	c.JSON(http.StatusOK, query.NewPage(items, total, page, limit))
}

// Status handles GET /api/favorites/:id
func (fc *FavouritesController) Status(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	favourite := false
	if visitorID := fc.sessions.VisitorID(c.Request.Context()); visitorID != "" {
		var err error
		favourite, err = fc.store.IsFavourite(c.Request.Context(), visitorID, id)
		if err != nil {
			respondInternalError(c, err, "favourite status")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"wallpaper_id": id, "favorite": favourite})
}

// Add handles POST /api/favorites/:id
func (fc *FavouritesController) Add(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	exists, err := fc.query.Exists(c.Request.Context(), id)
	if err != nil {
		respondInternalError(c, err, "check wallpaper")
		return
	}
	if !exists {
		respondNotFound(c, "wallpaper")
		return
	}

	visitorID := fc.sessions.EnsureVisitorID(c.Request.Context())
	if err := fc.store.Add(c.Request.Context(), visitorID, id); err != nil {
		respondInternalError(c, err, "add favourite")
		return
	}

	respondCreated(c, "favorite added", gin.H{"wallpaper_id": id})
}

// Remove handles DELETE /api/favorites/:id
func (fc *FavouritesController) Remove(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	visitorID := fc.sessions.VisitorID(c.Request.Context())
	if visitorID == "" {
		respondNotFound(c, "favorite")
		return
	}

	if err := fc.store.Remove(c.Request.Context(), visitorID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "favorite")
			return
		}
		respondInternalError(c, err, "remove favourite")
		return
	}

	respondSuccess(c, "favorite removed")
}
