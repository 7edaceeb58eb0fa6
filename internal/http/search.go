package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wallpaperverse/api/internal/query"
)

type SearchController struct {
	query WallpaperQueries
}

func NewSearchController(q WallpaperQueries) *SearchController {
	return &SearchController{query: q}
}

// Search handles GET /api/search?q=&page=&limit=
func (sc *SearchController) Search(c *gin.Context) {
	page, err := sc.query.Search(
		c.Request.Context(),
		c.Query("q"),
		queryInt(c, "page", 1),
		queryInt(c, "limit", query.DefaultLimit),
	)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			respondBadRequest(c, "query parameter q is required")
			return
		}
		respondInternalError(c, err, "search")
		return
	}
	c.JSON(http.StatusOK, page)
}
