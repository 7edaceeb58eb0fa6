package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wallpaperverse/api/internal/database"
	"github.com/wallpaperverse/api/internal/database/wallpapers"
	"github.com/wallpaperverse/api/internal/query"
)

type CategoriesController struct {
	query WallpaperQueries
}

func NewCategoriesController(q WallpaperQueries) *CategoriesController {
	return &CategoriesController{query: q}
}

// List handles GET /api/categories
func (cc *CategoriesController) List(c *gin.Context) {
	categories, err := cc.query.Categories(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, newListResponse(categories))
}

// Wallpapers handles GET /api/categories/:slug/wallpapers?page=&limit=&sort=latest|popular
func (cc *CategoriesController) Wallpapers(c *gin.Context) {
	sort := c.DefaultQuery("sort", wallpapers.SortLatest)
	if sort != wallpapers.SortLatest && sort != wallpapers.SortPopular {
		respondBadRequest(c, "sort must be latest or popular")
		return
	}

	page, err := cc.query.ByCategory(
		c.Request.Context(),
		c.Param("slug"),
		sort,
		queryInt(c, "page", 1),
		queryInt(c, "limit", query.DefaultLimit),
	)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, "category")
			return
		}
		respondInternalError(c, err, "category wallpapers")
		return
	}
	c.JSON(http.StatusOK, page)
}
