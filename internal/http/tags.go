package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const defaultPopularTags = 30

type TagsController struct {
	query WallpaperQueries
}

func NewTagsController(q WallpaperQueries) *TagsController {
	return &TagsController{query: q}
}

// Popular handles GET /api/tags/popular?limit=
func (tc *TagsController) Popular(c *gin.Context) {
	tags, err := tc.query.PopularTags(c.Request.Context(), queryInt(c, "limit", defaultPopularTags))
	if err != nil {
		respondInternalError(c, err, "popular tags")
		return
	}
	c.JSON(http.StatusOK, newListResponse(tags))
}
