package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	query WallpaperQueries
}

func NewStatsController(q WallpaperQueries) *StatsController {
	return &StatsController{query: q}
}

// Overview handles GET /api/stats
func (sc *StatsController) Overview(c *gin.Context) {
	stats, err := sc.query.Stats(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
