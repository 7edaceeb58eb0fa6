package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/wallpaperverse/api/internal/tasks"
)

// AdminController triggers syncs and maintenance. With a task queue the work
// is enqueued; without one it runs in-process.
type AdminController struct {
	syncer     Syncer
	admin      AdminQueries
	categories CategoryLookup
	runs       SyncRunStore
	tasks      TaskQueue
	schedule   ScheduleInfo
}

func NewAdminController(
	syncer Syncer,
	admin AdminQueries,
	categories CategoryLookup,
	runs SyncRunStore,
	taskQueue TaskQueue,
	schedule ScheduleInfo,
) *AdminController {
	return &AdminController{
		syncer:     syncer,
		admin:      admin,
		categories: categories,
		runs:       runs,
		tasks:      taskQueue,
		schedule:   schedule,
	}
}

// SyncAll handles POST /api/admin/sync
func (ac *AdminController) SyncAll(c *gin.Context) {
	running, err := ac.runs.IsSyncRunning(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "check sync status")
		return
	}
	if running {
		respondError(c, http.StatusConflict, "a sync is already running", "SYNC_RUNNING")
		return
	}

	if ac.tasks != nil {
		ac.enqueue(c, tasks.SyncAllTask{}, "sync enqueued")
		return
	}

	logger := requestLogger(c)
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if _, err := ac.syncer.SyncFromAllSources(ctx); err != nil {
			logger.Error("background sync failed", "error", err)
		}
	}()
	respondAccepted(c, "sync started", nil)
}

// SyncCategory handles POST /api/admin/sync/:slug
func (ac *AdminController) SyncCategory(c *gin.Context) {
	slug := c.Param("slug")
	if _, err := ac.categories.GetBySlug(c.Request.Context(), slug); err != nil {
		respondLookupError(c, err, "category")
		return
	}

	if ac.tasks != nil {
		ac.enqueue(c, tasks.SyncCategoryTask{Slug: slug}, "category sync enqueued")
		return
	}

	report, err := ac.syncer.SyncCategoryBySlug(c.Request.Context(), slug)
	if err != nil {
		respondInternalError(c, err, "sync category")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "category synced", Data: report})
}

// UpdateStatistics handles POST /api/admin/statistics
func (ac *AdminController) UpdateStatistics(c *gin.Context) {
	if ac.tasks != nil {
		ac.enqueue(c, tasks.UpdateStatisticsTask{}, "statistics update enqueued")
		return
	}

	if err := ac.syncer.UpdateStatistics(c.Request.Context()); err != nil {
		respondInternalError(c, err, "update statistics")
		return
	}
	respondSuccess(c, "statistics updated")
}

type clearCacheRequest struct {
	Pattern string `json:"pattern"`
}

// ClearCache handles POST /api/admin/cache/clear with an optional
// {"pattern": "..."} body; an empty pattern clears everything.
func (ac *AdminController) ClearCache(c *gin.Context) {
	var req clearCacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	removed, err := ac.admin.ClearCache(c.Request.Context(), req.Pattern)
	if err != nil {
		respondInternalError(c, err, "clear cache")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "cache cleared", Data: gin.H{"removed": removed}})
}

type setFeaturedRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

// SetFeatured handles PATCH /api/admin/wallpapers/:id/featured
func (ac *AdminController) SetFeatured(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "featured is required")
		return
	}

	if err := ac.admin.SetFeatured(c.Request.Context(), id, *req.Featured); err != nil {
		respondLookupError(c, err, "wallpaper")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "wallpaper updated",
		Data:    gin.H{"id": id, "is_featured": *req.Featured},
	})
}

// SyncStatus handles GET /api/admin/sync/status
func (ac *AdminController) SyncStatus(c *gin.Context) {
	ctx := c.Request.Context()

	running, err := ac.runs.IsSyncRunning(ctx)
	if err != nil {
		respondInternalError(c, err, "sync status")
		return
	}
	recent, err := ac.runs.Recent(ctx, 10)
	if err != nil {
		respondInternalError(c, err, "recent sync runs")
		return
	}

	response := gin.H{
		"running": running,
		"recent":  recent,
	}
	if len(recent) > 0 {
		response["latest"] = recent[0]
	}
	if ac.schedule != nil {
		next := make(map[string]string)
		for job, at := range ac.schedule.NextRuns() {
			next[string(job)] = at.Format(time.RFC3339)
		}
		response["next_runs"] = next
	}

	c.JSON(http.StatusOK, response)
}

// TaskStatus handles GET /api/admin/tasks/:id
func (ac *AdminController) TaskStatus(c *gin.Context) {
	if ac.tasks == nil {
		respondError(c, http.StatusNotFound, "task queue is disabled", "TASKS_DISABLED")
		return
	}

	taskID := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := ac.tasks.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func (ac *AdminController) enqueue(c *gin.Context, task backlite.Task, message string) {
	id, err := ac.tasks.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondInternalError(c, err, "enqueue "+task.Config().Name)
		return
	}
	respondAccepted(c, message, gin.H{"task_id": id, "type": task.Config().Name})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
