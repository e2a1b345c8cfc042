package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/database"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/orchestrator"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/status"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// Publisher accepts backend messages pushed to the agent.
type Publisher interface {
	Publish(env channel.Envelope) error
}

// Handlers holds all HTTP handlers
type Handlers struct {
	manager *orchestrator.Manager
	inbox   Publisher
	board   status.Board
	feed    *notify.Feed
	runs    *database.RunStore
	logger  *logger.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(manager *orchestrator.Manager, inbox Publisher, board status.Board, feed *notify.Feed, runs *database.RunStore, logger *logger.Logger) *Handlers {
	return &Handlers{
		manager: manager,
		inbox:   inbox,
		board:   board,
		feed:    feed,
		runs:    runs,
		logger:  logger,
	}
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	dbHealthy := h.runs.Ping(c.Request.Context()) == nil

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"database":   dbHealthy,
		"board":      h.board.Stats(),
		"generation": h.manager.Generation(),
		"time":       time.Now().Unix(),
	})
}

// Status reports the live session and the per-case sync board.
func (h *Handlers) Status(c *gin.Context) {
	session := gin.H{"active": false}
	if o := h.manager.Current(); o != nil {
		session = gin.H{
			"active":      true,
			"generation":  o.Generation(),
			"state":       o.State(),
			"in_progress": o.InProgress(),
			"pending":     o.Pending(),
			"last_result": o.LastResult(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"session":       session,
		"sync_progress": h.board.SyncProgress(),
		"cases":         h.board.Snapshot(),
	})
}

// Sync runs a sync on the live page session and waits for its outcome.
func (h *Handlers) Sync(c *gin.Context) {
	h.runSync(c, orchestrator.Request{Trigger: orchestrator.TriggerManual})
}

// SyncSelected syncs only the cases matching the selected text.
func (h *Handlers) SyncSelected(c *gin.Context) {
	var req struct {
		SelectedText string `json:"selectedText" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	h.runSync(c, orchestrator.Request{Trigger: orchestrator.TriggerSelected, Selected: req.SelectedText})
}

func (h *Handlers) runSync(c *gin.Context, req orchestrator.Request) {
	res, err := h.manager.Sync(c.Request.Context(), req)
	if err != nil {
		code := syncErrorStatus(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("Sync request failed", "trigger", req.Trigger, "error", err)
		}
		c.JSON(code, gin.H{
			"success": false,
			"error":   err.Error(),
			"data":    res,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res,
	})
}

func syncErrorStatus(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, orchestrator.ErrUnsupportedPage),
		errors.Is(err, orchestrator.ErrIdentityMissing),
		errors.Is(err, orchestrator.ErrNotVerified),
		errors.Is(err, orchestrator.ErrNoMatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// AutoSync schedules the auto-sync loop on the live session.
func (h *Handlers) AutoSync(c *gin.Context) {
	o := h.manager.Current()
	if o == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   orchestrator.ErrClosed.Error(),
		})
		return
	}
	o.ScheduleAutoSync()

	c.JSON(http.StatusAccepted, gin.H{
		"success":    true,
		"generation": o.Generation(),
	})
}

// PushMessage queues a backend message for the live session.
func (h *Handlers) PushMessage(c *gin.Context) {
	var env channel.Envelope
	if err := c.ShouldBindJSON(&env); err != nil || env.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid message",
		})
		return
	}

	if err := h.inbox.Publish(env); err != nil {
		h.logger.Warn("Rejected pushed message", "action", env.Action, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
	})
}

// ListNotifications returns recent notifications, newest first.
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.feed.Recent(limit),
	})
}

// DismissNotification removes one notification.
func (h *Handlers) DismissNotification(c *gin.Context) {
	if !h.feed.Dismiss(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Notification not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// ListRuns returns the sync run history
func (h *Handlers) ListRuns(c *gin.Context) {
	// Get pagination parameters
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	runs, total, err := h.runs.List(c.Request.Context(), page, limit)
	if err != nil {
		h.logger.Error("Failed to list sync runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list sync runs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetRun returns one sync run
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Run not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
	})
}

// BoardStats returns status board statistics
func (h *Handlers) BoardStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.board.Stats(),
	})
}
