package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"VoiceTaskManager_Backend/internal/feed"
	"VoiceTaskManager_Backend/internal/metrics"
	"VoiceTaskManager_Backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// ListTasks godoc
// @Summary      List tasks
// @Description  Returns every task in insertion order. No pagination.
// @Tags         Tasks
// @Produce      json
// @Success      200 {array}  models.Task
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	tasks, err := h.store.FindAll(c.Request.Context())
	if err != nil {
		h.log(c).Error("ListTasks(): failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary      Create a task
// @Description  Stores a task from plain text.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        request body handler.CreateTaskRequest true "Task text"
// @Success      201 {object} models.Task
// @Failure      400 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task text is required"})
		return
	}

	task, err := h.store.Create(context.WithoutCancel(c.Request.Context()), req.Text)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Task text is required"})
			return
		}
		h.log(c).Error("CreateTask(): failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	h.metrics.TasksCreated.WithLabelValues(metrics.SourceAPI).Inc()
	h.publish(feed.Created(task))
	c.JSON(http.StatusCreated, task)
}

// DeleteTask godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Param        id  path     string true "Task ID"
// @Success      200 {object} handler.MessageResponse
// @Failure      404 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/tasks/{id} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	id := c.Param("id")

	deleted, err := h.store.FindByIDAndDelete(context.WithoutCancel(c.Request.Context()), id)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.log(c).Error("DeleteTask(): failed to delete task", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	h.metrics.TasksDeleted.Inc()
	h.publish(feed.Deleted(deleted.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// SpeakTask godoc
// @Summary      Read a task aloud
// @Description  Synthesizes the task text to a WAV file. Only registered when TTS is enabled.
// @Tags         Tasks
// @Produce      audio/wav
// @Param        id  path     string true "Task ID"
// @Success      200 {file}   file   "WAV audio"
// @Failure      404 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/tasks/{id}/speech [get]
func (h *Handler) SpeakTask(c *gin.Context) {
	id := c.Param("id")

	task, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.log(c).Error("SpeakTask(): failed to fetch task", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		return
	}

	audio, err := h.synth.Synthesize(c.Request.Context(), task.Text)
	if err != nil {
		h.log(c).Error("SpeakTask(): failed to synthesize speech", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to synthesize speech"})
		return
	}
	c.Data(http.StatusOK, "audio/wav", audio)
}

// TaskFeed godoc
// @Summary      Task change feed (WebSocket)
// @Description  Upgrades to a WebSocket that receives {"type":"created","task":{...}} and {"type":"deleted","id":"..."} messages.
// @Description  Clients connect with the ws:// or wss:// scheme.
// @Tags         Tasks
// @Success      101 {string} string "Switching Protocols"
// @Failure      400 {string} string "Not a WebSocket handshake"
// @Router       /ws/tasks [get]
func (h *Handler) TaskFeed(c *gin.Context) {
	h.feed.ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary      Liveness, store reachability and transcription breaker state
// @Tags         Ops
// @Produce      json
// @Success      200 {object} handler.HealthResponse
// @Failure      503 {object} handler.HealthResponse
// @Router       /health [get]
// An open breaker is reported but does not fail the check; tasks stay
// readable while the provider is down.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	if h.breaker != nil {
		resp.Transcription = h.breaker.State()
	}

	if err := h.store.Ping(ctx); err != nil {
		h.log(c).Warn("Health(): store ping failed", zap.Error(err))
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
