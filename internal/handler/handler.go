/**
* Name: 			handler.go
* Description: 		Gin HTTP handlers for tasks and audio transcription
* Workflow: 		shared dependencies injected once, handlers registered on the router
 */
package handler

import (
	"net/http"

	"VoiceTaskManager_Backend/internal/feed"
	"VoiceTaskManager_Backend/internal/metrics"
	"VoiceTaskManager_Backend/internal/middleware"
	"VoiceTaskManager_Backend/internal/staging"
	"VoiceTaskManager_Backend/internal/storage"
	"VoiceTaskManager_Backend/internal/transcribe"
	"VoiceTaskManager_Backend/internal/tts"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error" example:"Task not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Task deleted"`
}

type CreateTaskRequest struct {
	Text string `json:"text" binding:"required" example:"buy milk on the way home"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	// Transcription is the circuit breaker state of the speech provider.
	Transcription string `json:"transcription,omitempty" example:"closed"`
}

// Feed receives task change events and serves subscribers.
type Feed interface {
	Publish(ev feed.Event)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Breaker reports the transcription circuit breaker state.
type Breaker interface {
	State() string
}

type Deps struct {
	Store       storage.TaskStore
	Transcriber transcribe.Transcriber
	Breaker     Breaker
	// Provider labels transcription metrics and logs.
	Provider string
	Options  transcribe.Options
	Stager   *staging.Stager
	// Synthesizer enables GET /api/tasks/:id/speech when set.
	Synthesizer tts.Synthesizer
	Feed        Feed
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

type Handler struct {
	store       storage.TaskStore
	transcriber transcribe.Transcriber
	breaker     Breaker
	provider    string
	options     transcribe.Options
	stager      *staging.Stager
	synth       tts.Synthesizer
	feed        Feed
	metrics     *metrics.Collector
	logger      *zap.Logger
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector("voicetasks")
	}
	return &Handler{
		store:       d.Store,
		transcriber: d.Transcriber,
		breaker:     d.Breaker,
		provider:    d.Provider,
		options:     d.Options,
		stager:      d.Stager,
		synth:       d.Synthesizer,
		feed:        d.Feed,
		metrics:     d.Metrics,
		logger:      d.Logger,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/tasks", h.ListTasks)
		api.POST("/tasks", h.CreateTask)
		api.DELETE("/tasks/:id", h.DeleteTask)
		api.POST("/transcribe", h.TranscribeAudio)
		if h.synth != nil {
			api.GET("/tasks/:id/speech", h.SpeakTask)
		}
	}
	if h.feed != nil {
		r.GET("/ws/tasks", h.TaskFeed)
	}
	r.GET("/health", h.Health)
}

func (h *Handler) publish(ev feed.Event) {
	if h.feed != nil {
		h.feed.Publish(ev)
	}
}

func (h *Handler) log(c *gin.Context) *zap.Logger {
	return h.logger.With(zap.String("request_id", middleware.GetRequestID(c)))
}
