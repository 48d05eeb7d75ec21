package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"VoiceTaskManager_Backend/internal/feed"
	"VoiceTaskManager_Backend/internal/metrics"
	"VoiceTaskManager_Backend/internal/transcribe"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const audioField = "audio"

// TranscribeAudio godoc
// @Summary      Create a task from speech
// @Description  Stages the uploaded recording, transcribes it and stores the transcript as a new task.
// @Tags         Tasks
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio formData file true "Recorded audio"
// @Success      201 {object} models.Task
// @Failure      400 {object} handler.ErrorResponse
// @Failure      500 {object} handler.ErrorResponse
// @Router       /api/transcribe [post]
func (h *Handler) TranscribeAudio(c *gin.Context) {
	logger := h.log(c)

	fileHeader, err := c.FormFile(audioField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No audio file provided"})
		return
	}

	// The outcome must not depend on the client staying connected.
	ctx := context.WithoutCancel(c.Request.Context())

	src, err := fileHeader.Open()
	if err != nil {
		logger.Error("TranscribeAudio(): failed to open upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process audio"})
		return
	}
	defer src.Close()

	staged, err := h.stager.Stage(src, fileHeader.Filename)
	if err != nil {
		logger.Error("TranscribeAudio(): failed to stage upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process audio"})
		return
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			logger.Warn("TranscribeAudio(): failed to remove staged audio", zap.String("path", staged.Path), zap.Error(err))
		}
	}()

	mimeType := fileHeader.Header.Get("Content-Type")
	logger.Info("TranscribeAudio(): received audio",
		zap.String("filename", fileHeader.Filename),
		zap.String("mimetype", mimeType),
		zap.Int64("size", staged.Size),
	)

	start := time.Now()
	result, err := h.transcriber.Transcribe(ctx, transcribe.Audio{Path: staged.Path, MimeType: mimeType}, h.options)
	if err != nil {
		h.metrics.ObserveTranscription(h.provider, metrics.OutcomeFailure, time.Since(start))
		logger.Error("TranscribeAudio(): transcription failed",
			zap.String("provider", h.provider),
			zap.Bool("circuit_open", errors.Is(err, transcribe.ErrCircuitOpen)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
		return
	}

	transcript, err := result.Transcript()
	if err != nil {
		h.metrics.ObserveTranscription(h.provider, metrics.OutcomeMalformed, time.Since(start))
		logger.Error("TranscribeAudio(): unexpected transcription result", zap.String("provider", h.provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription failed"})
		return
	}
	h.metrics.ObserveTranscription(h.provider, metrics.OutcomeSuccess, time.Since(start))
	logger.Debug("TranscribeAudio(): transcript received", zap.String("provider_request_id", result.RequestID))

	task, err := h.store.Create(ctx, transcript)
	if err != nil {
		logger.Error("TranscribeAudio(): failed to store task", zap.Int("transcript_len", len(transcript)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process audio"})
		return
	}

	h.metrics.TasksCreated.WithLabelValues(metrics.SourceTranscribe).Inc()
	h.publish(feed.Created(task))
	logger.Info("TranscribeAudio(): task created", zap.String("id", task.ID))
	c.JSON(http.StatusCreated, task)
}
