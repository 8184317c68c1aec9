package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/photobot/internal/imagesource"
	"github.com/spacesedan/photobot/internal/models"
	"github.com/spacesedan/photobot/internal/scheduler"
)

// Bot is the part of the runner the control API drives.
type Bot interface {
	RunNow(ctx context.Context, topic string, photos int) (scheduler.CycleOutcome, error)
	Enable()
	Disable()
	Status() models.RunStatus
	Stats() models.RunStats
}

type PersonaLister interface {
	List() []models.BotPersona
	Capacity() int
}

// ProviderMonitor exposes image provider health.
type ProviderMonitor interface {
	Health() []imagesource.ProviderHealth
	ResetHealth()
}

type Handler struct {
	bot       Bot
	personas  PersonaLister
	providers ProviderMonitor
}

func NewHandler(bot Bot, personas PersonaLister, providers ProviderMonitor) *Handler {
	return &Handler{bot: bot, personas: personas, providers: providers}
}

type createPostRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type createPostResponse struct {
	Triggered   bool               `json:"triggered"`
	Reason      string             `json:"reason,omitempty"`
	Success     bool               `json:"success"`
	PostID      string             `json:"post_id,omitempty"`
	Topic       string             `json:"topic,omitempty"`
	PersonaID   string             `json:"persona_id,omitempty"`
	Photos      int                `json:"photos,omitempty"`
	FailureKind models.FailureKind `json:"failure_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.bot.Status())
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.bot.Stats())
}

func (h *Handler) Personas(c *gin.Context) {
	personas := h.personas.List()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(personas),
		"capacity": h.personas.Capacity(),
		"personas": personas,
	})
}

func (h *Handler) HybridStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.providers.Health()})
}

func (h *Handler) ResetRateLimits(c *gin.Context) {
	h.providers.ResetHealth()
	slog.Info("[API] Image provider rate limits reset")
	c.JSON(http.StatusOK, gin.H{"reset": true, "providers": h.providers.Health()})
}

func (h *Handler) Start(c *gin.Context) {
	h.bot.Enable()
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

func (h *Handler) Stop(c *gin.Context) {
	h.bot.Disable()
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}

// CreatePost runs one manual cycle synchronously. An empty body posts one
// photo on a random topic.
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.bot.RunNow(c.Request.Context(), req.Topic, req.Count)
	switch {
	case errors.Is(err, scheduler.ErrUnknownTopic), errors.Is(err, scheduler.ErrInvalidCount):
		RespondError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, scheduler.ErrRunInProgress), errors.Is(err, scheduler.ErrDisabled):
		c.JSON(http.StatusOK, createPostResponse{Triggered: false, Reason: err.Error()})
		return
	case err != nil:
		slog.Error("[API] Manual run failed", slog.Any("error", err))
		RespondError(c, http.StatusInternalServerError, "manual run failed")
		return
	}

	res := createPostResponse{
		Triggered:   true,
		Success:     outcome.Success,
		PostID:      outcome.PostID,
		Topic:       outcome.Topic,
		PersonaID:   outcome.PersonaID,
		Photos:      outcome.Photos,
		FailureKind: outcome.Kind,
	}
	if outcome.Err != nil {
		res.Error = outcome.Err.Error()
	}
	c.JSON(http.StatusOK, res)
}
