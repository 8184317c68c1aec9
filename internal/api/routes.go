package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.RouterGroup, bot Bot, personas PersonaLister, providers ProviderMonitor) {
	handler := NewHandler(bot, personas, providers)
	r.GET("/status", handler.Status)
	r.GET("/stats", handler.Stats)
	r.GET("/personas", handler.Personas)
	r.POST("/create-post", handler.CreatePost)
	r.POST("/start", handler.Start)
	r.POST("/stop", handler.Stop)
	r.GET("/hybrid-stats", handler.HybridStats)
	r.POST("/reset-rate-limits", handler.ResetRateLimits)
}

// NewRouter mounts the bot routes under /bot next to a liveness check.
func NewRouter(bot Bot, personas PersonaLister, providers ProviderMonitor) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	SetupRoutes(r.Group("/bot"), bot, personas, providers)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	slog.Info("[API] Routes initialized", slog.Int("count", len(r.Routes())))
	return r
}
