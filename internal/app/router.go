package app

import (
	"net/http"
	"slices"

	_ "VoiceTaskManager_Backend/docs"
	"VoiceTaskManager_Backend/internal/handler"
	"VoiceTaskManager_Backend/internal/metrics"
	"VoiceTaskManager_Backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// NewRouter assembles the gin engine: middleware chain, API routes and
// the operational endpoints.
func NewRouter(h *handler.Handler, collector *metrics.Collector, logger *zap.Logger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger, collector),
		middleware.Recovery(logger),
		cors.New(corsConfig(allowedOrigins)),
	)

	h.RegisterRoutes(router)

	router.GET("/metrics", gin.WrapH(collector.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	config.AllowHeaders = append(config.AllowHeaders, middleware.RequestIDHeader)
	config.ExposeHeaders = []string{middleware.RequestIDHeader}
	return config
}
