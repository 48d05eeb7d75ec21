package main

import (
	"context"
	"log"

	"VoiceTaskManager_Backend/internal/app"
	"VoiceTaskManager_Backend/internal/config"
	"VoiceTaskManager_Backend/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// @title           Voice Task Manager API
// @version         1.0
// @description     Task list backend that turns recorded speech into tasks.
// @BasePath        /
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("main(): no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main(): invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("main(): failed to build logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("main(): failed to init server", zap.Error(err))
	}
	if err := application.Run(ctx); err != nil {
		logger.Fatal("main(): server stopped with error", zap.Error(err))
	}
}
