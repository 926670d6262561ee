package main

import (
	"PerfectFit/internal/config"
	"PerfectFit/pkg/log"
	"PerfectFit/pkg/metrics"
	"PerfectFit/pkg/redis"
	websocketPkg "PerfectFit/pkg/websocket"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	engineConfig := config.LoadEngineConfig(logger)
	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	landmarkProvider := websocketPkg.NewLandmarkClient()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithEngineConfig(engineConfig),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithLandmarkProvider(landmarkProvider),
		config.WithGlassesAPI(),
		config.WithGeminiClient(),
		config.WithSpeech(),
		config.WithMiddleware(),
		config.WithS3Client(),
		config.WithMetrics(metrics.New()),
		config.WithUtils(),
	}
	if os.Getenv("REDIS_ADDRESS") != "" {
		options = append(options, config.WithRedisServer(redis.New()))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Shutdown finished with error: %v", err)
	}
}
