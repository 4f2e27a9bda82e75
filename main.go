package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"MicroDetServer/config"
	"MicroDetServer/engine"
	"MicroDetServer/logger"
	"MicroDetServer/monitor"
	"MicroDetServer/pipeline"
	"MicroDetServer/server"

	"go.uber.org/zap"
)

func main() {
	if err := logger.InitProduction(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		logger.Log().Fatal("failed to load config", zap.Error(err))
	}
	logger.Log().Info("configuration loaded",
		zap.String("modelPath", cfg.ModelPath),
		zap.Float32("confidenceThreshold", cfg.ConfidenceThreshold),
		zap.Float32("iouThreshold", cfg.IouThreshold),
		zap.Int("processingResolution", cfg.ProcessingResolution),
		zap.Int("httpPort", cfg.HTTPPort))

	backend := engine.New(cfg)
	pipe := pipeline.New(backend)
	defer pipe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go monitor.StartMon(cfg.MetricsPort, ctx)

	srv := server.New(cfg, pipe)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Log().Fatal("HTTP server exited", zap.Error(err))
	case s := <-sig:
		logger.Log().Info("shutting down", zap.String("signal", s.String()))
	}
}
