package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/server"
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		log.Fatalf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment
	port := flag.String("port", cfg.Server.Port, "Server port")
	host := flag.String("host", cfg.Server.Host, "Server bind address")
	pages := flag.String("pages", cfg.Pages.Dir, "Host pages directory")
	widgets := flag.String("widgets", cfg.Pages.WidgetsDir, "Widget documents directory")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode (console logs, debug level)")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Pages.Dir = *pages
	cfg.Pages.WidgetsDir = *widgets
	if *dev && !cfg.Logging.Development {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
		if err := srv.Close(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		srv.Close()
		logger.Fatal("Server error", zap.Error(err))
	}
}
