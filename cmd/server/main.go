package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	config "github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/server"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	path := *configPath
	if path == "" {
		dir, _ := os.Getwd()
		path = filepath.Join(dir, "configs", "config.yaml")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Error(fmt.Errorf("failed to load configuration: %v", err))
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		logger.Error(fmt.Errorf("failed to initialize logger: %v", err))
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error(fmt.Errorf("failed to open storage: %v", err))
		os.Exit(1)
	}
	defer store.Close()

	app, err := engine.New(cfg, store)
	if err != nil {
		logger.Error(fmt.Errorf("error initializing engine: %v", err))
		os.Exit(1)
	}

	srv := server.New(cfg, app)
	if err := srv.Run(); err != nil {
		logger.Error(fmt.Errorf("server stopped: %v", err))
		os.Exit(1)
	}
}
