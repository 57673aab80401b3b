package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	config "github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/indexer"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/storage"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "Path to the YAML config file")
	audioFile := flag.String("file", "", "Path to an audio file to index")
	audioDir := flag.String("dir", "", "Path to a directory of audio files to index")
	recognizeFile := flag.String("recognize", "", "Path to an audio file to recognize")
	microphoneCmd := flag.Bool("microphone", false, "Recognize from the microphone (listens until match or 30s timeout)")
	listCmd := flag.Bool("list", false, "List all indexed tracks")
	statsCmd := flag.Bool("stats", false, "Print index statistics")
	deleteID := flag.String("delete", "", "Delete a track by its ID")
	clearCmd := flag.Bool("clear", false, "Remove every track from the index")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *deleteID != "":
		if err := app.Delete(ctx, *deleteID); err != nil {
			logger.Error(fmt.Errorf("error deleting track: %v", err))
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Deleted track %s", *deleteID))

	case *clearCmd:
		if err := app.Clear(ctx); err != nil {
			logger.Error(fmt.Errorf("error clearing index: %v", err))
			os.Exit(1)
		}
		logger.Info("Index cleared")

	case *listCmd:
		tracks, err := app.List(ctx)
		if err != nil {
			logger.Error(fmt.Errorf("error listing tracks: %v", err))
			os.Exit(1)
		}
		if len(tracks) == 0 {
			logger.Info("No tracks found in the index")
			return
		}
		for _, t := range tracks {
			fmt.Printf("ID: %s | Title: %s | Artist: %s | Duration: %.1fs | Hashes: %d\n",
				t.TrackID, t.Title, t.Artist, t.Duration, t.NumHashes)
		}

	case *statsCmd:
		stats, err := app.Stats(ctx)
		if err != nil {
			logger.Error(fmt.Errorf("error reading stats: %v", err))
			os.Exit(1)
		}
		fmt.Printf("Tracks: %d | Hash entries: %d | Unique hashes: %d | Backend: %s\n",
			stats.Tracks, stats.HashEntries, stats.UniqueHashes, stats.Backend)

	case *microphoneCmd:
		match, err := app.RecognizeFromMicrophone(ctx, 30*time.Second)
		if err != nil {
			logger.Error(fmt.Errorf("error in microphone recognition: %v", err))
			os.Exit(1)
		}
		if match == nil {
			logger.Info("No match found")
			return
		}
		fmt.Printf("%s by %s (confidence %.3f)\n",
			match.Metadata.Title, match.Metadata.Artist, match.Confidence)

	case *recognizeFile != "":
		matches, err := app.Recognize(ctx, *recognizeFile, engine.DefaultTopK)
		if err != nil {
			logger.Error(fmt.Errorf("error recognizing audio file: %v", err))
			os.Exit(1)
		}
		if len(matches) == 0 {
			logger.Info("No matches found")
			return
		}
		for i, match := range matches {
			fmt.Printf("%d. %s by %s (confidence %.3f, offset %d frames)\n",
				i+1, match.Metadata.Title, match.Metadata.Artist, match.Confidence, match.Offset)
		}

	case *audioDir != "":
		bar := progressbar.Default(-1, "indexing")
		ix := indexer.New(app, cfg.Indexing.Workers, func(done, total int, path string, err error) {
			bar.ChangeMax(total)
			_ = bar.Set(done)
		})
		summary, err := ix.IndexDirectory(ctx, *audioDir)
		if err != nil {
			logger.Error(fmt.Errorf("error indexing directory: %v", err))
			os.Exit(1)
		}
		_ = bar.Finish()
		fmt.Printf("Indexed %d of %d files (%d failed)\n", summary.Succeeded, summary.Total, summary.Failed)
		for _, fe := range summary.Errors {
			fmt.Printf("  %s: %s\n", fe.Path, fe.Error)
		}

	case *audioFile != "":
		trackID, err := app.IndexFile(ctx, *audioFile, "", storage.Metadata{})
		if err != nil {
			logger.Error(fmt.Errorf("failed to process audio file: %v", err))
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Indexed %s as %s", *audioFile, trackID))

	default:
		logger.Error(fmt.Errorf("provide -file or -dir to index, -recognize or -microphone to recognize, or -list/-stats to inspect the index"))
		flag.Usage()
		os.Exit(1)
	}
}
