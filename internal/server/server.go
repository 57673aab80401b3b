// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inboxpraveen/Audio-Fingerprint/configs"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/audio"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/engine"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/indexer"
	"github.com/inboxpraveen/Audio-Fingerprint/internal/metrics"
	"github.com/inboxpraveen/Audio-Fingerprint/utils/logger"
)

// Server wires the engine and batch indexer into an HTTP router.
type Server struct {
	cfg      *configs.Config
	engine   *engine.Engine
	indexer  *indexer.Indexer
	router   *gin.Engine
	indexing atomic.Bool
}

// New builds the server and its routes.
func New(cfg *configs.Config, e *engine.Engine) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  e,
		indexer: indexer.New(e, cfg.Indexing.Workers, nil),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/search", s.handleSearch)
	r.GET("/songs", s.handleListSongs)
	r.GET("/songs/:id", s.handleGetSong)
	r.POST("/index", s.handleIndex)
	r.GET("/stats", s.handleStats)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = r
	return s
}

// Router returns the HTTP handler, for embedding and tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	logger.Info(fmt.Sprintf("HTTP server listening on %s", addr))
	return s.router.Run(addr)
}

// handleSearch recognizes an uploaded clip against the index.
func (s *Server) handleSearch(c *gin.Context) {
	start := time.Now()

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	if msg, ok := validateUpload(header, s.cfg); !ok {
		errorResponse(c, http.StatusBadRequest, msg)
		return
	}

	tmp, err := os.CreateTemp("", "query-*"+filepath.Ext(header.Filename))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.ReadFrom(file); err != nil {
		tmp.Close()
		errorResponse(c, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	tmp.Close()

	samples, err := audio.ReadMono(tmp.Name(), s.cfg.Audio.SampleRate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("Failed to decode audio: %v", err))
		return
	}
	queryDuration := float64(len(samples)) / float64(s.cfg.Audio.SampleRate)

	matches, err := s.engine.RecognizeSamples(c.Request.Context(), samples, engine.DefaultTopK)
	if err != nil {
		logger.Error(fmt.Errorf("search failed: %v", err))
		errorResponse(c, http.StatusInternalServerError, "Search failed")
		return
	}

	elapsed := time.Since(start)
	metrics.SearchDuration.Observe(elapsed.Seconds())
	if len(matches) > 0 {
		metrics.Searches.WithLabelValues("hit").Inc()
	} else {
		metrics.Searches.WithLabelValues("miss").Inc()
	}

	c.JSON(http.StatusOK, searchResponse(matches, queryDuration, elapsed))
}

func (s *Server) handleListSongs(c *gin.Context) {
	songs, err := s.engine.List(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs, "count": len(songs)})
}

func (s *Server) handleGetSong(c *gin.Context) {
	meta, err := s.engine.Track(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if meta == nil {
		errorResponse(c, http.StatusNotFound, "Song not found")
		return
	}
	c.JSON(http.StatusOK, meta)
}

// handleIndex starts a background batch over a directory. One batch at a
// time; the summary is logged when it finishes.
func (s *Server) handleIndex(c *gin.Context) {
	var req struct {
		DirectoryPath string `json:"directory_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DirectoryPath == "" {
		errorResponse(c, http.StatusBadRequest, "directory_path is required")
		return
	}

	info, err := os.Stat(req.DirectoryPath)
	if err != nil || !info.IsDir() {
		errorResponse(c, http.StatusBadRequest, "Invalid directory path")
		return
	}

	if !s.indexing.CompareAndSwap(false, true) {
		errorResponse(c, http.StatusConflict, "Indexing already in progress")
		return
	}

	go func() {
		defer s.indexing.Store(false)
		summary, err := s.indexer.IndexDirectory(context.Background(), req.DirectoryPath)
		if err != nil {
			logger.Error(fmt.Errorf("background indexing failed: %v", err))
			return
		}
		logger.Info(fmt.Sprintf("Indexing finished: %d ok, %d failed of %d",
			summary.Succeeded, summary.Failed, summary.Total))
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Indexing job started",
		"directory": req.DirectoryPath,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.engine.Stats(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}
