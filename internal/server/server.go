// Package server is the HTTP extraction backend the browser extension talks
// to. Success responses stream files or return JSON; every error response is
// `{"detail": "<message>"}`, which the extension shows as a toast.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/transcript"
	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

// ExtractRequest is the request body shared by the extraction endpoints.
type ExtractRequest struct {
	URL string `json:"url" binding:"required"`
}

// AudioService produces MP3s and album ZIPs. The extractor satisfies it.
type AudioService interface {
	ExtractAudio(ctx context.Context, url string) (*extractor.Result, error)
	ExtractAlbum(ctx context.Context, url string, progress extractor.ProgressFunc) (*extractor.AlbumResult, error)
}

// TranscriptService produces transcripts.
type TranscriptService interface {
	Extract(ctx context.Context, url string) (*transcript.Result, error)
}

// Server is the HTTP server for tubepull.
type Server struct {
	cfg         *config.Config
	audio       AudioService
	transcripts TranscriptService
	jobQueue    *JobQueue
	server      *http.Server
	engine      *gin.Engine

	// ytdlp.Version, swappable in tests
	versionProbe func(ctx context.Context) (string, error)
}

// NewServer creates a server around the given services. outputDir receives
// finished job artifacts.
func NewServer(cfg *config.Config, audio AudioService, transcripts TranscriptService, outputDir string) *Server {
	s := &Server{
		cfg:          cfg,
		audio:        audio,
		transcripts:  transcripts,
		versionProbe: ytdlp.Version,
	}
	s.jobQueue = NewJobQueue(cfg.Server.MaxConcurrent, outputDir, audio.ExtractAlbum)
	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.jobQueue.Start()

	s.buildEngine()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:     s.engine,
		ReadTimeout: 30 * time.Second,
		// No write timeout: extractions stream for as long as yt-dlp takes
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting tubepull server on port %d", s.cfg.Server.Port)
	if s.cfg.Server.APIKey != "" {
		log.Printf("API key authentication enabled")
	}

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.jobQueue.Stop()
	return s.server.Shutdown(ctx)
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(s.corsMiddleware())
	if s.cfg.Server.APIKey != "" {
		s.engine.Use(s.authMiddleware())
	}
	s.routes()
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api/v1")
	api.POST("/extract-audio", s.handleExtractAudio)
	api.POST("/extract-album", s.handleExtractAlbum)
	api.POST("/extract-transcript", s.handleExtractTranscript)
	api.GET("/transcript/health", s.handleTranscriptHealth)

	api.POST("/jobs", s.handleAddJob)
	api.GET("/jobs", s.handleGetJobs)
	api.GET("/jobs/:id", s.handleGetJob)
	api.DELETE("/jobs/:id", s.handleDeleteJob)
	api.DELETE("/jobs", s.handleClearJobs)
}

// Middleware

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// corsMiddleware answers preflights from the extension's content scripts,
// which run under youtube.com origins.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		// Health probes stay open
		if path == "/health" || path == "/api/v1/transcript/health" {
			c.Next()
			return
		}

		if c.GetHeader("X-API-Key") != s.cfg.Server.APIKey {
			detail(c, http.StatusUnauthorized, "invalid or missing API key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// detail writes the error contract body. Everything non-2xx goes through
// here.
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}
