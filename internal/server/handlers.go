package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/transcript"
	"github.com/tubepull/tubepull/internal/core/version"
	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleExtractAudio(c *gin.Context) {
	url, ok := s.bindURL(c)
	if !ok {
		return
	}
	if _, err := extractor.ParseVideoID(url); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.audio.ExtractAudio(c.Request.Context(), url)
	if err != nil {
		s.toolError(c, err)
		return
	}
	defer result.Cleanup()

	if !s.checkSize(c, result.FilePath) {
		return
	}

	c.Header("Content-Type", "audio/mpeg")
	c.FileAttachment(result.FilePath, result.Filename)
}

func (s *Server) handleExtractAlbum(c *gin.Context) {
	url, ok := s.bindURL(c)
	if !ok {
		return
	}
	if extractor.ParsePlaylistID(url) == "" {
		detail(c, http.StatusBadRequest, "URL carries no playlist ID")
		return
	}

	result, err := s.audio.ExtractAlbum(c.Request.Context(), url, nil)
	if err != nil {
		s.toolError(c, err)
		return
	}
	defer result.Cleanup()

	if !s.checkSize(c, result.FilePath) {
		return
	}

	c.Header("Content-Type", "application/zip")
	c.FileAttachment(result.FilePath, result.Filename)
}

func (s *Server) handleExtractTranscript(c *gin.Context) {
	url, ok := s.bindURL(c)
	if !ok {
		return
	}
	if _, err := extractor.ParseVideoID(url); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.transcripts.Extract(c.Request.Context(), url)
	if err != nil {
		if errors.Is(err, transcript.ErrNoSubtitles) {
			detail(c, http.StatusNotFound, "no subtitles available for this video")
			return
		}
		s.toolError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTranscriptHealth(c *gin.Context) {
	v, err := s.versionProbe(c.Request.Context())
	if err != nil {
		detail(c, http.StatusServiceUnavailable, "transcript extraction is unavailable: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"yt_dlp_version": v,
	})
}

// Job handlers

func (s *Server) handleAddJob(c *gin.Context) {
	url, ok := s.bindURL(c)
	if !ok {
		return
	}
	if extractor.ParsePlaylistID(url) == "" {
		detail(c, http.StatusBadRequest, "URL carries no playlist ID")
		return
	}

	job, err := s.jobQueue.AddJob(url)
	if err != nil {
		detail(c, http.StatusServiceUnavailable, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     job.ID,
		"status": job.Status,
	})
}

func (s *Server) handleGetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobQueue.GetAllJobs()})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job := s.jobQueue.GetJob(c.Param("id"))
	if job == nil {
		detail(c, http.StatusNotFound, "job not found")
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleDeleteJob cancels an active job, or removes a finished one.
func (s *Server) handleDeleteJob(c *gin.Context) {
	id := c.Param("id")

	if s.jobQueue.CancelJob(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": JobStatusCancelled})
		return
	}
	if s.jobQueue.RemoveJob(id) {
		c.JSON(http.StatusOK, gin.H{"id": id, "removed": true})
		return
	}
	detail(c, http.StatusNotFound, "job not found")
}

func (s *Server) handleClearJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": s.jobQueue.ClearHistory()})
}

// Helpers

func (s *Server) bindURL(c *gin.Context) (string, bool) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid request body: url is required")
		return "", false
	}
	return req.URL, true
}

// toolError maps extraction failures to status codes: missing binary is 503,
// anything else (including a cancelled request) is 502. The body always
// carries the detail contract.
func (s *Server) toolError(c *gin.Context, err error) {
	if errors.Is(err, ytdlp.ErrNotInstalled) {
		detail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	detail(c, http.StatusBadGateway, err.Error())
}

// checkSize enforces the configured artifact size cap before streaming.
func (s *Server) checkSize(c *gin.Context, path string) bool {
	if s.cfg.MaxFileSize <= 0 {
		return true
	}
	fi, err := os.Stat(path)
	if err != nil {
		detail(c, http.StatusInternalServerError, "extracted file disappeared")
		return false
	}
	if fi.Size() > s.cfg.MaxFileSize {
		detail(c, http.StatusRequestEntityTooLarge, "extracted file exceeds the configured size limit")
		return false
	}
	return true
}
