// Package server exposes a restoration runner over HTTP.
package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/code4indo/DE-GAN/internal/logger"
	"github.com/code4indo/DE-GAN/internal/models"
	"github.com/code4indo/DE-GAN/pkg/imageio"
	"github.com/code4indo/DE-GAN/pkg/restoration"
)

// Server restores uploaded images one at a time with a shared runner.
type Server struct {
	runner  *restoration.Runner
	backend string
	log     zerolog.Logger

	// mu serializes jobs; the predictor is loaded once and shared.
	mu sync.Mutex
}

// New creates a server around runner. backend is reported by /healthz.
func New(runner *restoration.Runner, backend string, log zerolog.Logger) *Server {
	return &Server{
		runner:  runner,
		backend: backend,
		log:     logger.Component(log, "server"),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery())

	e.GET("/healthz", s.Health)
	v1 := e.Group("/api").
		Group("/v1")
	v1.POST("/restore", s.Restore)
	return e
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.Info().Str("addr", addr).Str("task", s.runner.Task().String()).Msg("serving")
	return s.Handler().Run(addr)
}

// Health reports the task and backend this server restores with.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "task": s.runner.Task().String(), "backend": s.backend})
}

// Restore runs one job on the multipart "file" upload and answers with the
// restored PNG. A failed job answers 422 with its report.
func (s *Server) Restore(c *gin.Context) {
	requestID := uuid.NewString()
	log := s.log.With().Str("request_id", requestID).Logger()

	file, err := c.FormFile("file")
	if err != nil {
		log.Err(err).Msg("read file from form")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read form file", "message": err.Error()})
		return
	}
	if !imageio.IsImageFile(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type", "message": file.Filename})
		return
	}

	workDir, err := os.MkdirTemp("", "degan_*")
	if err != nil {
		log.Err(err).Msg("create temporary directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create temporary directory", "message": err.Error()})
		return
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input"+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, input); err != nil {
		log.Err(err).Msg("save uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to save form file", "message": err.Error()})
		return
	}
	output := filepath.Join(workDir, "restored.png")

	s.mu.Lock()
	rep := s.runner.RunJob(c.Request.Context(), input, output)
	s.mu.Unlock()

	// Report paths point into the temporary directory.
	rep.InputFile, rep.OutputFile = file.Filename, ""

	if rep.Status != models.StatusSuccess {
		msg := "job failed"
		if rep.ErrorMessage != nil {
			msg = *rep.ErrorMessage
		}
		log.Warn().Err(errors.New(msg)).Str("file", file.Filename).Msg("restore failed")
		c.JSON(http.StatusUnprocessableEntity, rep)
		return
	}

	log.Info().
		Str("file", file.Filename).
		Float64("seconds", rep.ProcessingTimeSeconds).
		Msg("restored upload")
	c.Header("X-Processing-Seconds", strconv.FormatFloat(rep.ProcessingTimeSeconds, 'f', -1, 64))
	c.Header("X-Request-ID", requestID)
	c.File(output)
}
