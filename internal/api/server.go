// Package api exposes the tracking pipeline over HTTP. The core stays a
// library; this server is just one caller of it.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/lesion-track-server/internal/domain"
	"github.com/lesion-track-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	logger  *logrus.Logger
	cfg     *domain.ServerConfig
	tracker *service.TrackerService
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, cfg *domain.ServerConfig, tracker *service.TrackerService) *Server {
	if logger.GetLevel() >= logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(rateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	s := &Server{
		logger:  logger,
		cfg:     cfg,
		tracker: tracker,
		router:  router,
	}
	s.setupRoutes()
	return s
}

// Router returns the underlying gin engine, used by tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/observations", s.handleIngestObservation)
		v1.GET("/lesions", s.handleListLesions)
		v1.GET("/lesions/:ref", s.handleHistory)
		v1.GET("/lesions/:ref/assessment", s.handleAssessment)
		v1.GET("/lesions/:ref/report", s.handleReport)
	}
}

// observationRequest is the ingestion payload. Date accepts YYYY-MM-DD or
// RFC 3339; calendar-day precision is all the core requires.
type observationRequest struct {
	LesionRef        string   `json:"lesion_ref"`
	Date             string   `json:"date" binding:"required"`
	DiameterMM       *float64 `json:"diameter_mm"`
	VolumeMM3        *float64 `json:"volume_mm3"`
	Modality         string   `json:"modality" binding:"required"`
	Density          string   `json:"density_category"`
	Region           string   `json:"region"`
	Morphology       string   `json:"morphology"`
	SourceConfidence *float64 `json:"source_confidence"`
}

func (r *observationRequest) toObservation() (domain.Observation, error) {
	var obs domain.Observation

	ts, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return obs, domain.NewValidationError("date", "date must be YYYY-MM-DD or RFC 3339", r.Date)
		}
	}

	modality, err := domain.ParseModality(r.Modality)
	if err != nil {
		return obs, domain.NewValidationError("modality", err.Error(), r.Modality)
	}
	density, err := domain.ParseDensityCategory(r.Density)
	if err != nil {
		return obs, domain.NewValidationError("density_category", err.Error(), r.Density)
	}

	// An omitted source_confidence means full confidence; an explicit 0.0 is
	// a legal value and passes through unchanged.
	confidence := 1.0
	if r.SourceConfidence != nil {
		confidence = *r.SourceConfidence
	}

	return domain.Observation{
		LesionRef:        r.LesionRef,
		Timestamp:        ts,
		DiameterMM:       r.DiameterMM,
		VolumeMM3:        r.VolumeMM3,
		Modality:         modality,
		Density:          density,
		Region:           r.Region,
		Morphology:       r.Morphology,
		SourceConfidence: confidence,
	}, nil
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"lesions": len(s.tracker.Refs()),
	})
}

// handleIngestObservation runs one observation through the pipeline
func (s *Server) handleIngestObservation(c *gin.Context) {
	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := req.toObservation()
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.tracker.Ingest(c.Request.Context(), obs)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// handleListLesions returns all tracked lesion references
func (s *Server) handleListLesions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lesions": s.tracker.Refs()})
}

// handleHistory returns the ordered observations for a lesion
func (s *Server) handleHistory(c *gin.Context) {
	history, err := s.tracker.History(c.Param("ref"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lesion_ref":   c.Param("ref"),
		"observations": history,
	})
}

// handleAssessment returns the structured derived state for a lesion
func (s *Server) handleAssessment(c *gin.Context) {
	bundle, err := s.tracker.Assessment(c.Param("ref"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// handleReport returns the rendered comparison report for a lesion
func (s *Server) handleReport(c *gin.Context) {
	report, err := s.tracker.Report(c.Param("ref"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// writeError maps core error kinds to HTTP statuses. All tracking errors are
// recoverable by the caller; none are 5xx.
func (s *Server) writeError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
		return
	}

	var te *domain.TrackingError
	if errors.As(err, &te) {
		status := http.StatusBadRequest
		switch te.Code {
		case domain.ErrNonMonotonicTime, domain.ErrAmbiguousCorrespondence:
			status = http.StatusConflict
		case domain.ErrLesionNotFound:
			status = http.StatusNotFound
		case domain.ErrInvalidInterval, domain.ErrInvalidConfiguration:
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": te.Message, "code": te.Code, "lesion_ref": te.LesionRef})
		return
	}

	s.logger.WithError(err).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// rateLimitMiddleware applies a token-bucket limit across all clients
func rateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		rps = 50
	}
	if burst <= 0 {
		burst = int(rps)
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
