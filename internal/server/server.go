// Package server provides the HTTP adapter over the review and export
// services.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/config"
	"github.com/brandguard/brandguard/internal/export"
	"github.com/brandguard/brandguard/internal/review"
	"github.com/brandguard/brandguard/internal/storage"
)

// Server is the HTTP server adapter.
type Server struct {
	config     config.ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(cfg config.ServerConfig, reviews *review.Service, exports *export.Service, media *storage.MediaStore, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	router.Use(corsMiddleware())

	handlers := NewHandlers(reviews, exports, media, logger)

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/projects", handlers.CreateProject)
		api.GET("/projects", handlers.ListProjects)
		api.GET("/projects/:id", handlers.GetProject)
		api.GET("/projects/:id/submissions", handlers.ListSubmissions)

		api.POST("/submissions", handlers.CreateSubmission)
		api.GET("/submissions/:id", handlers.GetSubmission)
		api.POST("/submissions/:id/analyze", handlers.AnalyzeSubmission)
		api.POST("/submissions/:id/approve", handlers.ApproveSubmission)
		api.POST("/submissions/:id/return", handlers.ReturnSubmission)
		api.POST("/submissions/:id/reject", handlers.RejectSubmission)
		api.POST("/submissions/:id/comments", handlers.AddComment)
		api.GET("/submissions/:id/export", handlers.ExportSubmission)
	}

	return s
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
