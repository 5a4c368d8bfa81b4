package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/isharaux/ussd-gateway/internal/events"
	"github.com/isharaux/ussd-gateway/internal/lifecycle"
	"github.com/isharaux/ussd-gateway/internal/metrics"
	"github.com/isharaux/ussd-gateway/pkg/codes"
	"github.com/isharaux/ussd-gateway/pkg/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the USSD service over HTTP: REST operations for every
// caller-facing call, an SSE stream bridging the event bus, and a
// Prometheus metrics endpoint.
type Server struct {
	logger    *zap.Logger
	host      string
	port      int
	router    *gin.Engine
	svc       *lifecycle.Service
	bus       *events.Bus
	collector *metrics.Collector
	codes     *codes.Library
	// shutdownCh is used to signal shutdown to all SSE connections
	shutdownCh chan struct{}
}

// NewServer creates a new HTTP server around the USSD service.
func NewServer(logger *zap.Logger, host string, port int, svc *lifecycle.Service, bus *events.Bus, collector *metrics.Collector, library *codes.Library) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		logger:     logger,
		host:       host,
		port:       port,
		router:     gin.New(),
		svc:        svc,
		bus:        bus,
		collector:  collector,
		codes:      library,
		shutdownCh: make(chan struct{}),
	}

	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.recoveryMiddleware())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.Get(),
		})
	})

	api := s.router.Group("/api")
	{
		api.POST("/dial", s.handleDial)
		api.POST("/reply", s.handleReply)
		api.DELETE("/session", s.handleCancelSession)
		api.GET("/sessions", s.handleSessions)
		api.GET("/sims", s.handleSims)
		api.GET("/carrier", s.handleCarrier)
		api.GET("/network", s.handleNetwork)
		api.GET("/capabilities", s.handleCapabilities)
		api.GET("/history", s.handleHistory)
		api.DELETE("/history", s.handleClearHistory)
		api.GET("/stats", s.handleStats)
		api.GET("/pending", s.handlePending)
		api.POST("/validate", s.handleValidate)
		api.POST("/parse", s.handleParse)

		codesGroup := api.Group("/codes")
		{
			codesGroup.GET("/countries", s.handleCountries)
			codesGroup.GET("/carriers", s.handleCarriers)
			codesGroup.GET("/search", s.handleSearchCarrier)
			codesGroup.GET("/lookup", s.handleCodeLookup)
			codesGroup.POST("/custom", s.handleAddCustomCode)
			codesGroup.DELETE("/custom", s.handleClearCustomCodes)
		}
	}

	s.router.GET("/events", s.handleEvents)
	if s.collector != nil {
		s.router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}
}

// loggerMiddleware logs incoming requests and outgoing responses
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.logger.Debug("incoming request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("remote_addr", c.Request.RemoteAddr),
		)

		c.Next()

		s.logger.Debug("outgoing response",
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
		)
	}
}

// recoveryMiddleware recovers from panics and returns 500 error
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// Router returns the underlying gin engine, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start runs the HTTP server in a background goroutine.
func (s *Server) Start() {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.host, s.port)
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.router.Run(addr); err != nil {
			s.logger.Error("failed to start server", zap.Error(err))
		}
	}()
}

// Shutdown signals all SSE connections to close.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("shutting down server")
	close(s.shutdownCh)
	return nil
}
