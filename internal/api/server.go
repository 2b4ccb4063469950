package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/processo-api/internal/api/handlers"
	"github.com/nexconsult/processo-api/internal/api/middleware"
	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/services"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	Router   *gin.Engine
	config   *config.Config
	logger   *logrus.Logger
	services *services.Container
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, services *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: services,
	}

	server.setupRouter()
	return server
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	// Health check endpoints (no rate limiting)
	healthHandler := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	// Metrics endpoint
	s.Router.GET("/metrics", handlers.NewMetricsHandler(s.services, s.logger).GetMetrics)

	// Swagger documentation
	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	rateLimiter := middleware.NewRateLimiter(s.config.Security.RateLimit)

	// API v1 routes
	v1 := s.Router.Group("/api/v1")
	v1.Use(rateLimiter.Middleware())
	{
		consultaHandler := handlers.NewConsultaHandler(s.services.ConsultaService, s.logger)

		consultas := v1.Group("/consultas")
		{
			consultas.POST("", consultaHandler.IniciarConsulta)
			consultas.POST("/:sessionId/captcha", consultaHandler.ResolverCaptcha)
		}

		v1.GET("/quota/:userId", consultaHandler.GetQuota)

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(s.config.Security.AdminToken))
		{
			admin.DELETE("/quota/:userId", consultaHandler.ResetQuota)
			admin.GET("/browser/stats", handlers.NewBrowserHandler(s.services.BrowserService, s.logger).GetStats)
		}
	}

	// 404 handler
	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not Found",
			"message":   "The requested resource was not found",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
		})
	})

	// 405 handler
	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":     "Method Not Allowed",
			"message":   "The requested method is not allowed for this resource",
			"timestamp": time.Now(),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		})
	})
}
