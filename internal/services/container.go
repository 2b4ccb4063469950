package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nexconsult/processo-api/internal/config"
	applog "github.com/nexconsult/processo-api/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	stop        context.CancelFunc

	Quota            *QuotaTracker
	Sessions         *SessionStore
	ExtractorService *ExtractorService
	BrowserService   PortalDriver
	ConsultaService  ConsultaServiceInterface
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	// Initialize Redis client
	if err := container.initRedis(); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize services
	if err := container.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis initializes Redis client
func (c *Container) initRedis() error {
	log := applog.Component(c.logger, "redis")
	if !c.config.Redis.Enabled {
		log.Info("Redis disabled, sessions stay in memory")
		return nil
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		log.WithField("error", err.Error()).Warn("Redis connection failed, sessions stay in memory")
		c.redisClient.Close()
		c.redisClient = nil
	} else {
		log.Info("Redis connection established")
	}

	return nil
}

// initServices initializes all services
func (c *Container) initServices() error {
	clock := time.Now

	c.Quota = NewQuotaTracker(c.config.Quota, c.logger, clock)
	c.Sessions = NewSessionStore(c.redisClient, c.config.Session, c.logger, clock)
	c.ExtractorService = NewExtractorService(c.logger, clock)
	c.BrowserService = NewBrowserService(c.config.Browser, c.config.Portal, c.logger)
	c.ConsultaService = NewConsultaService(c.Quota, c.Sessions, c.BrowserService, c.ExtractorService, c.logger, clock)

	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.Sessions.StartCleanupRoutine(ctx)
	c.Quota.StartCleanupRoutine(ctx)

	return nil
}

// Close closes all service connections
func (c *Container) Close() error {
	var errors []error

	if c.stop != nil {
		c.stop()
	}

	// Close Browser Service
	if c.BrowserService != nil {
		if err := c.BrowserService.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close browser service: %w", err))
		}
	}

	// Close Redis connection
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Return combined errors if any
	if len(errors) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errors)
	}

	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	// Check Redis health
	if c.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		health["redis"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	if c.BrowserService != nil {
		health["browser"] = c.BrowserService.Health()
	}
	if c.Sessions != nil {
		health["sessions"] = c.Sessions.Health()
	}
	if c.Quota != nil {
		health["quota"] = c.Quota.Health()
	}
	if c.ExtractorService != nil {
		health["extractor"] = c.ExtractorService.Health()
	}
	if c.ConsultaService != nil {
		health["consulta"] = c.ConsultaService.Health()
	}

	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
