package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/services"
	"github.com/sirupsen/logrus"
)

// MetricsHandler handles metrics requests
type MetricsHandler struct {
	services *services.Container
	logger   *logrus.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(services *services.Container, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		services: services,
		logger:   logger,
	}
}

// GetMetrics handles metrics request
// @Summary Get application metrics
// @Description Consultation counters, browser usage and session store state
// @Tags Metrics
// @Produce json
// @Success 200 {object} models.MetricsResponse
// @Router /metrics [get]
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	requestID := c.GetString("request_id")

	h.logger.WithField("request_id", requestID).Debug("Getting application metrics")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	browserStats := h.services.BrowserService.GetStats()

	response := models.MetricsResponse{
		Consultas: h.services.ConsultaService.GetStats(),
		Browser: models.BrowserMetrics{
			InUse:    getIntFromStats(browserStats, "in_use"),
			Capacity: getIntFromStats(browserStats, "max_browsers"),
			Launches: getInt64FromStats(browserStats, "launches"),
			Failures: getInt64FromStats(browserStats, "failures"),
		},
		Sessions: models.SessionMetrics{
			Backend: h.services.Sessions.Backend(),
			Live:    h.services.Sessions.Len(c.Request.Context()),
		},
		System: models.SystemMetrics{
			MemoryUsage: float64(m.Alloc) / 1024 / 1024, // MB
			Goroutines:  runtime.NumGoroutine(),
		},
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// Helper function to safely get int values from stats map
func getIntFromStats(stats map[string]interface{}, key string) int {
	if value, exists := stats[key]; exists {
		if intValue, ok := value.(int); ok {
			return intValue
		}
	}
	return 0
}

func getInt64FromStats(stats map[string]interface{}, key string) int64 {
	if value, exists := stats[key]; exists {
		switch v := value.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		}
	}
	return 0
}
