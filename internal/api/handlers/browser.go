package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/processo-api/internal/services"
	"github.com/sirupsen/logrus"
)

// BrowserHandler handles browser driver inspection requests
type BrowserHandler struct {
	browserService services.PortalDriver
	logger         *logrus.Logger
}

// NewBrowserHandler creates a new browser handler
func NewBrowserHandler(browserService services.PortalDriver, logger *logrus.Logger) *BrowserHandler {
	return &BrowserHandler{
		browserService: browserService,
		logger:         logger,
	}
}

// GetStats handles browser statistics request
// @Summary Get browser statistics
// @Description Slots in use, capacity, launches and failures of the portal driver
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security AdminToken
// @Router /admin/browser/stats [get]
func (h *BrowserHandler) GetStats(c *gin.Context) {
	requestID := c.GetString("request_id")

	h.logger.WithField("request_id", requestID).Debug("Getting browser statistics")

	c.JSON(http.StatusOK, map[string]interface{}{
		"stats":     h.browserService.GetStats(),
		"health":    h.browserService.Health(),
		"timestamp": time.Now(),
	})
}
