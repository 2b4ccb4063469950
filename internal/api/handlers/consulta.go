package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/services"
	"github.com/sirupsen/logrus"
)

// ConsultaHandler exposes the two-phase consultation over HTTP
type ConsultaHandler struct {
	consultaService services.ConsultaServiceInterface
	logger          *logrus.Logger
}

// NewConsultaHandler creates a new consultation handler
func NewConsultaHandler(consultaService services.ConsultaServiceInterface, logger *logrus.Logger) *ConsultaHandler {
	return &ConsultaHandler{
		consultaService: consultaService,
		logger:          logger,
	}
}

// IniciarConsulta handles the first phase
// @Summary Start a case consultation
// @Description Validates the CNJ number, charges the user's quota and returns a CAPTCHA image to be solved
// @Tags Consultas
// @Accept json
// @Produce json
// @Param request body models.IniciarConsultaRequest true "Case number and user"
// @Success 201 {object} models.ConsultaIniciada
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /consultas [post]
func (h *ConsultaHandler) IniciarConsulta(c *gin.Context) {
	start := time.Now()
	requestID := c.GetString("request_id")

	var req models.IniciarConsultaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "caseNumber and userId are required")
		return
	}
	c.Set("user_id", req.UserID)

	result, err := h.consultaService.IniciarConsulta(c.Request.Context(), req.CaseNumber, req.UserID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    req.UserID,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Warn("Failed to start consultation")
		writeServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"user_id":     req.UserID,
		"case_number": result.CaseNumber,
		"duration":    time.Since(start),
	}).Info("Consultation started")

	c.JSON(http.StatusCreated, result)
}

// ResolverCaptcha handles the second phase
// @Summary Resolve a consultation with the CAPTCHA answer
// @Description Submits the answer for the session and returns the extracted case. The session is single-use.
// @Tags Consultas
// @Accept json
// @Produce json
// @Param sessionId path string true "Session id returned by the start call"
// @Param request body models.ResolverCaptchaRequest true "CAPTCHA answer and user"
// @Success 200 {object} models.ExtractedCase
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 410 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /consultas/{sessionId}/captcha [post]
func (h *ConsultaHandler) ResolverCaptcha(c *gin.Context) {
	start := time.Now()
	requestID := c.GetString("request_id")
	sessionID := c.Param("sessionId")

	var req models.ResolverCaptchaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}
	c.Set("user_id", req.UserID)

	result, err := h.consultaService.ConsultarComCaptcha(c.Request.Context(), sessionID, req.CaptchaAnswer, req.UserID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"user_id":    req.UserID,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Warn("Failed to resolve consultation")
		writeServiceError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"user_id":     req.UserID,
		"case_number": result.CaseNumber,
		"duration":    time.Since(start),
	}).Info("Consultation resolved")

	c.JSON(http.StatusOK, result)
}

// GetQuota returns a user's quota
// @Summary Get user quota
// @Description Remaining consultations in the rolling window and seconds until the next allowed attempt
// @Tags Quota
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} models.QuotaInfo
// @Router /quota/{userId} [get]
func (h *ConsultaHandler) GetQuota(c *gin.Context) {
	c.JSON(http.StatusOK, h.consultaService.QuotaInfo(c.Param("userId")))
}

// ResetQuota clears a user's quota
// @Summary Reset user quota
// @Description Administrative reset of a user's quota record
// @Tags Admin
// @Param userId path string true "User id"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security AdminToken
// @Router /admin/quota/{userId} [delete]
func (h *ConsultaHandler) ResetQuota(c *gin.Context) {
	userID := c.Param("userId")
	h.consultaService.ResetQuota(userID)

	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"user_id":    userID,
	}).Info("Quota reset by admin")

	c.Status(http.StatusNoContent)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:     "Invalid request",
		Message:   message,
		Code:      "INVALID_REQUEST",
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// writeServiceError maps consultation errors to HTTP responses
func writeServiceError(c *gin.Context, err error) {
	resp := models.ErrorResponse{
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	}
	status := http.StatusInternalServerError

	var tooSoon *services.TooSoonError
	switch {
	case errors.Is(err, services.ErrInvalidFormat):
		status = http.StatusBadRequest
		resp.Error, resp.Code = "Invalid case number", "INVALID_CASE_NUMBER"
		resp.Message = "Case number must contain exactly 20 digits (NNNNNNN-DD.YYYY.J.TT.OOOO)"
	case errors.As(err, &tooSoon):
		status = http.StatusTooManyRequests
		resp.Error, resp.Code = "Too soon", "TOO_SOON"
		resp.Message = "Wait before starting another consultation"
		resp.RetryAfter = tooSoon.Seconds
		c.Header("Retry-After", strconv.Itoa(tooSoon.Seconds))
	case errors.Is(err, services.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
		resp.Error, resp.Code = "Quota exceeded", "QUOTA_EXCEEDED"
		resp.Message = "Daily consultation quota exceeded"
	case errors.Is(err, services.ErrSessionExpired), errors.Is(err, services.ErrSessionNotFound):
		status = http.StatusGone
		resp.Error, resp.Code = "Session expired", "SESSION_EXPIRED"
		resp.Message = "The consultation session is no longer valid. Start a new consultation"
	case errors.Is(err, services.ErrCaptchaRejected):
		status = http.StatusUnprocessableEntity
		resp.Error, resp.Code = "Captcha rejected", "CAPTCHA_REJECTED"
		resp.Message = "The portal rejected the CAPTCHA answer. Start a new consultation to get a fresh CAPTCHA"
	case errors.Is(err, services.ErrCaseNotFound):
		status = http.StatusNotFound
		resp.Error, resp.Code = "Case not found", "CASE_NOT_FOUND"
		resp.Message = "The portal has no case with this number"
	case errors.Is(err, services.ErrBrowserUnavailable):
		status = http.StatusServiceUnavailable
		resp.Error, resp.Code = "Service busy", "BROWSER_UNAVAILABLE"
		resp.Message = "All browser slots are busy. Please try again later"
	case errors.Is(err, services.ErrPortalUnreachable):
		status = http.StatusBadGateway
		resp.Error, resp.Code = "Portal unreachable", "PORTAL_UNREACHABLE"
		resp.Message = "The court portal did not answer in time"
		if strings.Contains(err.Error(), "deadline") {
			resp.Message = "The court portal timed out"
		}
	default:
		resp.Error, resp.Code = "Internal server error", "INTERNAL_ERROR"
		resp.Message = "An unexpected error occurred while processing your request"
	}

	c.JSON(status, resp)
}
