package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/sirupsen/logrus"
)

const captchaDataURIPrefix = "data:image/png;base64,"

// ConsultaService runs the two-phase consultation: IniciarConsulta returns a
// CAPTCHA, ConsultarComCaptcha submits the human's answer. It never retries.
type ConsultaService struct {
	quota     *QuotaTracker
	sessions  *SessionStore
	driver    PortalDriver
	extractor CaseExtractor
	logger    *logrus.Logger
	now       func() time.Time

	started         atomic.Int64
	resolved        atomic.Int64
	captchaRejected atomic.Int64
	caseNotFound    atomic.Int64
	portalErrors    atomic.Int64
	quotaRejected   atomic.Int64
	resolveNanos    atomic.Int64
}

// NewConsultaService creates a new consultation service
func NewConsultaService(quota *QuotaTracker, sessions *SessionStore, driver PortalDriver, extractor CaseExtractor, logger *logrus.Logger, now func() time.Time) *ConsultaService {
	if now == nil {
		now = time.Now
	}
	return &ConsultaService{
		quota:     quota,
		sessions:  sessions,
		driver:    driver,
		extractor: extractor,
		logger:    logger,
		now:       now,
	}
}

// IniciarConsulta validates the case number, charges the user's quota and
// opens a portal session whose CAPTCHA must be solved out of band.
func (s *ConsultaService) IniciarConsulta(ctx context.Context, rawCaseNumber, userID string) (*models.ConsultaIniciada, error) {
	caseNumber, err := utils.NormalizeCaseNumber(rawCaseNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"case_number": caseNumber.String(),
	})

	if err := s.quota.CheckAndRecord(userID, s.now()); err != nil {
		s.quotaRejected.Add(1)
		log.WithField("error", err.Error()).Info("Consultation rejected by quota")
		return nil, err
	}

	challenge, err := s.driver.StartCaptchaFlow(ctx, caseNumber)
	if err != nil {
		s.portalErrors.Add(1)
		log.WithField("error", err.Error()).Error("Failed to start captcha flow")
		return nil, err
	}

	session, err := s.sessions.Create(ctx, caseNumber, userID, challenge.Cookies)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.started.Add(1)

	log.WithField("session_id", shortID(session.ID)).Info("Consultation started")

	return &models.ConsultaIniciada{
		SessionID:        session.ID,
		CaptchaImage:     captchaDataURIPrefix + base64.StdEncoding.EncodeToString(challenge.Image),
		CaseNumber:       caseNumber.String(),
		CheckDigitsValid: utils.CheckDigitsValid(caseNumber),
		ExpiresAt:        session.ExpiresAt(s.sessions.TTL()),
	}, nil
}

// ConsultarComCaptcha resolves a session with the CAPTCHA answer. The session
// is consumed whatever the outcome.
func (s *ConsultaService) ConsultarComCaptcha(ctx context.Context, sessionID, captchaAnswer, userID string) (*models.ExtractedCase, error) {
	start := s.now()
	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": shortID(sessionID),
	})

	current, err := s.sessions.Get(ctx, sessionID, start)
	if err != nil {
		return nil, sessionError(err)
	}
	if current.UserID != userID {
		log.Warn("Session resolve attempted by a different user")
		return nil, ErrSessionExpired
	}

	session, err := s.sessions.Take(ctx, sessionID, start)
	if err != nil {
		return nil, sessionError(err)
	}
	defer s.sessions.Consume(context.WithoutCancel(ctx), sessionID)

	log = log.WithField("case_number", session.CaseNumber.String())

	answer := strings.TrimSpace(captchaAnswer)
	if answer == "" {
		s.captchaRejected.Add(1)
		return nil, ErrCaptchaRejected
	}

	page, err := s.driver.SubmitCaptcha(ctx, session.Cookies, session.CaseNumber, answer)
	if err != nil {
		s.portalErrors.Add(1)
		log.WithField("error", err.Error()).Error("Failed to submit captcha")
		return nil, err
	}

	result, err := s.extractor.ExtractCaseFromReader(bytes.NewReader(page.Body), page.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, ErrCaptchaRejected):
			s.captchaRejected.Add(1)
			log.Info("Captcha rejected by portal")
		case errors.Is(err, ErrCaseNotFound):
			s.caseNotFound.Add(1)
			log.Info("Case not found on portal")
		default:
			log.WithField("error", err.Error()).Error("Failed to extract case")
		}
		return nil, err
	}

	result.CaseNumber = session.CaseNumber.String()
	NormalizeCase(result)

	duration := s.now().Sub(start)
	s.resolved.Add(1)
	s.resolveNanos.Add(int64(duration))

	log.WithFields(logrus.Fields{
		"status":   result.Status,
		"parties":  len(result.Parties),
		"duration": duration,
	}).Info("Consultation resolved")

	return result, nil
}

// QuotaInfo returns the caller's remaining quota
func (s *ConsultaService) QuotaInfo(userID string) models.QuotaInfo {
	return s.quota.Info(userID, s.now())
}

// ResetQuota clears a user's quota record
func (s *ConsultaService) ResetQuota(userID string) {
	s.quota.Reset(userID)
}

// GetStats returns consultation counters
func (s *ConsultaService) GetStats() models.ConsultaMetrics {
	metrics := models.ConsultaMetrics{
		Started:         s.started.Load(),
		Resolved:        s.resolved.Load(),
		CaptchaRejected: s.captchaRejected.Load(),
		CaseNotFound:    s.caseNotFound.Load(),
		PortalErrors:    s.portalErrors.Load(),
		QuotaRejected:   s.quotaRejected.Load(),
	}

	if metrics.Resolved > 0 {
		metrics.AvgResolveTimeMs = time.Duration(s.resolveNanos.Load() / metrics.Resolved).Milliseconds()
	}
	if attempts := metrics.Resolved + metrics.CaptchaRejected + metrics.CaseNotFound + metrics.PortalErrors; attempts > 0 {
		metrics.SuccessRate = float64(metrics.Resolved) / float64(attempts) * 100
	}

	return metrics
}

// Health returns service health status
func (s *ConsultaService) Health() map[string]interface{} {
	return map[string]interface{}{
		"status": "healthy",
		"stats":  s.GetStats(),
	}
}

// sessionError folds lookup failures into ErrSessionExpired for callers
func sessionError(err error) error {
	if errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return err
}
