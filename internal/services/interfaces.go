package services

import (
	"context"
	"io"

	"github.com/nexconsult/processo-api/internal/models"
	"github.com/nexconsult/processo-api/internal/utils"
)

// ConsultaServiceInterface is the two-phase consultation protocol exposed to handlers
type ConsultaServiceInterface interface {
	// IniciarConsulta validates the number, charges the quota and returns a CAPTCHA to solve
	IniciarConsulta(ctx context.Context, rawCaseNumber, userID string) (*models.ConsultaIniciada, error)

	// ConsultarComCaptcha submits the answer for a session and returns the extracted case
	ConsultarComCaptcha(ctx context.Context, sessionID, captchaAnswer, userID string) (*models.ExtractedCase, error)

	// QuotaInfo returns the caller's remaining quota
	QuotaInfo(userID string) models.QuotaInfo

	// ResetQuota clears a user's quota record
	ResetQuota(userID string)

	// GetStats returns consultation counters
	GetStats() models.ConsultaMetrics

	// Health returns service health status
	Health() map[string]interface{}
}

// PortalDriver controls the court portal through a browser.
// Every call runs in its own browser and tears it down before returning.
type PortalDriver interface {
	// StartCaptchaFlow opens the consultation page and captures the CAPTCHA and cookies
	StartCaptchaFlow(ctx context.Context, caseNumber utils.CaseNumber) (*CaptchaChallenge, error)

	// SubmitCaptcha restores cookies, submits the form and returns the raw result page
	SubmitCaptcha(ctx context.Context, cookies []Cookie, caseNumber utils.CaseNumber, answer string) (*ResultPage, error)

	// GetStats returns browser usage statistics
	GetStats() map[string]interface{}

	// Health returns driver health status
	Health() map[string]interface{}

	// Close releases resources
	Close() error
}

// CaseExtractor turns a result page into a case record
type CaseExtractor interface {
	ExtractCaseFromReader(r io.Reader, contentType string) (*models.ExtractedCase, error)
}

// ResultPage is the document the portal answered the form submission with.
// Body is in the encoding named by ContentType.
type ResultPage struct {
	Body        []byte
	ContentType string
}

// CaptchaChallenge is what the first phase captures from the portal
type CaptchaChallenge struct {
	Cookies []Cookie
	Image   []byte
}

// Cookie represents an HTTP cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}
