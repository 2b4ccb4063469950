package services

import (
	"errors"
	"fmt"
)

// Consultation errors. Callers classify them with errors.Is / errors.As.
var (
	ErrInvalidFormat      = errors.New("invalid case number format")
	ErrTooSoon            = errors.New("consultation attempted too soon")
	ErrQuotaExceeded      = errors.New("daily consultation quota exceeded")
	ErrPortalUnreachable  = errors.New("court portal unreachable")
	ErrBrowserUnavailable = errors.New("no browser slot available")
	ErrSessionNotFound    = errors.New("consultation session not found")
	ErrSessionExpired     = errors.New("consultation session expired")
	ErrCaptchaRejected    = errors.New("captcha rejected by portal")
	ErrCaseNotFound       = errors.New("case not found on portal")
)

// TooSoonError carries how long the user must wait before the next attempt
type TooSoonError struct {
	Seconds int
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrTooSoon, e.Seconds)
}

// Is lets errors.Is(err, ErrTooSoon) match
func (e *TooSoonError) Is(target error) bool {
	return target == ErrTooSoon
}
