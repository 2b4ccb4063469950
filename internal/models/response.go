package models

import (
	"time"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string    `json:"error" example:"Invalid case number"`
	Message    string    `json:"message" example:"Case number must contain exactly 20 digits"`
	Code       string    `json:"code,omitempty" example:"INVALID_CASE_NUMBER"`
	RetryAfter int       `json:"retryAfter,omitempty" example:"3"`
	Timestamp  time.Time `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Path       string    `json:"path" example:"/api/v1/consultas"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	Version   string                 `json:"version" example:"1.0.0"`
	Services  map[string]ServiceInfo `json:"services"`
	Uptime    string                 `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo represents individual service health
type ServiceInfo struct {
	Status    string                 `json:"status" example:"healthy"`
	LastCheck time.Time              `json:"last_check" example:"2024-01-15T10:30:00Z"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MetricsResponse represents metrics response
type MetricsResponse struct {
	Consultas ConsultaMetrics `json:"consultas"`
	Browser   BrowserMetrics  `json:"browser"`
	Sessions  SessionMetrics  `json:"sessions"`
	System    SystemMetrics   `json:"system"`
	Timestamp time.Time       `json:"timestamp" example:"2024-01-15T10:30:00Z"`
}

// ConsultaMetrics counts consultation outcomes since start
type ConsultaMetrics struct {
	Started          int64   `json:"started" example:"120"`
	Resolved         int64   `json:"resolved" example:"95"`
	CaptchaRejected  int64   `json:"captcha_rejected" example:"12"`
	CaseNotFound     int64   `json:"case_not_found" example:"3"`
	PortalErrors     int64   `json:"portal_errors" example:"2"`
	QuotaRejected    int64   `json:"quota_rejected" example:"8"`
	AvgResolveTimeMs int64   `json:"avg_resolve_time_ms" example:"4200"`
	SuccessRate      float64 `json:"success_rate" example:"84.82"`
}

// BrowserMetrics represents browser metrics
type BrowserMetrics struct {
	InUse    int   `json:"in_use" example:"1"`
	Capacity int   `json:"capacity" example:"3"`
	Launches int64 `json:"launches" example:"240"`
	Failures int64 `json:"failures" example:"4"`
}

// SessionMetrics represents the CAPTCHA session store state
type SessionMetrics struct {
	Backend string `json:"backend" example:"redis"`
	Live    int    `json:"live" example:"7"`
}

// SystemMetrics represents system metrics
type SystemMetrics struct {
	MemoryUsage float64 `json:"memory_usage" example:"512.5"`
	Goroutines  int     `json:"goroutines" example:"125"`
}
