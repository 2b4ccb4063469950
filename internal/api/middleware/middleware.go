package middleware

import (
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/sirupsen/logrus"
)

// Context keys shared with the handlers
const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// Client-supplied request ids are echoed into logs and headers
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID tags each request with the caller's X-Request-ID when it is a
// plain token, or with a fresh uuid otherwise.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if !validRequestID.MatchString(requestID) {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Recovery turns a panic into the API's 500 error body. The log line names
// the consultation the request belonged to.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := c.GetString(RequestIDKey)

				fields := logrus.Fields{
					"request_id": requestID,
					"method":     c.Request.Method,
					"route":      c.FullPath(),
					"panic":      err,
				}
				if userID := c.GetString(UserIDKey); userID != "" {
					fields["user_id"] = userID
				} else if userID := c.Param("userId"); userID != "" {
					fields["user_id"] = userID
				}
				if sessionID := c.Param("sessionId"); sessionID != "" {
					fields["session_id"] = shortSessionID(sessionID)
				}
				logger.WithFields(fields).Error("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:     "Internal Server Error",
					Message:   "An unexpected error occurred. Reference: " + requestID,
					Code:      "INTERNAL_ERROR",
					Timestamp: time.Now(),
					Path:      c.Request.URL.Path,
				})
			}
		}()
		c.Next()
	}
}

// shortSessionID keeps session tokens out of logs in full
func shortSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// CORS answers preflights and lets browser clients read Retry-After and
// X-Request-ID on consultation responses.
func CORS(corsConfig config.CORSConfig) gin.HandlerFunc {
	methods := strings.Join(corsConfig.AllowedMethods, ", ")
	headers := strings.Join(corsConfig.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(corsConfig.AllowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Expose-Headers", "Retry-After, X-Request-ID")
			if corsConfig.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", "86400") // 24 hours
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Security adds security headers. API responses carry CAPTCHA images and
// session ids and must not be cached.
func Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")

		path := c.Request.URL.Path
		switch {
		case strings.HasPrefix(path, "/swagger/"):
			c.Header("Content-Security-Policy", "default-src 'self' 'unsafe-inline' 'unsafe-eval'; img-src 'self' data:; font-src 'self' data:")
		default:
			c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		if strings.HasPrefix(path, "/api/") {
			c.Header("Cache-Control", "no-store")
			c.Header("Pragma", "no-cache")
		}

		c.Next()
	}
}

// AdminAuth guards privileged endpoints with a shared token sent in
// X-Admin-Token. An empty configured token disables the endpoints.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":     "Forbidden",
				"message":   "Admin endpoints are disabled",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Token")
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "Unauthorized",
				"message":   "Admin token required",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"error":     "Forbidden",
				"message":   "Invalid admin token",
				"timestamp": time.Now(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
