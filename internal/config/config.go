package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Portal   PortalConfig   `json:"portal"`
	Quota    QuotaConfig    `json:"quota"`
	Session  SessionConfig  `json:"session"`
	Browser  BrowserConfig  `json:"browser"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `json:"port"`
	Environment  string        `json:"environment"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// PortalConfig describes the public consultation page of the court portal.
type PortalConfig struct {
	BaseURL           string        `json:"base_url"`
	CaseNumberInput   string        `json:"case_number_input"`
	CaptchaInput      string        `json:"captcha_input"`
	CaptchaImage      string        `json:"captcha_image"`
	SubmitButton      string        `json:"submit_button"`
	ResultReady       string        `json:"result_ready"`
	NavigationTimeout time.Duration `json:"navigation_timeout"`
}

// QuotaConfig holds the per-user consultation policy
type QuotaConfig struct {
	MinDelay   time.Duration `json:"min_delay"`
	DailyLimit int           `json:"daily_limit"`
	Window     time.Duration `json:"window"`
	Retention  time.Duration `json:"retention"`
	GCInterval time.Duration `json:"gc_interval"`
}

// SessionConfig holds CAPTCHA session settings
type SessionConfig struct {
	TTL           time.Duration `json:"ttl"`
	SweepInterval time.Duration `json:"sweep_interval"`
	KeyPrefix     string        `json:"key_prefix"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	MaxBrowsers    int           `json:"max_browsers"`
	AcquireTimeout time.Duration `json:"acquire_timeout"`
	LaunchTimeout  time.Duration `json:"launch_timeout"`
	Headless       bool          `json:"headless"`
	NoSandbox      bool          `json:"no_sandbox"`
	ExecPath       string        `json:"exec_path"`
	UserAgent      string        `json:"user_agent"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit  RateLimitConfig `json:"rate_limit"`
	CORS       CORSConfig      `json:"cors"`
	AdminToken string          `json:"-"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Portal: PortalConfig{
			BaseURL:           getEnv("PORTAL_BASE_URL", "https://projudi.tjpr.jus.br/projudi_consulta/processo/consultaPublica.do?actionType=iniciar"),
			CaseNumberInput:   getEnv("PORTAL_CASE_NUMBER_INPUT", "#numeroProcesso"),
			CaptchaInput:      getEnv("PORTAL_CAPTCHA_INPUT", "#answer"),
			CaptchaImage:      getEnv("PORTAL_CAPTCHA_IMAGE", "#captchaImage"),
			SubmitButton:      getEnv("PORTAL_SUBMIT_BUTTON", "#pesquisar"),
			ResultReady:       getEnv("PORTAL_RESULT_READY", "body"),
			NavigationTimeout: getEnvAsDuration("PORTAL_NAVIGATION_TIMEOUT", 30*time.Second),
		},
		Quota: QuotaConfig{
			MinDelay:   getEnvAsDuration("QUOTA_MIN_DELAY", 3*time.Second),
			DailyLimit: getEnvAsInt("QUOTA_DAILY_LIMIT", 100),
			Window:     getEnvAsDuration("QUOTA_WINDOW", 24*time.Hour),
			Retention:  getEnvAsDuration("QUOTA_RETENTION", 48*time.Hour),
			GCInterval: getEnvAsDuration("QUOTA_GC_INTERVAL", time.Hour),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 15*time.Minute),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			KeyPrefix:     getEnv("SESSION_KEY_PREFIX", "consulta:session:"),
		},
		Browser: BrowserConfig{
			MaxBrowsers:    getEnvAsInt("BROWSER_MAX", 3),
			AcquireTimeout: getEnvAsDuration("BROWSER_ACQUIRE_TIMEOUT", 10*time.Second),
			LaunchTimeout:  getEnvAsDuration("BROWSER_LAUNCH_TIMEOUT", 20*time.Second),
			Headless:       getEnvAsBool("BROWSER_HEADLESS", true),
			NoSandbox:      getEnvAsBool("BROWSER_NO_SANDBOX", false),
			ExecPath:       getEnv("BROWSER_EXEC_PATH", ""),
			UserAgent:      getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP", time.Minute),
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "X-Request-ID", "X-Admin-Token"},
				AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			},
			AdminToken: getEnv("ADMIN_TOKEN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the consultation flow unsafe
func (c *Config) Validate() error {
	if c.Quota.MinDelay <= 0 {
		return fmt.Errorf("QUOTA_MIN_DELAY must be positive")
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("QUOTA_DAILY_LIMIT must be positive")
	}
	if c.Quota.Window <= 0 {
		return fmt.Errorf("QUOTA_WINDOW must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Browser.MaxBrowsers < 1 || c.Browser.MaxBrowsers > 10 {
		return fmt.Errorf("BROWSER_MAX must be between 1 and 10, got %d", c.Browser.MaxBrowsers)
	}

	u, err := url.Parse(c.Portal.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid PORTAL_BASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PORTAL_BASE_URL must be an absolute http(s) URL")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15m") or plain seconds ("900")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
