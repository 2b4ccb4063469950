package services

import (
	"io"
	"sync"
	"time"

	"github.com/nexconsult/processo-api/internal/config"
	"github.com/sirupsen/logrus"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testQuotaConfig() config.QuotaConfig {
	return config.QuotaConfig{
		MinDelay:   3 * time.Second,
		DailyLimit: 100,
		Window:     24 * time.Hour,
		Retention:  48 * time.Hour,
		GCInterval: time.Hour,
	}
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TTL:           15 * time.Minute,
		SweepInterval: 5 * time.Minute,
		KeyPrefix:     "consulta:session:",
	}
}
