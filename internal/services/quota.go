package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/models"
	"github.com/sirupsen/logrus"
)

// quotaRecord is owned by QuotaTracker and only touched under its mutex
type quotaRecord struct {
	lastConsultationAt time.Time
	windowStart        time.Time
	countInWindow      int
	touchedAt          time.Time
}

// QuotaTracker enforces the minimum delay and the rolling daily quota per user
type QuotaTracker struct {
	config config.QuotaConfig
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*quotaRecord
}

// NewQuotaTracker creates a tracker. A nil clock means time.Now.
func NewQuotaTracker(cfg config.QuotaConfig, logger *logrus.Logger, now func() time.Time) *QuotaTracker {
	if now == nil {
		now = time.Now
	}
	return &QuotaTracker{
		config:  cfg,
		logger:  logger,
		now:     now,
		records: make(map[string]*quotaRecord),
	}
}

// CheckAndRecord admits or rejects one consultation attempt for userID.
// The whole check runs under one lock so concurrent attempts by the same
// user cannot both pass the delay check.
func (q *QuotaTracker) CheckAndRecord(userID string, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[userID]
	if !ok {
		rec = &quotaRecord{windowStart: now}
		q.records[userID] = rec
	}
	rec.touchedAt = now

	if !rec.lastConsultationAt.IsZero() {
		if elapsed := now.Sub(rec.lastConsultationAt); elapsed < q.config.MinDelay {
			return &TooSoonError{Seconds: ceilSeconds(q.config.MinDelay - elapsed)}
		}
	}

	if now.Sub(rec.windowStart) > q.config.Window {
		rec.windowStart = now
		rec.countInWindow = 0
	}

	if rec.countInWindow >= q.config.DailyLimit {
		return ErrQuotaExceeded
	}

	rec.countInWindow++
	rec.lastConsultationAt = now
	return nil
}

// Info returns remaining quota and the wait before the next allowed attempt
func (q *QuotaTracker) Info(userID string, now time.Time) models.QuotaInfo {
	q.mu.Lock()
	defer q.mu.Unlock()

	info := models.QuotaInfo{
		UserID:     userID,
		Remaining:  q.config.DailyLimit,
		DailyLimit: q.config.DailyLimit,
	}

	rec, ok := q.records[userID]
	if !ok {
		return info
	}

	used := rec.countInWindow
	if now.Sub(rec.windowStart) > q.config.Window {
		used = 0
	}
	info.UsedToday = used
	info.Remaining = q.config.DailyLimit - used
	if info.Remaining < 0 {
		info.Remaining = 0
	}

	if !rec.lastConsultationAt.IsZero() {
		if elapsed := now.Sub(rec.lastConsultationAt); elapsed < q.config.MinDelay {
			info.SecondsUntilNext = ceilSeconds(q.config.MinDelay - elapsed)
		}
	}
	if info.Remaining == 0 {
		if wait := rec.windowStart.Add(q.config.Window).Sub(now); wait > 0 {
			if s := ceilSeconds(wait); s > info.SecondsUntilNext {
				info.SecondsUntilNext = s
			}
		}
	}

	return info
}

// Reset forgets everything about userID
func (q *QuotaTracker) Reset(userID string) {
	q.mu.Lock()
	delete(q.records, userID)
	q.mu.Unlock()

	q.logger.WithField("user_id", userID).Info("Quota reset")
}

// Collect removes records whose window began more than Retention ago and
// that have not been touched since.
func (q *QuotaTracker) Collect(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for userID, rec := range q.records {
		if now.Sub(rec.windowStart) > q.config.Retention && now.Sub(rec.touchedAt) > q.config.Retention {
			delete(q.records, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked users
func (q *QuotaTracker) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// StartCleanupRoutine runs Collect every GCInterval until ctx is done
func (q *QuotaTracker) StartCleanupRoutine(ctx context.Context) {
	interval := q.config.GCInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := q.Collect(q.now()); removed > 0 {
					q.logger.WithField("removed", removed).Debug("Collected stale quota records")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Health returns quota tracker status
func (q *QuotaTracker) Health() map[string]interface{} {
	return map[string]interface{}{
		"status":        "healthy",
		"tracked_users": q.Len(),
		"daily_limit":   q.config.DailyLimit,
		"min_delay":     q.config.MinDelay.String(),
	}
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
