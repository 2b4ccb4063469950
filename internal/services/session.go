package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexconsult/processo-api/internal/config"
	"github.com/nexconsult/processo-api/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const sessionTokenBytes = 32

// ConsultationSession bridges the two phases of a consultation
type ConsultationSession struct {
	ID         string           `json:"-"`
	Cookies    []Cookie         `json:"cookies"`
	CaseNumber utils.CaseNumber `json:"caseNumber"`
	UserID     string           `json:"userId"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// ExpiresAt is the instant after which the session is no longer valid
func (s *ConsultationSession) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

// SessionStore keeps CAPTCHA sessions in Redis, or in memory when Redis is
// not available. Entries are single-use.
type SessionStore struct {
	client *redis.Client
	config config.SessionConfig
	logger *logrus.Logger
	now    func() time.Time

	// In-memory fallback when Redis is not available
	memSessions map[string]*ConsultationSession
	memMutex    sync.Mutex
}

// NewSessionStore creates a session store. client may be nil.
func NewSessionStore(client *redis.Client, cfg config.SessionConfig, logger *logrus.Logger, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		client:      client,
		config:      cfg,
		logger:      logger,
		now:         now,
		memSessions: make(map[string]*ConsultationSession),
	}
}

// Create stores a new session and returns its opaque id
func (s *SessionStore) Create(ctx context.Context, caseNumber utils.CaseNumber, userID string, cookies []Cookie) (*ConsultationSession, error) {
	id, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	session := &ConsultationSession{
		ID:         id,
		Cookies:    cookies,
		CaseNumber: caseNumber,
		UserID:     userID,
		CreatedAt:  s.now(),
	}

	if s.client != nil {
		payload, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}
		err = s.client.Set(ctx, s.key(id), payload, s.config.TTL).Err()
		if err == nil {
			s.logger.WithField("session_id", shortID(id)).Debug("Session created (Redis)")
			return session, nil
		}
		s.logger.WithFields(logrus.Fields{
			"session_id": shortID(id),
			"error":      err.Error(),
		}).Warn("Redis set error, falling back to memory sessions")
	}

	s.memMutex.Lock()
	s.memSessions[id] = session
	s.memMutex.Unlock()

	s.logger.WithField("session_id", shortID(id)).Debug("Session created (memory)")
	return session, nil
}

// Get returns the session without consuming it. An expired session is
// deleted and reported as ErrSessionExpired.
func (s *SessionStore) Get(ctx context.Context, id string, now time.Time) (*ConsultationSession, error) {
	if s.client != nil {
		payload, err := s.client.Get(ctx, s.key(id)).Bytes()
		switch {
		case err == nil:
			session, err := s.decode(id, payload)
			if err != nil {
				return nil, err
			}
			if s.expired(session, now) {
				s.client.Del(ctx, s.key(id))
				return nil, ErrSessionExpired
			}
			return session, nil
		case !errors.Is(err, redis.Nil):
			s.logger.WithFields(logrus.Fields{
				"session_id": shortID(id),
				"error":      err.Error(),
			}).Warn("Redis get error, checking memory sessions")
		}
	}

	s.memMutex.Lock()
	defer s.memMutex.Unlock()

	session, ok := s.memSessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(session, now) {
		delete(s.memSessions, id)
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Take returns the session and deletes it in the same step, so at most one
// caller ever holds a given session.
func (s *SessionStore) Take(ctx context.Context, id string, now time.Time) (*ConsultationSession, error) {
	if s.client != nil {
		payload, err := s.client.GetDel(ctx, s.key(id)).Bytes()
		switch {
		case err == nil:
			session, err := s.decode(id, payload)
			if err != nil {
				return nil, err
			}
			if s.expired(session, now) {
				return nil, ErrSessionExpired
			}
			return session, nil
		case !errors.Is(err, redis.Nil):
			s.logger.WithFields(logrus.Fields{
				"session_id": shortID(id),
				"error":      err.Error(),
			}).Warn("Redis getdel error, checking memory sessions")
		}
	}

	s.memMutex.Lock()
	defer s.memMutex.Unlock()

	session, ok := s.memSessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(s.memSessions, id)
	if s.expired(session, now) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Consume deletes the session. Deleting a missing id is not an error.
func (s *SessionStore) Consume(ctx context.Context, id string) error {
	if s.client != nil {
		if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
			s.logger.WithFields(logrus.Fields{
				"session_id": shortID(id),
				"error":      err.Error(),
			}).Warn("Redis delete error")
		}
	}

	s.memMutex.Lock()
	delete(s.memSessions, id)
	s.memMutex.Unlock()

	return nil
}

// Sweep removes every in-memory session older than the TTL. Redis entries
// expire on their own.
func (s *SessionStore) Sweep(now time.Time) int {
	s.memMutex.Lock()
	defer s.memMutex.Unlock()

	removed := 0
	for id, session := range s.memSessions {
		if s.expired(session, now) {
			delete(s.memSessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine sweeps expired sessions every SweepInterval until ctx is done
func (s *SessionStore) StartCleanupRoutine(ctx context.Context) {
	interval := s.config.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := s.Sweep(s.now()); removed > 0 {
					s.logger.WithField("removed", removed).Debug("Swept expired sessions")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Backend names the storage currently in use
func (s *SessionStore) Backend() string {
	if s.client != nil {
		return "redis"
	}
	return "memory"
}

// Len counts live sessions across both backends
func (s *SessionStore) Len(ctx context.Context) int {
	s.memMutex.Lock()
	count := len(s.memSessions)
	s.memMutex.Unlock()

	if s.client == nil {
		return count
	}

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.config.KeyPrefix+"*", 100).Result()
		if err != nil {
			s.logger.WithField("error", err.Error()).Warn("Redis scan error")
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

// TTL returns the configured session lifetime
func (s *SessionStore) TTL() time.Duration {
	return s.config.TTL
}

// Health returns session store status
func (s *SessionStore) Health() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":  "healthy",
		"backend": s.Backend(),
		"ttl":     s.config.TTL.String(),
	}
	if s.client != nil {
		if err := s.client.Ping(ctx).Err(); err != nil {
			health["status"] = "degraded"
			health["error"] = err.Error()
		}
	}
	health["live"] = s.Len(ctx)
	return health
}

func (s *SessionStore) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *SessionStore) expired(session *ConsultationSession, now time.Time) bool {
	return now.Sub(session.CreatedAt) > s.config.TTL
}

func (s *SessionStore) decode(id string, payload []byte) (*ConsultationSession, error) {
	var session ConsultationSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	session.ID = id
	return &session, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// shortID keeps session ids out of logs in full
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
