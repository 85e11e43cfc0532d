package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/pkg/crypto"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/metrics"
)

// DefaultRefreshTokenTTL is used when no refresh token lifetime is configured.
const DefaultRefreshTokenTTL = 30 * 24 * time.Hour

// SessionConfig tunes SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata describes the client a session is issued to.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// TokenPair is returned on login, registration and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var (
	// ErrSessionNotFound is returned when no session matches a token or id.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked is returned when refreshing a revoked session.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired is returned when refreshing an expired session.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned for blank tokens or ids.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

// SessionService issues, rotates and revokes refresh-token sessions.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
	log        *zap.Logger
}

// NewSessionService requires a database and a JWT service.
func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	length := cfg.RefreshLength
	if length <= 0 {
		length = 48
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenLen:   length,
		now:        clock,
		cache:      cfg.Cache,
		log:        logger.WithModule("auth.session"),
	}, nil
}

// CreateSession starts a session for user and returns its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return TokenPair{}, nil, errors.New("session service: user is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		UserAgent:    strings.TrimSpace(meta.UserAgent),
		ExpiresAt:    now.Add(s.refreshTTL),
		LastUsedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}
	metrics.ActiveSessions.Inc()

	pair, err := s.issue(session, user.Username)
	if err != nil {
		return TokenPair{}, nil, err
	}
	s.cacheSet(ctx, session)
	return pair, session, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	session, err := s.lookup(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return TokenPair{}, nil, ErrSessionRevoked
	}
	if !session.ExpiresAt.After(now) {
		return TokenPair{}, nil, ErrSessionExpired
	}

	newRefresh, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}
	expiresAt := now.Add(s.refreshTTL)

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND refresh_token = ? AND revoked_at IS NULL", session.ID, refreshToken).
		Updates(map[string]any{
			"refresh_token": newRefresh,
			"expires_at":    expiresAt,
			"last_used_at":  now,
		})
	if result.Error != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// rotated or revoked concurrently
		s.cacheDelete(ctx, refreshToken)
		return TokenPair{}, nil, ErrSessionNotFound
	}

	session.RefreshToken = newRefresh
	session.ExpiresAt = expiresAt
	session.LastUsedAt = now

	var username string
	s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", session.UserID).Select("username").Scan(&username)

	pair, err := s.issue(session, username)
	if err != nil {
		return TokenPair{}, nil, err
	}

	s.cacheDelete(ctx, refreshToken)
	s.cacheSet(ctx, session)
	return pair, session, nil
}

// RevokeSession revokes one session by id.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var token string
	if s.cache != nil {
		s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", sessionID).Select("refresh_token").Scan(&token)
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	s.cacheDelete(ctx, token)
	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// RevokeUserSessions revokes every active session of a user.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrSessionInvalidToken
	}

	var tokens []string
	if s.cache != nil {
		s.db.WithContext(ctx).Model(&models.Session{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Pluck("refresh_token", &tokens)
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke user sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	}
	for _, token := range tokens {
		s.cacheDelete(ctx, token)
	}
	return nil
}

// CleanupExpired deletes expired and revoked sessions and returns how many were removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()
	db := s.db.WithContext(ctx)

	var activeExpired int64
	if err := db.Model(&models.Session{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&activeExpired).Error; err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	var tokens []string
	if s.cache != nil {
		db.Model(&models.Session{}).
			Where("expires_at < ? OR revoked_at IS NOT NULL", now).
			Pluck("refresh_token", &tokens)
	}

	result := db.Where("expires_at < ? OR revoked_at IS NOT NULL", now).Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}

	for _, token := range tokens {
		s.cacheDelete(ctx, token)
	}
	if activeExpired > 0 {
		metrics.ActiveSessions.Sub(float64(activeExpired))
	}
	return result.RowsAffected, nil
}

func (s *SessionService) issue(session *models.Session, username string) (TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		Username:  username,
		SessionID: session.ID,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate access token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    s.now().Add(s.jwt.TTL()),
	}, nil
}

func (s *SessionService) lookup(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, refreshToken)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil && !errors.Is(err, errSessionCacheMiss) {
			s.log.Warn("session cache read failed", zap.Error(err))
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) cacheSet(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.cache.Set(ctx, session, ttl); err != nil {
		s.log.Warn("session cache write failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *SessionService) cacheDelete(ctx context.Context, refreshToken string) {
	if s.cache == nil || refreshToken == "" {
		return
	}
	if err := s.cache.Delete(ctx, refreshToken); err != nil {
		s.log.Warn("session cache delete failed", zap.Error(err))
	}
}
