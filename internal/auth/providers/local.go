// Package providers authenticates users against credentials stored in the database.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked is returned while a lockout is in effect.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled is returned for inactive users.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// LocalConfig tunes lockout behaviour.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// AuthenticateInput is a login attempt. Identifier is a username or an email address.
type AuthenticateInput struct {
	Identifier string
	Password   string
	IPAddress  string
}

// LocalProvider checks username/password pairs and locks accounts after repeated failures.
type LocalProvider struct {
	db        *gorm.DB
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewLocalProvider applies defaults of 5 attempts and a 15 minute lockout.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}
	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}
	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{db: db, clock: clock, threshold: threshold, duration: duration}, nil
}

// Authenticate returns the user for valid credentials and records the login.
func (p *LocalProvider) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	db := p.db.WithContext(ctx)

	var user models.User
	err := db.Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	now := p.clock()
	if user.LockedUntil != nil {
		if user.LockedUntil.After(now) {
			return nil, ErrAccountLocked
		}
		user.LockedUntil = nil
		user.FailedAttempts = 0
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		return nil, p.recordFailure(db, &user, now)
	}

	user.FailedAttempts = 0
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := db.Model(&user).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   user.LastLoginIP,
	}).Error; err != nil {
		return nil, fmt.Errorf("local provider: update user: %w", err)
	}
	return &user, nil
}

func (p *LocalProvider) recordFailure(db *gorm.DB, user *models.User, now time.Time) error {
	user.FailedAttempts++
	updates := map[string]any{
		"failed_attempts": user.FailedAttempts,
		"locked_until":    nil,
	}

	locked := user.FailedAttempts >= p.threshold
	if locked {
		until := now.Add(p.duration)
		user.LockedUntil = &until
		updates["locked_until"] = until
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}
	if locked {
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}
