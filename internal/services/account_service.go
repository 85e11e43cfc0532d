package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/storage"
	"github.com/mysite19/mysite/pkg/crypto"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/validator"
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username          string `json:"username" validate:"required,max=150"`
	Password          string `json:"password" validate:"required,min=8"`
	Email             string `json:"email" validate:"required,email"`
	FirstName         string `json:"first_name" validate:"max=150"`
	LastName          string `json:"last_name" validate:"max=150"`
	Position          string `json:"position" validate:"required,max=100"`
	AgreementAccepted bool   `json:"agreement_accepted"`
}

// AccountService registers users and manages their own account data.
type AccountService struct {
	db      *gorm.DB
	storage storage.Storage
	log     *zap.Logger
}

// NewAccountService constructs an AccountService. store may be nil when avatars are not served.
func NewAccountService(db *gorm.DB, store storage.Storage) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db, storage: store, log: logger.WithModule("services.account")}, nil
}

// Register creates an active user and its profile in one transaction.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	if !input.AgreementAccepted {
		return nil, ErrAgreementMissing
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := models.User{
		Username:  input.Username,
		Email:     input.Email,
		Password:  hashed,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsActive:  true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile", "Groups", "Sessions").Create(&user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("account service: create user: %w", err)
		}
		profile := models.Profile{
			UserID:            user.ID,
			Position:          input.Position,
			AgreementAccepted: input.AgreementAccepted,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("account service: create profile: %w", err)
		}
		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Me returns the user with profile and groups.
func (s *AccountService) Me(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Preload("Groups").First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("account service: get user: %w", err)
	}
	return &user, nil
}

// UpdateAvatar stores upload as the avatar of userID's profile.
func (s *AccountService) UpdateAvatar(ctx context.Context, userID string, upload Upload) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("account service: load profile: %w", err)
	}
	return replaceAvatar(ctx, s.db, s.storage, s.log, &profile, upload)
}

// Usernames returns every username in alphabetical order.
func (s *AccountService) Usernames(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	var names []string
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("username").Pluck("username", &names).Error; err != nil {
		return nil, fmt.Errorf("account service: list usernames: %w", err)
	}
	return names, nil
}

// FindByUsername returns the active user named username.
func (s *AccountService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("account service: find user: %w", err)
	}
	return &user, nil
}

func replaceAvatar(ctx context.Context, db *gorm.DB, store storage.Storage, log *zap.Logger, profile *models.Profile, upload Upload) (*models.Profile, error) {
	if store == nil {
		return nil, errors.New("avatar storage is not configured")
	}

	key := storage.AvatarKey(profile.UserID, upload.Filename)
	if err := store.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	previous := profile.Avatar
	if err := db.WithContext(ctx).Model(profile).Update("avatar", key).Error; err != nil {
		_ = store.Delete(ctx, key)
		return nil, fmt.Errorf("save avatar: %w", err)
	}
	if previous != "" {
		if err := store.Delete(ctx, previous); err != nil {
			log.Warn("failed to delete previous avatar", zap.String("key", previous), zap.Error(err))
		}
	}
	profile.Avatar = key
	return profile, nil
}
