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
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/validator"
)

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Search   string
	UserID   string
	Position string
}

// ProfileInput carries the writable profile fields.
type ProfileInput struct {
	UserID            string `json:"user" validate:"required"`
	Position          string `json:"position" validate:"max=100"`
	AgreementAccepted bool   `json:"agreement_accepted"`
}

// ProfileService manages user profiles on behalf of administrators.
type ProfileService struct {
	db      *gorm.DB
	storage storage.Storage
	log     *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB, store storage.Storage) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db, storage: store, log: logger.WithModule("services.profile")}, nil
}

// List returns one page of profiles with their users.
func (s *ProfileService) List(ctx context.Context, filter ProfileFilter, page Page) ([]models.Profile, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Profile{}).Joins("User")
	if term := strings.TrimSpace(filter.Search); term != "" {
		query = query.Where("profiles.user_id IN (?)",
			s.db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE ?", likePattern(term)))
	}
	if filter.UserID != "" {
		query = query.Where("profiles.user_id = ?", filter.UserID)
	}
	if filter.Position != "" {
		query = query.Where("profiles.position = ?", filter.Position)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("profile service: count profiles: %w", err)
	}

	var profiles []models.Profile
	if err := page.apply(query).Order("profiles.id").Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("profile service: list profiles: %w", err)
	}
	return profiles, total, nil
}

// Get returns one profile with its user.
func (s *ProfileService) Get(ctx context.Context, id uint) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	var profile models.Profile
	if err := s.db.WithContext(ctx).Preload("User").First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile service: get profile: %w", err)
	}
	return &profile, nil
}

// Create attaches a profile to a user that has none.
func (s *ProfileService) Create(ctx context.Context, input ProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	if err := ensureUserExists(s.db.WithContext(ctx), input.UserID); err != nil {
		return nil, err
	}

	profile := models.Profile{
		UserID:            input.UserID,
		Position:          input.Position,
		AgreementAccepted: input.AgreementAccepted,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(&profile).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("the user already has a profile")
		}
		return nil, fmt.Errorf("profile service: create profile: %w", err)
	}
	return s.Get(ctx, profile.ID)
}

// Update changes position and agreement of a profile.
func (s *ProfileService) Update(ctx context.Context, id uint, input ProfileInput) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.UserID == "" {
		input.UserID = profile.UserID
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}
	if input.UserID != profile.UserID {
		return nil, apperrors.NewBadRequest("a profile cannot be moved to another user")
	}

	updates := map[string]any{
		"position":           input.Position,
		"agreement_accepted": input.AgreementAccepted,
	}
	if err := s.db.WithContext(ctx).Model(&models.Profile{ID: id}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("profile service: update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a profile and its stored avatar.
func (s *ProfileService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	profile, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Profile{}, id).Error; err != nil {
		return fmt.Errorf("profile service: delete profile: %w", err)
	}
	if profile.Avatar != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, profile.Avatar); err != nil {
			s.log.Warn("failed to delete avatar", zap.String("key", profile.Avatar), zap.Error(err))
		}
	}
	return nil
}

// SetAvatar replaces the avatar of any profile.
func (s *ProfileService) SetAvatar(ctx context.Context, id uint, upload Upload) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := replaceAvatar(ctx, s.db, s.storage, s.log, profile, upload)
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return updated, nil
}
