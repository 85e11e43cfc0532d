package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
	"github.com/mysite19/mysite/internal/permissions"
	apperrors "github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/validator"
)

// GroupInput creates a group with the listed permission codes.
type GroupInput struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Permissions []string `json:"permissions"`
}

// GroupService manages permission groups.
type GroupService struct {
	db *gorm.DB
}

// NewGroupService constructs a GroupService.
func NewGroupService(db *gorm.DB) (*GroupService, error) {
	if db == nil {
		return nil, errors.New("group service: db is required")
	}
	return &GroupService{db: db}, nil
}

// List returns every group with its permissions ordered by name.
func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	ctx = ensureContext(ctx)

	var groups []models.Group
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("group service: list groups: %w", err)
	}
	return groups, nil
}

// Create stores a group. Every permission code must be registered.
func (s *GroupService) Create(ctx context.Context, input GroupInput) (*models.Group, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.ErrValidation.WithDetails(err)
	}

	codes := make([]string, 0, len(input.Permissions))
	seen := make(map[string]struct{}, len(input.Permissions))
	for _, code := range input.Permissions {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := permissions.Get(code); !ok {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission %q", code))
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	group := models.Group{Name: input.Name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Permissions", "Users").Create(&group).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrGroupNameTaken
			}
			return fmt.Errorf("group service: create group: %w", err)
		}
		if len(codes) == 0 {
			return nil
		}
		var perms []models.Permission
		if err := tx.Where("id IN ?", codes).Find(&perms).Error; err != nil {
			return fmt.Errorf("group service: load permissions: %w", err)
		}
		if err := tx.Model(&group).Association("Permissions").Append(perms); err != nil {
			return fmt.Errorf("group service: assign permissions: %w", err)
		}
		group.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember puts userID into the group.
func (s *GroupService) AddMember(ctx context.Context, groupID uint, userID string) error {
	ctx = ensureContext(ctx)

	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("group service: load group: %w", err)
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("group service: load user: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&group).Association("Users").Append(&user); err != nil {
		return fmt.Errorf("group service: add member: %w", err)
	}
	return nil
}
