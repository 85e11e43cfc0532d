package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/models"
)

// Checker evaluates a user's group permissions against the registry.
// Superusers (IsRoot) pass every check; inactive users fail every check.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by db.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// Check reports whether userID holds permissionID together with all of its dependencies.
func (c *Checker) Check(ctx context.Context, userID, permissionID string) (bool, error) {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}

	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.IsActive {
		return false, nil
	}
	if user.IsRoot {
		return true, nil
	}

	if _, ok := Get(permissionID); !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	granted, err := collectGroupPermissions(user)
	if err != nil {
		return false, err
	}
	if _, ok := granted[permissionID]; !ok {
		return false, nil
	}

	deps, err := ResolveDependencies(permissionID)
	if err != nil {
		return false, err
	}
	for _, dep := range deps {
		if _, ok := granted[dep]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// GetUserPermissions returns the sorted codes effectively granted to userID.
func (c *Checker) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	user, err := c.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return []string{}, nil
	}
	if user.IsRoot {
		return IDs(), nil
	}

	granted, err := collectGroupPermissions(user)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(granted))
	for id := range granted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Principal describes who a user is for authorisation purposes.
type Principal struct {
	UserID   string
	Username string
	IsRoot   bool
	IsStaff  bool
	IsActive bool
}

// Principal returns the identity flags of userID.
func (c *Checker) Principal(ctx context.Context, userID string) (Principal, error) {
	var user models.User
	err := c.db.WithContext(ctx).
		Select("id", "username", "is_root", "is_staff", "is_active").
		Take(&user, "id = ?", strings.TrimSpace(userID)).Error
	if err != nil {
		return Principal{}, fmt.Errorf("permission checker: load principal: %w", err)
	}
	return Principal{
		UserID:   user.ID,
		Username: user.Username,
		IsRoot:   user.IsRoot,
		IsStaff:  user.IsStaff,
		IsActive: user.IsActive,
	}, nil
}

func (c *Checker) loadUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("permission checker: user id is required")
	}

	var user models.User
	if err := c.db.WithContext(ctx).
		Preload("Groups.Permissions").
		Take(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load user: %w", err)
	}
	return &user, nil
}

func collectGroupPermissions(user *models.User) (map[string]struct{}, error) {
	granted := make(map[string]struct{})

	var visit func(id string) error
	visit = func(id string) error {
		if _, seen := granted[id]; seen {
			return nil
		}
		def, ok := Get(id)
		if !ok {
			// stale rows for permissions no longer registered grant nothing
			return nil
		}
		granted[id] = struct{}{}
		for _, implied := range def.Implies {
			if err := visit(implied); err != nil {
				return err
			}
		}
		return nil
	}

	for _, group := range user.Groups {
		for _, perm := range group.Permissions {
			if err := visit(perm.ID); err != nil {
				return nil, err
			}
		}
	}
	return granted, nil
}
