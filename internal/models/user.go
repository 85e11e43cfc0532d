package models

import "time"

// User is an account. IsRoot is the superuser flag and bypasses permission checks;
// IsStaff marks accounts allowed to manage other users' profiles.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email    string `gorm:"index;size:254" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`

	IsRoot   bool `gorm:"default:false" json:"is_root"`
	IsStaff  bool `gorm:"default:false" json:"is_staff"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	Groups   []Group   `gorm:"many2many:user_groups;" json:"groups,omitempty"`
	Profile  *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt    *time.Time `json:"last_login_at"`
	LastLoginIP    string     `json:"-"`
	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
}
