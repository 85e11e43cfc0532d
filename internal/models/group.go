package models

// Group bundles permissions that are granted to every member.
type Group struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_groups;" json:"-"`
}
