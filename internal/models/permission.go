package models

import "gorm.io/datatypes"

// Permission is a registered capability such as "shop.add_product". The ID is the permission code.
type Permission struct {
	ID          string         `gorm:"primaryKey;size:100" json:"id"`
	Module      string         `gorm:"not null;index" json:"module"`
	Description string         `json:"description"`
	DependsOn   datatypes.JSON `json:"depends_on"`
	Implies     datatypes.JSON `json:"implies"`

	Groups []Group `gorm:"many2many:group_permissions;" json:"-"`
}
