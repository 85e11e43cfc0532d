package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry. Products are archived rather than deleted.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"pk"`
	Name        string          `gorm:"size:100;not null;index" json:"name"`
	Description string          `gorm:"size:300" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(9,2);not null;default:0" json:"price"`
	Discount    uint8           `gorm:"not null;default:0" json:"discount"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedByID *string         `gorm:"type:uuid;index" json:"created_by"`
	CreatedBy   *User           `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`
	Archived    bool            `gorm:"default:false;index" json:"archived"`
	Preview     string          `gorm:"size:255" json:"preview"`
	Images      []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// CreatedByUsername returns the creator's username when preloaded, falling back to the raw id.
func (p Product) CreatedByUsername() string {
	if p.CreatedBy != nil {
		return p.CreatedBy.Username
	}
	if p.CreatedByID != nil {
		return *p.CreatedByID
	}
	return ""
}

// ProductImage is an additional picture attached to a product. Image is a storage key.
type ProductImage struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ProductID   uint   `gorm:"not null;index" json:"product_id"`
	Image       string `gorm:"size:255;not null" json:"image"`
	Description string `gorm:"size:200" json:"description"`
}
