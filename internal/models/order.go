package models

import "time"

// Order links a user to a set of products through the order_products join table.
type Order struct {
	ID              uint      `gorm:"primaryKey" json:"pk"`
	DeliveryAddress string    `gorm:"type:text" json:"delivery_address"`
	PromoCode       string    `gorm:"size:25" json:"promo_code"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UserID          string    `gorm:"type:uuid;not null;index" json:"user"`
	User            *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Products        []Product `gorm:"many2many:order_products;" json:"products"`
}
