package models

// Profile holds the per-user data collected at registration. Avatar is a storage key.
type Profile struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	UserID            string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User              *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Position          string `gorm:"size:100" json:"position"`
	AgreementAccepted bool   `gorm:"default:false" json:"agreement_accepted"`
	Avatar            string `gorm:"size:255" json:"avatar"`
}
