package models

import "gorm.io/datatypes"

// Import kinds and statuses recorded in ImportJob.
const (
	ImportKindProducts = "products"
	ImportKindOrders   = "orders"

	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// ImportJob records one CSV upload and its outcome.
type ImportJob struct {
	BaseModel

	Kind     string         `gorm:"size:20;not null;index" json:"kind"`
	UserID   string         `gorm:"type:uuid;not null;index" json:"user_id"`
	FileName string         `gorm:"size:255" json:"file_name"`
	Encoding string         `gorm:"size:40" json:"encoding"`
	Status   string         `gorm:"size:20;not null" json:"status"`
	Rows     int            `json:"rows"`
	Created  int            `json:"created"`
	Summary  datatypes.JSON `json:"summary,omitempty"`
	Error    string         `gorm:"type:text" json:"error,omitempty"`
}
