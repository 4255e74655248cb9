package models

import "time"

// Photo is an evidence image attached to an aviso. The stored filename
// is system generated and collision free; the original name is kept for
// display only.
type Photo struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AvisoID      uint      `gorm:"not null;index" json:"aviso_id"`
	Filename     string    `gorm:"not null" json:"filename"`
	OriginalName string    `json:"original_name"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
	UploadedByID *uint     `json:"uploaded_by_id"`
	UploadedBy   *User     `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}

// TableName specifies the table name for the Photo model
func (Photo) TableName() string {
	return "photos"
}
