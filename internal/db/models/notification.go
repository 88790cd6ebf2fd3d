package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is one message in a user's inbox.
type Notification struct {
	// ID is the unique identifier for the notification.
	ID uint64 `gorm:"primaryKey"`
	// UserID references the recipient.
	UserID uint64 `gorm:"not null;index"`
	// Kind is a short machine readable category, e.g. "announcement" or "event".
	Kind string `gorm:"size:50;not null;default:'general'"`
	// Title is the headline shown in the inbox.
	Title string `gorm:"size:200;not null"`
	// Message is the plain text body.
	Message string `gorm:"type:text"`
	// Link is an optional in-portal target.
	Link string `gorm:"size:500"`
	// Data carries arbitrary structured context for the link target.
	Data datatypes.JSONMap
	// ReadAt is set once the recipient opened the notification.
	ReadAt *time.Time `gorm:"index"`
	// CreatedAt is the timestamp when the notification was created (managed by GORM).
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}
