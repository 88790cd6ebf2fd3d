package models

import "time"

// Announcement is a published notice. It may carry exactly one Poll.
type Announcement struct {
	// ID is the unique identifier for the announcement.
	ID uint64 `gorm:"primaryKey"`
	// Title is the headline of the announcement.
	Title string `gorm:"size:200;not null"`
	// Body is the HTML body of the announcement.
	Body string `gorm:"type:text"`
	// Barangay optionally scopes the announcement to one geographic unit.
	Barangay string `gorm:"size:100;index"`
	// Pinned announcements are listed before all others.
	Pinned bool `gorm:"index"`
	// AuthorID references the user who created the announcement. Nil once that user is deleted.
	AuthorID *uint64 `gorm:"index"`
	// Author is the creating user, if still present.
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL"`
	// Poll is the attached poll, nil when the announcement is not in poll mode.
	Poll *Poll `gorm:"foreignKey:AnnouncementID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the announcement was created (managed by GORM).
	CreatedAt time.Time `gorm:"index"`
	// UpdatedAt is the timestamp when the announcement was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Announcement model.
func (Announcement) TableName() string {
	return "announcements"
}
