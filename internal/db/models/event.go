package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event is a scheduled federation or barangay activity users can register for.
type Event struct {
	// ID is the unique identifier for the event.
	ID uint64 `gorm:"primaryKey"`
	// Title is the name of the event.
	Title string `gorm:"size:200;not null"`
	// Description is the HTML description of the event.
	Description string `gorm:"type:text"`
	// Location is a free text venue.
	Location string `gorm:"size:255"`
	// Barangay optionally scopes the event to one geographic unit.
	Barangay string `gorm:"size:100;index"`
	// StartsAt is the start of the event.
	StartsAt time.Time `gorm:"index;not null"`
	// EndsAt is the end of the event, nil for open ended events.
	EndsAt *time.Time
	// Capacity limits registrations. Zero means unlimited.
	Capacity int `gorm:"not null;default:0"`
	// Tags are free form labels stored as a JSON array.
	Tags datatypes.JSON
	// CreatedByID references the user who created the event.
	CreatedByID *uint64 `gorm:"index"`
	// Registrations are the sign ups for this event.
	Registrations []EventRegistration `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the event was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the event was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Event model.
func (Event) TableName() string {
	return "events"
}

// EventRegistration is one user's sign up for one event.
type EventRegistration struct {
	// ID is the unique identifier for the registration.
	ID uint64 `gorm:"primaryKey"`
	// EventID references the event.
	EventID uint64 `gorm:"not null;uniqueIndex:idx_event_registrations_event_user"`
	// UserID references the registered user.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_event_registrations_event_user;index"`
	// User is the registered user, if still present.
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the time of registration.
	CreatedAt time.Time
}

// TableName specifies the database table name for the EventRegistration model.
func (EventRegistration) TableName() string {
	return "event_registrations"
}
