package models

import "time"

// Barangay is the profile of one geographic unit of the federation.
type Barangay struct {
	// ID is the unique identifier for the barangay.
	ID uint64 `gorm:"primaryKey"`
	// Name is the unique display name, compared case-insensitively by the portal.
	Name string `gorm:"size:100;not null;uniqueIndex"`
	// Description is a short HTML profile.
	Description string `gorm:"type:text"`
	// ContactEmail is the public contact address of the barangay council.
	ContactEmail string `gorm:"size:255"`
	// Officials is the barangay's organizational chart.
	Officials []Official `gorm:"foreignKey:BarangayID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the barangay was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the barangay was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Barangay model.
func (Barangay) TableName() string {
	return "barangays"
}

// Official is one seat in an organizational chart.
// Officials without a BarangayID belong to the federation itself.
type Official struct {
	// ID is the unique identifier for the official.
	ID uint64 `gorm:"primaryKey"`
	// BarangayID references the barangay, nil for federation officials.
	BarangayID *uint64 `gorm:"index"`
	// Name is the full name of the office holder.
	Name string `gorm:"size:200;not null"`
	// Position is the title of the seat, e.g. "SK Chairperson".
	Position string `gorm:"size:100;not null"`
	// Rank orders the chart, lower first.
	Rank int `gorm:"column:chart_rank;not null;default:0"`
	// Term is a free text term of office, e.g. "2023-2026".
	Term string `gorm:"size:50"`
	// CreatedAt is the timestamp when the official was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the official was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Official model.
func (Official) TableName() string {
	return "officials"
}
