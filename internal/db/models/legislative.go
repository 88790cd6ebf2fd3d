package models

import "time"

// DocumentKind classifies legislative documents.
type DocumentKind string

const (
	// DocumentKindOrdinance is an enacted ordinance.
	DocumentKindOrdinance DocumentKind = "ordinance"
	// DocumentKindResolution is a council resolution.
	DocumentKindResolution DocumentKind = "resolution"
)

// LegislativeDocument is an archived ordinance or resolution.
type LegislativeDocument struct {
	// ID is the unique identifier for the document.
	ID uint64 `gorm:"primaryKey"`
	// Kind is ordinance or resolution.
	Kind DocumentKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_legislative_kind_number"`
	// Number is the official document number, unique per kind (e.g. "2024-017").
	Number string `gorm:"size:50;not null;uniqueIndex:idx_legislative_kind_number"`
	// Title is the document title.
	Title string `gorm:"size:300;not null"`
	// Summary is a short plain text summary.
	Summary string `gorm:"type:text"`
	// Year is the year of approval.
	Year int `gorm:"index"`
	// FileURL links to the stored document.
	FileURL string `gorm:"size:500"`
	// Barangay is set for barangay level documents, empty for federation documents.
	Barangay string `gorm:"size:100;index"`
	// CreatedAt is the timestamp when the document was archived (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the document was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the LegislativeDocument model.
func (LegislativeDocument) TableName() string {
	return "legislative_documents"
}
