// Package legislative provides the archive of ordinances and resolutions.
package legislative

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("legislative document not found")
	// ErrInvalidKind is returned for a kind other than ordinance or resolution.
	ErrInvalidKind = errors.New("document kind must be ordinance or resolution")
	// ErrMissingFields is returned when number or title are empty.
	ErrMissingFields = errors.New("document number and title are required")
	// ErrDuplicateNumber is returned when the number is already used for the kind.
	ErrDuplicateNumber = errors.New("document number already exists")
)

// Input holds the editable fields of a document.
type Input struct {
	Kind     models.DocumentKind
	Number   string
	Title    string
	Summary  string
	Year     int
	FileURL  string
	Barangay string
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kind     models.DocumentKind
	Year     int
	Barangay string
	Search   string // number, title or summary contains
}

// ParseKind validates a kind string.
func ParseKind(s string) (models.DocumentKind, error) {
	switch k := models.DocumentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case models.DocumentKindOrdinance, models.DocumentKindResolution:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}

// List returns documents newest year first.
func List(ctx context.Context, db *gorm.DB, f Filter, p paging.Params) (paging.Result[models.LegislativeDocument], error) {
	if db == nil {
		return paging.Result[models.LegislativeDocument]{}, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.LegislativeDocument{})

	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}

	if f.Year > 0 {
		q = q.Where("year = ?", f.Year)
	}

	if f.Barangay != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(strings.TrimSpace(f.Barangay)))
	}

	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(number) LIKE ? OR LOWER(title) LIKE ? OR LOWER(summary) LIKE ?)", like, like, like)
	}

	res, err := paging.Find[models.LegislativeDocument](q.Order("year DESC, number DESC, id DESC"), p)

	return res, pkgerrors.Wrap(err, "list legislative documents")
}

// Years returns the distinct years of all documents, newest first.
func Years(ctx context.Context, db *gorm.DB) ([]int, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var years []int
	err := db.WithContext(ctx).Model(&models.LegislativeDocument{}).
		Where("year > 0").
		Distinct("year").
		Order("year DESC").
		Pluck("year", &years).Error

	return years, pkgerrors.Wrap(err, "list document years")
}

// Get returns one document.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.LegislativeDocument, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var d models.LegislativeDocument

	err := db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get legislative document")
	}

	return &d, nil
}

// Create archives a document. Numbers are unique per kind.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.LegislativeDocument, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	d, err := build(in)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := numberFree(tx, d.Kind, d.Number, 0); err != nil {
			return err
		}

		return pkgerrors.Wrap(tx.Create(d).Error, "insert legislative document")
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Update replaces all fields of a document.
func Update(ctx context.Context, db *gorm.DB, id uint64, in Input) (*models.LegislativeDocument, error) {
	upd, err := build(in)
	if err != nil {
		return nil, err
	}

	d, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}

	upd.ID = d.ID
	upd.CreatedAt = d.CreatedAt

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := numberFree(tx, upd.Kind, upd.Number, id); err != nil {
			return err
		}

		return pkgerrors.Wrap(tx.Save(upd).Error, "update legislative document")
	})
	if err != nil {
		return nil, err
	}

	return upd, nil
}

// Delete removes a document.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Delete(&models.LegislativeDocument{}, id)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete legislative document")
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func numberFree(tx *gorm.DB, kind models.DocumentKind, number string, exceptID uint64) error {
	var n int64

	err := tx.Model(&models.LegislativeDocument{}).
		Where("kind = ? AND number = ? AND id <> ?", kind, number, exceptID).
		Count(&n).Error
	if err != nil {
		return pkgerrors.Wrap(err, "check document number")
	}

	if n > 0 {
		return ErrDuplicateNumber
	}

	return nil
}

func build(in Input) (*models.LegislativeDocument, error) {
	kind, err := ParseKind(string(in.Kind))
	if err != nil {
		return nil, err
	}

	d := &models.LegislativeDocument{
		Kind:     kind,
		Number:   strings.TrimSpace(in.Number),
		Title:    strings.TrimSpace(in.Title),
		Summary:  strings.TrimSpace(in.Summary),
		Year:     in.Year,
		FileURL:  strings.TrimSpace(in.FileURL),
		Barangay: strings.TrimSpace(in.Barangay),
	}

	if d.Number == "" || d.Title == "" {
		return nil, ErrMissingFields
	}

	return d, nil
}
