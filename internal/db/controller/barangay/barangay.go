// Package barangay provides the persistence operations of barangay profiles
// and the officials of barangays and of the federation.
package barangay

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when a barangay does not exist.
	ErrNotFound = errors.New("barangay not found")
	// ErrNameEmpty is returned when a barangay has no name.
	ErrNameEmpty = errors.New("barangay name can not be empty")
	// ErrNameTaken is returned when another barangay already has the name.
	ErrNameTaken = errors.New("barangay name already exists")
	// ErrOfficialNotFound is returned when an official does not exist.
	ErrOfficialNotFound = errors.New("official not found")
	// ErrOfficialInvalid is returned when an official has no name or position.
	ErrOfficialInvalid = errors.New("official name and position are required")
)

// Input holds the editable fields of a barangay.
type Input struct {
	Name         string
	Description  string
	ContactEmail string
}

// OfficialInput holds the editable fields of an official.
type OfficialInput struct {
	Name     string
	Position string
	Rank     int
	Term     string
}

// List returns all barangays ordered by name.
func List(ctx context.Context, db *gorm.DB) ([]models.Barangay, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var out []models.Barangay
	err := db.WithContext(ctx).Order("name").Find(&out).Error

	return out, pkgerrors.Wrap(err, "list barangays")
}

// Names returns the names of all barangays ordered by name.
func Names(ctx context.Context, db *gorm.DB) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var out []string
	err := db.WithContext(ctx).Model(&models.Barangay{}).Order("name").Pluck("name", &out).Error

	return out, pkgerrors.Wrap(err, "list barangay names")
}

// Get returns a barangay with its officials ordered by rank.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.Barangay, error) {
	return first(ctx, db, "id = ?", id)
}

// GetByName returns a barangay by name, compared case-insensitively.
func GetByName(ctx context.Context, db *gorm.DB, name string) (*models.Barangay, error) {
	return first(ctx, db, "LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
}

func first(ctx context.Context, db *gorm.DB, query string, arg any) (*models.Barangay, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var b models.Barangay

	err := db.WithContext(ctx).
		Preload("Officials", func(tx *gorm.DB) *gorm.DB { return tx.Order("chart_rank, id") }).
		Where(query, arg).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get barangay")
	}

	return &b, nil
}

// Create inserts a barangay. Names are unique ignoring case.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.Barangay, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	b := &models.Barangay{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		ContactEmail: strings.TrimSpace(in.ContactEmail),
	}
	if b.Name == "" {
		return nil, ErrNameEmpty
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameFree(tx, b.Name, 0); err != nil {
			return err
		}

		return pkgerrors.Wrap(tx.Create(b).Error, "insert barangay")
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Update replaces the profile of a barangay. Renaming is allowed if the new
// name is free.
func Update(ctx context.Context, db *gorm.DB, id uint64, in Input) (*models.Barangay, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameEmpty
	}

	b, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := nameFree(tx, name, id); err != nil {
			return err
		}

		return pkgerrors.Wrap(tx.Model(&models.Barangay{ID: id}).
			Select("name", "description", "contact_email").
			Updates(&models.Barangay{Name: name, Description: in.Description, ContactEmail: strings.TrimSpace(in.ContactEmail)}).Error,
			"update barangay")
	})
	if err != nil {
		return nil, err
	}

	b.Name = name
	b.Description = in.Description
	b.ContactEmail = strings.TrimSpace(in.ContactEmail)

	return b, nil
}

// Delete removes a barangay and its officials.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("barangay_id = ?", id).Delete(&models.Official{}).Error; err != nil {
			return pkgerrors.Wrap(err, "delete officials")
		}

		res := tx.Delete(&models.Barangay{}, id)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "delete barangay")
		}

		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// FederationOfficials returns the officials of the federation ordered by rank.
func FederationOfficials(ctx context.Context, db *gorm.DB) ([]models.Official, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var out []models.Official
	err := db.WithContext(ctx).Where("barangay_id IS NULL").Order("chart_rank, id").Find(&out).Error

	return out, pkgerrors.Wrap(err, "list federation officials")
}

// GetOfficial returns one official.
func GetOfficial(ctx context.Context, db *gorm.DB, id uint64) (*models.Official, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var o models.Official

	err := db.WithContext(ctx).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfficialNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get official")
	}

	return &o, nil
}

// AddOfficial adds an official to a barangay, or to the federation when
// barangayID is nil.
func AddOfficial(ctx context.Context, db *gorm.DB, barangayID *uint64, in OfficialInput) (*models.Official, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	o, err := buildOfficial(in)
	if err != nil {
		return nil, err
	}

	o.BarangayID = barangayID

	if barangayID != nil {
		if _, err := Get(ctx, db, *barangayID); err != nil {
			return nil, err
		}
	}

	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "insert official")
	}

	return o, nil
}

// UpdateOfficial replaces the fields of an official. Its chart never changes.
func UpdateOfficial(ctx context.Context, db *gorm.DB, id uint64, in OfficialInput) (*models.Official, error) {
	upd, err := buildOfficial(in)
	if err != nil {
		return nil, err
	}

	o, err := GetOfficial(ctx, db, id)
	if err != nil {
		return nil, err
	}

	o.Name, o.Position, o.Rank, o.Term = upd.Name, upd.Position, upd.Rank, upd.Term

	if err := db.WithContext(ctx).Save(o).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "update official")
	}

	return o, nil
}

// DeleteOfficial removes an official.
func DeleteOfficial(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Delete(&models.Official{}, id)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete official")
	}

	if res.RowsAffected == 0 {
		return ErrOfficialNotFound
	}

	return nil
}

func nameFree(tx *gorm.DB, name string, exceptID uint64) error {
	var n int64

	err := tx.Model(&models.Barangay{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).
		Count(&n).Error
	if err != nil {
		return pkgerrors.Wrap(err, "check barangay name")
	}

	if n > 0 {
		return ErrNameTaken
	}

	return nil
}

func buildOfficial(in OfficialInput) (*models.Official, error) {
	o := &models.Official{
		Name:     strings.TrimSpace(in.Name),
		Position: strings.TrimSpace(in.Position),
		Rank:     in.Rank,
		Term:     strings.TrimSpace(in.Term),
	}

	if o.Name == "" || o.Position == "" {
		return nil, ErrOfficialInvalid
	}

	return o, nil
}
