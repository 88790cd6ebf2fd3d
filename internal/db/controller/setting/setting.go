// Package setting provides CRUD operations for named portal settings.
package setting

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to read or write a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var s models.Setting

	err := db.WithContext(ctx).Where(nameQueryPattern, name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "get setting %s", name)
	}

	return &s, nil
}

// GetAll retrieves all settings ordered by name.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	if err := db.WithContext(ctx).Order("name").Find(&settings).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list settings")
	}

	return settings, nil
}

// Set creates or replaces the value of a setting.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	s := &models.Setting{Name: name, Value: value}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "set setting %s", name)
	}

	return Get(ctx, db, name)
}

// Delete removes a setting by name.
func Delete(ctx context.Context, db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	res := db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{})
	if res.Error != nil {
		return pkgerrors.Wrapf(res.Error, "delete setting %s", name)
	}

	if res.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// LoadJSON decodes the JSON value of a setting into v.
func LoadJSON(ctx context.Context, db *gorm.DB, name string, v any) error {
	s, err := Get(ctx, db, name)
	if err != nil {
		return err
	}

	return pkgerrors.Wrapf(json.Unmarshal(s.Value, v), "decode setting %s", name)
}

// SaveJSON stores v as JSON value of a setting.
func SaveJSON(ctx context.Context, db *gorm.DB, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return pkgerrors.Wrapf(err, "encode setting %s", name)
	}

	_, err = Set(ctx, db, name, data)

	return err
}
