// Package portal stores the federation wide portal settings as one JSON blob.
package portal

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/setting"
)

const (
	// SettingKey is the name of the settings row holding the portal settings.
	SettingKey = "portal"

	// DefaultPageSize is the announcement page size used when none is stored.
	DefaultPageSize = 10
)

// Settings represents the editable portal configuration.
type Settings struct {
	FederationName      string `form:"federation_name"       json:"federationName"      validate:"required,max=120"`
	ContactEmail        string `form:"contact_email"         json:"contactEmail"        validate:"omitempty,email"`
	RegistrationEnabled bool   `form:"registration_enabled"  json:"registrationEnabled"`
	AnnouncementsPage   int    `form:"announcements_page"    json:"announcementsPage"   validate:"omitempty,min=1,max=100"`
	Motto               string `form:"motto"                 json:"motto"               validate:"max=200"`
}

// Defaults returns the settings used before an admin saved any.
func Defaults(title string) Settings {
	return Settings{
		FederationName:      title,
		RegistrationEnabled: true,
		AnnouncementsPage:   DefaultPageSize,
	}
}

// Load reads the stored settings. Missing settings yield Defaults(title).
func Load(ctx context.Context, db *gorm.DB, title string) (Settings, error) {
	s := Defaults(title)

	err := setting.LoadJSON(ctx, db, SettingKey, &s)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return Defaults(title), nil
	}

	if err != nil {
		return Defaults(title), err
	}

	if s.AnnouncementsPage <= 0 {
		s.AnnouncementsPage = DefaultPageSize
	}

	return s, nil
}

// Save stores s.
func (s *Settings) Save(ctx context.Context, db *gorm.DB) error {
	return setting.SaveJSON(ctx, db, SettingKey, s)
}
