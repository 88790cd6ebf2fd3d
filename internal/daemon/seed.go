package daemon

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/uniuri"
)

const (
	// AdminPasswordEnv sets the password of the seeded admin account.
	AdminPasswordEnv = "SK_PORTAL_ADMIN_PASSWORD"

	seedAdminUsername = "admin"
	seedAdminEmail    = "admin@localhost"
)

// seed creates the first admin account if the users table is empty.
// Without AdminPasswordEnv a random password is generated and logged once.
func seed(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count users")
	}

	if count > 0 {
		return nil
	}

	password := os.Getenv(AdminPasswordEnv)
	generated := password == ""

	if generated {
		password = uniuri.NewPassword()
	}

	u, err := user.Create(ctx, db, user.Input{
		Username: seedAdminUsername,
		Email:    seedAdminEmail,
		Password: password,
		Role:     rbac.RoleAdmin,
	})
	if err != nil {
		return err
	}

	event := log.Warn().Uint64("user_id", u.ID).Str("username", u.Username)
	if generated {
		event = event.Str("password", password)
	}

	event.Msg("created initial admin account, change its password after the first login")

	return nil
}
