package auth

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// ExternalIdentity is what a directory or identity provider tells us about a login.
type ExternalIdentity struct {
	Source     models.AuthSource
	ExternalID string // LDAP DN or OIDC sub
	Username   string
	Email      string
	FirstName  string
	LastName   string
	Groups     []string
	Barangay   string
}

// SyncExternalUser creates or refreshes the account behind an external login.
//
// New accounts get the mapped role, or rbac.DefaultRole when nothing maps.
// Existing accounts keep their portal role unless a mapping matches.
func SyncExternalUser(ctx context.Context, db *gorm.DB, mapping RoleMapping, id ExternalIdentity) (*models.User, error) {
	role, mapped := mapping.Resolve(id.Groups)

	u, err := user.GetByExternalID(ctx, db, id.Source, id.ExternalID)

	switch {
	case errors.Is(err, user.ErrNotFound):
		if !mapped {
			role = rbac.DefaultRole
		}

		u, err = user.Create(ctx, db, user.Input{
			Username:   id.Username,
			Email:      id.Email,
			FirstName:  id.FirstName,
			LastName:   id.LastName,
			Role:       role,
			Barangay:   id.Barangay,
			AuthSource: id.Source,
			ExternalID: id.ExternalID,
		})
		if err != nil {
			return nil, err
		}

		log.Info().Str("username", u.Username).Str("source", string(id.Source)).Str("role", role.String()).
			Msg("created account for external login")

		return u, nil
	case err != nil:
		return nil, err
	}

	if !u.Active {
		return nil, ErrUserAccountDisabled
	}

	email := id.Email
	if email == "" {
		email = u.Email
	}

	u, err = user.UpdateProfile(ctx, db, u.ID, user.Profile{
		Email:     email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "refresh external account")
	}

	if mapped && (u.Role != role || u.Barangay != id.Barangay) {
		updated, errRole := user.SetRole(ctx, db, u.ID, role, id.Barangay)

		switch {
		case errors.Is(errRole, user.ErrLastAdmin):
			log.Warn().Str("username", u.Username).Str("mapped_role", role.String()).
				Msg("keeping admin role of the last active admin")
		case errRole != nil:
			return nil, errRole
		default:
			u = updated
		}
	}

	return u, nil
}
