package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/user"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// MinPasswordLength is enforced for registration and password changes.
const MinPasswordLength = 8

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db:  db,
		now: time.Now,
	}
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := user.GetByUsername(ctx, p.db, username)
	if errors.Is(err, user.ErrNotFound) || (err == nil && u.AuthSource != models.AuthSourceLocal) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	if !u.Active {
		return nil, ErrUserAccountDisabled
	}

	if !u.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	if errTouch := user.TouchLogin(ctx, p.db, u.ID, p.now()); errTouch != nil {
		log.Warn().Err(errTouch).Uint64("user_id", u.ID).Msg("failed to record login time")
	}

	return u, nil
}

// Registration is the self sign up form.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a local account with the default role.
func (p *LocalProvider) Register(ctx context.Context, r Registration) (*models.User, error) {
	if len(r.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	return user.Create(ctx, p.db, user.Input{
		Username:   r.Username,
		Email:      r.Email,
		Password:   r.Password,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Role:       rbac.DefaultRole,
		AuthSource: models.AuthSourceLocal,
	})
}

// ChangePassword changes a user's password after checking the old one.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	u, err := user.Get(ctx, p.db, userID)
	if err != nil {
		return err
	}

	if u.AuthSource != models.AuthSourceLocal {
		return ErrUserNotFound
	}

	if !u.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	return user.SetPassword(ctx, p.db, userID, newPassword)
}
