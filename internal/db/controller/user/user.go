// Package user provides account queries and the admin mutation path for roles.
package user

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/controller/paging"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when username or email already belong to another account.
	ErrUsernameTaken = errors.New("user with username or email already exists")
	// ErrSelfDelete is returned when an admin tries to delete their own account.
	ErrSelfDelete = errors.New("you cannot delete your own account")
	// ErrLastAdmin is returned when a change would leave the portal without an active admin.
	ErrLastAdmin = errors.New("at least one active admin is required")
	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("username and email are required")
)

// Input describes a new account.
type Input struct {
	Username   string
	Email      string
	Password   string // plaintext, hashed on create; empty for external accounts
	FirstName  string
	LastName   string
	Role       rbac.Role // empty means rbac.DefaultRole
	Barangay   string
	AuthSource models.AuthSource
	ExternalID string
}

// Filter narrows List.
type Filter struct {
	Search   string
	Role     rbac.Role
	Barangay string
	Active   *bool
}

// List returns accounts newest first.
func List(ctx context.Context, db *gorm.DB, f Filter, p paging.Params) (paging.Result[models.User], error) {
	if db == nil {
		return paging.Result[models.User]{}, ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.User{})

	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where(
			"(LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)",
			like, like, like, like,
		)
	}

	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}

	if b := strings.TrimSpace(f.Barangay); b != "" {
		q = q.Where("LOWER(barangay) = ?", strings.ToLower(b))
	}

	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}

	res, err := paging.Find[models.User](q.Order("id DESC"), p)

	return res, pkgerrors.Wrap(err, "list users")
}

// Get returns one account.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.User, error) {
	return first(ctx, db, "id = ?", id)
}

// GetByUsername returns the account with the given username.
func GetByUsername(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	return first(ctx, db, "username = ?", strings.TrimSpace(username))
}

// GetByExternalID returns the account linked to an external identity.
func GetByExternalID(ctx context.Context, db *gorm.DB, source models.AuthSource, externalID string) (*models.User, error) {
	return first(ctx, db, "external_id = ? AND auth_source = ?", externalID, source)
}

func first(ctx context.Context, db *gorm.DB, query string, args ...any) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	err := db.WithContext(ctx).Where(query, args...).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, pkgerrors.Wrap(err, "get user")
	}

	return &u, nil
}

// Create inserts an active account. Username and email are unique across all accounts.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" || in.Email == "" {
		return nil, ErrInvalidInput
	}

	role := in.Role
	if role == "" {
		role = rbac.DefaultRole
	}

	if !role.Valid() {
		return nil, rbac.ErrUnknownRole
	}

	source := in.AuthSource
	if source == "" {
		source = models.AuthSourceLocal
	}

	u := &models.User{
		Active:     true,
		Username:   in.Username,
		Email:      in.Email,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       role,
		Barangay:   strings.TrimSpace(in.Barangay),
		AuthSource: source,
		ExternalID: in.ExternalID,
	}

	if source == models.AuthSourceLocal && in.Password != "" {
		u.Password = models.HashPassword(in.Password)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", u.Username, u.Email).
			Count(&n).Error; err != nil {
			return pkgerrors.Wrap(err, "check existing user")
		}

		if n > 0 {
			return ErrUsernameTaken
		}

		return pkgerrors.Wrap(tx.Create(u).Error, "insert user")
	})
	if err != nil {
		return nil, err
	}

	warnUnscoped(u)

	return u, nil
}

// Profile holds the fields a user may change about themselves.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// UpdateProfile changes email and names.
func UpdateProfile(ctx context.Context, db *gorm.DB, id uint64, p Profile) (*models.User, error) {
	u, err := Get(ctx, db, id)
	if err != nil {
		return nil, err
	}

	u.Email = strings.TrimSpace(p.Email)
	u.FirstName = strings.TrimSpace(p.FirstName)
	u.LastName = strings.TrimSpace(p.LastName)

	if u.Email == "" {
		return nil, ErrInvalidInput
	}

	err = db.WithContext(ctx).Model(u).
		Select("email", "first_name", "last_name").
		Updates(u).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "update profile")
	}

	return u, nil
}

// SetRole is the single path that changes a role. The barangay is kept only for
// moderators. Demoting the last active admin fails with ErrLastAdmin.
func SetRole(ctx context.Context, db *gorm.DB, id uint64, role rbac.Role, barangay string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if !role.Valid() {
		return nil, rbac.ErrUnknownRole
	}

	barangay = strings.TrimSpace(barangay)
	if role != rbac.RoleModerator {
		barangay = ""
	}

	var u models.User

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		if err != nil {
			return pkgerrors.Wrap(err, "get user")
		}

		if u.Role == rbac.RoleAdmin && role != rbac.RoleAdmin && u.Active {
			if err := ensureOtherAdmin(tx, u.ID); err != nil {
				return err
			}
		}

		u.Role = role
		u.Barangay = barangay

		return pkgerrors.Wrap(
			tx.Model(&u).Select("role", "barangay").Updates(&u).Error,
			"update role",
		)
	})
	if err != nil {
		return nil, err
	}

	warnUnscoped(&u)

	return &u, nil
}

// SetActive enables or disables a login. Disabling the last active admin fails.
func SetActive(ctx context.Context, db *gorm.DB, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User

		err := tx.First(&u, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		if err != nil {
			return pkgerrors.Wrap(err, "get user")
		}

		if !active && u.Active && u.Role == rbac.RoleAdmin {
			if err := ensureOtherAdmin(tx, u.ID); err != nil {
				return err
			}
		}

		return pkgerrors.Wrap(tx.Model(&u).Update("active", active).Error, "update active flag")
	})
}

// SetPassword stores a new argon2id hash for a local account.
func SetPassword(ctx context.Context, db *gorm.DB, id uint64, password string) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND auth_source = ?", id, models.AuthSourceLocal).
		Update("password", models.HashPassword(password))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "update password")
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTOTP stores the second factor secret and its enabled flag.
func SetTOTP(ctx context.Context, db *gorm.DB, id uint64, secret string, enabled bool) error {
	if db == nil {
		return ErrDBNil
	}

	err := db.WithContext(ctx).Model(&models.User{ID: id}).
		Select("totp_secret", "totp_enabled").
		Updates(&models.User{TOTPSecret: secret, TOTPEnabled: enabled}).Error

	return pkgerrors.Wrap(err, "update totp")
}

// TouchLogin records a successful login.
func TouchLogin(ctx context.Context, db *gorm.DB, id uint64, now time.Time) error {
	if db == nil {
		return ErrDBNil
	}

	err := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", now.UTC()).Error

	return pkgerrors.Wrap(err, "update last login")
}

// Delete removes the account id on behalf of actorID.
// Votes, registrations and notifications of the user are removed with it.
func Delete(ctx context.Context, db *gorm.DB, actorID, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	if actorID == id {
		return ErrSelfDelete
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User

		err := tx.First(&u, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		if err != nil {
			return pkgerrors.Wrap(err, "get user")
		}

		if u.Role == rbac.RoleAdmin && u.Active {
			if err := ensureOtherAdmin(tx, u.ID); err != nil {
				return err
			}
		}

		for _, m := range []any{&models.PollVote{}, &models.EventRegistration{}, &models.Notification{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return pkgerrors.Wrap(err, "delete user data")
			}
		}

		return pkgerrors.Wrap(tx.Delete(&u).Error, "delete user")
	})
}

// CountByRole returns the number of accounts per role. Every role is present.
func CountByRole(ctx context.Context, db *gorm.DB) (map[rbac.Role]int64, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var rows []struct {
		Role  rbac.Role
		Total int64
	}

	err := db.WithContext(ctx).Model(&models.User{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count users per role")
	}

	out := make(map[rbac.Role]int64, len(rbac.Roles()))
	for _, r := range rbac.Roles() {
		out[r] = 0
	}

	for _, r := range rows {
		out[r.Role] = r.Total
	}

	return out, nil
}

func ensureOtherAdmin(tx *gorm.DB, exceptID uint64) error {
	var n int64

	err := tx.Model(&models.User{}).
		Where("role = ? AND active = ? AND id <> ?", rbac.RoleAdmin, true, exceptID).
		Count(&n).Error
	if err != nil {
		return pkgerrors.Wrap(err, "count admins")
	}

	if n == 0 {
		return ErrLastAdmin
	}

	return nil
}

func warnUnscoped(u *models.User) {
	if rbac.NeedsBarangayWarning(u) {
		log.Warn().Uint64("user_id", u.ID).Str("username", u.Username).
			Msg("moderator has no barangay assigned and cannot edit any barangay")
	}
}
