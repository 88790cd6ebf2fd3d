package models

import (
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

// AuthSource represents the authentication source for a user account.
type AuthSource string

const (
	// AuthSourceLocal indicates the user authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC indicates the user authenticates via OpenID Connect (OIDC).
	AuthSourceOIDC AuthSource = "oidc"
	// AuthSourceLDAP indicates the user authenticates via LDAP or Active Directory.
	AuthSourceLDAP AuthSource = "ldap"
)

// User represents a portal account.
// Every user holds exactly one role. Moderators are additionally scoped to a barangay.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null"`
	// Password is the Argon2id hashed password (only used for local authentication).
	Password string `gorm:"size:255" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// Role is the capability tier of the user.
	Role rbac.Role `gorm:"type:varchar(20);not null;default:'user';index"`
	// Barangay is the geographic unit a moderator is scoped to. Empty for everyone else.
	Barangay string `gorm:"size:100;index"`
	// AuthSource indicates how this user authenticates (local, oidc, or ldap).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the external identifier for OIDC (sub claim) or LDAP (DN) users.
	ExternalID string `gorm:"size:255"`
	// TOTPSecret is the base32 secret of the second factor, empty if never enrolled.
	TOTPSecret string `gorm:"size:64" json:"-"`
	// TOTPEnabled is set once the user confirmed a code for TOTPSecret.
	TOTPEnabled bool
	// LastLoginAt is the time of the last successful login.
	LastLoginAt *time.Time
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// RoleName implements rbac.Subject. A nil user has no role.
func (u *User) RoleName() rbac.Role {
	if u == nil {
		return ""
	}

	return u.Role
}

// BarangayName implements rbac.Subject.
func (u *User) BarangayName() string {
	if u == nil {
		return ""
	}

	return u.Barangay
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}

	return name
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
