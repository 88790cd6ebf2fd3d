package config

// Auth groups the settings of all login methods.
type Auth struct {
	LocalDB      LocalDBAuth
	Registration Registration
	TOTP         TOTPAuth
	LDAP         LDAPAuth
	OIDC         OIDCAuth
}

// LocalDBAuth enables username and password login against the users table.
type LocalDBAuth struct {
	Enabled bool
}

// Registration controls self sign up. New accounts always get the default role.
type Registration struct {
	Enabled bool
}

// TOTPAuth configures the optional second factor for local accounts.
type TOTPAuth struct {
	Issuer string // shown in authenticator apps, defaults to Config.Title
}

// LDAPAuth configures directory login.
//
// RoleMapping maps group DNs to portal roles. Keys are matched
// case-insensitively; the most privileged matching role wins.
type LDAPAuth struct {
	Enabled      bool
	Host         string
	Port         int
	UseSSL       bool
	UseTLS       bool
	SkipVerify   bool
	BindDN       string
	BindPassword string
	BaseDN       string
	UserFilter   string
	GroupBaseDN  string
	GroupFilter  string
	BarangayAttr string // user attribute holding the barangay of moderators
	Timeout      int
	RoleMapping  map[string]string
}

// OIDCAuth configures OpenID Connect login.
// RoleMapping maps values of GroupsClaim to portal roles.
type OIDCAuth struct {
	Enabled       bool
	ProviderURL   string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scopes        []string
	GroupsClaim   string
	BarangayClaim string
	RoleMapping   map[string]string
}
