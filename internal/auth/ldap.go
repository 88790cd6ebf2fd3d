package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
var ErrLDAPDisabled = errors.New("ldap authentication is disabled")

// LDAPConfig holds LDAP/Active Directory configuration for authentication.
type LDAPConfig struct {
	config.LDAPAuth

	// UsernameAttr is the LDAP attribute containing the username (e.g., "uid", "sAMAccountName").
	UsernameAttr string
	// EmailAttr is the LDAP attribute containing the email address (e.g., "mail").
	EmailAttr string
	// FirstNameAttr is the LDAP attribute containing the first/given name (e.g., "givenName").
	FirstNameAttr string
	// LastNameAttr is the LDAP attribute containing the last/surname (e.g., "sn").
	LastNameAttr string
}

// LDAPProvider handles LDAP authentication.
type LDAPProvider struct {
	config  LDAPConfig
	mapping RoleMapping
	db      *gorm.DB
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(cfg LDAPConfig, db *gorm.DB) (*LDAPProvider, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	mapping, err := NewRoleMapping(cfg.RoleMapping)
	if err != nil {
		return nil, err
	}

	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "uid"
	}

	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}

	if cfg.FirstNameAttr == "" {
		cfg.FirstNameAttr = "givenName"
	}

	if cfg.LastNameAttr == "" {
		cfg.LastNameAttr = "sn"
	}

	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid={username})"
	}

	if cfg.GroupFilter == "" {
		cfg.GroupFilter = "(member={userdn})"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10
	}

	return &LDAPProvider{
		config:  cfg,
		mapping: mapping,
		db:      db,
	}, nil
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	ldapURL := "ldap://" + hostPort
	if p.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // opt-in for test directories
			ServerName:         p.config.Host,
		}
	}

	conn, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)

	return conn, nil
}

// Authenticate binds as the user, reads the group DNs and syncs the portal account.
func (p *LDAPProvider) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if password == "" {
		// an empty password would be an anonymous bind
		return nil, ErrInvalidPassword
	}

	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if err = p.bindService(conn); err != nil {
		return nil, err
	}

	entry, err := p.searchUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	if err = conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	if err = p.bindService(conn); err != nil {
		return nil, err
	}

	groups, err := p.userGroups(conn, entry.DN)
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}

	id := p.identity(entry, username, groups)

	return SyncExternalUser(ctx, p.db, p.mapping, id)
}

func (p *LDAPProvider) identity(entry *ldap.Entry, username string, groups []string) ExternalIdentity {
	id := ExternalIdentity{
		Source:     models.AuthSourceLDAP,
		ExternalID: entry.DN,
		Username:   username,
		Email:      entry.GetAttributeValue(p.config.EmailAttr),
		FirstName:  entry.GetAttributeValue(p.config.FirstNameAttr),
		LastName:   entry.GetAttributeValue(p.config.LastNameAttr),
		Groups:     groups,
	}

	if v := entry.GetAttributeValue(p.config.UsernameAttr); v != "" {
		id.Username = v
	}

	if p.config.BarangayAttr != "" {
		id.Barangay = strings.TrimSpace(entry.GetAttributeValue(p.config.BarangayAttr))
	}

	return id
}

// bindService binds with the configured service account, if any.
func (p *LDAPProvider) bindService(conn *ldap.Conn) error {
	if p.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	attrs := []string{
		p.config.UsernameAttr,
		p.config.EmailAttr,
		p.config.FirstNameAttr,
		p.config.LastNameAttr,
	}

	if p.config.BarangayAttr != "" {
		attrs = append(attrs, p.config.BarangayAttr)
	}

	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.config.Timeout,
		false,
		userFilter(p.config.UserFilter, username),
		attrs,
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// userGroups returns the DNs of the groups userDN belongs to.
func (p *LDAPProvider) userGroups(conn *ldap.Conn, userDN string) ([]string, error) {
	if p.config.GroupBaseDN == "" {
		return nil, nil
	}

	searchRequest := ldap.NewSearchRequest(
		p.config.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.config.Timeout,
		false,
		groupFilter(p.config.GroupFilter, userDN),
		[]string{"cn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for groups: %w", err)
	}

	groups := make([]string, len(searchResult.Entries))
	for i, entry := range searchResult.Entries {
		groups[i] = entry.DN
	}

	return groups, nil
}

// TestConnection tests the LDAP server connection and bind credentials.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	return p.bindService(conn)
}

func userFilter(tmpl, username string) string {
	return strings.ReplaceAll(tmpl, "{username}", ldap.EscapeFilter(username))
}

func groupFilter(tmpl, userDN string) string {
	return strings.ReplaceAll(tmpl, "{userdn}", ldap.EscapeFilter(userDN))
}
