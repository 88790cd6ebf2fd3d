package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

// ErrOIDCDisabled is returned when OIDC is disabled via configuration.
var ErrOIDCDisabled = errors.New("oidc authentication is disabled")

// OIDCProvider handles OIDC authentication.
type OIDCProvider struct {
	config   config.OIDCAuth
	mapping  RoleMapping
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// NewOIDCProvider runs discovery against cfg.ProviderURL.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCAuth, db *gorm.DB) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}

	mapping, err := NewRoleMapping(cfg.RoleMapping)
	if err != nil {
		return nil, err
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = "groups"
	}

	return &OIDCProvider{
		config:   cfg,
		mapping:  mapping,
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		db: db,
	}, nil
}

// GetAuthURL returns the OIDC authorization URL with state token.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// HandleCallback exchanges the code, verifies the ID token and syncs the portal account.
// The raw ID token is returned for the logout hint.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, string, error) {
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, "", ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims map[string]any
	if err = idToken.Claims(&claims); err != nil {
		return nil, "", fmt.Errorf("failed to parse claims: %w", err)
	}

	u, err := SyncExternalUser(ctx, p.db, p.mapping, identityFromClaims(claims, p.config))
	if err != nil {
		return nil, "", err
	}

	return u, rawIDToken, nil
}

// identityFromClaims maps ID token claims to an ExternalIdentity.
func identityFromClaims(claims map[string]any, cfg config.OIDCAuth) ExternalIdentity {
	id := ExternalIdentity{
		Source:     models.AuthSourceOIDC,
		ExternalID: claimString(claims, "sub"),
		Email:      claimString(claims, "email"),
		FirstName:  claimString(claims, "given_name"),
		LastName:   claimString(claims, "family_name"),
		Groups:     claimStrings(claims, cfg.GroupsClaim),
	}

	id.Username = claimString(claims, "preferred_username")
	if id.Username == "" {
		id.Username = id.Email
	}

	if id.Username == "" {
		id.Username = id.ExternalID
	}

	if cfg.BarangayClaim != "" {
		id.Barangay = strings.TrimSpace(claimString(claims, cfg.BarangayClaim))
	}

	return id
}

func claimString(claims map[string]any, name string) string {
	if s, ok := claims[name].(string); ok {
		return s
	}

	return ""
}

// claimStrings accepts a list claim or a single string claim.
func claimStrings(claims map[string]any, name string) []string {
	switch v := claims[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, g := range v {
			if s, ok := g.(string); ok {
				out = append(out, s)
			}
		}

		return out
	case string:
		if v == "" {
			return nil
		}

		return []string{v}
	default:
		return nil
	}
}

// GetLogoutURL constructs the OIDC provider's logout URL if supported.
// Returns an empty string if the provider doesn't advertise an end_session_endpoint.
func (p *OIDCProvider) GetLogoutURL(idToken, postLogoutRedirectURI string) string {
	var claims struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}

	if err := p.provider.Claims(&claims); err != nil || claims.EndSessionEndpoint == "" {
		return ""
	}

	q := url.Values{}
	if idToken != "" {
		q.Set("id_token_hint", idToken)
	}

	q.Set("post_logout_redirect_uri", postLogoutRedirectURI)

	return claims.EndSessionEndpoint + "?" + q.Encode()
}
