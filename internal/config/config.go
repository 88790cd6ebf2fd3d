// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/rbac"
)

const (
	// EnvPrefix prefixes environment variables overriding single keys,
	// e.g. SK_PORTAL_DB_PASSWORD for db.password.
	EnvPrefix = "SK_PORTAL"

	// EnvConfigJSON holds a JSON document merged over the whole file config.
	EnvConfigJSON = "SK_PORTAL_CONFIG_JSON"

	defaultPath           = "./etc/"
	defaultShutDownTime   = 5
	defaultSessionExpiry  = 24 * time.Hour
	defaultTokenTTL       = time.Hour
	defaultSessionTable   = "sessions"
	defaultMetricsPath    = "/metrics"
	invalidConfigErrorMsg = "invalid config"
)

// Session storage backends.
const (
	SessionBackendDB     = "db"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// LoadEnvFile loads KEY=value pairs from file into the process environment.
// An empty file name tries ./.env and ignores its absence.
func LoadEnvFile(file string) error {
	if file == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}

		file = ".env"
	}

	if err := godotenv.Load(file); err != nil {
		return errors.Wrap(err, "failed to load env file")
	}

	return nil
}

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = defaultPath
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	}); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without and fills in defaults.
func validate(c *Config) error {
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidConfigErrorMsg)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidConfigErrorMsg)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMySQL
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrapf(ErrUnsupportedEngine, "%s: %q", invalidConfigErrorMsg, c.DB.GormEngine)
	}

	if err := validateSession(&c.Webserver.Session); err != nil {
		return err
	}

	if err := validateRoleMapping(c.Auth.LDAP.RoleMapping); err != nil {
		return err
	}

	if err := validateRoleMapping(c.Auth.OIDC.RoleMapping); err != nil {
		return err
	}

	if c.API.Enabled && c.API.JWTSecret == "" {
		return errors.Wrap(ErrJWTSecretEmpty, invalidConfigErrorMsg)
	}

	if c.API.TokenTTL == 0 {
		c.API.TokenTTL = defaultTokenTTL
	}

	if c.API.Issuer == "" {
		c.API.Issuer = c.Webserver.URL
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}

	if c.Auth.TOTP.Issuer == "" {
		c.Auth.TOTP.Issuer = c.Title
	}

	return nil
}

func validateSession(s *Session) error {
	if s.ExpiryTime == 0 {
		s.ExpiryTime = defaultSessionExpiry
	}

	switch s.Backend {
	case "":
		s.Backend = SessionBackendDB
	case SessionBackendDB, SessionBackendRedis, SessionBackendMemory:
	default:
		return errors.Wrapf(ErrUnsupportedSessionBackend, "%s: %q", invalidConfigErrorMsg, s.Backend)
	}

	if s.Table == "" {
		s.Table = defaultSessionTable
	}

	return nil
}

func validateRoleMapping(mapping map[string]string) error {
	for group, role := range mapping {
		if _, err := rbac.ParseRole(role); err != nil {
			return errors.Wrapf(ErrUnknownRole, "%s: %q -> %q", invalidConfigErrorMsg, group, role)
		}
	}

	return nil
}
