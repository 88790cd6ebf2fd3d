package config

import (
	"time"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration // lifetime of a login session
	Backend    string        // db, redis or memory
	Table      string        // table name for the db backend
	Redis      Redis         // redis backend settings
}

// Redis holds the connection settings of the redis session backend.
type Redis struct {
	Addr     string
	Password string
	DB       int // database number used only for sessions
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	API       API
	Metrics   Metrics
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic        bool    // enable static file browsing (for development purposes only)
	CacheEnabled        bool    // true = enable cache, false = disable cache
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// API configures the JSON API served under /api/v1.
type API struct {
	Enabled      bool
	JWTSecret    string        // HMAC secret for issued tokens
	TokenTTL     time.Duration // lifetime of issued tokens
	Issuer       string        // iss claim
	AllowOrigins string        // CORS allow list, comma separated
}

// Metrics configures the prometheus endpoint.
type Metrics struct {
	Enabled bool
	Path    string
}
