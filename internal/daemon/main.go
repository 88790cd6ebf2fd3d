// Package daemon wires database, sessions and the web service together.
package daemon

import (
	"context"
	"time"

	"github.com/gofiber/storage/redis/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	database "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/web/session"
)

const redisPingTimeout = 3 * time.Second

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
}

// Start serves http until a termination signal has been handled.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start()
}

// OpenDB opens and migrates the configured database.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare database")
	}

	if err = seed(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "failed to seed database")
	}

	// Initialize fiber session store
	storage, err := session.NewStorage(cfg.Webserver.Session, cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session storage")
	}

	if rs, ok := storage.(*redis.Storage); ok {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		if errPing := rs.Conn().Ping(ctx).Err(); errPing != nil {
			log.Warn().Err(errPing).Str("addr", cfg.Webserver.Session.Redis.Addr).Msg("redis session backend not reachable yet")
		}

		cancel()
	}

	session.Init(storage)

	log.Info().
		Str("db", cfg.DB.GormEngine).
		Str("sessions", cfg.Webserver.Session.Backend).
		Bool("api", cfg.API.Enabled).
		Msg("daemon initialized")

	return &Daemon{
		webService: web.New(cfg, db),
	}, nil
}
