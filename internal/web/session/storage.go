package session

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/dsn"
)

// NewStorage selects the session backend. A nil storage means in-memory.
// The db backend shares the portal database; sqlite falls back to memory.
func NewStorage(cfg config.Session, db config.DB) (fiber.Storage, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return nil, nil
	case config.SessionBackendRedis:
		return NewRedisStorage(cfg.Redis), nil
	}

	uri, err := dsn.Create(db)
	if err != nil {
		return nil, err
	}

	switch db.GormEngine {
	case config.EngineMySQL, "":
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: uri,
			Table:         cfg.Table,
		}), nil
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: uri,
			Table:         cfg.Table,
		}), nil
	case config.EngineSQLite:
		log.Warn().Msg("db session backend is not available for sqlite, using in-memory sessions")
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", dsn.ErrUnsupportedEngine, db.GormEngine)
	}
}
