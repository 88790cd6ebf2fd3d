// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
)

// ErrUnsupportedEngine is returned for a GormEngine without a DSN format.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

// Create builds the Data Source Name for the configured engine.
// The mysql and postgres forms are also accepted as ConnectionURI by the
// gofiber session storages.
func Create(cfg config.DB) (string, error) {
	switch cfg.GormEngine {
	case config.EngineMySQL, "":
		return mysql(cfg), nil
	case config.EnginePostgres:
		return postgres(cfg), nil
	case config.EngineSQLite:
		return sqlite(cfg), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEngine, cfg.GormEngine)
	}
}

func mysql(cfg config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	if cfg.Extras != "" {
		out += "?" + strings.TrimPrefix(cfg.Extras, "?")
	}

	return out
}

func postgres(cfg config.DB) string {
	parts := []string{
		"host=" + cfg.Host,
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Name,
	}

	if cfg.Extras != "" {
		parts = append(parts, cfg.Extras)
	}

	return strings.Join(parts, " ")
}

func sqlite(cfg config.DB) string {
	name := cfg.Name
	if name == "" {
		name = ":memory:"
	}

	if cfg.Extras != "" {
		return name + "?" + strings.TrimPrefix(cfg.Extras, "?")
	}

	return name
}
