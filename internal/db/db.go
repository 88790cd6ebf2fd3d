// Package db opens the portal database with the configured gorm driver.
package db

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/config"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/dsn"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger/adapter/stdlogger"
)

const slowQueryThreshold = 500 * time.Millisecond

// Dialector returns the gorm dialector for cfg.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	source, err := dsn.Create(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.GormEngine {
	case config.EnginePostgres:
		return gormpostgres.Open(source), nil
	case config.EngineSQLite:
		return sqlite.Open(source), nil
	default:
		return gormmysql.Open(source), nil
	}
}

// Open connects to the configured database. gorm output goes through the
// global zerolog logger.
func Open(cfg config.DB) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(stdlogger.New("gorm"), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  LogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.GormEngine)
	}

	// every sqlite connection to :memory: is a database of its own
	if cfg.GormEngine == config.EngineSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "sqlite pool")
		}

		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the schema of every portal model.
func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(models.All()...), "auto migrate")
}

// LogLevel maps the config value to a gorm log level, default warn.
func LogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
