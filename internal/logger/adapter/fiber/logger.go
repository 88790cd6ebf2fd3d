// Package fiber provides the zerolog access log middleware of the portal.
package fiber

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
)

// PerformanceHeader carries the handling time in seconds.
const PerformanceHeader = "X-Performance"

// Config configures the access log middleware.
type Config struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Config selects the access log outputs.
	Config logger.Log

	// CacheControlError is sent when the error handler itself fails.
	CacheControlError string

	// CheckAliveURI is not logged when Config.DisableCheckAlive is set.
	CheckAliveURI string

	// UserLocal is the fiber.Ctx locals key holding the logged in username.
	// Empty disables the "user" field.
	UserLocal string
}

// ConfigDefault is used for unset fields.
var ConfigDefault = Config{ //nolint:gochecknoglobals
	CacheControlError: "max-age=0",
}

// New returns the access log middleware. Errors from the chain are passed
// to the app error handler before the line is written, so the logged status
// is the one the client gets.
func New(config ...Config) fiber.Handler {
	cfg := ConfigDefault
	if len(config) > 0 {
		cfg = config[0]

		if cfg.CacheControlError == "" {
			cfg.CacheControlError = ConfigDefault.CacheControlError
		}
	}

	access := zerolog.New(zerolog.MultiLevelWriter(accessWriters(cfg.Config)...)).
		With().
		Timestamp().
		Logger().
		Level(zerolog.NoLevel)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()

		chainErr := c.Next()
		if chainErr != nil {
			if errH := c.App().ErrorHandler(c, chainErr); errH != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
				c.Set(fiber.HeaderCacheControl, cfg.CacheControlError)
			}
		}

		elapsed := time.Since(start).Seconds()
		c.Locals("elapsed", elapsed)
		c.Set(PerformanceHeader, strconv.FormatFloat(elapsed, 'f', 6, 64)) //nolint:mnd

		if cfg.Config.DisableCheckAlive && string(c.Request().RequestURI()) == cfg.CheckAliveURI {
			return nil
		}

		line := access.Log().
			Str("IP", c.IP()).
			Int("status", c.Response().StatusCode()).
			Float64(PerformanceHeader, elapsed).
			Str("URI", requestURI(c)).
			Str("method", c.Method()).
			Bytes("host", c.Request().Host()).
			Str(fiber.HeaderXForwardedFor, c.Get(fiber.HeaderXForwardedFor)).
			Str(fiber.HeaderUserAgent, c.Get(fiber.HeaderUserAgent)).
			Str(fiber.HeaderOrigin, c.Get(fiber.HeaderOrigin)).
			Str(fiber.HeaderReferer, c.Get(fiber.HeaderReferer))

		if cfg.UserLocal != "" {
			if user, ok := c.Locals(cfg.UserLocal).(string); ok && user != "" {
				line.Str("user", user)
			}
		}

		line.Err(chainErr).Send()

		return nil
	}
}

// requestURI keeps the path as the client sent it; fasthttp normalizes //a to /a.
func requestURI(c *fiber.Ctx) string {
	p := c.Path()
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		p += "?" + string(q)
	}

	return p
}

// accessWriters returns the rolling access file and, when both console
// switches are on, stdout.
func accessWriters(cfg logger.Log) []io.Writer {
	var writers []io.Writer

	if cfg.File.Enabled {
		if fw := rollingAccessFile(cfg.File); fw != nil {
			writers = append(writers, fw)
		}
	}

	if !cfg.Console.Enabled || !cfg.EnableAccessLogToConsole {
		return writers
	}

	if cfg.Console.UseConsoleWriter {
		return append(writers, zerolog.ConsoleWriter{
			Out:          os.Stdout,
			TimeFormat:   zerolog.TimeFieldFormat,
			PartsExclude: []string{zerolog.LevelFieldName},
		})
	}

	return append(writers, os.Stdout)
}

func rollingAccessFile(f logger.LogFile) io.Writer {
	if f.Path != "" {
		if err := os.MkdirAll(f.Path, 0o750); err != nil { //nolint:mnd
			log.Error().Err(err).Str("path", f.Path).Msg("can't create access log directory")

			return nil
		}
	}

	return logger.RollingFile(f.Path, f.AccessLog, f.AccessMaxSize, f.AccessMaxAge, f.AccessMaxBackups)
}
