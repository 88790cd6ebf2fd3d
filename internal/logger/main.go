// Package logger configures the global zerolog logger of the portal.
package logger

import (
	"io"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logDirMode = 0o750

// shipper is the active DataDog writer, nil unless enabled.
var shipper *DataDogWriter //nolint:gochecknoglobals

// LevelWriter sends each level to its own writer. Debug and info share Info,
// error, fatal and panic share Error. A nil writer drops the level.
type LevelWriter struct {
	Error io.Writer
	Info  io.Writer
	Trace io.Writer
	Warn  io.Writer
}

// Write handles events without a level.
func (lw LevelWriter) Write(p []byte) (int, error) {
	return lw.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (lw LevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	w := lw.writerFor(l)
	if w == nil {
		return len(p), nil
	}

	return w.Write(p) //nolint:wrapcheck
}

func (lw LevelWriter) writerFor(l zerolog.Level) io.Writer {
	switch l {
	case zerolog.Disabled:
		return nil
	case zerolog.TraceLevel:
		return lw.Trace
	case zerolog.WarnLevel:
		return lw.Warn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return lw.Error
	default:
		return lw.Info
	}
}

// RollingFile returns a lumberjack writer for dir/name.
func RollingFile(dir, name string, maxSize, maxAge, maxBackups int) io.Writer {
	return &lumberjack.Logger{
		Filename:   path.Join(dir, name),
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
	}
}

// Init replaces the global logger according to cfg.
// With nothing enabled every statement is discarded.
func Init(cfg Log) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "loglevel %s is not supported", cfg.LogLevel)
	}

	switch {
	case cfg.ServiceName == "":
		return ErrServiceNameIsEmpty
	case cfg.AppName == "":
		return ErrAppNameIsEmpty
	}

	writers, err := outputs(cfg)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.ErrorHandler = reportWriteError //nolint:reassign

	traced := level == zerolog.TraceLevel
	if traced {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack //nolint:reassign
	}

	lctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Hook(NewPrometheusHook(cfg.ServiceName)).
		With().
		Timestamp()

	switch {
	case cfg.ReportCaller && traced:
		lctx = lctx.Stack()
	case cfg.ReportCaller:
		lctx = lctx.Caller()
	}

	log.Logger = lctx.Logger()

	return nil
}

// outputs builds the enabled writers. A DataDog writer replaces one started
// by an earlier Init.
func outputs(cfg Log) ([]io.Writer, error) {
	var writers []io.Writer

	if cfg.Console.Enabled {
		writers = append(writers, NewConsoleWriter(cfg))
	}

	if cfg.File.Enabled {
		if fw := newRollingLevelFiles(cfg.File); fw != nil {
			writers = append(writers, fw)
		}
	}

	if cfg.DataDog.Enabled {
		if cfg.DataDog.ServiceName == "" {
			cfg.DataDog.ServiceName = cfg.ServiceName
		}

		dd, err := NewDataDogWriter(cfg.DataDog)
		if err != nil {
			return nil, err
		}

		_ = Close()
		shipper = dd
		writers = append(writers, dd)
	}

	return writers, nil
}

// Close flushes and stops the DataDog writer if one was started by Init.
func Close() error {
	if shipper == nil {
		return nil
	}

	err := shipper.Close()
	shipper = nil

	return err
}

// newRollingLevelFiles writes one rolling file per level group below f.Path.
func newRollingLevelFiles(f LogFile) io.Writer {
	if err := os.MkdirAll(f.Path, logDirMode); err != nil {
		log.Error().Err(err).Str("path", f.Path).Msg("can't create log directory")

		return nil
	}

	return LevelWriter{
		Error: RollingFile(f.Path, f.ErrorLog, f.ErrorMaxSize, f.ErrorMaxAge, f.ErrorMaxBackups),
		Info:  RollingFile(f.Path, f.InfoLog, f.InfoMaxSize, f.InfoMaxAge, f.InfoMaxBackups),
		Trace: RollingFile(f.Path, f.TraceLog, f.TraceMaxSize, f.TraceMaxAge, f.TraceMaxBackups),
		Warn:  RollingFile(f.Path, f.WarnLog, f.WarnMaxSize, f.WarnMaxAge, f.WarnMaxBackups),
	}
}

// NewConsoleWriter writes info and debug to stdout and everything else to
// stderr, human readable when Console.UseConsoleWriter is set.
func NewConsoleWriter(cfg Log) io.Writer {
	out, errOut := io.Writer(os.Stdout), io.Writer(os.Stderr)

	if cfg.Console.UseConsoleWriter {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: zerolog.TimeFieldFormat}
		errOut = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat}
	}

	return LevelWriter{Error: errOut, Info: out, Trace: errOut, Warn: errOut}
}
