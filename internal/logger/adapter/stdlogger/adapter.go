// Package stdlogger adapts the global zerolog logger to printf style loggers
// such as the gorm logger writer.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages to the global zerolog logger.
type Logger struct {
	component string
}

// New returns a Logger. The optional component is added as "component" field.
func New(component ...string) *Logger {
	l := &Logger{}
	if len(component) > 0 {
		l.component = component[0]
	}

	return l
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}

// Printf implements the gorm logger.Writer interface. gorm prefixes its
// messages with the caller and multi line SQL traces, both are flattened.
func (l *Logger) Printf(format string, args ...any) {
	msg := strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", " ")
	l.event(zerolog.DebugLevel).Msg(msg)
}
