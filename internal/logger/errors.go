package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned when [Log] AppName is missing.
	ErrAppNameIsEmpty = errors.New("log config: AppName is required")

	// ErrServiceNameIsEmpty is returned when [Log] ServiceName is missing.
	ErrServiceNameIsEmpty = errors.New("log config: ServiceName is required")
)

// writeErrors receives failures of zerolog writers.
var writeErrors io.Writer = os.Stderr //nolint:gochecknoglobals

// reportWriteError is installed as zerolog.ErrorHandler by Init. A failing
// writer must not log through zerolog again, so it goes straight to stderr.
func reportWriteError(err error) {
	_, _ = fmt.Fprintf(writeErrors, "sk-portal logger: dropped log event: %v\n", err)
}
