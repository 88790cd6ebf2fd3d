package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/logger"
)

func TestInit(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       logger.Log
		wantOut   bool
		wantJSON  bool
		wantError error
	}{
		{
			name: "nothing enabled",
			cfg:  logger.Log{LogLevel: "", ServiceName: "portal", AppName: "portal"},
		},
		{
			name:    "console info",
			cfg:     logger.Log{LogLevel: "info", ServiceName: "portal", AppName: "portal", Console: logger.Console{Enabled: true}},
			wantOut: true,
		},
		{
			name: "console writer trace",
			cfg: logger.Log{
				LogLevel: "trace", ServiceName: "portal", AppName: "portal",
				Console: logger.Console{Enabled: true, UseConsoleWriter: true},
			},
			wantOut: true,
		},
		{
			name:     "json info",
			cfg:      logger.Log{LogLevel: "info", ServiceName: "portal", AppName: "portal", Console: logger.Console{Enabled: true}},
			wantOut:  true,
			wantJSON: true,
		},
		{
			name: "json trace with caller",
			cfg: logger.Log{
				LogLevel: "trace", ServiceName: "portal", AppName: "portal", ReportCaller: true,
				Console: logger.Console{Enabled: true},
			},
			wantOut:  true,
			wantJSON: true,
		},
		{
			name:      "missing service name",
			cfg:       logger.Log{LogLevel: "info", AppName: "portal"},
			wantError: logger.ErrServiceNameIsEmpty,
		},
		{
			name:      "missing app name",
			cfg:       logger.Log{LogLevel: "info", ServiceName: "portal"},
			wantError: logger.ErrAppNameIsEmpty,
		},
		{
			name: "datadog without api key",
			cfg: logger.Log{
				LogLevel: "info", ServiceName: "portal", AppName: "portal",
				DataDog: logger.DataDog{Enabled: true},
			},
			wantError: logger.ErrDataDogAPIKeyEmpty,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := captureInit(t, tc.cfg)
			if tc.wantError != nil {
				require.ErrorIs(t, err, tc.wantError)
				return
			}

			require.NoError(t, err)

			if tc.wantOut {
				assert.NotEmpty(t, out)
			}

			if !tc.wantJSON {
				return
			}

			for _, line := range strings.Split(out, "\n") {
				if line == "" {
					continue
				}

				var entry map[string]any
				assert.NoError(t, json.Unmarshal([]byte(line), &entry), line)
			}
		})
	}
}

func TestInitBadLevel(t *testing.T) {
	err := logger.Init(logger.Log{LogLevel: "loud", ServiceName: "portal", AppName: "portal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loglevel loud is not supported")
}

func TestInitRollingFiles(t *testing.T) {
	dir := t.TempDir()

	err := logger.Init(logger.Log{
		LogLevel:    "info",
		ServiceName: "portal",
		AppName:     "portal",
		File: logger.LogFile{
			Enabled:  true,
			Path:     dir,
			ErrorLog: "error.log",
			InfoLog:  "info.log",
			TraceLog: "trace.log",
			WarnLog:  "warn.log",
		},
	})
	require.NoError(t, err)

	log.Info().Msg("barangay assembly scheduled")
	log.Error().Msg("upload failed")

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "barangay assembly scheduled")
	assert.NotContains(t, string(info), "upload failed")

	errs, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "upload failed")
}

func TestCloseWithoutShipper(t *testing.T) {
	assert.NoError(t, logger.Close())
}

func captureInit(t *testing.T, cfg logger.Log) (string, error) {
	t.Helper()

	stdout, stderr := os.Stdout, os.Stderr

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w
	os.Stderr = w

	initErr := logger.Init(cfg)
	if initErr == nil {
		log.Info().Msg("info line")
		log.Error().Err(errors.New("boom")).Msg("error line") //nolint:err113
		log.Trace().Msg("trace line")
	}

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer

		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC, initErr
}

func TestLevelWriter(t *testing.T) {
	var errs, info, trace, warn bytes.Buffer

	lw := logger.LevelWriter{Error: &errs, Info: &info, Trace: &trace, Warn: &warn}

	tests := []struct {
		level zerolog.Level
		want  *bytes.Buffer
	}{
		{level: zerolog.TraceLevel, want: &trace},
		{level: zerolog.DebugLevel, want: &info},
		{level: zerolog.InfoLevel, want: &info},
		{level: zerolog.WarnLevel, want: &warn},
		{level: zerolog.ErrorLevel, want: &errs},
		{level: zerolog.FatalLevel, want: &errs},
		{level: zerolog.PanicLevel, want: &errs},
		{level: zerolog.NoLevel, want: &info},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			for _, b := range []*bytes.Buffer{&errs, &info, &trace, &warn} {
				b.Reset()
			}

			n, err := lw.WriteLevel(tt.level, []byte("line"))
			require.NoError(t, err)
			assert.Equal(t, 4, n)
			assert.Equal(t, "line", tt.want.String())
			assert.Equal(t, 4, errs.Len()+info.Len()+trace.Len()+warn.Len())
		})
	}

	t.Run("disabled", func(t *testing.T) {
		info.Reset()

		n, err := lw.WriteLevel(zerolog.Disabled, []byte("line"))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Zero(t, info.Len())
	})
}
