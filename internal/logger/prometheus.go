package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var logStatements = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "log_statements_total",
		Help: "Number of log statements written by the portal, by service and level.",
	},
	[]string{"service", "level"},
)

// PrometheusHook counts every leveled log statement under its service label.
type PrometheusHook struct {
	service string
}

// NewPrometheusHook returns a hook counting statements for service.
func NewPrometheusHook(service string) PrometheusHook {
	return PrometheusHook{service: service}
}

// Run implements zerolog.Hook.
func (h PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	logStatements.WithLabelValues(h.service, level.String()).Inc()
}
