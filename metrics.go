package caddyavatarproxy

import (
	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/metrics"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// MetricsRecorder is the port interface for recording metrics.
type MetricsRecorder = ports.MetricsRecorder

type NoopMetricsRecorder = metrics.NoopMetricsRecorder
type PrometheusMetricsRecorder = metrics.PrometheusMetricsRecorder

var (
	NewNoopMetricsRecorder                   = metrics.NewNoopMetricsRecorder
	NewPrometheusMetricsRecorderWithRegistry = metrics.NewPrometheusMetricsRecorderWithRegistry
)
