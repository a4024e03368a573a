package metrics

import (
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordResolution is a no-op.
func (n *NoopMetricsRecorder) RecordResolution(rule string, found bool) {}

// RecordImageFetch is a no-op.
func (n *NoopMetricsRecorder) RecordImageFetch(success bool) {}

// RecordPlaceholderServed is a no-op.
func (n *NoopMetricsRecorder) RecordPlaceholderServed() {}

// RecordCacheLookup is a no-op.
func (n *NoopMetricsRecorder) RecordCacheLookup(hit bool) {}

// RecordGateUnlock is a no-op.
func (n *NoopMetricsRecorder) RecordGateUnlock(success bool) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
