package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordResolution records one avatar resolution. rule is the extraction
	// rule that matched, or empty on a miss.
	RecordResolution(rule string, found bool)

	// RecordImageFetch records an image fetch attempt.
	RecordImageFetch(success bool)

	// RecordPlaceholderServed records a transparent placeholder response.
	RecordPlaceholderServed()

	// RecordCacheLookup records a resolution cache hit or miss.
	RecordCacheLookup(hit bool)

	// RecordGateUnlock records an unlock attempt.
	RecordGateUnlock(success bool)
}
