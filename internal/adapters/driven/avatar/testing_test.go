//go:build unit

package avatar

import "sync"

// recordingMetrics counts calls made through ports.MetricsRecorder.
type recordingMetrics struct {
	mu           sync.Mutex
	resolutions  map[string]int
	misses       int
	fetchOK      int
	fetchFailed  int
	cacheHits    int
	cacheMisses  int
	placeholders int
	unlocks      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{resolutions: make(map[string]int)}
}

func (m *recordingMetrics) RecordResolution(rule string, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !found {
		m.misses++
		return
	}
	m.resolutions[rule]++
}

func (m *recordingMetrics) RecordImageFetch(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.fetchOK++
	} else {
		m.fetchFailed++
	}
}

func (m *recordingMetrics) RecordPlaceholderServed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeholders++
}

func (m *recordingMetrics) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *recordingMetrics) RecordGateUnlock(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocks++
}
