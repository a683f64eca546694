package goadssec

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics defines the interface for collecting operational metrics.
// Implementations can export metrics to various backends (Prometheus, StatsD, etc.).
type Metrics interface {
	// Connection metrics
	ConnectionAttempts()
	ConnectionSuccesses()
	ConnectionFailures()
	ConnectionActive(active bool)

	// Secure handshake metrics
	HandshakeStarted(mode string)
	HandshakeCompleted(mode string, success bool)

	// Operation metrics
	OperationStarted(operation string)
	OperationCompleted(operation string, duration time.Duration, err error)

	// Data transfer metrics
	BytesSent(bytes int64)
	BytesReceived(bytes int64)

	// Error metrics
	ErrorOccurred(category ErrorCategory, operation string)
}

// noopMetrics implements Metrics with no-op operations for minimal overhead.
type noopMetrics struct{}

func (n *noopMetrics) ConnectionAttempts()                                                    {}
func (n *noopMetrics) ConnectionSuccesses()                                                   {}
func (n *noopMetrics) ConnectionFailures()                                                    {}
func (n *noopMetrics) ConnectionActive(active bool)                                           {}
func (n *noopMetrics) HandshakeStarted(mode string)                                           {}
func (n *noopMetrics) HandshakeCompleted(mode string, success bool)                           {}
func (n *noopMetrics) OperationStarted(operation string)                                      {}
func (n *noopMetrics) OperationCompleted(operation string, duration time.Duration, err error) {}
func (n *noopMetrics) BytesSent(bytes int64)                                                  {}
func (n *noopMetrics) BytesReceived(bytes int64)                                              {}
func (n *noopMetrics) ErrorOccurred(category ErrorCategory, operation string)                 {}

var (
	// DefaultMetrics is a no-op metrics collector to minimize overhead when metrics are not configured.
	DefaultMetrics Metrics = &noopMetrics{}
)

// InMemoryMetrics provides a simple in-memory metrics collector for testing and debugging.
type InMemoryMetrics struct {
	mu sync.RWMutex

	// Connection metrics
	ConnectionAttemptsCount  atomic.Int64
	ConnectionSuccessesCount atomic.Int64
	ConnectionFailuresCount  atomic.Int64
	ConnectionActiveState    atomic.Bool

	// Handshake metrics
	HandshakesStartedCount map[string]*atomic.Int64
	HandshakesSuccessCount map[string]*atomic.Int64
	HandshakesFailureCount map[string]*atomic.Int64

	// Operation metrics
	OperationCounts    map[string]*atomic.Int64
	OperationDurations map[string][]time.Duration
	OperationErrors    map[string]*atomic.Int64

	// Data transfer metrics
	BytesSentCount     atomic.Int64
	BytesReceivedCount atomic.Int64

	// Error metrics
	ErrorsByCategory  map[ErrorCategory]*atomic.Int64
	ErrorsByOperation map[string]*atomic.Int64
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		HandshakesStartedCount: make(map[string]*atomic.Int64),
		HandshakesSuccessCount: make(map[string]*atomic.Int64),
		HandshakesFailureCount: make(map[string]*atomic.Int64),
		OperationCounts:        make(map[string]*atomic.Int64),
		OperationDurations:     make(map[string][]time.Duration),
		OperationErrors:        make(map[string]*atomic.Int64),
		ErrorsByCategory:       make(map[ErrorCategory]*atomic.Int64),
		ErrorsByOperation:      make(map[string]*atomic.Int64),
	}
}

func (m *InMemoryMetrics) ConnectionAttempts() {
	m.ConnectionAttemptsCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionSuccesses() {
	m.ConnectionSuccessesCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionFailures() {
	m.ConnectionFailuresCount.Add(1)
}

func (m *InMemoryMetrics) ConnectionActive(active bool) {
	m.ConnectionActiveState.Store(active)
}

func (m *InMemoryMetrics) HandshakeStarted(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bump(m.HandshakesStartedCount, mode)
}

func (m *InMemoryMetrics) HandshakeCompleted(mode string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		bump(m.HandshakesSuccessCount, mode)
	} else {
		bump(m.HandshakesFailureCount, mode)
	}
}

func (m *InMemoryMetrics) OperationStarted(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bump(m.OperationCounts, operation)
}

func (m *InMemoryMetrics) OperationCompleted(operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OperationDurations[operation] = append(m.OperationDurations[operation], duration)

	if err != nil {
		bump(m.OperationErrors, operation)
	}
}

func (m *InMemoryMetrics) BytesSent(bytes int64) {
	m.BytesSentCount.Add(bytes)
}

func (m *InMemoryMetrics) BytesReceived(bytes int64) {
	m.BytesReceivedCount.Add(bytes)
}

func (m *InMemoryMetrics) ErrorOccurred(category ErrorCategory, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ErrorsByCategory[category]; !exists {
		m.ErrorsByCategory[category] = &atomic.Int64{}
	}
	m.ErrorsByCategory[category].Add(1)

	bump(m.ErrorsByOperation, operation)
}

func bump[K comparable](counts map[K]*atomic.Int64, key K) {
	if _, exists := counts[key]; !exists {
		counts[key] = &atomic.Int64{}
	}
	counts[key].Add(1)
}

// Snapshot returns a copy of current metrics for reporting.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		ConnectionAttempts:  m.ConnectionAttemptsCount.Load(),
		ConnectionSuccesses: m.ConnectionSuccessesCount.Load(),
		ConnectionFailures:  m.ConnectionFailuresCount.Load(),
		ConnectionActive:    m.ConnectionActiveState.Load(),
		BytesSent:           m.BytesSentCount.Load(),
		BytesReceived:       m.BytesReceivedCount.Load(),
		HandshakesStarted:   flatten(m.HandshakesStartedCount),
		HandshakesSuccess:   flatten(m.HandshakesSuccessCount),
		HandshakesFailure:   flatten(m.HandshakesFailureCount),
		OperationCounts:     flatten(m.OperationCounts),
		OperationErrors:     flatten(m.OperationErrors),
		ErrorsByCategory:    flatten(m.ErrorsByCategory),
		ErrorsByOperation:   flatten(m.ErrorsByOperation),
	}
	return snapshot
}

func flatten[K comparable](counts map[K]*atomic.Int64) map[K]int64 {
	out := make(map[K]int64, len(counts))
	for k, counter := range counts {
		out[k] = counter.Load()
	}
	return out
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	ConnectionAttempts  int64
	ConnectionSuccesses int64
	ConnectionFailures  int64
	ConnectionActive    bool
	BytesSent           int64
	BytesReceived       int64
	HandshakesStarted   map[string]int64
	HandshakesSuccess   map[string]int64
	HandshakesFailure   map[string]int64
	OperationCounts     map[string]int64
	OperationErrors     map[string]int64
	ErrorsByCategory    map[ErrorCategory]int64
	ErrorsByOperation   map[string]int64
}

// WithMetrics returns a new option that sets the metrics collector for the client.
func WithMetrics(metrics Metrics) Option {
	return func(c *clientConfig) error {
		c.metrics = metrics
		return nil
	}
}
