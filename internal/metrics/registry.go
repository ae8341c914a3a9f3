package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	metrics  *Metrics
)

// Init creates the process-wide registry and metric set. Calling it more
// than once is a no-op; the first call wins.
func Init() *Metrics {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return metrics
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	metrics = New(registry)
	return metrics
}

// IsEnabled reports whether Init has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if Init has not
// been called.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Get returns the process-wide metric set, or nil if Init has not been
// called. The connection and acceptor check for nil before recording, so
// callers can pass this straight through to constructors that accept
// *Metrics.
func Get() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return metrics
}
