// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for pipeline monitoring.
// Keeps the latest value per key and mirrors numeric values into a
// VictoriaMetrics set for Prometheus exposition.

package control

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time

	prefix string
	set    *metrics.Set
}

// NewMetricsRegistry creates an empty registry exporting under "tickpipe_".
func NewMetricsRegistry() *MetricsRegistry {
	return NewMetricsRegistryWithPrefix("tickpipe")
}

// NewMetricsRegistryWithPrefix creates an empty registry with a custom
// exposition prefix.
func NewMetricsRegistryWithPrefix(prefix string) *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
		prefix:  prefix,
		set:     metrics.NewSet(),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()

	if f, ok := toFloat(value); ok {
		mr.set.GetOrCreateGauge(mr.exportName(key), nil).Set(f)
	}
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// UpdatedAt returns the time of the last Set.
func (mr *MetricsRegistry) UpdatedAt() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// WritePrometheus writes all numeric metrics in Prometheus text format.
func (mr *MetricsRegistry) WritePrometheus(w io.Writer) {
	mr.set.WritePrometheus(w)
}

// exportName maps "ring.len" to "<prefix>_ring_len".
func (mr *MetricsRegistry) exportName(key string) string {
	var b strings.Builder
	b.Grow(len(mr.prefix) + 1 + len(key))
	if mr.prefix != "" {
		b.WriteString(mr.prefix)
		b.WriteByte('_')
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
