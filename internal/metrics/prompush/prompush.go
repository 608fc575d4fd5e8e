// Package prompush implements a metrics.Backend that pushes counters to a
// Prometheus Pushgateway.
//
// Batch jobs cannot be scraped, so the run buffers counters locally and
// pushes the whole registry once at Flush. A push failure is reported to
// the caller for logging but the run has already succeeded by then.
package prompush

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend buffers counters in a private registry and pushes on Flush.
type Backend struct {
	job    string
	pusher *push.Pusher

	mu       sync.Mutex
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
}

// NewBackend creates a backend pushing to the Pushgateway at baseURL under
// the given job name.
func NewBackend(job, baseURL string) (*Backend, error) {
	if strings.TrimSpace(job) == "" {
		return nil, fmt.Errorf("prompush: empty job name")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("prompush: empty pushgateway URL")
	}

	reg := prometheus.NewRegistry()
	return &Backend{
		job:      job,
		pusher:   push.New(baseURL, job).Gatherer(reg),
		registry: reg,
		counters: map[string]prometheus.Counter{},
	}, nil
}

// IncCounter adds value to the counter identified by name and tags. The
// counter is created and registered on first use; tags become constant
// labels, so every call for a given name must use the same tag keys.
func (b *Backend) IncCounter(name string, value float64, tags map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := counterKey(name, tags)
	c, ok := b.counters[key]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        name,
			Help:        "waterdata pipeline counter",
			ConstLabels: prometheus.Labels(tags),
		})
		if err := b.registry.Register(c); err != nil {
			// An inconsistent label set for an existing name. Counting
			// must not fail the run; drop the observation.
			return
		}
		b.counters[key] = c
	}
	c.Add(value)
}

// Flush pushes all buffered counters to the gateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push job %q: %w", b.job, err)
	}
	return nil
}

func counterKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(tags[k])
	}
	return sb.String()
}
