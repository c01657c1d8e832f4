// Package prometheus exposes observer metrics through a Prometheus registry.
package prometheus

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-rdstation/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels every series carries. Tags outside this set are dropped and
// missing ones are reported empty.
var Labels = []string{"operation", "status", "resource", "method", "status_code"}

type Config struct {
	Namespace string
	Buckets   []float64
}

// Recorder implements core.MetricsRecorder. Observer names such as
// "rdstation.node_execute.total" become "rdstation_node_execute_total".
type Recorder struct {
	registry *prom.Registry
	config   Config

	mu         sync.Mutex
	counters   map[string]*prom.CounterVec
	histograms map[string]*prom.HistogramVec
}

func NewRecorder(registry *prom.Registry, config Config) *Recorder {
	if registry == nil {
		registry = prom.NewRegistry()
	}
	if len(config.Buckets) == 0 {
		config.Buckets = []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	return &Recorder{
		registry:   registry,
		config:     config,
		counters:   map[string]*prom.CounterVec{},
		histograms: map[string]*prom.HistogramVec{},
	}
}

func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	counter := r.counter(metricName(name))
	if counter == nil {
		return
	}
	counter.With(labelValues(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	histogram := r.histogram(metricName(name))
	if histogram == nil {
		return
	}
	histogram.With(labelValues(tags)).Observe(value)
}

func (r *Recorder) counter(name string) *prom.CounterVec {
	if r == nil || name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.counters[name]; ok {
		return existing
	}
	vec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: r.config.Namespace,
		Name:      name,
		Help:      "rdstation counter " + name,
	}, Labels)
	if err := r.registry.Register(vec); err != nil {
		if already, ok := err.(prom.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prom.CounterVec); ok {
				r.counters[name] = existing
				return existing
			}
		}
		return nil
	}
	r.counters[name] = vec
	return vec
}

func (r *Recorder) histogram(name string) *prom.HistogramVec {
	if r == nil || name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.histograms[name]; ok {
		return existing
	}
	vec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: r.config.Namespace,
		Name:      name,
		Help:      "rdstation histogram " + name,
		Buckets:   r.config.Buckets,
	}, Labels)
	if err := r.registry.Register(vec); err != nil {
		if already, ok := err.(prom.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prom.HistogramVec); ok {
				r.histograms[name] = existing
				return existing
			}
		}
		return nil
	}
	r.histograms[name] = vec
	return vec
}

func metricName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func labelValues(tags map[string]string) prom.Labels {
	labels := make(prom.Labels, len(Labels))
	for _, key := range Labels {
		labels[key] = strings.TrimSpace(tags[key])
	}
	return labels
}

var _ core.MetricsRecorder = (*Recorder)(nil)
