// Package prometheus adapts client_golang to ports.Metrics. Collectors are
// created lazily the first time a metric name is observed; the label set is
// fixed from the tag keys of that first observation.
package prometheus

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mavencrawler/shared/application/ports"
)

type registry struct {
	mu         sync.Mutex
	reg        prometheus.Registerer
	namespace  string
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	labels     map[string][]string
}

type Metrics struct {
	r    *registry
	tags map[string]string
}

// NewMetrics registers collectors on reg under namespace. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Metrics{
		r: &registry{
			reg:        reg,
			namespace:  sanitize(namespace),
			counters:   make(map[string]*prometheus.CounterVec),
			histograms: make(map[string]*prometheus.HistogramVec),
			gauges:     make(map[string]*prometheus.GaugeVec),
			labels:     make(map[string][]string),
		},
		tags: map[string]string{},
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	all := m.merge(tags)
	vec := m.r.counter(sanitize(name)+"_total", all)
	if vec == nil {
		return
	}
	vec.With(m.r.values(sanitize(name)+"_total", all)).Inc()
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.merge(tags)
	vec := m.r.histogram(sanitize(name), all)
	if vec == nil {
		return
	}
	vec.With(m.r.values(sanitize(name), all)).Observe(value)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.merge(tags)
	vec := m.r.gauge(sanitize(name), all)
	if vec == nil {
		return
	}
	vec.With(m.r.values(sanitize(name), all)).Set(value)
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{r: m.r, tags: m.merge(tags)}
}

func (m *Metrics) merge(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[sanitize(k)] = v
	}
	for k, v := range tags {
		all[sanitize(k)] = v
	}
	return all
}

func (r *registry) labelNames(name string, tags map[string]string) []string {
	if names, ok := r.labels[name]; ok {
		return names
	}
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	r.labels[name] = names
	return names
}

// values projects tags onto the label set registered for name. Tags outside
// the set are dropped and missing labels are empty.
func (r *registry) values(name string, tags map[string]string) prometheus.Labels {
	r.mu.Lock()
	names := r.labels[name]
	r.mu.Unlock()

	labels := make(prometheus.Labels, len(names))
	for _, n := range names {
		labels[n] = tags[n]
	}
	return labels
}

func (r *registry) counter(name string, tags map[string]string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vec, ok := r.counters[name]; ok {
		return vec
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Counter " + name,
	}, r.labelNames(name, tags))
	if err := r.reg.Register(vec); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		vec = are.ExistingCollector.(*prometheus.CounterVec)
	}
	r.counters[name] = vec
	return vec
}

func (r *registry) histogram(name string, tags map[string]string) *prometheus.HistogramVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vec, ok := r.histograms[name]; ok {
		return vec
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Histogram " + name,
		Buckets:   bucketsFor(name),
	}, r.labelNames(name, tags))
	if err := r.reg.Register(vec); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		vec = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	r.histograms[name] = vec
	return vec
}

func (r *registry) gauge(name string, tags map[string]string) *prometheus.GaugeVec {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vec, ok := r.gauges[name]; ok {
		return vec
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Gauge " + name,
	}, r.labelNames(name, tags))
	if err := r.reg.Register(vec); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil
		}
		vec = are.ExistingCollector.(*prometheus.GaugeVec)
	}
	r.gauges[name] = vec
	return vec
}

// bucketsFor picks byte-sized buckets for *_bytes histograms and
// millisecond buckets for everything else.
func bucketsFor(name string) []float64 {
	if strings.HasSuffix(name, "bytes") {
		return []float64{1024, 10240, 102400, 1048576, 10485760, 104857600, 1073741824}
	}
	return []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}
}

// sanitize maps dotted metric names such as "queue.publish.duration" to
// valid Prometheus identifiers.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
