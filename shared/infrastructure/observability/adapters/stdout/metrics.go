package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"mavencrawler/shared/application/ports"
)

// store is shared between a Metrics and everything derived with WithTags.
type store struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// Metrics implements ports.Metrics by keeping values in memory and logging
// every observation as a [METRIC] line.
type Metrics struct {
	tags   map[string]string
	logger *log.Logger
	json   bool
	store  *store
}

func NewMetrics(jsonFormat bool) ports.Metrics {
	return NewMetricsTo(os.Stdout, jsonFormat)
}

func NewMetricsTo(w io.Writer, jsonFormat bool) *Metrics {
	return &Metrics{
		tags:   make(map[string]string),
		logger: log.New(w, "", 0),
		json:   jsonFormat,
		store: &store{
			counters:   make(map[string]int64),
			histograms: make(map[string][]float64),
			gauges:     make(map[string]float64),
		},
	}
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	all := m.combineTags(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.counters[key]++
	value := m.store.counters[key]
	m.store.mu.Unlock()

	m.emit("COUNTER", name, float64(value), all, nil)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	all := m.combineTags(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.histograms[key] = append(m.store.histograms[key], value)
	stats := calculateStats(m.store.histograms[key])
	m.store.mu.Unlock()

	m.emit("HISTOGRAM", name, value, all, &stats)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	all := m.combineTags(tags)
	key := buildKey(name, all)

	m.store.mu.Lock()
	m.store.gauges[key] = value
	m.store.mu.Unlock()

	m.emit("GAUGE", name, value, all, nil)
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		tags:   m.combineTags(tags),
		logger: m.logger,
		json:   m.json,
		store:  m.store,
	}
}

// GetCounter returns the current value of a counter, including this
// instance's tags.
func (m *Metrics) GetCounter(name string, tags map[string]string) int64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.counters[buildKey(name, m.combineTags(tags))]
}

func (m *Metrics) GetHistogram(name string, tags map[string]string) []float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	values := m.store.histograms[buildKey(name, m.combineTags(tags))]
	result := make([]float64, len(values))
	copy(result, values)
	return result
}

func (m *Metrics) GetGauge(name string, tags map[string]string) float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.gauges[buildKey(name, m.combineTags(tags))]
}

func (m *Metrics) combineTags(tags map[string]string) map[string]string {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[k] = v
	}
	for k, v := range tags {
		all[k] = v
	}
	return all
}

func sortedPairs(tags map[string]string, sep string) []string {
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, k+sep+v)
	}
	sort.Strings(pairs)
	return pairs
}

// buildKey renders name{k:v,...} with tags in sorted order.
func buildKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	return fmt.Sprintf("%s{%s}", name, strings.Join(sortedPairs(tags, ":"), ","))
}

func (m *Metrics) emit(kind, name string, value float64, tags map[string]string, stats *histogramStats) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if m.json {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"type":      "metric",
			"metric":    kind,
			"name":      name,
			"value":     value,
			"tags":      tags,
		}
		if stats != nil {
			entry["stats"] = map[string]interface{}{
				"count": stats.count,
				"min":   stats.min,
				"max":   stats.max,
				"avg":   stats.avg,
			}
		}
		b, err := json.Marshal(entry)
		if err != nil {
			m.logger.Printf("Failed to marshal metric: %v", err)
			return
		}
		m.logger.Println(string(b))
		return
	}

	tagStr := ""
	if len(tags) > 0 {
		tagStr = " " + strings.Join(sortedPairs(tags, "="), " ")
	}

	if stats != nil {
		m.logger.Printf("%s [METRIC] HISTOGRAM %s=%.2f count=%d min=%.2f max=%.2f avg=%.2f%s",
			timestamp, name, value, stats.count, stats.min, stats.max, stats.avg, tagStr)
		return
	}
	m.logger.Printf("%s [METRIC] %s %s=%.2f%s", timestamp, kind, name, value, tagStr)
}

type histogramStats struct {
	count int
	min   float64
	max   float64
	avg   float64
}

func calculateStats(values []float64) histogramStats {
	if len(values) == 0 {
		return histogramStats{}
	}

	stats := histogramStats{
		count: len(values),
		min:   values[0],
		max:   values[0],
	}

	sum := 0.0
	for _, v := range values {
		sum += v
		if v < stats.min {
			stats.min = v
		}
		if v > stats.max {
			stats.max = v
		}
	}

	stats.avg = sum / float64(len(values))
	return stats
}
