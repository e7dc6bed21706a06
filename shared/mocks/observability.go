package mocks

import (
	"github.com/stretchr/testify/mock"

	"mavencrawler/shared/application/ports"
)

// Logger records calls; fields arrive as a single []interface{} argument.
type Logger struct {
	mock.Mock
}

func (m *Logger) Info(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *Logger) Error(msg string, fields ...interface{}) {
	m.Called(msg, fields)
}

func (m *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	args := m.Called(fields)
	if logger, ok := args.Get(0).(ports.Logger); ok {
		return logger
	}
	return m
}

type Metrics struct {
	mock.Mock
}

func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.Called(name, tags)
}

func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	m.Called(name, value, tags)
}

func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	args := m.Called(tags)
	if metrics, ok := args.Get(0).(ports.Metrics); ok {
		return metrics
	}
	return m
}

// Observability hands out fixed components.
type Observability struct {
	Log ports.Logger
	Met ports.Metrics
}

func (o *Observability) Components() (ports.Logger, ports.Metrics, error) {
	return o.Log, o.Met, nil
}

func (o *Observability) ComponentsScoped(string) (ports.Logger, ports.Metrics, error) {
	return o.Log, o.Met, nil
}

func (o *Observability) Logger() (ports.Logger, error)               { return o.Log, nil }
func (o *Observability) LoggerScoped(string) (ports.Logger, error)   { return o.Log, nil }
func (o *Observability) Metrics() (ports.Metrics, error)             { return o.Met, nil }
func (o *Observability) MetricsScoped(string) (ports.Metrics, error) { return o.Met, nil }
