package ports

// Logger takes alternating key/value pairs after the message. An error value
// is written as err.Error().
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	WithFields(fields map[string]interface{}) Logger
}

// Metrics is the counter/histogram/gauge sink. A metric name must always be
// recorded with the same set of tag keys: the Prometheus adapter registers
// one vector per name.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string)
	RecordHistogram(name string, value float64, tags map[string]string)
	RecordGauge(name string, value float64, tags map[string]string)
	WithTags(tags map[string]string) Metrics
}

// Observability hands each component its own logger and metrics. Scoped
// variants add service and component fields; the unscoped ones return the
// process-wide roots.
type Observability interface {
	ComponentsScoped(component string) (Logger, Metrics, error)
	LoggerScoped(component string) (Logger, error)
	MetricsScoped(component string) (Metrics, error)

	Components() (Logger, Metrics, error)
	Logger() (Logger, error)
	Metrics() (Metrics, error)
}
