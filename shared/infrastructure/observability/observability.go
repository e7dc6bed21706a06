package observability

import (
	"errors"
	"fmt"
	"sync"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/infrastructure/config"
)

var (
	errNoLogger  = errors.New("logger not initialized")
	errNoMetrics = errors.New("metrics not initialized")
)

// hub owns the process-wide logger and metrics and hands out per-component
// children, built once per component name.
type hub struct {
	logger  ports.Logger
	metrics ports.Metrics

	logFields  map[string]interface{}
	metricTags map[string]string

	mu      sync.Mutex
	loggers map[string]ports.Logger
	meters  map[string]ports.Metrics
}

// CreateObservability builds the logger and metrics named by cfg.Adapters.
func CreateObservability(cfg *config.Config) (ports.Observability, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	logger, metrics, err := createObservability(cfg)
	if err != nil {
		return nil, fmt.Errorf("create observability: %w", err)
	}
	return New(cfg, logger, metrics), nil
}

// New wraps components the caller already built. Scoped loggers carry
// service, version, env and component; scoped metrics only service and
// component, keeping Prometheus label sets small.
func New(cfg *config.Config, logger ports.Logger, metrics ports.Metrics) ports.Observability {
	return &hub{
		logger:  logger,
		metrics: metrics,
		logFields: map[string]interface{}{
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"env":     cfg.Environment,
		},
		metricTags: map[string]string{"service": cfg.ServiceName},
		loggers:    make(map[string]ports.Logger),
		meters:     make(map[string]ports.Metrics),
	}
}

func (h *hub) Components() (ports.Logger, ports.Metrics, error) {
	if h.logger == nil {
		return nil, nil, errNoLogger
	}
	if h.metrics == nil {
		return nil, nil, errNoMetrics
	}
	return h.logger, h.metrics, nil
}

func (h *hub) ComponentsScoped(component string) (ports.Logger, ports.Metrics, error) {
	logger, err := h.LoggerScoped(component)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := h.MetricsScoped(component)
	if err != nil {
		return nil, nil, err
	}
	return logger, metrics, nil
}

func (h *hub) Logger() (ports.Logger, error) {
	if h.logger == nil {
		return nil, errNoLogger
	}
	return h.logger, nil
}

func (h *hub) LoggerScoped(component string) (ports.Logger, error) {
	if h.logger == nil {
		return nil, errNoLogger
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.loggers[component]; ok {
		return l, nil
	}

	fields := make(map[string]interface{}, len(h.logFields)+1)
	for k, v := range h.logFields {
		fields[k] = v
	}
	fields["component"] = component

	l := h.logger.WithFields(fields)
	h.loggers[component] = l
	return l, nil
}

func (h *hub) Metrics() (ports.Metrics, error) {
	if h.metrics == nil {
		return nil, errNoMetrics
	}
	return h.metrics, nil
}

func (h *hub) MetricsScoped(component string) (ports.Metrics, error) {
	if h.metrics == nil {
		return nil, errNoMetrics
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.meters[component]; ok {
		return m, nil
	}

	m := h.metrics.WithTags(map[string]string{
		"service":   h.metricTags["service"],
		"component": component,
	})
	h.meters[component] = m
	return m, nil
}
