package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	shmetrics "github.com/streamhook/streamhook/pkg/streamhook/v1/metrics"
)

// PrometheusRegistryProvider implements RegistryProvider with a private
// Prometheus registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates a new metrics provider backed by Prometheus.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
	}
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

var _ shmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
