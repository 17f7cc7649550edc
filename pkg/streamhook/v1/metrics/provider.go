package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider gives consumers access to the registry holding streamhook
// metrics, so they can expose it however they like.
type RegistryProvider interface {
	Registry() *prometheus.Registry
}
