package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provider identifies a metric reader.
type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "otlp"
)

// Config holds the meter provider setup.
type Config struct {
	ServiceName string
	Provider    []ProviderCfg
}

// ProviderCfg configures one reader.
type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
	// Registry receives Prometheus collectors. Nil means the default registry.
	Registry *prometheus.Registry
}

type OptionFn func(config Config) Config

// WithServiceName sets the service.name resource attribute.
func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName
		return config
	}
}

// WithPrometheus adds a pull reader registered on reg.
func WithPrometheus(reg *prometheus.Registry) OptionFn {
	return WithProviderConfig(ProviderCfg{Provider: PrometheusProvider, Registry: reg})
}

// WithOtelCollector adds a periodic OTLP gRPC push reader.
func WithOtelCollector(url string, headers map[string]string, insecure bool) OptionFn {
	return WithProviderConfig(ProviderCfg{
		Provider: OtelCollector,
		Endpoint: url,
		Headers:  headers,
		Insecure: insecure,
	})
}

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)
		return config
	}
}
