package observability

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/cat-wrangler/pkg/config"
	"github.com/raywall/cat-wrangler/pkg/metrics"
)

// NoopProvider é um placeholder para quando métricas estão desabilitadas.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Histogram(name string, value float64, tags []string) error { return nil }

// DatadogProvider adapta a lib oficial do Datadog para nossa interface.
type DatadogProvider struct {
	client statsd.ClientInterface
}

func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

// Flush envia o buffer do statsd. Deve ser chamado ao final de cada invocação
// Lambda, já que o ambiente é congelado entre eventos.
func (d *DatadogProvider) Flush() error {
	return d.client.Flush()
}

// Flush chama Flush no provider quando ele suporta.
func Flush(p metrics.Provider) error {
	if f, ok := p.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// SetupMetrics inicializa o provedor correto baseado na configuração.
func SetupMetrics(cfg config.MetricsConf, tags ...string) (metrics.Provider, error) {
	if !cfg.Datadog.Enabled {
		return &NoopProvider{}, nil
	}

	// Configurações do cliente StatsD
	opts := []statsd.Option{
		statsd.WithNamespace(cfg.Datadog.Namespace),
	}
	if len(tags) > 0 {
		opts = append(opts, statsd.WithTags(tags))
	}

	client, err := statsd.New(cfg.Datadog.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no datadog statsd: %w", err)
	}

	return &DatadogProvider{client: client}, nil
}
