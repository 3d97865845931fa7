package observability

import (
	"go.opentelemetry.io/otel"

	"bridgesim/server/internal/telemetry"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnableMetrics bool
	EnablePprof   bool
}

// Metrics returns the server instruments. When metrics are enabled they are
// backed by an SDK provider, which is also installed as the global otel
// meter provider; otherwise the instruments are no-ops and the provider is
// nil.
func (c Config) Metrics() (*telemetry.Metrics, *telemetry.Provider, error) {
	if !c.EnableMetrics {
		return telemetry.Nop(), nil, nil
	}
	provider := telemetry.NewProvider()
	metrics, err := provider.Metrics()
	if err != nil {
		return nil, nil, err
	}
	otel.SetMeterProvider(provider.MeterProvider())
	return metrics, provider, nil
}
