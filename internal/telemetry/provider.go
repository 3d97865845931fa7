package telemetry

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Provider is an SDK meter provider read on demand. Instruments built from
// it accumulate in memory until Collect is called.
type Provider struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// MeterProvider exposes the SDK provider for global registration.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider { return p.provider }

// Metrics builds the server instruments on this provider.
func (p *Provider) Metrics() (*Metrics, error) {
	return New(p.provider.Meter(instrumentationName))
}

// Summary flattens collected metrics by instrument name. Counters are summed
// across attributes, gauges report their latest value and histograms
// contribute "<name>.count" and "<name>.sum".
type Summary map[string]float64

// Collect reads every instrument. A nil Provider yields an empty summary.
func (p *Provider) Collect(ctx context.Context) (Summary, error) {
	summary := Summary{}
	if p == nil {
		return summary, nil
	}
	var data metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &data); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch agg := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range agg.DataPoints {
					total += dp.Value
				}
				summary[m.Name] = float64(total)
			case metricdata.Sum[float64]:
				var total float64
				for _, dp := range agg.DataPoints {
					total += dp.Value
				}
				summary[m.Name] = total
			case metricdata.Gauge[int64]:
				for _, dp := range agg.DataPoints {
					summary[m.Name] = float64(dp.Value)
				}
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range agg.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				summary[m.Name+".count"] = float64(count)
				summary[m.Name+".sum"] = sum
			}
		}
	}
	return summary, nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics shutdown failed: %w", err)
	}
	return nil
}
