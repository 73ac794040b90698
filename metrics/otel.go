package metrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GaugeInstrumentName is the OpenTelemetry instrument every registry gauge is
// observed through. Each gauge becomes one series keyed by GaugeNameKey.
const GaugeInstrumentName = "serverops.gauge"

// GaugeNameKey is the attribute carrying the registry name of a gauge.
const GaugeNameKey = "gauge.name"

// ErrNilMeter indicates a nil meter was passed to Export.
var ErrNilMeter = errors.New("metrics: meter is nil")

// Export publishes the registry through meter.
//
// Gauges are enumerated at collection time, so gauges registered after
// Export (for example when the server starts later) are still reported.
// Non-numeric values are skipped.
func Export(meter metric.Meter, r *Registry) error {
	if meter == nil {
		return ErrNilMeter
	}

	_, err := meter.Float64ObservableGauge(
		GaugeInstrumentName,
		metric.WithDescription("Current value of a registered server gauge"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			for name, g := range r.Gauges(nil) {
				v, ok := ToFloat64(g.Value())
				if !ok {
					continue
				}
				o.Observe(v, metric.WithAttributes(attribute.String(GaugeNameKey, name)))
			}
			return nil
		}),
	)
	return err
}

// ToFloat64 converts a numeric gauge value for export.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
