package metrics

import (
	"fmt"

	"github.com/cpipredict/cpi-predictor/core/factory"
)

// sinks maps the type written under metrics.sinks[].type to a constructor.
// infra/metrics registers the nop, prometheus, influx and mqtt sinks.
var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink constructor under name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink types in sorted order.
func SinkTypes() []string { return sinks.Types() }

// NewMetricsSink builds the sink that receives prediction events. No configs
// yield a NopSink and several are fanned out through a MultiSink. When one
// sink fails to build, the ones already built are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := sinks.Create(cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics sink %q: %w", cfgs[0].Type, err)
		}
		return s, nil
	}

	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			_ = NewMultiSink(built...).Close()
			return nil, fmt.Errorf("metrics sink %d (%q): %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	return NewMultiSink(built...), nil
}
