package metrics

import (
	"context"
	"sync"

	coremetrics "github.com/cpipredict/cpi-predictor/core/metrics"
	"github.com/cpipredict/cpi-predictor/infra/logger"
	"github.com/cpipredict/cpi-predictor/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records prediction and
// rejection events on the sink. It stops when the context is canceled or the
// bus is closed; the returned WaitGroup is done once the collector exits.
func StartEventCollector(ctx context.Context, bus eventbus.Bus[coremetrics.Event], sink coremetrics.MetricsSink, log logger.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup
	if bus == nil || sink == nil {
		return &wg
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case coremetrics.PredictionEvent:
					if err := sink.RecordPrediction(e); err != nil {
						log.Warnf("record prediction %s: %v", e.ID, err)
					}
				case coremetrics.RejectionEvent:
					if r, ok := sink.(coremetrics.RejectionRecorder); ok {
						if err := r.RecordRejection(e); err != nil {
							log.Warnf("record rejection %s: %v", e.Reason, err)
						}
					}
				}
			}
		}
	}()
	return &wg
}
