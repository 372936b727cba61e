package runtime

import (
	"strings"

	"dustchain/core/events"
	"dustchain/observability"
	"dustchain/observability/metrics"
)

// metricsObserver counts committed events per module.
type metricsObserver struct{}

func (metricsObserver) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	kind := evt.EventType()
	if strings.HasPrefix(kind, "bank.") {
		observability.Events().RecordBankEvent(kind)
		return
	}
	metrics.ForEvent(kind).RecordEvent(kind)
}
