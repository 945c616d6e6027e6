package tracers

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-metrics"

	"github.com/sarchlab/stackroute/link"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/routing"
	"github.com/sarchlab/stackroute/sim/hooking"
)

// MetricsHook turns hook events into go-metrics counters, gauges and samples.
type MetricsHook struct {
	sink   metrics.MetricSink
	labels []metrics.Label
}

// NewMetricsHook creates a MetricsHook. A nil sink means the global
// go-metrics sink.
func NewMetricsHook(
	sink metrics.MetricSink,
	labels ...metrics.Label,
) *MetricsHook {
	if sink == nil {
		sink = metrics.Default()
	}

	return &MetricsHook{sink: sink, labels: labels}
}

// Func records the event.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	mLabels := append(h.withLabels(), LabelDomain.M(domainName(ctx)))

	switch ctx.Pos {
	case node.HookPosConfSent:
		h.sink.IncrCounterWithLabels(MetricConfSentCount, 1,
			append(mLabels, LabelPeer.M(fmt.Sprint(ctx.Detail))))
	case node.HookPosConfRecv:
		h.sink.IncrCounterWithLabels(MetricConfRecvCount, 1,
			append(mLabels, LabelPeer.M(fmt.Sprint(ctx.Detail))))
	case node.HookPosRouteAdded:
		h.sink.IncrCounterWithLabels(MetricRouteAddedCount, 1, mLabels)

		if row, ok := ctx.Item.(routing.Row); ok {
			h.sink.AddSampleWithLabels(MetricRouteCost, float32(row.Cost), mLabels)
		}
	case node.HookPosMsgRouted:
		h.sink.IncrCounterWithLabels(MetricMsgRoutedCount, 1, mLabels)
	case node.HookPosMsgDelivered:
		h.sink.IncrCounterWithLabels(MetricMsgDeliveredCount, 1, mLabels)
	case node.HookPosMsgDropped:
		h.sink.IncrCounterWithLabels(MetricMsgDroppedCount, 1,
			append(mLabels, LabelReason.M(fmt.Sprint(ctx.Detail))))
	case network.HookPosMsgReleased:
		h.sink.IncrCounterWithLabels(MetricMsgReleasedCount, 1, mLabels)
	case network.HookPosConverged:
		if d, ok := ctx.Detail.(time.Duration); ok {
			h.sink.SetGaugeWithLabels(MetricConvergenceSeconds,
				float32(d.Seconds()), mLabels)
		}
	case link.HookPosLinkPush, link.HookPosLinkPop:
		if l, ok := ctx.Domain.(*link.Link); ok {
			h.sink.SetGaugeWithLabels(MetricLinkQueueLength,
				float32(l.Len()), mLabels)
		}
	default:
		h.sink.IncrCounterWithLabels(MetricHookCount, 1,
			append(mLabels, LabelPos.M(posName(ctx))))
	}
}

func (h *MetricsHook) withLabels() []metrics.Label {
	mLabels := make([]metrics.Label, len(h.labels), len(h.labels)+2)
	copy(mLabels, h.labels)

	return mLabels
}
