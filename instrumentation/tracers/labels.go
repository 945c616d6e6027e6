package tracers

import (
	"github.com/hashicorp/go-metrics"

	"github.com/sarchlab/stackroute/sim/hooking"
	"github.com/sarchlab/stackroute/sim/naming"
)

// Metric keys emitted by MetricsHook.
var (
	MetricConfSentCount      = []string{"stackroute", "conf", "sent", "count"}
	MetricConfRecvCount      = []string{"stackroute", "conf", "received", "count"}
	MetricRouteAddedCount    = []string{"stackroute", "route", "added", "count"}
	MetricRouteCost          = []string{"stackroute", "route", "cost"}
	MetricMsgRoutedCount     = []string{"stackroute", "msg", "routed", "count"}
	MetricMsgDeliveredCount  = []string{"stackroute", "msg", "delivered", "count"}
	MetricMsgDroppedCount    = []string{"stackroute", "msg", "dropped", "count"}
	MetricMsgReleasedCount   = []string{"stackroute", "msg", "released", "count"}
	MetricLinkQueueLength    = []string{"stackroute", "link", "queue", "length"}
	MetricConvergenceSeconds = []string{"stackroute", "convergence", "seconds"}
	MetricHookCount          = []string{"stackroute", "hook", "count"}
)

// TelemetryLabel is the name of a metric label or log field.
type TelemetryLabel string

// Labels attached to metrics.
var (
	LabelDomain TelemetryLabel = "domain"
	LabelPos    TelemetryLabel = "pos"
	LabelReason TelemetryLabel = "reason"
	LabelPeer   TelemetryLabel = "peer"
)

// M builds a metric label.
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func domainName(ctx hooking.HookCtx) string {
	if named, ok := ctx.Domain.(naming.Named); ok {
		return named.Name()
	}

	return "unknown"
}

func posName(ctx hooking.HookCtx) string {
	if ctx.Pos == nil {
		return "unknown"
	}

	return ctx.Pos.Name
}
