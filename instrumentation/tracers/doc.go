// Package tracers provides hooks that observe a running network. LogHook
// writes events to a logger, MetricsHook exports them to go-metrics,
// PositionCounter counts them and DeliveryTracer measures data messages end
// to end.
//
// Tracers are attached with AcceptHook on routers, links or the network
// itself, before the network starts. They are called from many goroutines at
// once and are safe for concurrent use.
package tracers
