// Package metrics exposes the reconciliation engine's per-cycle counters
// as Prometheus metrics. Unlike a periodically-ticked collector, Record is
// called once at the end of every cycle: a cycle already has a natural
// collection boundary, so there is nothing for a separate ticker to do.
package metrics
