package sensorhost

import (
	"time"

	"github.com/flowlayer/protoscan/internal/metrics"
)

// Metrics is the optional Prometheus-backed recorder a host attaches to
// its engines. It wraps *internal/metrics.Registry rather than exposing
// it directly, so a host never needs to import the internal package to
// pass metrics through this package's boundary. A nil *Metrics, or one
// wrapping a nil Registry, makes every method a no-op, matching the
// Registry's own nil-receiver convention.
type Metrics struct {
	reg *metrics.Registry
}

// NewMetrics wraps reg, which may be nil, for use across this boundary.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{reg: reg}
}

func (m *Metrics) registry() *metrics.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// RecordTxCreated records a transaction creation for protocol.
func (m *Metrics) RecordTxCreated(protocol string) {
	m.registry().RecordTxCreated(protocol)
}

// RecordTxFreed records a transaction being freed, by the host or by
// eviction.
func (m *Metrics) RecordTxFreed(protocol string, evicted bool) {
	m.registry().RecordTxFreed(protocol, evicted)
}

// RecordEvent records an anomaly event raised against a transaction.
func (m *Metrics) RecordEvent(protocol string, eventCode uint8) {
	m.registry().RecordEvent(protocol, eventCode)
}

// RecordFileChunk records a file-chunk emission to the host sink.
func (m *Metrics) RecordFileChunk(direction string, n int) {
	m.registry().RecordFileChunk(direction, n)
}

// RecordGSSContext records a RPCSEC_GSS credential observation.
func (m *Metrics) RecordGSSContext(procedure string) {
	m.registry().RecordGSSContext(procedure)
}

// RecordParseDuration records how long a single parse call took.
func (m *Metrics) RecordParseDuration(protocol string, d time.Duration) {
	m.registry().RecordParseDuration(protocol, d)
}
