// Package metrics provides the process-wide atomics the host uses to
// observe the inspection core from the outside: transactions created and
// evicted per protocol, anomaly events raised per code, GSS contexts
// touched, and file chunks emitted. The core holds no locks or timers of
// its own (per the concurrency model, all cross-flow state lives with the
// host); this registry is that host-owned table, wired to Prometheus the
// way the rest of this tree's ambient stack is.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the inspection core's Prometheus metrics. All methods
// handle a nil receiver gracefully, so a nil *Registry is a usable no-op —
// a flow parser constructed without metrics wiring pays no overhead.
type Registry struct {
	// TxCreated counts transactions created, by protocol.
	// Labels: protocol=[dns, ftp, nfs4]
	TxCreated *prometheus.CounterVec

	// TxEvicted counts transactions evicted by the bounded-queue cap,
	// by protocol. A nonzero rate here indicates the host is not keeping
	// up with tx_free calls, or a flood is in progress.
	TxEvicted *prometheus.CounterVec

	// TxActive tracks the current number of live transactions, by protocol.
	TxActive *prometheus.GaugeVec

	// EventsRaised counts anomaly events raised, by protocol and event code.
	EventsRaised *prometheus.CounterVec

	// FileChunksEmitted counts file chunks accepted by the NFS write and
	// read paths, and transfers closed by COMMIT, by direction.
	// Labels: direction=[to_server, to_client, committed]
	FileChunksEmitted *prometheus.CounterVec

	// FileBytesEmitted sums emitted chunk bytes, by direction.
	FileBytesEmitted *prometheus.CounterVec

	// GSSContextsTouched counts RPCSEC_GSS credentials observed, by
	// procedure (init, continue_init, data, destroy).
	GSSContextsTouched *prometheus.CounterVec

	// ParseDuration tracks per-call parse latency, by protocol.
	ParseDuration *prometheus.HistogramVec
}

var (
	registryOnce     sync.Once
	registryInstance *Registry
)

// New creates and registers the inspection core's Prometheus metrics.
//
// If registerer is nil, prometheus.DefaultRegisterer is used. Idempotent:
// uses sync.Once so repeated calls (e.g. re-attaching to multiple hosts in
// a test binary) return the same registered instance rather than panicking
// on a duplicate registration.
func New(registerer prometheus.Registerer) *Registry {
	registryOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}

		r := &Registry{
			TxCreated: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_tx_created_total",
					Help: "Total transactions created, by protocol",
				},
				[]string{"protocol"},
			),
			TxEvicted: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_tx_evicted_total",
					Help: "Total transactions evicted by the bounded queue cap, by protocol",
				},
				[]string{"protocol"},
			),
			TxActive: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "protoscan_tx_active",
					Help: "Current live transaction count, by protocol",
				},
				[]string{"protocol"},
			),
			EventsRaised: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_events_raised_total",
					Help: "Total anomaly events raised, by protocol and event code",
				},
				[]string{"protocol", "event_code"},
			),
			FileChunksEmitted: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_file_chunks_emitted_total",
					Help: "Total file chunks tracked by the NFS engine, by direction",
				},
				[]string{"direction"},
			),
			FileBytesEmitted: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_file_bytes_emitted_total",
					Help: "Total file chunk bytes tracked by the NFS engine, by direction",
				},
				[]string{"direction"},
			),
			GSSContextsTouched: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "protoscan_gss_contexts_touched_total",
					Help: "Total RPCSEC_GSS credentials observed, by procedure",
				},
				[]string{"procedure"},
			),
			ParseDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "protoscan_parse_duration_seconds",
					Help:    "Per-call parse duration, by protocol",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"protocol"},
			),
		}

		registerer.MustRegister(
			r.TxCreated,
			r.TxEvicted,
			r.TxActive,
			r.EventsRaised,
			r.FileChunksEmitted,
			r.FileBytesEmitted,
			r.GSSContextsTouched,
			r.ParseDuration,
		)

		registryInstance = r
	})

	return registryInstance
}

// RecordTxCreated records a transaction creation for protocol.
func (r *Registry) RecordTxCreated(protocol string) {
	if r == nil {
		return
	}
	r.TxCreated.WithLabelValues(protocol).Inc()
	r.TxActive.WithLabelValues(protocol).Inc()
}

// RecordTxFreed records a transaction being freed, by the host or by
// eviction. evicted distinguishes a self-trim from a host-initiated free.
func (r *Registry) RecordTxFreed(protocol string, evicted bool) {
	if r == nil {
		return
	}
	if evicted {
		r.TxEvicted.WithLabelValues(protocol).Inc()
	}
	r.TxActive.WithLabelValues(protocol).Dec()
}

// RecordEvent records an anomaly event raised against a transaction.
func (r *Registry) RecordEvent(protocol string, eventCode uint8) {
	if r == nil {
		return
	}
	r.EventsRaised.WithLabelValues(protocol, eventCodeLabel(eventCode)).Inc()
}

// RecordFileChunk records a file chunk accepted (or a transfer closed) by
// the NFS engine, with its byte count.
func (r *Registry) RecordFileChunk(direction string, n int) {
	if r == nil {
		return
	}
	r.FileChunksEmitted.WithLabelValues(direction).Inc()
	r.FileBytesEmitted.WithLabelValues(direction).Add(float64(n))
}

// RecordGSSContext records a RPCSEC_GSS credential observation.
func (r *Registry) RecordGSSContext(procedure string) {
	if r == nil {
		return
	}
	r.GSSContextsTouched.WithLabelValues(procedure).Inc()
}

// RecordParseDuration records how long a single parse call took.
func (r *Registry) RecordParseDuration(protocol string, d time.Duration) {
	if r == nil {
		return
	}
	r.ParseDuration.WithLabelValues(protocol).Observe(d.Seconds())
}

// eventCodeLabel renders an event code as a label value. Event codes are
// small per-protocol enums (internal/protoevents); the numeric form keeps
// this package free of a dependency on that package's symbol set.
func eventCodeLabel(code uint8) string {
	return strconv.Itoa(int(code))
}
