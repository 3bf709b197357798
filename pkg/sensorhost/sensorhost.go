// Package sensorhost defines the boundary contract between this module's
// protocol engines and the host that drives them: the flow tracker that
// delivers reassembled bytes, a file-store for chunks, detection-engine
// state, an event sink, and a scripting hook that reads transaction
// fields. The core never constructs or inspects these on its own. Of
// them, only Transaction and TxReader are satisfied by the engines; the
// file-store, detection-state, event-sink and scripting types are
// declared here and no engine stores or calls them.
package sensorhost

import (
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/protoevents"
)

// Direction re-exports the stream-direction bitfield every protocol
// engine and this package's interfaces are parameterized on, so a host
// never needs to import internal/direction directly.
type Direction = direction.Direction

const (
	ToServer = direction.ToServer
	ToClient = direction.ToClient
)

// Flow is the opaque per-connection handle the host's flow tracker
// manages. The core never inspects or stores it. It is the flow argument
// of FileContainer.NewChunk and FileContainer.Close, which lets a
// file-store correlate a chunk with the connection it came from.
type Flow any

// DetectState is the opaque per-transaction state a host's detection
// engine allocates (spec.md's DetectEngineState). The core never
// dereferences it. No transaction type in this module has a field for
// one, and no flow state invokes a FreeDetectState when a transaction is
// freed or evicted.
type DetectState any

// FreeDetectState is the host's release function for a DetectState.
// Nothing in this module calls it.
type FreeDetectState func(DetectState)

// FileContainer is the file-store sink interface for reassembled file
// chunks (NFS only). Flags carries direction plus whatever bits the
// host's file-store convention defines. The NFS engine does not take a
// FileContainer: its write and read paths keep chunk state in
// internal/nfs4proto/filetrack and never call NewChunk or Close.
type FileContainer interface {
	NewChunk(flow Flow, flags uint8, name string, data []byte, offset uint64, totalLen uint64, fill int, isLast bool, xid uint32)
	Close(flow Flow, flags uint8)
}

// EventSink is the interface for a host-wide receiver of anomaly codes.
// No engine in this module takes an EventSink: a raised code is recorded
// on the transaction's own event log (read back via Transaction.Codes)
// and counted in the metrics registry.
type EventSink interface {
	Raise(eventCode protoevents.Code)
}

// ScriptHost is the scripting hook a host-side rule or script engine
// implements to read named fields off a transaction as it completes. No
// engine in this module calls RegisterField.
type ScriptHost interface {
	RegisterField(tx Transaction, name string, value any)
}

// Transaction is the minimal read-only view every protocol's transaction
// type exposes to the host, satisfied structurally (no embedding
// required) by dnsproto.Transaction and nfs4proto.Transaction — both
// already expose TxID and the protoevents.Log they embed.
type Transaction interface {
	TxID() uint64
	Codes() []protoevents.Code
}

// TxReader is the read/teardown surface a protocol engine's flow State
// exposes for a host-driven per-flow dispatch loop, parameterized over
// that protocol's concrete transaction type. dnsproto.State and
// nfs4proto.State both satisfy TxReader[*dnsproto.Transaction] and
// TxReader[*nfs4proto.Transaction] respectively without modification —
// a host holding either as this interface can poll and free transactions
// without a type switch; only each engine's Parse entrypoints remain
// protocol-specific (DNS speaks both datagram and stream transports, NFS
// only ever a stream), so those are called directly against the
// concrete *dnsproto.State / *nfs4proto.State rather than through a
// common interface.
type TxReader[T Transaction] interface {
	TxCount() int
	TxByIndex(idx int) (T, bool)
	TxFree(id uint64) bool
	TxProgress(id uint64, dir Direction) bool
}
