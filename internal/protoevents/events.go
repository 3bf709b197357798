// Package protoevents defines the anomaly event taxonomy shared by every
// protocol engine (dns, ftp, nfs4) and the "raise against the latest
// transaction" discipline that all of them follow.
package protoevents

import "fmt"

// Code is a protocol anomaly marker attached to a transaction. Values are
// shared across protocols so a host-side detection rule can match on the
// code alone, without knowing which engine raised it.
type Code uint8

const (
	// MalformedData marks a message that failed to parse structurally.
	MalformedData Code = iota + 1

	// ZFlagSet marks a DNS message with the reserved header bit set; fatal
	// for that message.
	ZFlagSet

	// NotRequest marks a message expected to be a request (QR=0) that was
	// in fact a response.
	NotRequest

	// NotResponse marks a message expected to be a response (QR=1) that
	// was in fact a request.
	NotResponse

	// UnsolicitedResponse marks a response with no matching request; the
	// transaction is still surfaced.
	UnsolicitedResponse

	// Flooded marks a flow exceeding its configured message rate.
	Flooded

	// StateMemCapReached marks a flow whose transaction queue is at
	// capacity; the offending item is dropped rather than the flow.
	StateMemCapReached

	// GSSUnwrapFailed marks an RPCSEC_GSS integrity wrapper that could
	// not be decoded (NFS only).
	GSSUnwrapFailed

	// ChunkOutOfOrder marks a file-transfer chunk whose offset didn't
	// follow the tracker's last chunk; the chunk is discarded rather
	// than merged in (NFS only).
	ChunkOutOfOrder
)

func (c Code) String() string {
	switch c {
	case MalformedData:
		return "malformed_data"
	case ZFlagSet:
		return "z_flag_set"
	case NotRequest:
		return "not_request"
	case NotResponse:
		return "not_response"
	case UnsolicitedResponse:
		return "unsolicited_response"
	case Flooded:
		return "flooded"
	case StateMemCapReached:
		return "state_mem_cap_reached"
	case GSSUnwrapFailed:
		return "gss_unwrap_failed"
	case ChunkOutOfOrder:
		return "chunk_out_of_order"
	default:
		return fmt.Sprintf("unknown_event(%d)", uint8(c))
	}
}

// Log accumulates the event codes raised against a single transaction.
// Every protocol's transaction type embeds one.
type Log struct {
	codes []Code
}

// Raise appends code to the log. Raising the same code more than once is
// allowed and preserved in order — the host interprets repetition (e.g.
// repeated MalformedData) as a signal in its own right.
func (l *Log) Raise(code Code) {
	l.codes = append(l.codes, code)
}

// Codes returns the raised codes in raise order.
func (l *Log) Codes() []Code {
	return l.codes
}

// Has reports whether code was raised at least once.
func (l *Log) Has(code Code) bool {
	for _, c := range l.codes {
		if c == code {
			return true
		}
	}
	return false
}

// Latest is the minimal shape an item in a transaction queue must expose
// for event raising: a way to record an anomaly code against itself.
type Latest interface {
	RaiseEvent(code Code)
}

// RaiseOnLatest raises code against the last element of txs, per the
// "most recent transaction" rule: if no transaction exists yet, the event
// is dropped silently rather than fabricating one to hold it. sink, if
// non-nil, is also notified so the host's own counters/metrics see every
// raised event regardless of whether a transaction existed to carry it.
func RaiseOnLatest[T Latest](txs []T, code Code, sink func(Code)) {
	if len(txs) > 0 {
		txs[len(txs)-1].RaiseEvent(code)
	}
	if sink != nil {
		sink(code)
	}
}
