package dnsproto

import (
	"github.com/flowlayer/protoscan/internal/protoevents"
)

// Phase is the DNS transaction's derived lifecycle state (spec §4.1:
// Empty -> HasRequest -> HasRequestAndResponse, with Terminal covering
// any transaction the parser will never add to again).
type Phase uint8

const (
	PhaseEmpty Phase = iota
	PhaseHasRequest
	PhaseHasRequestAndResponse
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseHasRequest:
		return "has_request"
	case PhaseHasRequestAndResponse:
		return "has_request_and_response"
	case PhaseTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Transaction pairs one DNS request with its (possibly absent) response,
// identified by the wire message ID. It implements txqueue.Entry via
// TxID and protoevents.Latest via RaiseEvent, so it can be pushed into a
// txqueue.Queue and receive anomaly events raised against "the latest
// transaction" (spec §9).
type Transaction struct {
	protoevents.Log

	id       uint16
	Request  *Message
	Response *Message
	terminal bool
}

// TxID widens the 16-bit DNS message ID into the queue's uint64 key
// space. DNS IDs are not globally unique (they wrap and can collide
// across different transactions over the flow's lifetime), but within
// the bounded live-transaction window a txqueue retains, collisions
// would only matter if two unanswered requests shared the same ID at
// once — a client is expected not to do that, and if one does, the
// newer request's reply simply pairs with whichever same-ID
// transaction is still live, matching real resolver behavior.
func (t *Transaction) TxID() uint64 { return uint64(t.id) }

// RaiseEvent implements protoevents.Latest.
func (t *Transaction) RaiseEvent(code protoevents.Code) { t.Raise(code) }

// Phase reports the transaction's derived lifecycle state.
func (t *Transaction) Phase() Phase {
	switch {
	case t.terminal:
		return PhaseTerminal
	case t.Request != nil && t.Response != nil:
		return PhaseHasRequestAndResponse
	case t.Request != nil:
		return PhaseHasRequest
	default:
		return PhaseEmpty
	}
}

// Progress always reports true once a transaction exists: a DNS
// transaction's per-direction "made progress" signal has no partial
// state narrower than "have I stored a message for this direction yet",
// since a message is decoded and stored atomically or not at all.
func (t *Transaction) Progress() bool {
	return t.Request != nil || t.Response != nil
}

func newTransaction(id uint16) *Transaction {
	return &Transaction{id: id}
}
