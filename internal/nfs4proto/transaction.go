package nfs4proto

import (
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/protoevents"
)

// Transaction is one NFSv4 file or metadata operation correlated across
// one or more COMPOUNDs (spec §4.3: "files are transferred across many
// COMPOUNDs correlated only by an opaque file handle").
type Transaction struct {
	protoevents.Log

	id uint64

	FileName   string
	FileHandle FileHandle
	MainOpcode uint32 // the opcode (CREATE/REMOVE/...) that triggered creation, or 0 for a write/read-path transaction
	Status     uint32

	requestDone  bool
	responseDone bool
}

// TxID implements txqueue.Entry.
func (t *Transaction) TxID() uint64 { return t.id }

// RaiseEvent implements protoevents.Latest.
func (t *Transaction) RaiseEvent(code protoevents.Code) { t.Raise(code) }

func (t *Transaction) markRequestDone()  { t.requestDone = true }
func (t *Transaction) markResponseDone() { t.responseDone = true }

// Progress is tx_progress: 1 once the transaction is complete in the
// given direction (spec §4.3's "Transaction completion" paragraph).
func (t *Transaction) Progress(dir direction.Direction) bool {
	if dir == direction.ToServer {
		return t.requestDone
	}
	return t.responseDone
}

func newTransaction(id uint64) *Transaction {
	return &Transaction{id: id}
}
