// Package dnsproto implements the DNS message parser described in the
// core's component design: datagram and length-prefixed stream parsing,
// RFC 1035 name decompression, and a bounded transaction queue keyed by
// the wire message ID.
package dnsproto

import (
	"encoding/binary"

	"github.com/flowlayer/protoscan/internal/config"
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/metrics"
	"github.com/flowlayer/protoscan/internal/protoevents"
	"github.com/flowlayer/protoscan/internal/txqueue"
)

const protocolLabel = "dns"

// streamSide holds one direction's length-prefix reassembly state.
type streamSide struct {
	buf    []byte
	synced bool
}

// State is one DNS flow's parser state: a bounded transaction queue plus
// a reassembly buffer per direction. The zero value is not usable;
// construct with NewState.
type State struct {
	queue       *txqueue.Queue[*Transaction]
	limits      nameLimits
	maxReassemb int
	metrics     *metrics.Registry

	toServer streamSide
	toClient streamSide
}

// NewState returns a fresh DNS flow state. metrics may be nil.
func NewState(limits config.Limits, reg *metrics.Registry) *State {
	s := &State{
		limits: nameLimits{
			maxLen:   limits.DNSMaxNameLength,
			maxDepth: limits.DNSMaxCompressionDepth,
		},
		maxReassemb: int(limits.DNSReassemblyBufferSize),
		metrics:     reg,
		toServer:    streamSide{synced: true},
		toClient:    streamSide{synced: true},
	}
	s.queue = txqueue.New[*Transaction](limits.DNSTxCap, s.onEvict)
	return s
}

func (s *State) onEvict(tx *Transaction) {
	tx.terminal = true
	s.metrics.RecordTxFreed(protocolLabel, true)
}

func (s *State) side(dir direction.Direction) *streamSide {
	if dir == direction.ToServer {
		return &s.toServer
	}
	return &s.toClient
}

// ParseDatagram parses exactly one DNS message out of data (a full UDP
// payload, or one already length-delimited stream frame) and reports
// whether it parsed successfully.
func (s *State) ParseDatagram(dir direction.Direction, data []byte) bool {
	msg, err := decodeMessage(data, s.limits)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
		return false
	}

	if msg.Header.Z() {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.ZFlagSet, s.recordEvent)
		return false
	}

	tx := s.attachTransaction(dir, msg)

	isRequest := !msg.Header.QR()
	switch {
	case dir == direction.ToServer && !isRequest:
		tx.Raise(protoevents.NotRequest)
		s.recordEvent(protoevents.NotRequest)
	case dir == direction.ToClient && isRequest:
		tx.Raise(protoevents.NotResponse)
		s.recordEvent(protoevents.NotResponse)
	}

	return true
}

// attachTransaction finds the live transaction this message belongs to,
// or creates one, and stores msg on it per §4.1's per-transaction state
// machine.
func (s *State) attachTransaction(dir direction.Direction, msg *Message) *Transaction {
	isRequest := !msg.Header.QR()

	if isRequest {
		tx := newTransaction(msg.Header.ID)
		tx.Request = msg
		s.push(tx)
		return tx
	}

	for _, tx := range s.queue.All() {
		if tx.id == msg.Header.ID && tx.Response == nil {
			tx.Response = msg
			return tx
		}
	}

	tx := newTransaction(msg.Header.ID)
	tx.Response = msg
	s.push(tx)
	tx.Raise(protoevents.UnsolicitedResponse)
	s.recordEvent(protoevents.UnsolicitedResponse)
	return tx
}

func (s *State) push(tx *Transaction) {
	before := s.queue.Len()
	s.queue.Push(tx)
	s.metrics.RecordTxCreated(protocolLabel)
	if s.queue.Len() <= before {
		// A push that didn't grow the queue means trim() evicted
		// something else to make room.
		if last, ok := s.queue.Last(); ok {
			last.Raise(protoevents.StateMemCapReached)
			s.recordEvent(protoevents.StateMemCapReached)
		}
	}
}

func (s *State) recordEvent(code protoevents.Code) {
	s.metrics.RecordEvent(protocolLabel, uint8(code))
}

// ParseStream feeds data (plus a reported gap length) through the
// length-prefix stream reassembler for dir, parsing as many complete
// messages as are available, and returns how many parsed successfully.
//
// A nonzero gapLen discards whatever was buffered and re-probes data as
// the first bytes seen after the gap; parsing resumes only if they look
// like a length-prefixed DNS message. Otherwise bytes are silently
// dropped (returning 0) until the next gap.
func (s *State) ParseStream(dir direction.Direction, data []byte, gapLen int) int {
	side := s.side(dir)

	if gapLen != 0 {
		side.buf = nil
		side.synced = looksLikeFramedMessage(data)
		if !side.synced {
			return 0
		}
	}

	if !side.synced {
		return 0
	}

	side.buf = append(side.buf, data...)

	if s.maxReassemb > 0 && len(side.buf) > s.maxReassemb {
		// Resource limit (spec §5: "a maximum reassembly-buffer size").
		// The offending, still-incomplete message is dropped by discarding
		// the buffer; the flow itself continues, re-syncing on whatever
		// arrives next, exactly as after a reported gap.
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.StateMemCapReached, s.recordEvent)
		side.buf = nil
		return 0
	}

	count := 0
	for {
		if len(side.buf) < 2 {
			break
		}
		frameLen := int(binary.BigEndian.Uint16(side.buf[0:2]))
		if len(side.buf) < 2+frameLen {
			break
		}
		payload := side.buf[2 : 2+frameLen]
		side.buf = side.buf[2+frameLen:]
		if s.ParseDatagram(dir, payload) {
			count++
		}
	}
	return count
}

// looksLikeFramedMessage is the cheap post-gap resync check: enough
// bytes for a length prefix plus a fixed-size header.
func looksLikeFramedMessage(data []byte) bool {
	return len(data) >= 2+headerSize
}

// Probe reports whether data looks like a DNS message (a bare header
// fits) and, if so, which direction it travelled based on the QR bit.
func Probe(data []byte) (isDNS bool, isRequest bool) {
	if len(data) < headerSize {
		return false, false
	}
	flags := binary.BigEndian.Uint16(data[2:4])
	return true, flags&qrMask == 0
}

// TxCount is tx_count.
func (s *State) TxCount() int { return s.queue.Len() }

// TxByIndex is tx_by_index.
func (s *State) TxByIndex(idx int) (*Transaction, bool) { return s.queue.At(idx) }

// TxFree is tx_free.
func (s *State) TxFree(id uint64) bool {
	freed := s.queue.Free(id)
	if freed {
		s.metrics.RecordTxFreed(protocolLabel, false)
	}
	return freed
}

// TxProgress is tx_progress. Per the Open Question decision recorded in
// DESIGN.md, a DNS transaction is complete in both directions the moment
// it exists, regardless of dir.
func (s *State) TxProgress(id uint64, _ direction.Direction) bool {
	for _, tx := range s.queue.All() {
		if tx.TxID() == id {
			return tx.Progress()
		}
	}
	return false
}
