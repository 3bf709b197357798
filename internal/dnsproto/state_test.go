package dnsproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlayer/protoscan/internal/config"
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/protoevents"
)

func testLimits() config.Limits {
	return config.Limits{
		DNSTxCap:               8,
		DNSMaxNameLength:       255,
		DNSMaxCompressionDepth: 16,
	}
}

// TestParseDatagramRequest covers scenario 1: a single UDP DNS request
// for www.suricata-ids.org A IN parses into one transaction with no
// events raised.
func TestParseDatagramRequest(t *testing.T) {
	s := NewState(testLimits(), nil)
	buf := buildQuestionMessage(0x8d32, 0x0120, "www.suricata-ids.org", 1, 1)

	require.True(t, s.ParseDatagram(direction.ToServer, buf))
	require.Equal(t, 1, s.TxCount())
	tx, ok := s.TxByIndex(0)
	require.True(t, ok, "TxByIndex(0) not found")
	require.NotNil(t, tx.Request)
	assert.Equal(t, "www.suricata-ids.org", tx.Request.Questions[0].Name)
	assert.Empty(t, tx.Codes())
}

// TestParseStreamExactLength covers scenario 2: the same payload with a
// correct 2-byte length prefix parses one message.
func TestParseStreamExactLength(t *testing.T) {
	s := NewState(testLimits(), nil)
	payload := buildQuestionMessage(0x8d32, 0x0120, "www.suricata-ids.org", 1, 1)
	framed := append(u16(uint16(len(payload))), payload...)

	n := s.ParseStream(direction.ToServer, framed, 0)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.TxCount())
}

// TestParseStreamOverDeclaredLength covers scenario 3: an over-declared
// length prefix leaves the message buffered with no transaction.
func TestParseStreamOverDeclaredLength(t *testing.T) {
	s := NewState(testLimits(), nil)
	payload := buildQuestionMessage(0x8d32, 0x0120, "www.suricata-ids.org", 1, 1)
	framed := append(u16(uint16(len(payload)+1)), payload...)

	n := s.ParseStream(direction.ToServer, framed, 0)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, s.TxCount())
}

func TestParseStreamOneByteAtATime(t *testing.T) {
	s := NewState(testLimits(), nil)
	payload := buildQuestionMessage(1, 0x0100, "a.test", 1, 1)
	framed := append(u16(uint16(len(payload))), payload...)

	total := 0
	for _, b := range framed {
		total += s.ParseStream(direction.ToServer, []byte{b}, 0)
	}
	assert.Equal(t, 1, total)
}

func TestParseStreamEmptyInput(t *testing.T) {
	s := NewState(testLimits(), nil)
	assert.Equal(t, 0, s.ParseStream(direction.ToServer, nil, 0))
	assert.Equal(t, 0, s.TxCount())
}

func TestParseDatagramEmptyInput(t *testing.T) {
	s := NewState(testLimits(), nil)
	assert.False(t, s.ParseDatagram(direction.ToServer, nil))
	assert.Equal(t, 0, s.TxCount())
}

func TestParseStreamShortLengthPrefixRaisesMalformedAndContinues(t *testing.T) {
	s := NewState(testLimits(), nil)
	// A frame declaring 3 bytes, fewer than the 12-byte minimal header,
	// followed by a well-formed frame.
	good := buildQuestionMessage(7, 0x0100, "b.test", 1, 1)
	var framed []byte
	framed = append(framed, u16(3)...)
	framed = append(framed, 1, 2, 3)
	framed = append(framed, u16(uint16(len(good)))...)
	framed = append(framed, good...)

	n := s.ParseStream(direction.ToServer, framed, 0)
	require.Equal(t, 1, n, "short frame dropped, good frame parsed")
	assert.Equal(t, 1, s.TxCount())
}

func TestParseStreamGapThenUnrecognizableBytesStayDropped(t *testing.T) {
	s := NewState(testLimits(), nil)

	require.Equal(t, 0, s.ParseStream(direction.ToServer, []byte{1, 2, 3}, 5))

	good := buildQuestionMessage(9, 0x0100, "c.test", 1, 1)
	framed := append(u16(uint16(len(good))), good...)
	assert.Equal(t, 0, s.ParseStream(direction.ToServer, framed, 0), "still dropping, unresynced gap")
}

func TestParseStreamGapThenResync(t *testing.T) {
	s := NewState(testLimits(), nil)
	good := buildQuestionMessage(9, 0x0100, "c.test", 1, 1)
	framed := append(u16(uint16(len(good))), good...)

	// The gap's first following bytes look like a valid frame, so
	// parsing resumes immediately.
	n := s.ParseStream(direction.ToServer, framed, 5)
	assert.Equal(t, 1, n)
}

func TestResponsePairsWithOutstandingRequest(t *testing.T) {
	s := NewState(testLimits(), nil)
	req := buildQuestionMessage(42, 0x0100, "d.test", 1, 1)
	s.ParseDatagram(direction.ToServer, req)

	resp := buildQuestionMessage(42, 0x8100, "d.test", 1, 1)
	require.True(t, s.ParseDatagram(direction.ToClient, resp))
	require.Equal(t, 1, s.TxCount(), "request and response share a transaction")
	tx, _ := s.TxByIndex(0)
	require.NotNil(t, tx.Response)
	assert.Equal(t, PhaseHasRequestAndResponse, tx.Phase())
}

func TestUnsolicitedResponseCreatesTransactionAndRaisesEvent(t *testing.T) {
	s := NewState(testLimits(), nil)
	resp := buildQuestionMessage(99, 0x8100, "e.test", 1, 1)

	require.True(t, s.ParseDatagram(direction.ToClient, resp))
	require.Equal(t, 1, s.TxCount())
	tx, _ := s.TxByIndex(0)
	assert.True(t, tx.Has(protoevents.UnsolicitedResponse))
}

func TestZFlagSetIsFatal(t *testing.T) {
	s := NewState(testLimits(), nil)
	buf := buildQuestionMessage(1, 0x0140, "f.test", 1, 1) // bit 0x0040 set

	assert.False(t, s.ParseDatagram(direction.ToServer, buf))
}

func TestTxQueueCapEvictsOldest(t *testing.T) {
	limits := testLimits()
	limits.DNSTxCap = 2
	s := NewState(limits, nil)

	s.ParseDatagram(direction.ToServer, buildQuestionMessage(1, 0x0100, "a.test", 1, 1))
	s.ParseDatagram(direction.ToServer, buildQuestionMessage(2, 0x0100, "b.test", 1, 1))
	s.ParseDatagram(direction.ToServer, buildQuestionMessage(3, 0x0100, "c.test", 1, 1))

	assert.Equal(t, 2, s.TxCount())
}

func TestReassemblyBufferCapDropsOversizedBuffer(t *testing.T) {
	limits := testLimits()
	limits.DNSReassemblyBufferSize = 16
	s := NewState(limits, nil)

	// A length prefix declaring far more than will ever arrive, so the
	// buffer just accumulates past the cap without ever completing a
	// frame.
	oversized := append(u16(60000), make([]byte, 32)...)
	n := s.ParseStream(direction.ToServer, oversized, 0)
	require.Equal(t, 0, n)
	require.Equal(t, 0, s.TxCount())
	assert.Empty(t, s.toServer.buf, "reassembly buffer should be dropped at cap")

	// The flow must still work for a fresh, well-formed frame afterward.
	good := buildQuestionMessage(9, 0x0100, "g.test", 1, 1)
	framed := append(u16(uint16(len(good))), good...)
	assert.Equal(t, 1, s.ParseStream(direction.ToServer, framed, 0), "flow should recover after cap drop")
}

func TestTxFreeRemovesTransaction(t *testing.T) {
	s := NewState(testLimits(), nil)
	s.ParseDatagram(direction.ToServer, buildQuestionMessage(1, 0x0100, "a.test", 1, 1))
	tx, _ := s.TxByIndex(0)

	s.TxFree(tx.TxID())
	assert.Equal(t, 0, s.TxCount())
}

func TestProgressIsAlwaysTrueOnceTransactionExists(t *testing.T) {
	s := NewState(testLimits(), nil)
	s.ParseDatagram(direction.ToServer, buildQuestionMessage(1, 0x0100, "a.test", 1, 1))
	tx, _ := s.TxByIndex(0)

	assert.True(t, tx.Progress(), "a request-only transaction should report progress")
}

func TestProbeIdentifiesRequestAndResponse(t *testing.T) {
	req := buildQuestionMessage(1, 0x0100, "a.test", 1, 1)
	isDNS, isRequest := Probe(req)
	assert.True(t, isDNS)
	assert.True(t, isRequest)

	resp := buildQuestionMessage(1, 0x8100, "a.test", 1, 1)
	isDNS, isRequest = Probe(resp)
	assert.True(t, isDNS)
	assert.False(t, isRequest)

	isDNS, _ = Probe([]byte{1, 2})
	assert.False(t, isDNS)
}
