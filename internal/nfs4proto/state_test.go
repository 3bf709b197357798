package nfs4proto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/protoevents"
)

func TestWriteFileSyncCompletesTransactionImmediately(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-a"
	data := bytes.Repeat([]byte{0x42}, 4096)

	args := buildCompoundArgs("w", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, FileSync4, data)},
	})
	msg := encodeCallMsg(1, nfsProcCompound, args)
	s.ParseToServer(frame(msg), 0)

	require.Equal(t, 1, s.TxCount())
	tx, ok := s.TxByIndex(0)
	require.True(t, ok, "expected transaction at index 0")
	assert.True(t, tx.Progress(direction.ToServer), "expected request_done after a FILE_SYNC write")
	assert.True(t, tx.Progress(direction.ToClient), "expected response_done after a FILE_SYNC write (is_last rule)")
	assert.Equal(t, FileHandle(handle), tx.FileHandle)
	assert.Equal(t, 0, s.files.Len(), "expected the file-tracker to be closed")

	commitCompound := buildCompoundArgs("c", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpCommit, args: commitArgs(0, 4096)},
	})
	s.ParseToServer(frame(encodeCallMsg(2, nfsProcCompound, commitCompound)), 0)

	assert.Equal(t, 1, s.TxCount(), "no new transaction from COMMIT")
}

func TestWriteUnstableThenCommitCompletesTransaction(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-b"
	data := []byte("partial-write-payload")

	writeCompound := buildCompoundArgs("w", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, Unstable4, data)},
	})
	s.ParseToServer(frame(encodeCallMsg(1, nfsProcCompound, writeCompound)), 0)

	tx, ok := s.TxByIndex(0)
	require.True(t, ok, "expected transaction at index 0")
	assert.False(t, tx.Progress(direction.ToServer), "UNSTABLE write must not complete the transaction")
	require.Equal(t, 1, s.files.Len(), "expected one open file-tracker")

	commitCompound := buildCompoundArgs("c", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpCommit, args: commitArgs(0, uint32(len(data)))},
	})
	s.ParseToServer(frame(encodeCallMsg(2, nfsProcCompound, commitCompound)), 0)

	assert.True(t, tx.Progress(direction.ToServer), "expected COMMIT to complete the transaction")
	assert.True(t, tx.Progress(direction.ToClient))
	assert.Equal(t, 0, s.files.Len(), "expected COMMIT to close the file-tracker")
}

func TestReadPathAssemblesFromReply(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-c"

	readCompound := buildCompoundArgs("r", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpRead, args: func() []byte {
			buf := &bytes.Buffer{}
			putStateid(buf)
			putU64(buf, 0)
			putU32(buf, 100)
			return buf.Bytes()
		}()},
	})
	s.ParseToServer(frame(encodeCallMsg(7, nfsProcCompound, readCompound)), 0)
	require.Equal(t, 1, s.xids.len(), "expected one outstanding xid")

	payload := bytes.Repeat([]byte{0x7a}, 100)
	readResultArgs := &bytes.Buffer{}
	putBool(readResultArgs, true) // eof
	putOpaque(readResultArgs, payload)

	reply := replyArgs(statusOK, "r", []op{
		{code: OpRead, args: readResultArgs.Bytes()},
	})
	s.ParseToClient(frame(encodeReplyMsg(7, reply)), 0)

	require.Equal(t, 1, s.TxCount())
	assert.Equal(t, 0, s.xids.len(), "expected the xid to be consumed")
	tx, _ := s.TxByIndex(0)
	assert.Equal(t, FileHandle(handle), tx.FileHandle)
	assert.Equal(t, 0, s.files.Len(), "eof=true should have closed the read tracker")
}

func TestUnknownRequestOpcodeAbortsMessageOnly(t *testing.T) {
	s := NewState(testLimits(), nil)

	args := buildCompoundArgs("x", []op{
		{code: 9999, args: nil},
	})
	s.ParseToServer(frame(encodeCallMsg(1, nfsProcCompound, args)), 0)

	assert.Equal(t, 0, s.TxCount(), "want 0 after an unhandled opcode")

	// The flow itself must still work for the next message.
	handle := "handle-d"
	writeCompound := buildCompoundArgs("w", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, FileSync4, []byte("ok"))},
	})
	s.ParseToServer(frame(encodeCallMsg(2, nfsProcCompound, writeCompound)), 0)
	assert.Equal(t, 1, s.TxCount(), "want 1 after a valid message following the unhandled one")
}

func TestAuxOpcodesAreSkippedNotFatal(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-aux"
	data := []byte("payload-with-surrounding-aux-ops")

	accessArgs := func() []byte {
		buf := &bytes.Buffer{}
		putU32(buf, 0x3f) // access mask
		return buf.Bytes()
	}()
	closeArgs := func() []byte {
		buf := &bytes.Buffer{}
		putU32(buf, 1) // seqid
		putStateid(buf)
		return buf.Bytes()
	}()

	// A realistic compound interleaves GETATTR/ACCESS (near-universal in
	// real traffic) and a trailing CLOSE around the WRITE this engine
	// actually tracks; none of these aux ops should abort dissection.
	args := buildCompoundArgs("w", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpGetattr, args: emptyBitmap4()},
		{code: OpAccess, args: accessArgs},
		{code: OpWrite, args: writeArgs(0, FileSync4, data)},
		{code: OpGetattr, args: emptyBitmap4()},
		{code: OpClose, args: closeArgs},
	})
	s.ParseToServer(frame(encodeCallMsg(1, nfsProcCompound, args)), 0)

	require.Equal(t, 1, s.TxCount(), "aux opcodes must not abort the compound")
	tx, ok := s.TxByIndex(0)
	require.True(t, ok, "expected transaction at index 0")
	assert.Equal(t, FileHandle(handle), tx.FileHandle)
	assert.True(t, tx.Progress(direction.ToServer), "expected request_done after a FILE_SYNC write surrounded by aux ops")
}

func TestNullProcedureIsIgnored(t *testing.T) {
	s := NewState(testLimits(), nil)
	s.ParseToServer(frame(encodeCallMsg(1, 0, nil)), 0)
	assert.Equal(t, 0, s.TxCount())
	assert.Equal(t, 0, s.xids.len(), "NFSPROC4_NULL must not create a transaction or xidmap entry")
}

func TestUnsolicitedReplyRaisesEventWithoutPanicking(t *testing.T) {
	s := NewState(testLimits(), nil)
	reply := replyArgs(statusOK, "r", nil)
	s.ParseToClient(frame(encodeReplyMsg(42, reply)), 0)
	assert.Equal(t, 0, s.TxCount())
}

func TestProbeIdentifiesNFSCall(t *testing.T) {
	args := buildCompoundArgs("p", nil)
	msg := encodeCallMsg(1, nfsProcCompound, args)
	assert.True(t, Probe(msg), "want true for an NFS COMPOUND call")
	assert.False(t, Probe([]byte("not an rpc message")), "want false for garbage input")
}

func TestTxFreeRemovesTransaction(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-e"
	args := buildCompoundArgs("rm", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpRemove, args: lookupArgs("doomed.txt")},
	})
	s.ParseToServer(frame(encodeCallMsg(1, nfsProcCompound, args)), 0)
	require.Equal(t, 1, s.TxCount())
	tx, _ := s.TxByIndex(0)
	require.True(t, s.TxFree(tx.TxID()), "TxFree returned false for an existing transaction")
	assert.Equal(t, 0, s.TxCount())
}

// TestWriteReplyDissectionDoesNotAbort covers the WRITE reply path: a
// WRITE4resok (count, committed, writeverf4) must decode cleanly instead
// of hitting dissectReplyCompound's "unhandled opcode" abort.
func TestWriteReplyDissectionDoesNotAbort(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-write-reply"
	data := []byte("reply-path-payload")

	writeCompound := buildCompoundArgs("w", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, FileSync4, data)},
	})
	s.ParseToServer(frame(encodeCallMsg(5, nfsProcCompound, writeCompound)), 0)
	require.Equal(t, 1, s.TxCount())

	reply := replyArgs(statusOK, "w", []op{
		{code: OpPutFH, args: nil},
		{code: OpWrite, args: writeResultArgs(uint32(len(data)), FileSync4)},
	})
	s.ParseToClient(frame(encodeReplyMsg(5, reply)), 0)

	tx, ok := s.TxByIndex(0)
	require.True(t, ok)
	assert.False(t, tx.Has(protoevents.MalformedData), "WRITE reply must not be flagged malformed")
	assert.Equal(t, statusOK, tx.Status)
}

// TestPutRootFHReplySetsMountRootNameOnEmptyFileName covers spec §4.3's
// reply-side PUTROOTFH rule: PUTROOTFH(OK) with an empty file_name binds
// the synthetic root name to both the xidmap entry and its transaction.
func TestPutRootFHReplySetsMountRootNameOnEmptyFileName(t *testing.T) {
	s := NewState(testLimits(), nil)
	tx := s.newTx()
	xm := &RequestXidMap{txID: tx.TxID()}

	reply := replyArgs(statusOK, "r", []op{
		{code: OpPutRootFH, args: nil},
	})
	err := s.dissectReplyCompound(xm, reply)
	require.NoError(t, err)
	assert.Equal(t, mountRootName, xm.FileName)
	assert.Equal(t, mountRootName, tx.FileName)
}

// TestPutRootFHReplyLeavesNonEmptyFileNameAlone guards against clobbering
// a file name a prior op (e.g. LOOKUP) already set on the xidmap entry.
func TestPutRootFHReplyLeavesNonEmptyFileNameAlone(t *testing.T) {
	s := NewState(testLimits(), nil)
	xm := &RequestXidMap{FileName: "already-named"}

	reply := replyArgs(statusOK, "r", []op{
		{code: OpPutRootFH, args: nil},
	})
	err := s.dissectReplyCompound(xm, reply)
	require.NoError(t, err)
	assert.Equal(t, "already-named", xm.FileName)
}

// TestOutOfOrderWriteChunkIsDiscardedAndFlagged covers the reassembly
// invariant that chunks within one file-tracker must arrive in offset
// order: a second WRITE that doesn't continue where the first left off
// must not be merged into the tracker, and must raise ChunkOutOfOrder.
func TestOutOfOrderWriteChunkIsDiscardedAndFlagged(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-ooo"
	first := []byte("0123456789")

	firstWrite := buildCompoundArgs("w1", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, Unstable4, first)},
	})
	s.ParseToServer(frame(encodeCallMsg(1, nfsProcCompound, firstWrite)), 0)

	tx, ok := s.TxByIndex(0)
	require.True(t, ok)
	require.Equal(t, 1, s.files.Len())
	entry, ok := s.files.Lookup(handle, true)
	require.True(t, ok)
	require.Equal(t, len(first), entry.TotalBytes())

	// This chunk's offset (100) doesn't continue from offset 10, where the
	// first chunk left off.
	secondWrite := buildCompoundArgs("w2", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(100, Unstable4, []byte("out-of-order"))},
	})
	s.ParseToServer(frame(encodeCallMsg(2, nfsProcCompound, secondWrite)), 0)

	assert.True(t, tx.Has(protoevents.ChunkOutOfOrder), "expected ChunkOutOfOrder to be raised")
	assert.Equal(t, len(first), entry.TotalBytes(), "tracker must be unaffected by the discarded chunk")
	assert.Equal(t, 1, s.TxCount(), "the out-of-order chunk must not open a new tracker/transaction")
}

// TestChunkXIDAndChunkLeftReflectWriteProgress covers the xidmap's
// streaming-continuation fields: ChunkXID carries the real RPC xid of the
// WRITE that produced the chunk, and ChunkLeft tracks the tracker's
// outstanding byte total, zeroed once a FILE_SYNC write or COMMIT makes it
// durable.
func TestChunkXIDAndChunkLeftReflectWriteProgress(t *testing.T) {
	s := NewState(testLimits(), nil)
	handle := "handle-chunkfields"

	firstWrite := buildCompoundArgs("w1", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(0, Unstable4, []byte("abcd"))},
	})
	s.ParseToServer(frame(encodeCallMsg(0xAAAA, nfsProcCompound, firstWrite)), 0)

	xm1, ok := s.xids.entries[0xAAAA]
	require.True(t, ok, "expected the first WRITE's xidmap entry to still be outstanding")
	assert.EqualValues(t, 0xAAAA, xm1.ChunkXID)
	assert.EqualValues(t, 4, xm1.ChunkLeft)

	secondWrite := buildCompoundArgs("w2", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpWrite, args: writeArgs(4, Unstable4, []byte("ef"))},
	})
	s.ParseToServer(frame(encodeCallMsg(0xBBBB, nfsProcCompound, secondWrite)), 0)

	xm2, ok := s.xids.entries[0xBBBB]
	require.True(t, ok)
	assert.EqualValues(t, 0xBBBB, xm2.ChunkXID)
	assert.EqualValues(t, 6, xm2.ChunkLeft, "ChunkLeft should reflect the tracker's running total")

	commitCompound := buildCompoundArgs("c", []op{
		{code: OpPutFH, args: putFHArgs(handle)},
		{code: OpCommit, args: commitArgs(0, 6)},
	})
	s.ParseToServer(frame(encodeCallMsg(0xCCCC, nfsProcCompound, commitCompound)), 0)

	xm3, ok := s.xids.entries[0xCCCC]
	require.True(t, ok)
	assert.EqualValues(t, 0, xm3.ChunkLeft, "COMMIT must zero ChunkLeft once the transfer is durable")
	assert.Equal(t, 0, s.files.Len(), "COMMIT must close the file-tracker")
}
