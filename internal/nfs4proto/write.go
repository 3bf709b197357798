package nfs4proto

import "github.com/flowlayer/protoscan/internal/protoevents"

// applyWrite implements the write path (spec §4.3): find or open the
// to-server file-tracker for handle, append the chunk, and complete the
// transaction once a FILE_SYNC write is observed (an UNSTABLE/DATA_SYNC
// write leaves the transfer open for a later COMMIT).
//
// xid is the RPC call's own transaction id. It is recorded on xm as
// ChunkXID, and the tracker's running total of bytes appended since the
// last FILE_SYNC (or COMMIT) as ChunkLeft, which drops to 0 when a
// FILE_SYNC write closes the tracker. Neither value is read back to
// attribute a later data-only message to this write.
func (s *State) applyWrite(xm *RequestXidMap, handle FileHandle, offset uint64, stable uint32, data []byte, xid uint32) {
	entry, ok := s.files.Lookup(string(handle), true)
	var txID uint64
	if !ok {
		tx := s.newTx()
		tx.FileHandle = handle
		if name, known := s.names[handle]; known {
			tx.FileName = name
		}
		txID = tx.TxID()
		entry = s.files.Open(string(handle), true, txID)
	} else {
		txID = entry.TxID()
	}

	isLast := stable == FileSync4
	if _, accepted := entry.AppendChunk(offset, data, isLast); !accepted {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.ChunkOutOfOrder, s.recordEvent)
		return
	}
	s.metrics.RecordFileChunk("to_server", len(data))

	xm.FileHandle = handle
	xm.ChunkOffset = offset
	xm.ChunkXID = xid
	xm.ChunkLeft = uint64(entry.TotalBytes())
	xm.txID = txID

	if isLast {
		if tx, found := s.txByID(txID); found {
			tx.markRequestDone()
			tx.markResponseDone()
		}
		s.files.Close(string(handle), true)
		xm.ChunkLeft = 0
	}
}

// applyCommit implements COMMIT's effect: whatever transfer is still open
// for handle (an UNSTABLE/DATA_SYNC write left it open) is now durable and
// complete. The tracker's outstanding byte count (ts_chunk_left, as of the
// last WRITE) is what's being made durable here; it's reported to metrics
// rather than just discarded with the tracker.
func (s *State) applyCommit(xm *RequestXidMap, handle FileHandle) {
	xm.FileHandle = handle
	entry, ok := s.files.Lookup(string(handle), true)
	if !ok {
		return
	}
	xm.txID = entry.TxID()
	s.metrics.RecordFileChunk("committed", entry.TotalBytes())
	if tx, found := s.txByID(entry.TxID()); found {
		tx.markRequestDone()
		tx.markResponseDone()
	}
	s.files.Close(string(handle), true)
	xm.ChunkLeft = 0
}

// txByID is a linear scan over the live queue. Flows hold at most
// NFSTxCap transactions (bounded, typically small), so this avoids
// threading a second id-indexed map through the queue just for this.
func (s *State) txByID(id uint64) (*Transaction, bool) {
	for _, tx := range s.queue.All() {
		if tx.TxID() == id {
			return tx, true
		}
	}
	return nil, false
}
