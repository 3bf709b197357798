package nfs4proto

import "github.com/flowlayer/protoscan/internal/protoevents"

// applyRead implements the read path's reply-side half (spec §4.3): data
// for a READ only appears in the reply, so the to-client file-tracker is
// opened and appended to here, keyed by the handle and offset the
// matching request recorded in its xidmap entry.
func (s *State) applyRead(xm *RequestXidMap, data []byte, eof bool) {
	if xm.FileHandle == "" {
		return
	}

	entry, ok := s.files.Lookup(string(xm.FileHandle), false)
	var txID uint64
	if !ok {
		tx := s.newTx()
		tx.FileHandle = xm.FileHandle
		if name, known := s.names[xm.FileHandle]; known {
			tx.FileName = name
		} else {
			tx.FileName = xm.FileName
		}
		txID = tx.TxID()
		entry = s.files.Open(string(xm.FileHandle), false, txID)
	} else {
		txID = entry.TxID()
	}

	if _, accepted := entry.AppendChunk(xm.ChunkOffset, data, eof); !accepted {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.ChunkOutOfOrder, s.recordEvent)
		return
	}
	s.metrics.RecordFileChunk("to_client", len(data))

	if eof {
		if tx, found := s.txByID(txID); found {
			tx.markRequestDone()
			tx.markResponseDone()
		}
		s.files.Close(string(xm.FileHandle), false)
	}
}
