package nfs4proto

import "time"

// RequestXidMap carries the context a COMPOUND request accumulates while
// its opcodes are dissected, preserved under the RPC xid until the
// matching reply arrives (spec §4.3 step 2).
type RequestXidMap struct {
	ProcVer   uint32
	Procedure uint32

	ChunkOffset uint64
	FileHandle  FileHandle
	FileName    string

	GSSAPIProc    uint32
	GSSAPIService uint32

	// ChunkXID is the xid of the WRITE call that produced this request's
	// chunk, and ChunkLeft the tracker's running byte total not yet made
	// durable by a FILE_SYNC write or COMMIT (0 once either closes the
	// tracker). Nothing in this package reads them back: an RPC message
	// that carries only file data (no NFS header) is not attributed to a
	// file-tracker.
	ChunkXID  uint32
	ChunkLeft uint64

	// txID is the transaction this request's compound ultimately
	// belongs to, set once dissection determines it (either immediately,
	// for a main opcode, or later, once the write/read path opens or
	// finds a file-tracker).
	txID uint64

	insertedAt time.Time
}

// xidMap is the bounded, TTL-expiring xid -> RequestXidMap table a flow
// state keeps for outstanding requests.
type xidMap struct {
	ttl     time.Duration
	entries map[uint32]*RequestXidMap
}

func newXidMap(ttl time.Duration) *xidMap {
	return &xidMap{ttl: ttl, entries: make(map[uint32]*RequestXidMap)}
}

// insert records entry under xid, first purging anything stale.
func (m *xidMap) insert(xid uint32, entry *RequestXidMap) {
	m.purgeExpired()
	entry.insertedAt = time.Now()
	m.entries[xid] = entry
}

// lookup returns the entry for xid, purging stale entries along the way.
// A reply's xid is consumed at most once: NFSv4 never sends more than one
// reply per call, so lookup always removes what it finds.
func (m *xidMap) lookup(xid uint32) (*RequestXidMap, bool) {
	m.purgeExpired()
	entry, ok := m.entries[xid]
	if ok {
		delete(m.entries, xid)
	}
	return entry, ok
}

func (m *xidMap) drop(xid uint32) {
	delete(m.entries, xid)
}

func (m *xidMap) purgeExpired() {
	if m.ttl <= 0 {
		return
	}
	now := time.Now()
	for xid, entry := range m.entries {
		if now.Sub(entry.insertedAt) > m.ttl {
			delete(m.entries, xid)
		}
	}
}

func (m *xidMap) len() int { return len(m.entries) }
