// Package filetrack reassembles a file transferred across many NFSv4
// COMPOUNDs, correlated only by an opaque file handle (spec §4.3's write
// and read paths). A tracker is opened on the first chunk seen for a
// handle+direction pair and closed once the last chunk (stable ==
// FILE_SYNC, or the matching COMMIT) is observed.
package filetrack

// Chunk is one piece of file data observed on the wire, with the
// fill bytes needed to bring it up to 4-byte XDR alignment recorded
// alongside it (spec §4.3's write path: "fill-bytes for 4-byte
// alignment").
type Chunk struct {
	Offset  uint64
	Data    []byte
	Fill    int
	IsFirst bool
	IsLast  bool
}

// Entry is one open file transfer: every chunk observed so far, in
// arrival order.
type Entry struct {
	Handle  string
	Chunks  []Chunk
	txID    uint64
	insSeq  uint64

	haveOffset bool
	nextOffset uint64
}

// TxID is the transaction this file transfer belongs to.
func (e *Entry) TxID() uint64 { return e.txID }

// TotalBytes sums len(Data) across every chunk, for the write-path
// invariant that this must equal the triggering WRITE's declared length.
func (e *Entry) TotalBytes() int {
	n := 0
	for _, c := range e.Chunks {
		n += len(c.Data)
	}
	return n
}

func fillFor(n int) int {
	return (4 - n%4) % 4
}

// key identifies one open transfer: a file handle is only unique within
// one direction (a client could in principle read and write the same
// handle-to-client-handle concurrently as distinct transfers).
func key(handle string, toServer bool) string {
	if toServer {
		return handle + "\x00>"
	}
	return handle + "\x00<"
}

// Registry is the bounded set of concurrently open file-trackers for one
// flow (spec's NFSMaxFileTrackers limit).
type Registry struct {
	cap     int
	seq     uint64
	entries map[string]*Entry
	order   []string // insertion order, for eviction
	onEvict func(*Entry)
}

// New returns an empty registry bounded at capacity. onEvict, if non-nil,
// is invoked whenever the registry itself must evict an entry to make
// room (not on an explicit Close).
func New(capacity int, onEvict func(*Entry)) *Registry {
	return &Registry{cap: capacity, entries: make(map[string]*Entry), onEvict: onEvict}
}

// Lookup returns the open tracker for handle+direction, if any.
func (r *Registry) Lookup(handle string, toServer bool) (*Entry, bool) {
	e, ok := r.entries[key(handle, toServer)]
	return e, ok
}

// Open creates a new tracker for handle+direction, evicting the oldest
// open tracker first if the registry is at capacity. It is the caller's
// responsibility to check Lookup first; Open always creates.
func (r *Registry) Open(handle string, toServer bool, txID uint64) *Entry {
	r.evictToMakeRoom()

	k := key(handle, toServer)
	r.seq++
	e := &Entry{Handle: handle, txID: txID, insSeq: r.seq}
	r.entries[k] = e
	r.order = append(r.order, k)
	return e
}

func (r *Registry) evictToMakeRoom() {
	for len(r.entries) >= r.cap && r.cap > 0 {
		if len(r.order) == 0 {
			return
		}
		oldest := r.order[0]
		r.order = r.order[1:]
		e, ok := r.entries[oldest]
		if !ok {
			continue
		}
		delete(r.entries, oldest)
		if r.onEvict != nil {
			r.onEvict(e)
		}
	}
}

// AppendChunk appends data at offset to the tracker for handle+direction,
// computing its alignment fill and IsLast flag, and marking IsFirst if
// this is the tracker's first chunk. Chunks must arrive in offset order
// within a tracker; one that doesn't is discarded (ok=false) rather than
// silently merged in, per the reassembly invariant that a tracker's data
// is a single contiguous run.
func (e *Entry) AppendChunk(offset uint64, data []byte, isLast bool) (c Chunk, ok bool) {
	if e.haveOffset && offset != e.nextOffset {
		return Chunk{}, false
	}

	c = Chunk{
		Offset:  offset,
		Data:    append([]byte(nil), data...),
		Fill:    fillFor(len(data)),
		IsFirst: len(e.Chunks) == 0,
		IsLast:  isLast,
	}
	e.Chunks = append(e.Chunks, c)
	e.nextOffset = offset + uint64(len(data))
	e.haveOffset = true
	return c, true
}

// Close removes the tracker for handle+direction without invoking
// onEvict (an explicit close, e.g. from COMMIT, is not an eviction).
func (r *Registry) Close(handle string, toServer bool) {
	k := key(handle, toServer)
	delete(r.entries, k)
	for i, ok := range r.order {
		if ok == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len is the number of currently open file-trackers.
func (r *Registry) Len() int { return len(r.entries) }
