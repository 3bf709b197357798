// Package nfs4proto is documented in types.go.
package nfs4proto

import (
	"github.com/flowlayer/protoscan/internal/config"
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/metrics"
	"github.com/flowlayer/protoscan/internal/nfs4proto/filetrack"
	"github.com/flowlayer/protoscan/internal/protoevents"
	"github.com/flowlayer/protoscan/internal/rpcwire"
	"github.com/flowlayer/protoscan/internal/rpcwire/gss"
	"github.com/flowlayer/protoscan/internal/txqueue"
)

// nfsProcCompound is the only NFSv4 procedure number this engine cares
// about; NFSPROC4_NULL (0) carries no COMPOUND body.
const nfsProcCompound uint32 = 1

// State is one flow's NFSv4 dissection state: the transaction queue, the
// pending-request xid table, the open file-trackers in both directions,
// and the handle->name binding table GETFH/LOOKUP/OPEN populate.
type State struct {
	queue    *txqueue.Queue[*Transaction]
	xids     *xidMap
	files    *filetrack.Registry
	names    map[FileHandle]string
	metrics  *metrics.Registry
	nextTxID uint64

	toServerRPC *rpcwire.Reassembler
	toClientRPC *rpcwire.Reassembler

	lastGSSIdentity *gss.ServiceIdentity
}

// NewState returns a new flow state bounded by the given limits.
func NewState(limits config.Limits, reg *metrics.Registry) *State {
	s := &State{
		xids:        newXidMap(limits.NFSXIDMapTTL),
		names:       make(map[FileHandle]string),
		metrics:     reg,
		toServerRPC: rpcwire.NewReassembler(),
		toClientRPC: rpcwire.NewReassembler(),
	}
	s.queue = txqueue.New[*Transaction](limits.NFSTxCap, s.onTxEvict)
	s.files = filetrack.New(limits.NFSMaxFileTrackers, s.onFileEvict)
	return s
}

func (s *State) onTxEvict(_ *Transaction) {
	s.metrics.RecordTxFreed("nfs4", true)
}

func (s *State) onFileEvict(_ *filetrack.Entry) {
	// The owning transaction, if any, is still tracked in s.queue and is
	// freed independently; an evicted file-tracker just stops receiving
	// further chunks.
}

func (s *State) newTx() *Transaction {
	s.nextTxID++
	tx := newTransaction(s.nextTxID)
	s.queue.Push(tx)
	s.metrics.RecordTxCreated("nfs4")
	return tx
}

func (s *State) recordEvent(code protoevents.Code) {
	s.metrics.RecordEvent("nfs4", uint8(code))
}

// unwrapArgs strips an RPCSEC_GSS integrity wrapper from a call's
// procedure-specific bytes, if the credential calls for one. It reports
// ok=false when the credential names GSS integrity but the wrapper does
// not decode (GSSUnwrapFailed), or when the credential is a non-data GSS
// context-management call the compound dissector should not touch.
func (s *State) unwrapArgs(cred rpcwire.OpaqueAuth, args []byte) (unwrapped []byte, proc, service uint32, ok bool) {
	if cred.Flavor != rpcwire.AuthRPCSecGSS {
		return args, 0, 0, true
	}

	gcred, err := gss.DecodeCred(cred.Body)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.GSSUnwrapFailed, s.recordEvent)
		return nil, 0, 0, false
	}
	procLabel := "unknown"
	switch gcred.GSSProc {
	case gss.ProcData:
		procLabel = "data"
	case gss.ProcInit:
		procLabel = "init"
	case gss.ProcContinueInit:
		procLabel = "continue_init"
	case gss.ProcDestroy:
		procLabel = "destroy"
	}
	s.metrics.RecordGSSContext(procLabel)

	if gcred.GSSProc != gss.ProcData {
		// Context establishment (INIT/CONTINUE_INIT), not a COMPOUND call.
		// The AP-REQ token, if present, names the service principal the
		// client is negotiating a context with; captured for host-side
		// correlation only, never to authenticate.
		if identity, err := gss.ExtractServiceIdentity(gcred.Handle); err == nil {
			s.lastGSSIdentity = identity
		}
		return nil, gcred.GSSProc, gcred.Service, false
	}
	if gcred.Service != gss.SvcIntegrity {
		return args, gcred.GSSProc, gcred.Service, true
	}

	integ, err := gss.DecodeIntegData(args)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.GSSUnwrapFailed, s.recordEvent)
		return nil, gcred.GSSProc, gcred.Service, false
	}
	return integ.Args, gcred.GSSProc, gcred.Service, true
}

// ParseToServer feeds client->server stream bytes into the flow. gapLen
// is the number of bytes the host reports were dropped before data, or 0
// for no gap; a nonzero gap discards any in-progress RPC reassembly for
// this direction, matching the rest of this tree's stream-gap handling.
func (s *State) ParseToServer(data []byte, gapLen int) {
	if gapLen > 0 {
		s.toServerRPC.Reset()
	}

	messages, err := s.toServerRPC.Feed(data)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
	}

	for _, msg := range messages {
		s.handleCall(msg)
	}
}

// ParseToClient feeds server->client stream bytes into the flow.
func (s *State) ParseToClient(data []byte, gapLen int) {
	if gapLen > 0 {
		s.toClientRPC.Reset()
	}

	messages, err := s.toClientRPC.Feed(data)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
	}

	for _, msg := range messages {
		s.handleReply(msg)
	}
}

func (s *State) handleCall(msg []byte) {
	hdr, rest, err := rpcwire.DecodeCallHeader(msg)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
		return
	}
	if hdr.Procedure != nfsProcCompound {
		return
	}

	args, gssProc, gssService, ok := s.unwrapArgs(hdr.Cred, rest)
	if !ok {
		return
	}

	xm, err := s.dissectRequestCompound(args, hdr.XID)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
		return
	}
	xm.ProcVer = hdr.Version
	xm.Procedure = hdr.Procedure
	xm.GSSAPIProc = gssProc
	xm.GSSAPIService = gssService
	s.xids.insert(hdr.XID, xm)
}

func (s *State) handleReply(msg []byte) {
	hdr, rest, err := rpcwire.DecodeReplyHeader(msg)
	if err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
		return
	}

	xm, found := s.xids.lookup(hdr.XID)
	if !found {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.UnsolicitedResponse, s.recordEvent)
		return
	}
	if hdr.Stat != rpcwire.MsgAccepted || hdr.AcceptStat != rpcwire.Success {
		return
	}

	args := rest
	if xm.GSSAPIService == gss.SvcIntegrity {
		integ, err := gss.DecodeIntegData(rest)
		if err != nil {
			protoevents.RaiseOnLatest(s.queue.All(), protoevents.GSSUnwrapFailed, s.recordEvent)
			return
		}
		args = integ.Args
	}

	if err := s.dissectReplyCompound(xm, args); err != nil {
		protoevents.RaiseOnLatest(s.queue.All(), protoevents.MalformedData, s.recordEvent)
	}
}

// nfsProgram is the SunRPC program number assigned to NFS (RFC 1094 and
// successors); Probe uses it to recognize a COMPOUND call on the wire.
const nfsProgram uint32 = 100003

// Probe reports whether data looks like the start of a SunRPC call
// carrying the NFS program, for the host's protocol-detection pass.
// Only the call side is distinguishable this way: a bare reply has no
// program/version/procedure fields to check.
func Probe(data []byte) bool {
	hdr, _, err := rpcwire.DecodeCallHeader(data)
	if err != nil {
		return false
	}
	return hdr.RPCVers == rpcwire.RPCVersion2 && hdr.Program == nfsProgram
}

// TxCount is tx_count.
func (s *State) TxCount() int { return s.queue.Len() }

// TxByIndex is tx_by_index.
func (s *State) TxByIndex(idx int) (*Transaction, bool) { return s.queue.At(idx) }

// TxFree is tx_free.
func (s *State) TxFree(id uint64) bool {
	freed := s.queue.Free(id)
	if freed {
		s.metrics.RecordTxFreed("nfs4", false)
	}
	return freed
}

// LastGSSServiceIdentity returns the service principal/realm named by the
// most recent RPCSEC_GSS context-establishment token observed on this
// flow, for host-side correlation logging. Returns false if none has been
// seen yet.
func (s *State) LastGSSServiceIdentity() (gss.ServiceIdentity, bool) {
	if s.lastGSSIdentity == nil {
		return gss.ServiceIdentity{}, false
	}
	return *s.lastGSSIdentity, true
}

// TxProgress is tx_progress.
func (s *State) TxProgress(id uint64, dir direction.Direction) bool {
	tx, ok := s.txByID(id)
	if !ok {
		return false
	}
	return tx.Progress(dir)
}
