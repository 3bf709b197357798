package rpcwire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/flowlayer/protoscan/internal/xdr"
)

// RPCVersion2 is the only RPC protocol version SunRPC (and therefore
// NFSv4) defines.
const RPCVersion2 uint32 = 2

// MsgType distinguishes an RPC call from an RPC reply (RFC 5531 Section 9).
type MsgType uint32

const (
	Call  MsgType = 0
	Reply MsgType = 1
)

// ReplyStat is the top-level accept/deny outcome of a reply.
type ReplyStat uint32

const (
	MsgAccepted ReplyStat = 0
	MsgDenied   ReplyStat = 1
)

// AcceptStat is the outcome of an accepted call, present only when
// ReplyStat is MsgAccepted.
type AcceptStat uint32

const (
	Success      AcceptStat = 0
	ProgUnavail  AcceptStat = 1
	ProgMismatch AcceptStat = 2
	ProcUnavail  AcceptStat = 3
	GarbageArgs  AcceptStat = 4
	SystemErr    AcceptStat = 5
)

// RejectStat is the reason a call was denied, present only when ReplyStat
// is MsgDenied.
type RejectStat uint32

const (
	RPCMismatch RejectStat = 0
	AuthErr     RejectStat = 1
)

// Auth flavors (RFC 5531 Section 8.2, plus RFC 2203 Section 1 for GSS).
const (
	AuthNull      uint32 = 0
	AuthUnix      uint32 = 1
	AuthShort     uint32 = 2
	AuthDES       uint32 = 3
	AuthRPCSecGSS uint32 = 6
)

// OpaqueAuth is the credential or verifier carried in a call or reply
// header: an opaque body tagged with the auth flavor that describes how
// to interpret it.
type OpaqueAuth struct {
	Flavor uint32
	Body   []byte
}

// CallHeader is the fixed-format prefix of an RPC call message, decoded
// up to and including the verifier. The procedure arguments that follow
// are protocol-specific and are left in the remainder returned by
// DecodeCallHeader.
type CallHeader struct {
	XID       uint32
	RPCVers   uint32
	Program   uint32
	Version   uint32
	Procedure uint32
	Cred      OpaqueAuth
	Verf      OpaqueAuth
}

// ReplyHeader is the fixed-format prefix of an RPC reply message. Only
// the fields relevant to the reported Stat/AcceptStat are meaningful;
// the rest are zero.
type ReplyHeader struct {
	XID          uint32
	Stat         ReplyStat
	Verf         OpaqueAuth
	AcceptStat   AcceptStat
	MismatchLow  uint32
	MismatchHigh uint32
	RejectStat   RejectStat
}

// decodeOpaqueAuth reads an opaque_auth structure: a flavor tag followed
// by an XDR variable-length opaque body.
func decodeOpaqueAuth(r io.Reader) (OpaqueAuth, error) {
	flavor, err := xdr.DecodeUint32(r)
	if err != nil {
		return OpaqueAuth{}, fmt.Errorf("auth flavor: %w", err)
	}
	body, err := xdr.DecodeOpaque(r)
	if err != nil {
		return OpaqueAuth{}, fmt.Errorf("auth body: %w", err)
	}
	return OpaqueAuth{Flavor: flavor, Body: body}, nil
}

// DecodeCallHeader decodes an RPC call header from a fully-reassembled
// RPC message (the fragments already joined by a Reassembler). It
// returns the decoded header and the remaining bytes, which are the
// procedure-specific arguments a higher-layer decoder (compound.go)
// takes over from.
func DecodeCallHeader(msg []byte) (*CallHeader, []byte, error) {
	r := bytes.NewReader(msg)

	xid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcwire: xid: %w", err)
	}
	mtype, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcwire: msg type: %w", err)
	}
	if MsgType(mtype) != Call {
		return nil, nil, fmt.Errorf("rpcwire: expected CALL (0), got msg type %d", mtype)
	}

	h := &CallHeader{XID: xid}
	if h.RPCVers, err = xdr.DecodeUint32(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: rpcvers: %w", err)
	}
	if h.Program, err = xdr.DecodeUint32(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: program: %w", err)
	}
	if h.Version, err = xdr.DecodeUint32(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: version: %w", err)
	}
	if h.Procedure, err = xdr.DecodeUint32(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: procedure: %w", err)
	}
	if h.Cred, err = decodeOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: cred: %w", err)
	}
	if h.Verf, err = decodeOpaqueAuth(r); err != nil {
		return nil, nil, fmt.Errorf("rpcwire: verf: %w", err)
	}

	return h, msg[len(msg)-r.Len():], nil
}

// DecodeReplyHeader decodes an RPC reply header from a fully-reassembled
// RPC message. The remaining bytes are the procedure-specific results
// (only present when Stat is MsgAccepted and AcceptStat is Success).
func DecodeReplyHeader(msg []byte) (*ReplyHeader, []byte, error) {
	r := bytes.NewReader(msg)

	xid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcwire: xid: %w", err)
	}
	mtype, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcwire: msg type: %w", err)
	}
	if MsgType(mtype) != Reply {
		return nil, nil, fmt.Errorf("rpcwire: expected REPLY (1), got msg type %d", mtype)
	}

	stat, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, nil, fmt.Errorf("rpcwire: reply stat: %w", err)
	}

	h := &ReplyHeader{XID: xid, Stat: ReplyStat(stat)}

	switch h.Stat {
	case MsgAccepted:
		if h.Verf, err = decodeOpaqueAuth(r); err != nil {
			return nil, nil, fmt.Errorf("rpcwire: reply verf: %w", err)
		}
		acceptStat, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, nil, fmt.Errorf("rpcwire: accept stat: %w", err)
		}
		h.AcceptStat = AcceptStat(acceptStat)
		if h.AcceptStat == ProgMismatch {
			if h.MismatchLow, err = xdr.DecodeUint32(r); err != nil {
				return nil, nil, fmt.Errorf("rpcwire: mismatch low: %w", err)
			}
			if h.MismatchHigh, err = xdr.DecodeUint32(r); err != nil {
				return nil, nil, fmt.Errorf("rpcwire: mismatch high: %w", err)
			}
		}
	case MsgDenied:
		rejectStat, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, nil, fmt.Errorf("rpcwire: reject stat: %w", err)
		}
		h.RejectStat = RejectStat(rejectStat)
	default:
		return nil, nil, fmt.Errorf("rpcwire: unknown reply stat %d", stat)
	}

	return h, msg[len(msg)-r.Len():], nil
}
