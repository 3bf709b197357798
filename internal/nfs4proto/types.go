// Package nfs4proto implements the NFSv4 COMPOUND transaction engine: it
// dissects (never executes) the operations multiplexed into a COMPOUND
// call/reply, tracks in-flight requests by RPC XID, and reassembles
// multi-chunk file transfers correlated by file handle (spec §4.3 —
// "the hardest subsystem").
package nfs4proto

import "fmt"

// Opcode numbers this engine dissects (RFC 7530 §16.1, nfs_opnum4). The
// subset spec §4.3's opcode-effect table names is decoded structurally and
// drives transaction/file-tracker state; the rest of nfs_opnum4 ("aux"
// opcodes below) is still decoded far enough to skip its argument bytes
// accurately, since XDR has no generic length prefix to skip an operation
// blind — but none of them affect transaction or file-tracker state, per
// spec §4.3's opcode table: "other | ignored for transaction creation".
const (
	OpAccess             = 3
	OpClose              = 4
	OpCommit             = 5
	OpCreate             = 6
	OpDelegPurge         = 7
	OpDelegReturn        = 8
	OpGetattr            = 9
	OpGetFH              = 10
	OpLink               = 11
	OpLock               = 12
	OpLockT              = 13
	OpLockU              = 14
	OpLookup             = 15
	OpLookupP            = 16
	OpNVerify            = 17
	OpOpen               = 18
	OpOpenAttr           = 19
	OpOpenConfirm        = 20
	OpOpenDowngrade      = 21
	OpPutFH              = 22
	OpPutPubFH           = 23
	OpPutRootFH          = 24
	OpRead               = 25
	OpReaddir            = 26
	OpReadlink           = 27
	OpRemove             = 28
	OpRename             = 29
	OpRenew              = 30
	OpRestoreFH          = 31
	OpSaveFH             = 32
	OpSecinfo            = 33
	OpSetattr            = 34
	OpSetclientid        = 35
	OpSetclientidConfirm = 36
	OpVerify             = 37
	OpWrite              = 38
	OpReleaseLockowner   = 39
)

// OpName renders an opcode for logging; unknown opcodes render numerically.
func OpName(op uint32) string {
	switch op {
	case OpAccess:
		return "ACCESS"
	case OpClose:
		return "CLOSE"
	case OpCommit:
		return "COMMIT"
	case OpCreate:
		return "CREATE"
	case OpDelegPurge:
		return "DELEGPURGE"
	case OpDelegReturn:
		return "DELEGRETURN"
	case OpGetattr:
		return "GETATTR"
	case OpGetFH:
		return "GETFH"
	case OpLink:
		return "LINK"
	case OpLock:
		return "LOCK"
	case OpLockT:
		return "LOCKT"
	case OpLockU:
		return "LOCKU"
	case OpLookup:
		return "LOOKUP"
	case OpLookupP:
		return "LOOKUPP"
	case OpNVerify:
		return "NVERIFY"
	case OpOpen:
		return "OPEN"
	case OpOpenAttr:
		return "OPENATTR"
	case OpOpenConfirm:
		return "OPEN_CONFIRM"
	case OpOpenDowngrade:
		return "OPEN_DOWNGRADE"
	case OpPutFH:
		return "PUTFH"
	case OpPutPubFH:
		return "PUTPUBFH"
	case OpPutRootFH:
		return "PUTROOTFH"
	case OpRead:
		return "READ"
	case OpReaddir:
		return "READDIR"
	case OpReadlink:
		return "READLINK"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpRenew:
		return "RENEW"
	case OpRestoreFH:
		return "RESTOREFH"
	case OpSaveFH:
		return "SAVEFH"
	case OpSecinfo:
		return "SECINFO"
	case OpSetattr:
		return "SETATTR"
	case OpSetclientid:
		return "SETCLIENTID"
	case OpSetclientidConfirm:
		return "SETCLIENTID_CONFIRM"
	case OpVerify:
		return "VERIFY"
	case OpWrite:
		return "WRITE"
	case OpReleaseLockowner:
		return "RELEASE_LOCKOWNER"
	default:
		return fmt.Sprintf("OP_%d", op)
	}
}

// Stability levels for WRITE4args.stable (RFC 7530 §16.36).
const (
	Unstable4 uint32 = 0
	DataSync4 uint32 = 1
	FileSync4 uint32 = 2
)

// nfsstat4 OK. Only the success status matters to a passive dissector;
// every non-zero status is treated uniformly as "this op failed", since
// spec §4.3 never branches on which failure it was.
const statusOK uint32 = 0

// mountRootName is substituted for an empty filename when a COMPOUND
// establishes the root filehandle (PUTROOTFH) per spec §4.3's reply
// dissection rule.
const mountRootName = "<mount_root>"

// FileHandle is an opaque NFSv4 file handle, compared by value.
type FileHandle string

// stateid4 is decoded (12 bytes "other" + 4 byte seqid) but never
// interpreted by this engine; its presence on the wire is only skipped.
const stateidSize = 4 + 12
