package nfs4proto

import (
	"bytes"
	"fmt"

	"github.com/flowlayer/protoscan/internal/xdr"
)

// open_claim4.claim (RFC 7530 §16.16.3).
const (
	claimNull         = 0
	claimPrevious     = 1
	claimDelegateCur  = 2
	claimDelegatePrev = 3
)

// openflag4.opentype (RFC 7530 §16.16.3).
const openCreate = 1

// createmode4 (RFC 7530 §16.16.3).
const (
	createModeUnchecked    = 0
	createModeGuarded      = 1
	createModeExclusive    = 2
	createModeExclusive4_1 = 3
)

// nfs_ftype4, the subset CREATE can name (RFC 7530 §16.4.3).
const (
	ftypeLink = 5 // NF4LNK
	ftypeBlk  = 3 // NF4BLK
	ftypeChr  = 4 // NF4CHR
)

// skipBitmap4 discards a bitmap4: a length-prefixed array of uint32 words
// (RFC 7530 §2.12.1). Unlike opaque<>, array elements are already 4-byte
// aligned, so there is no trailing padding to skip.
func skipBitmap4(r *bytes.Reader) error {
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("bitmap4 length: %w", err)
	}
	if _, err := xdr.DecodeFixedOpaque(r, int(count)*4); err != nil {
		return fmt.Errorf("bitmap4 words: %w", err)
	}
	return nil
}

// skipFattr4 discards an fattr4: bitmap4 attrmask followed by an opaque
// attrlist4. This engine never interprets attribute values.
func skipFattr4(r *bytes.Reader) error {
	if err := skipBitmap4(r); err != nil {
		return err
	}
	if _, err := xdr.DecodeOpaque(r); err != nil {
		return fmt.Errorf("attr_vals: %w", err)
	}
	return nil
}

func skipStateid(r *bytes.Reader) error {
	_, err := xdr.DecodeFixedOpaque(r, stateidSize)
	return err
}

// decodeOpenArgsFileName decodes just enough of OPEN4args to recover the
// target file name for CLAIM_NULL, the claim type used on an ordinary
// open-or-create, while consuming every byte of the operation so dissection
// of the rest of the COMPOUND can continue (spec §4.3's OPEN effect:
// "Set xidmap.file_name = name; defer handle binding to the reply's GETFH").
func decodeOpenArgsFileName(r *bytes.Reader) (string, error) {
	if _, err := xdr.DecodeUint32(r); err != nil { // seqid
		return "", fmt.Errorf("open seqid: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // share_access
		return "", fmt.Errorf("open share_access: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // share_deny
		return "", fmt.Errorf("open share_deny: %w", err)
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // owner.clientid
		return "", fmt.Errorf("open owner.clientid: %w", err)
	}
	if _, err := xdr.DecodeOpaque(r); err != nil { // owner.owner
		return "", fmt.Errorf("open owner.owner: %w", err)
	}

	opentype, err := xdr.DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("open opentype: %w", err)
	}
	if opentype == openCreate {
		mode, err := xdr.DecodeUint32(r)
		if err != nil {
			return "", fmt.Errorf("open createmode: %w", err)
		}
		switch mode {
		case createModeUnchecked, createModeGuarded:
			if err := skipFattr4(r); err != nil {
				return "", fmt.Errorf("open createattrs: %w", err)
			}
		case createModeExclusive:
			if _, err := xdr.DecodeFixedOpaque(r, 8); err != nil { // verifier4
				return "", fmt.Errorf("open createverf: %w", err)
			}
		case createModeExclusive4_1:
			if _, err := xdr.DecodeFixedOpaque(r, 8); err != nil {
				return "", fmt.Errorf("open createverf: %w", err)
			}
			if err := skipFattr4(r); err != nil {
				return "", fmt.Errorf("open createattrs: %w", err)
			}
		default:
			return "", fmt.Errorf("unknown createmode4 %d", mode)
		}
	}

	claim, err := xdr.DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("open claim: %w", err)
	}
	switch claim {
	case claimNull:
		return xdr.DecodeString(r)
	case claimPrevious:
		if _, err := xdr.DecodeUint32(r); err != nil { // delegate_type
			return "", fmt.Errorf("open delegate_type: %w", err)
		}
		return "", nil
	case claimDelegateCur:
		if err := skipStateid(r); err != nil {
			return "", fmt.Errorf("open delegate_stateid: %w", err)
		}
		return xdr.DecodeString(r)
	case claimDelegatePrev:
		return xdr.DecodeString(r)
	default:
		return "", fmt.Errorf("unsupported open_claim4 type %d", claim)
	}
}

// decodeCreateArgsFileName decodes CREATE4args far enough to recover the
// new object's name, consuming the whole operation.
func decodeCreateArgsFileName(r *bytes.Reader) (string, error) {
	objType, err := xdr.DecodeUint32(r)
	if err != nil {
		return "", fmt.Errorf("create objtype: %w", err)
	}
	switch objType {
	case ftypeLink:
		if _, err := xdr.DecodeOpaque(r); err != nil { // linkdata
			return "", fmt.Errorf("create linkdata: %w", err)
		}
	case ftypeBlk, ftypeChr:
		if _, err := xdr.DecodeUint32(r); err != nil { // specdata1
			return "", fmt.Errorf("create specdata1: %w", err)
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // specdata2
			return "", fmt.Errorf("create specdata2: %w", err)
		}
	}

	name, err := xdr.DecodeString(r)
	if err != nil {
		return "", fmt.Errorf("create objname: %w", err)
	}
	if err := skipFattr4(r); err != nil {
		return "", fmt.Errorf("create createattrs: %w", err)
	}
	return name, nil
}

// skipLockOwner4 discards a lock_owner4: clientid4 followed by an opaque
// owner string (RFC 7530 §16.10.5).
func skipLockOwner4(r *bytes.Reader) error {
	if _, err := xdr.DecodeUint64(r); err != nil { // clientid
		return fmt.Errorf("lock_owner4 clientid: %w", err)
	}
	if _, err := xdr.DecodeOpaque(r); err != nil { // owner
		return fmt.Errorf("lock_owner4 owner: %w", err)
	}
	return nil
}

// skipLocker4 discards a locker4 union trailing a LOCK4args (RFC 7530
// §16.10.5): a bool discriminant selecting either a fresh open_to_lock_owner4
// or an existing exist_lock_owner4.
func skipLocker4(r *bytes.Reader) error {
	newOwner, err := xdr.DecodeBool(r)
	if err != nil {
		return fmt.Errorf("locker4 new_lock_owner: %w", err)
	}
	if newOwner {
		if _, err := xdr.DecodeUint32(r); err != nil { // open_seqid
			return fmt.Errorf("locker4 open_seqid: %w", err)
		}
		if err := skipStateid(r); err != nil { // open_stateid
			return fmt.Errorf("locker4 open_stateid: %w", err)
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // lock_seqid
			return fmt.Errorf("locker4 lock_seqid: %w", err)
		}
		return skipLockOwner4(r)
	}
	if err := skipStateid(r); err != nil { // lock_stateid
		return fmt.Errorf("locker4 lock_stateid: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // lock_seqid
		return fmt.Errorf("locker4 lock_seqid: %w", err)
	}
	return nil
}

// skipAuxRequestArgs discards the argument bytes of an "aux" opcode: one
// spec §4.3's opcode-effect table lists under "other" (ignored for
// transaction creation) but whose args this engine must still decode
// structurally enough to advance the cursor to the next operation — XDR
// carries no generic per-operation length prefix. Reports ok=false for an
// opcode this engine does not structurally recognize at all, in which case
// the caller abandons dissection of the whole COMPOUND.
func skipAuxRequestArgs(r *bytes.Reader, opcode uint32) (ok bool, err error) {
	switch opcode {
	case OpAccess:
		_, err = xdr.DecodeUint32(r) // access mask
	case OpClose:
		if _, err = xdr.DecodeUint32(r); err == nil { // seqid
			err = skipStateid(r)
		}
	case OpDelegPurge:
		_, err = xdr.DecodeUint64(r) // clientid
	case OpDelegReturn:
		err = skipStateid(r)
	case OpGetattr:
		err = skipBitmap4(r)
	case OpLink:
		_, err = xdr.DecodeString(r) // newname
	case OpLock:
		if _, err = xdr.DecodeUint32(r); err != nil { // locktype
			break
		}
		if _, err = xdr.DecodeBool(r); err != nil { // reclaim
			break
		}
		if _, err = xdr.DecodeUint64(r); err != nil { // offset
			break
		}
		if _, err = xdr.DecodeUint64(r); err != nil { // length
			break
		}
		err = skipLocker4(r)
	case OpLockT:
		if _, err = xdr.DecodeUint32(r); err != nil { // locktype
			break
		}
		if _, err = xdr.DecodeUint64(r); err != nil { // offset
			break
		}
		if _, err = xdr.DecodeUint64(r); err != nil { // length
			break
		}
		err = skipLockOwner4(r)
	case OpLockU:
		if _, err = xdr.DecodeUint32(r); err != nil { // locktype
			break
		}
		if _, err = xdr.DecodeUint32(r); err != nil { // seqid
			break
		}
		if err = skipStateid(r); err != nil { // lock_stateid
			break
		}
		if _, err = xdr.DecodeUint64(r); err != nil { // offset
			break
		}
		_, err = xdr.DecodeUint64(r) // length
	case OpLookupP, OpPutPubFH, OpReadlink, OpRestoreFH, OpSaveFH:
		// void arguments.
	case OpNVerify, OpVerify:
		err = skipFattr4(r)
	case OpOpenAttr:
		_, err = xdr.DecodeBool(r) // createdir
	case OpOpenConfirm:
		if err = skipStateid(r); err == nil {
			_, err = xdr.DecodeUint32(r) // seqid
		}
	case OpOpenDowngrade:
		if err = skipStateid(r); err != nil {
			break
		}
		if _, err = xdr.DecodeUint32(r); err != nil { // seqid
			break
		}
		if _, err = xdr.DecodeUint32(r); err != nil { // share_access
			break
		}
		_, err = xdr.DecodeUint32(r) // share_deny
	case OpRename:
		if _, err = xdr.DecodeString(r); err != nil { // oldname
			break
		}
		_, err = xdr.DecodeString(r) // newname
	case OpRenew:
		_, err = xdr.DecodeUint64(r) // clientid
	case OpSecinfo:
		_, err = xdr.DecodeString(r) // name
	case OpSetattr:
		if err = skipStateid(r); err == nil {
			err = skipFattr4(r)
		}
	case OpSetclientid:
		if _, err = xdr.DecodeFixedOpaque(r, 8); err != nil { // client verifier
			break
		}
		if _, err = xdr.DecodeOpaque(r); err != nil { // client id
			break
		}
		if _, err = xdr.DecodeUint32(r); err != nil { // cb_program
			break
		}
		if _, err = xdr.DecodeString(r); err != nil { // r_netid
			break
		}
		if _, err = xdr.DecodeString(r); err != nil { // r_addr
			break
		}
		_, err = xdr.DecodeUint32(r) // callback_ident
	case OpSetclientidConfirm:
		if _, err = xdr.DecodeUint64(r); err != nil { // clientid
			break
		}
		_, err = xdr.DecodeFixedOpaque(r, 8) // confirm verifier
	case OpReleaseLockowner:
		err = skipLockOwner4(r)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dissectRequestCompound walks a COMPOUND4args body, applying spec §4.3's
// opcode-effect table. It returns the populated xidmap entry for the call,
// or an error if the bytes don't decode or name an opcode this engine does
// not structurally understand — in which case dissection of this one
// message is abandoned (the caller raises MalformedData and moves on; the
// flow itself is not torn down).
func (s *State) dissectRequestCompound(args []byte, xid uint32) (*RequestXidMap, error) {
	r := bytes.NewReader(args)

	if _, err := xdr.DecodeOpaque(r); err != nil { // tag
		return nil, fmt.Errorf("compound tag: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // minorversion
		return nil, fmt.Errorf("compound minorversion: %w", err)
	}
	numOps, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("compound numops: %w", err)
	}

	xm := &RequestXidMap{}
	var haveFH bool
	var curFH FileHandle

	for i := uint32(0); i < numOps; i++ {
		opcode, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("op %d opcode: %w", i, err)
		}

		switch opcode {
		case OpPutFH:
			fh, err := xdr.DecodeOpaque(r)
			if err != nil {
				return nil, fmt.Errorf("putfh: %w", err)
			}
			curFH = FileHandle(fh)
			haveFH = true

		case OpPutRootFH:
			curFH = FileHandle(mountRootName)
			haveFH = true

		case OpLookup:
			name, err := xdr.DecodeString(r)
			if err != nil {
				return nil, fmt.Errorf("lookup: %w", err)
			}
			xm.FileName = name

		case OpOpen:
			name, err := decodeOpenArgsFileName(r)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			if name != "" {
				xm.FileName = name
			}

		case OpCreate:
			name, err := decodeCreateArgsFileName(r)
			if err != nil {
				return nil, fmt.Errorf("create: %w", err)
			}
			xm.FileName = name
			tx := s.newTx()
			tx.MainOpcode = OpCreate
			tx.FileName = name
			if haveFH {
				tx.FileHandle = curFH
			}
			tx.markRequestDone()
			xm.txID = tx.TxID()

		case OpRemove:
			name, err := xdr.DecodeString(r)
			if err != nil {
				return nil, fmt.Errorf("remove: %w", err)
			}
			xm.FileName = name
			tx := s.newTx()
			tx.MainOpcode = OpRemove
			tx.FileName = name
			if haveFH {
				tx.FileHandle = curFH
			}
			tx.markRequestDone()
			xm.txID = tx.TxID()

		case OpRead:
			if err := skipStateid(r); err != nil {
				return nil, fmt.Errorf("read stateid: %w", err)
			}
			offset, err := xdr.DecodeUint64(r)
			if err != nil {
				return nil, fmt.Errorf("read offset: %w", err)
			}
			if _, err := xdr.DecodeUint32(r); err != nil { // count
				return nil, fmt.Errorf("read count: %w", err)
			}
			if haveFH {
				xm.FileHandle = curFH
				xm.ChunkOffset = offset
			}

		case OpWrite:
			if err := skipStateid(r); err != nil {
				return nil, fmt.Errorf("write stateid: %w", err)
			}
			offset, err := xdr.DecodeUint64(r)
			if err != nil {
				return nil, fmt.Errorf("write offset: %w", err)
			}
			stable, err := xdr.DecodeUint32(r)
			if err != nil {
				return nil, fmt.Errorf("write stable: %w", err)
			}
			data, err := xdr.DecodeOpaque(r)
			if err != nil {
				return nil, fmt.Errorf("write data: %w", err)
			}
			if haveFH {
				s.applyWrite(xm, curFH, offset, stable, data, xid)
			}

		case OpCommit:
			if _, err := xdr.DecodeUint64(r); err != nil { // offset
				return nil, fmt.Errorf("commit offset: %w", err)
			}
			if _, err := xdr.DecodeUint32(r); err != nil { // count
				return nil, fmt.Errorf("commit count: %w", err)
			}
			if haveFH {
				s.applyCommit(xm, curFH)
			}

		default:
			handled, err := skipAuxRequestArgs(r, opcode)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", OpName(opcode), err)
			}
			if !handled {
				return nil, fmt.Errorf("unhandled opcode %s in request compound", OpName(opcode))
			}
		}
	}

	if xm.FileHandle == "" && haveFH {
		xm.FileHandle = curFH
	}
	return xm, nil
}
