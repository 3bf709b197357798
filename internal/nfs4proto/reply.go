package nfs4proto

import (
	"bytes"
	"fmt"

	"github.com/flowlayer/protoscan/internal/xdr"
)

// open_delegation_type4 (RFC 7530 §16.16.4), only the NFSv4.0 arms.
const (
	delegationNone  = 0
	delegationRead  = 1
	delegationWrite = 2
)

// skipNfsace4 discards a single nfsace4: type+flag+access_mask (3 uint32)
// followed by the principal string.
func skipNfsace4(r *bytes.Reader) error {
	for i := 0; i < 3; i++ {
		if _, err := xdr.DecodeUint32(r); err != nil {
			return fmt.Errorf("nfsace4 field %d: %w", i, err)
		}
	}
	if _, err := xdr.DecodeString(r); err != nil {
		return fmt.Errorf("nfsace4 who: %w", err)
	}
	return nil
}

// skipOpenDelegation skips the open_delegation4 union following an
// OPEN4resok's rflags+attrset, supporting only the three NFSv4.0 arms.
func skipOpenDelegation(r *bytes.Reader) error {
	delegType, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("delegation type: %w", err)
	}
	switch delegType {
	case delegationNone:
		return nil
	case delegationRead:
		if err := skipStateid(r); err != nil {
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // recall
			return err
		}
		return skipNfsace4(r)
	case delegationWrite:
		if err := skipStateid(r); err != nil {
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // recall
			return err
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // space_limit4 discriminant
			return err
		}
		if _, err := xdr.DecodeFixedOpaque(r, 8); err != nil { // limit union, always 8 bytes
			return err
		}
		return skipNfsace4(r)
	default:
		return fmt.Errorf("unsupported open_delegation4 type %d", delegType)
	}
}

// skipOpenResult discards an OPEN4resok body. OPEN never appears in spec
// §4.3's reply effect table — a compound always follows it with GETFH to
// fetch the handle this engine actually needs — so this only needs to
// consume the bytes accurately enough to reach the next operation.
func skipOpenResult(r *bytes.Reader) error {
	if err := skipStateid(r); err != nil {
		return fmt.Errorf("open stateid: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // change_info4.atomic
		return fmt.Errorf("open cinfo.atomic: %w", err)
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // change_info4.before
		return fmt.Errorf("open cinfo.before: %w", err)
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // change_info4.after
		return fmt.Errorf("open cinfo.after: %w", err)
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // rflags
		return fmt.Errorf("open rflags: %w", err)
	}
	if err := skipBitmap4(r); err != nil {
		return fmt.Errorf("open attrset: %w", err)
	}
	return skipOpenDelegation(r)
}

func skipChangeInfo4(r *bytes.Reader) error {
	if _, err := xdr.DecodeUint32(r); err != nil { // atomic
		return err
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // before
		return err
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // after
		return err
	}
	return nil
}

// decodeReaddirResult walks READDIR4resok's entry4 linked list, counting
// entries without interpreting their attributes (spec §4.3: "currently
// only logged").
func decodeReaddirResult(r *bytes.Reader) (entries int, eof bool, err error) {
	if _, err := xdr.DecodeFixedOpaque(r, 8); err != nil { // cookieverf4
		return 0, false, fmt.Errorf("readdir cookieverf: %w", err)
	}
	for {
		more, err := xdr.DecodeBool(r)
		if err != nil {
			return entries, false, fmt.Errorf("readdir value_follows: %w", err)
		}
		if !more {
			break
		}
		if _, err := xdr.DecodeUint64(r); err != nil { // cookie
			return entries, false, fmt.Errorf("readdir cookie: %w", err)
		}
		if _, err := xdr.DecodeString(r); err != nil { // name
			return entries, false, fmt.Errorf("readdir name: %w", err)
		}
		if err := skipFattr4(r); err != nil {
			return entries, false, fmt.Errorf("readdir attrs: %w", err)
		}
		entries++
	}
	eof, err = xdr.DecodeBool(r)
	if err != nil {
		return entries, false, fmt.Errorf("readdir eof: %w", err)
	}
	return entries, eof, nil
}

// skipSecinfoResult discards a SECINFO4resok array: each element is a
// flavor (uint32) plus, for RPCSEC_GSS (6), an rpcsec_gss_info (oid opaque,
// qop uint32, service uint32).
const secFlavorRPCSecGSS = 6

func skipSecinfoResult(r *bytes.Reader) error {
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("secinfo count: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		flavor, err := xdr.DecodeUint32(r)
		if err != nil {
			return fmt.Errorf("secinfo[%d] flavor: %w", i, err)
		}
		if flavor != secFlavorRPCSecGSS {
			continue
		}
		if _, err := xdr.DecodeOpaque(r); err != nil { // oid
			return fmt.Errorf("secinfo[%d] oid: %w", i, err)
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // qop
			return fmt.Errorf("secinfo[%d] qop: %w", i, err)
		}
		if _, err := xdr.DecodeUint32(r); err != nil { // service
			return fmt.Errorf("secinfo[%d] service: %w", i, err)
		}
	}
	return nil
}

// skipAuxReplyArgs discards the resok body of an "aux" opcode on the reply
// side, mirroring skipAuxRequestArgs's role on the call side: none of
// these affect transaction or file-tracker state (spec §4.3's reply table
// names only GETFH/READ/READDIR/CREATE/REMOVE/PUTROOTFH), but their bytes
// must still be consumed accurately to reach the next result.
func skipAuxReplyArgs(r *bytes.Reader, opcode uint32) (ok bool, err error) {
	switch opcode {
	case OpAccess:
		if _, err = xdr.DecodeUint32(r); err != nil { // supported
			break
		}
		_, err = xdr.DecodeUint32(r) // access
	case OpClose:
		err = skipStateid(r)
	case OpDelegPurge, OpDelegReturn, OpLookupP, OpOpenAttr, OpPutPubFH,
		OpRenew, OpRestoreFH, OpSaveFH, OpSetclientidConfirm, OpVerify,
		OpNVerify, OpReleaseLockowner, OpLockT:
		// void on success.
	case OpGetattr:
		err = skipFattr4(r)
	case OpLink:
		err = skipChangeInfo4(r)
	case OpLock, OpLockU, OpOpenConfirm, OpOpenDowngrade:
		err = skipStateid(r)
	case OpReadlink:
		_, err = xdr.DecodeString(r)
	case OpRename:
		if err = skipChangeInfo4(r); err != nil { // source
			break
		}
		err = skipChangeInfo4(r) // target
	case OpSecinfo:
		err = skipSecinfoResult(r)
	case OpSetattr:
		err = skipBitmap4(r)
	case OpSetclientid:
		if _, err = xdr.DecodeUint64(r); err != nil { // clientid
			break
		}
		_, err = xdr.DecodeFixedOpaque(r, 8) // confirm verifier
	case OpWrite:
		if _, err = xdr.DecodeUint32(r); err != nil { // count
			break
		}
		if _, err = xdr.DecodeUint32(r); err != nil { // committed
			break
		}
		_, err = xdr.DecodeFixedOpaque(r, 8) // writeverf4
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dissectReplyCompound walks a COMPOUND4res body and applies spec §4.3's
// reply-side opcode-effect table, using xm (the matching request's xidmap
// entry, already removed from the table by the caller) to correlate
// GETFH/READ back to the file they belong to. Like the request side, an
// opcode this engine cannot structurally skip aborts dissection of this
// one message.
func (s *State) dissectReplyCompound(xm *RequestXidMap, args []byte) error {
	r := bytes.NewReader(args)

	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("compound status: %w", err)
	}
	if _, err := xdr.DecodeOpaque(r); err != nil { // tag
		return fmt.Errorf("compound tag: %w", err)
	}
	numRes, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("compound numres: %w", err)
	}

	for i := uint32(0); i < numRes; i++ {
		opcode, err := xdr.DecodeUint32(r)
		if err != nil {
			return fmt.Errorf("result %d opcode: %w", i, err)
		}
		opStatus, err := xdr.DecodeUint32(r)
		if err != nil {
			return fmt.Errorf("result %d status: %w", i, err)
		}
		if opStatus != statusOK {
			// Execution stopped here; no further results are present.
			break
		}

		switch opcode {
		case OpPutFH, OpLookup, OpCommit:
			// void or already fully consumed by the overall compound's
			// bookkeeping; nothing further to decode.

		case OpPutRootFH:
			// spec §4.3: PUTROOTFH(OK) with empty file_name binds the
			// request's xidmap entry (and its transaction, if one already
			// exists) to the synthetic root name so a later GETFH still has
			// a name to attach to the handle.
			if xm.FileName == "" {
				xm.FileName = mountRootName
			}
			if xm.txID != 0 {
				if tx, found := s.txByID(xm.txID); found && tx.FileName == "" {
					tx.FileName = mountRootName
				}
			}

		case OpOpen:
			if err := skipOpenResult(r); err != nil {
				return fmt.Errorf("open result: %w", err)
			}

		case OpGetFH:
			handle, err := xdr.DecodeOpaque(r)
			if err != nil {
				return fmt.Errorf("getfh result: %w", err)
			}
			fh := FileHandle(handle)
			if xm.FileName != "" {
				s.names[fh] = xm.FileName
			}
			if xm.txID != 0 {
				if tx, found := s.txByID(xm.txID); found {
					tx.FileHandle = fh
				}
			}

		case OpRead:
			eof, err := xdr.DecodeBool(r)
			if err != nil {
				return fmt.Errorf("read eof: %w", err)
			}
			data, err := xdr.DecodeOpaque(r)
			if err != nil {
				return fmt.Errorf("read data: %w", err)
			}
			s.applyRead(xm, data, eof)

		case OpReaddir:
			if _, _, err := decodeReaddirResult(r); err != nil {
				return fmt.Errorf("readdir result: %w", err)
			}

		case OpCreate:
			if err := skipChangeInfo4(r); err != nil {
				return fmt.Errorf("create cinfo: %w", err)
			}
			if err := skipBitmap4(r); err != nil {
				return fmt.Errorf("create attrset: %w", err)
			}
			if xm.txID != 0 {
				if tx, found := s.txByID(xm.txID); found {
					tx.markResponseDone()
				}
			}

		case OpRemove:
			if err := skipChangeInfo4(r); err != nil {
				return fmt.Errorf("remove cinfo: %w", err)
			}
			if xm.txID != 0 {
				if tx, found := s.txByID(xm.txID); found {
					tx.markResponseDone()
				}
			}

		default:
			handled, err := skipAuxReplyArgs(r, opcode)
			if err != nil {
				return fmt.Errorf("%s: %w", OpName(opcode), err)
			}
			if !handled {
				return fmt.Errorf("unhandled opcode %s in reply compound", OpName(opcode))
			}
		}
	}

	if xm.txID != 0 {
		if tx, found := s.txByID(xm.txID); found {
			tx.Status = status
		}
	}
	return nil
}
