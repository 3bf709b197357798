// Package gss decodes the RPCSEC_GSS layer (RFC 2203) carried inside an
// rpcwire.OpaqueAuth whose flavor is AuthRPCSecGSS: the per-call
// credential, and — where the security service is integrity — the
// rpc_gss_integ_data wrapper around the procedure arguments.
//
// A passive observer never holds the GSS context's session key, so unlike
// the same layer in a real NFS server this package does not attempt MIC
// verification or unwrapping of privacy-protected (encrypted) bodies; it
// decodes what is visible on the wire and reports the rest as opaque.
package gss

import (
	"bytes"
	"fmt"

	"github.com/flowlayer/protoscan/internal/xdr"
)

// RPCSEC_GSS version. Only version 1 is defined.
const Version1 uint32 = 1

// Procedure values (gss_proc field of the credential), indicating the
// purpose of the call within the GSS context lifecycle.
const (
	ProcData         uint32 = 0
	ProcInit         uint32 = 1
	ProcContinueInit uint32 = 2
	ProcDestroy      uint32 = 3
)

// Service levels, determining how the call body is protected.
const (
	SvcNone      uint32 = 1
	SvcIntegrity uint32 = 2
	SvcPrivacy   uint32 = 3
)

const maxHandleLen = 65536

// Cred is the RPCSEC_GSS credential body carried in a call's OpaqueAuth
// when Flavor is AuthRPCSecGSS (RFC 2203 Section 5.3.1).
type Cred struct {
	GSSProc uint32
	SeqNum  uint32
	Service uint32
	Handle  []byte
}

// DecodeCred decodes an RPCSEC_GSS credential from an OpaqueAuth body.
// The body starts with the version field, which must be 1.
func DecodeCred(body []byte) (*Cred, error) {
	if len(body) < 20 { // version+gss_proc+seq_num+service+handle_len, each 4 bytes
		return nil, fmt.Errorf("gss: credential body too short: %d bytes", len(body))
	}

	r := bytes.NewReader(body)

	version, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("gss: version: %w", err)
	}
	if version != Version1 {
		return nil, fmt.Errorf("gss: unsupported version %d (expected %d)", version, Version1)
	}

	cred := &Cred{}
	if cred.GSSProc, err = xdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("gss: gss_proc: %w", err)
	}
	if cred.SeqNum, err = xdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("gss: seq_num: %w", err)
	}
	if cred.Service, err = xdr.DecodeUint32(r); err != nil {
		return nil, fmt.Errorf("gss: service: %w", err)
	}

	handleLen, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("gss: handle length: %w", err)
	}
	if handleLen > maxHandleLen {
		return nil, fmt.Errorf("gss: handle length %d exceeds maximum %d", handleLen, maxHandleLen)
	}
	if handleLen > 0 {
		cred.Handle = make([]byte, handleLen)
		if err := readExact(r, cred.Handle); err != nil {
			return nil, fmt.Errorf("gss: handle: %w", err)
		}
		if err := skipPadding(r, handleLen); err != nil {
			return nil, fmt.Errorf("gss: handle padding: %w", err)
		}
	}

	return cred, nil
}

func readExact(r *bytes.Reader, dst []byte) error {
	n, err := r.Read(dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("short read: got %d, want %d", n, len(dst))
	}
	return nil
}

func skipPadding(r *bytes.Reader, length uint32) error {
	padding := (4 - (length % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}
