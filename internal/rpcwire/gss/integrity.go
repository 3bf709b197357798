package gss

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const maxIntegOpaqueLen = 1 << 20 // 1MB safety limit, matches the XDR opaque cap elsewhere

// IntegData is a decoded rpc_gss_integ_data wrapper (RFC 2203 Section
// 5.3.3.4.2):
//
//	struct rpc_gss_integ_data {
//	    opaque databody_integ<>;  // XDR(seq_num + args)
//	    opaque checksum<>;        // MIC over databody_integ
//	};
type IntegData struct {
	SeqNum  uint32
	Args    []byte // procedure arguments, i.e. databody_integ with the seq_num prefix stripped
	MIC     []byte // raw MIC token bytes, unverified
}

// DecodeIntegData decodes an rpc_gss_integ_data body without attempting
// MIC verification: a passive observer has no session key to verify
// against. The sequence number is read straight out of databody_integ
// rather than cross-checked against the credential's seq_num, since that
// dual-validation step exists to defend a server against replay, which is
// not this package's job.
func DecodeIntegData(body []byte) (*IntegData, error) {
	r := bytes.NewReader(body)

	databodyInteg, err := readOpaque(r)
	if err != nil {
		return nil, fmt.Errorf("gss: databody_integ: %w", err)
	}
	mic, err := readOpaque(r)
	if err != nil {
		return nil, fmt.Errorf("gss: checksum: %w", err)
	}

	if len(databodyInteg) < 4 {
		return nil, fmt.Errorf("gss: databody_integ too short for seq_num: %d bytes", len(databodyInteg))
	}

	return &IntegData{
		SeqNum: binary.BigEndian.Uint32(databodyInteg[0:4]),
		Args:   databodyInteg[4:],
		MIC:    mic,
	}, nil
}

// readOpaque reads a variable-length XDR opaque value (length-prefixed,
// padded to a 4-byte boundary).
func readOpaque(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if length > maxIntegOpaqueLen {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, maxIntegOpaqueLen)
	}

	data := make([]byte, length)
	if _, err := r.Read(data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	padding := (4 - (length % 4)) % 4
	for i := uint32(0); i < padding; i++ {
		if _, err := r.ReadByte(); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}
