package rpcwire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/flowlayer/protoscan/internal/xdr"
)

const (
	maxUnixMachineName = 255
	maxUnixGIDs        = 16
)

// UnixAuth is the decoded body of an OpaqueAuth whose Flavor is AuthUnix
// (RFC 5531 Section 8.3, auth_unix).
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// ParseUnixAuth decodes an AUTH_UNIX credential body (the OpaqueAuth.Body
// of a call's Cred field when Flavor is AuthUnix).
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("rpcwire: auth_unix body is empty")
	}

	r := bytes.NewReader(body)

	stamp, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix stamp: %w", err)
	}

	nameLen, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix machine name length: %w", err)
	}
	if nameLen > maxUnixMachineName {
		return nil, fmt.Errorf("rpcwire: auth_unix machine name too long: %d bytes", nameLen)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix machine name: %w", err)
	}
	if padding := (4 - (nameLen % 4)) % 4; padding > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(r, padBuf[:padding]); err != nil {
			return nil, fmt.Errorf("rpcwire: auth_unix machine name padding: %w", err)
		}
	}
	machineName := string(nameBytes)

	uid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix uid: %w", err)
	}
	gid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix gid: %w", err)
	}

	gidCount, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("rpcwire: auth_unix gid count: %w", err)
	}
	if gidCount > maxUnixGIDs {
		return nil, fmt.Errorf("rpcwire: auth_unix too many gids: %d", gidCount)
	}
	gids := make([]uint32, gidCount)
	for i := range gids {
		if gids[i], err = xdr.DecodeUint32(r); err != nil {
			return nil, fmt.Errorf("rpcwire: auth_unix gid[%d]: %w", i, err)
		}
	}

	return &UnixAuth{
		Stamp:       stamp,
		MachineName: machineName,
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}, nil
}

// String renders the credential for logging, matching the field set the
// rest of this tree logs for a client identity.
func (a *UnixAuth) String() string {
	return fmt.Sprintf("uid=%d gid=%d machine=%s gids=%v", a.UID, a.GID, a.MachineName, a.GIDs)
}
