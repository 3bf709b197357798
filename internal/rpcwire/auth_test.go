package rpcwire

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUnixAuth() *UnixAuth {
	return &UnixAuth{
		Stamp:       uint32(time.Now().Unix()),
		MachineName: "testhost",
		UID:         1000,
		GID:         1000,
		GIDs:        []uint32{4, 24, 27, 30},
	}
}

func encodeUnixAuth(auth *UnixAuth) []byte {
	buf := new(bytes.Buffer)

	_ = binary.Write(buf, binary.BigEndian, auth.Stamp)

	nameLen := uint32(len(auth.MachineName))
	_ = binary.Write(buf, binary.BigEndian, nameLen)
	buf.WriteString(auth.MachineName)
	for i := uint32(0); i < (4-nameLen%4)%4; i++ {
		buf.WriteByte(0)
	}

	_ = binary.Write(buf, binary.BigEndian, auth.UID)
	_ = binary.Write(buf, binary.BigEndian, auth.GID)

	_ = binary.Write(buf, binary.BigEndian, uint32(len(auth.GIDs)))
	for _, gid := range auth.GIDs {
		_ = binary.Write(buf, binary.BigEndian, gid)
	}

	return buf.Bytes()
}

func TestParseUnixAuth(t *testing.T) {
	t.Run("ParsesValidCredentials", func(t *testing.T) {
		original := validUnixAuth()
		body := encodeUnixAuth(original)

		parsed, err := ParseUnixAuth(body)
		require.NoError(t, err)
		assert.Equal(t, original.Stamp, parsed.Stamp)
		assert.Equal(t, original.MachineName, parsed.MachineName)
		assert.Equal(t, original.UID, parsed.UID)
		assert.Equal(t, original.GID, parsed.GID)
		assert.Equal(t, original.GIDs, parsed.GIDs)
	})

	t.Run("ParsesRootCredentials", func(t *testing.T) {
		auth := &UnixAuth{Stamp: 1, MachineName: "testhost", UID: 0, GID: 0, GIDs: []uint32{}}
		parsed, err := ParseUnixAuth(encodeUnixAuth(auth))
		require.NoError(t, err)
		assert.EqualValues(t, 0, parsed.UID)
		assert.EqualValues(t, 0, parsed.GID)
		assert.Empty(t, parsed.GIDs)
	})

	t.Run("ParsesWithMaximumGroups", func(t *testing.T) {
		gids := make([]uint32, 16)
		for i := range gids {
			gids[i] = uint32(i + 1000)
		}
		auth := &UnixAuth{Stamp: 12345, MachineName: "testhost", UID: 1000, GID: 1000, GIDs: gids}
		parsed, err := ParseUnixAuth(encodeUnixAuth(auth))
		require.NoError(t, err)
		assert.Equal(t, gids, parsed.GIDs)
	})

	t.Run("RejectsExcessiveGroups", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(12345))
		_ = binary.Write(buf, binary.BigEndian, uint32(8))
		buf.WriteString("testhost")
		_ = binary.Write(buf, binary.BigEndian, uint32(1000))
		_ = binary.Write(buf, binary.BigEndian, uint32(1000))
		_ = binary.Write(buf, binary.BigEndian, uint32(17)) // too many groups

		_, err := ParseUnixAuth(buf.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many gids")
	})

	t.Run("RejectsLongMachineName", func(t *testing.T) {
		buf := new(bytes.Buffer)
		_ = binary.Write(buf, binary.BigEndian, uint32(12345))
		_ = binary.Write(buf, binary.BigEndian, uint32(256)) // too long

		_, err := ParseUnixAuth(buf.Bytes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "machine name too long")
	})

	t.Run("RejectsEmptyBody", func(t *testing.T) {
		_, err := ParseUnixAuth([]byte{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("HandlesEmptyMachineName", func(t *testing.T) {
		auth := &UnixAuth{Stamp: 12345, MachineName: "", UID: 1000, GID: 1000, GIDs: []uint32{}}
		parsed, err := ParseUnixAuth(encodeUnixAuth(auth))
		require.NoError(t, err)
		assert.Empty(t, parsed.MachineName)
	})
}

func TestUnixAuthString(t *testing.T) {
	auth := &UnixAuth{Stamp: 12345, MachineName: "testhost", UID: 1000, GID: 1000, GIDs: []uint32{4, 24, 27, 30}}
	str := auth.String()
	for _, want := range []string{"testhost", "1000", "[4 24 27 30]"} {
		assert.Contains(t, str, want)
	}
}

func TestAuthFlavorsAreUnique(t *testing.T) {
	flavors := []uint32{AuthNull, AuthUnix, AuthShort, AuthDES, AuthRPCSecGSS}
	seen := make(map[uint32]bool)
	for _, f := range flavors {
		assert.False(t, seen[f], "flavor %d is not unique", f)
		seen[f] = true
	}
}
