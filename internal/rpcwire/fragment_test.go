package rpcwire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragmentBytes(isLast bool, payload []byte) []byte {
	word := uint32(len(payload))
	if isLast {
		word |= 0x80000000
	}
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, word)
	return append(hdr, payload...)
}

func TestDecodeFragmentHeader(t *testing.T) {
	cases := []struct {
		name       string
		word       uint32
		wantLast   bool
		wantLength uint32
	}{
		{"last fragment, zero length", 0x80000000, true, 0},
		{"not last, length 100", 100, false, 100},
		{"last, max 31-bit length", 0xFFFFFFFF, true, 0x7FFFFFFF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, tc.word)
			hdr, err := DecodeFragmentHeader(b)
			require.NoError(t, err)
			assert.Equal(t, tc.wantLast, hdr.IsLast)
			assert.Equal(t, tc.wantLength, hdr.Length)
		})
	}

	t.Run("TooShort", func(t *testing.T) {
		_, err := DecodeFragmentHeader([]byte{0, 0, 1})
		require.Error(t, err)
	})
}

func TestValidateFragmentLength(t *testing.T) {
	assert.NoError(t, ValidateFragmentLength(MaxFragmentSize), "max size should be valid")
	assert.Error(t, ValidateFragmentLength(MaxFragmentSize+1), "expected error for fragment exceeding max size")
}

func TestReassemblerSingleFragmentMessage(t *testing.T) {
	re := NewReassembler()
	payload := []byte("hello rpc")
	msgs, err := re.Feed(fragmentBytes(true, payload))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, payload, msgs[0])
	assert.Equal(t, 0, re.Pending(), "Pending() should be 0 after full message")
}

func TestReassemblerMultiFragmentMessage(t *testing.T) {
	re := NewReassembler()
	part1 := fragmentBytes(false, []byte("first "))
	part2 := fragmentBytes(true, []byte("second"))

	msgs, err := re.Feed(part1)
	require.NoError(t, err)
	require.Empty(t, msgs, "expected no complete message yet")

	msgs, err = re.Feed(part2)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first second", string(msgs[0]))
}

func TestReassemblerPartialFragmentBody(t *testing.T) {
	re := NewReassembler()
	full := fragmentBytes(true, []byte("abcdefgh"))

	msgs, err := re.Feed(full[:6]) // header + partial body
	require.NoError(t, err)
	require.Empty(t, msgs, "expected no message from partial body")

	msgs, err = re.Feed(full[6:])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "abcdefgh", string(msgs[0]))
}

func TestReassemblerMultipleMessagesInOneFeed(t *testing.T) {
	re := NewReassembler()
	data := append(fragmentBytes(true, []byte("one")), fragmentBytes(true, []byte("two"))...)

	msgs, err := re.Feed(data)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", string(msgs[0]))
	assert.Equal(t, "two", string(msgs[1]))
}

func TestReassemblerRejectsOversizedFragment(t *testing.T) {
	re := NewReassembler()
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, 0x80000000|uint32(MaxFragmentSize+1))

	_, err := re.Feed(hdr)
	require.Error(t, err)
}

func TestReassemblerReset(t *testing.T) {
	re := NewReassembler()
	_, _ = re.Feed(fragmentBytes(false, []byte("partial")))
	require.NotZero(t, re.Pending(), "expected pending bytes before reset")
	re.Reset()
	assert.Equal(t, 0, re.Pending(), "Pending() after reset")
}
