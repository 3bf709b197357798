package nfs4proto

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/flowlayer/protoscan/internal/config"
)

func testLimits() config.Limits {
	return config.Limits{
		NFSTxCap:           8,
		NFSMaxFileTrackers: 8,
		NFSXIDMapTTL:       time.Minute,
	}
}

func putU32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func putU64(buf *bytes.Buffer, v uint64) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func putBool(buf *bytes.Buffer, v bool) {
	if v {
		putU32(buf, 1)
	} else {
		putU32(buf, 0)
	}
}

func putOpaque(buf *bytes.Buffer, data []byte) {
	putU32(buf, uint32(len(data)))
	buf.Write(data)
	for i := 0; i < (4-len(data)%4)%4; i++ {
		buf.WriteByte(0)
	}
}

func putFixedOpaque(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
	for i := 0; i < (4-len(data)%4)%4; i++ {
		buf.WriteByte(0)
	}
}

func putString(buf *bytes.Buffer, s string) {
	putOpaque(buf, []byte(s))
}

func putStateid(buf *bytes.Buffer) {
	putFixedOpaque(buf, make([]byte, stateidSize))
}

func putBitmap4Empty(buf *bytes.Buffer) {
	putU32(buf, 0)
}

func emptyBitmap4() []byte {
	buf := &bytes.Buffer{}
	putBitmap4Empty(buf)
	return buf.Bytes()
}

type op struct {
	code uint32
	args []byte
}

func buildCompoundArgs(tag string, ops []op) []byte {
	buf := &bytes.Buffer{}
	putString(buf, tag)
	putU32(buf, 0) // minorversion
	putU32(buf, uint32(len(ops)))
	for _, o := range ops {
		putU32(buf, o.code)
		buf.Write(o.args)
	}
	return buf.Bytes()
}

func putFHArgs(handle string) []byte {
	buf := &bytes.Buffer{}
	putOpaque(buf, []byte(handle))
	return buf.Bytes()
}

func writeArgs(offset uint64, stable uint32, data []byte) []byte {
	buf := &bytes.Buffer{}
	putStateid(buf)
	putU64(buf, offset)
	putU32(buf, stable)
	putOpaque(buf, data)
	return buf.Bytes()
}

func commitArgs(offset uint64, count uint32) []byte {
	buf := &bytes.Buffer{}
	putU64(buf, offset)
	putU32(buf, count)
	return buf.Bytes()
}

func lookupArgs(name string) []byte {
	buf := &bytes.Buffer{}
	putString(buf, name)
	return buf.Bytes()
}

// writeResultArgs builds a WRITE4resok body: count, committed, writeverf4.
func writeResultArgs(count uint32, committed uint32) []byte {
	buf := &bytes.Buffer{}
	putU32(buf, count)
	putU32(buf, committed)
	putFixedOpaque(buf, make([]byte, 8)) // writeverf4
	return buf.Bytes()
}

func frame(msg []byte) []byte {
	buf := &bytes.Buffer{}
	putU32(buf, uint32(len(msg))|0x80000000)
	buf.Write(msg)
	return buf.Bytes()
}

func encodeCallMsg(xid, procedure uint32, args []byte) []byte {
	buf := &bytes.Buffer{}
	putU32(buf, xid)
	putU32(buf, 0) // CALL
	putU32(buf, 2) // rpcvers
	putU32(buf, 100003)
	putU32(buf, 4)
	putU32(buf, procedure)
	putU32(buf, 0) // cred flavor AUTH_NONE
	putU32(buf, 0) // cred body len
	putU32(buf, 0) // verf flavor AUTH_NONE
	putU32(buf, 0) // verf body len
	buf.Write(args)
	return buf.Bytes()
}

func encodeReplyMsg(xid uint32, results []byte) []byte {
	buf := &bytes.Buffer{}
	putU32(buf, xid)
	putU32(buf, 1) // REPLY
	putU32(buf, 0) // MSG_ACCEPTED
	putU32(buf, 0) // verf flavor AUTH_NONE
	putU32(buf, 0) // verf body len
	putU32(buf, 0) // accept stat SUCCESS
	buf.Write(results)
	return buf.Bytes()
}

func replyArgs(status uint32, tag string, ops []op) []byte {
	buf := &bytes.Buffer{}
	putU32(buf, status)
	putString(buf, tag)
	putU32(buf, uint32(len(ops)))
	for _, o := range ops {
		putU32(buf, o.code)
		putU32(buf, statusOK)
		buf.Write(o.args)
	}
	return buf.Bytes()
}
