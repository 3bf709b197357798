package dnsproto

import (
	"encoding/binary"
	"fmt"
	"net"
)

const headerSize = 12

// Z-flag mask (RFC 1035 header flags: reserved bit, must be zero).
const zFlagMask = 0x0040

// qrMask isolates the QR bit (bit 15: 0 = query, 1 = response).
const qrMask = 0x8000

// RR type codes this core recognizes for lazy field interpretation; all
// other type codes are carried as opaque rdata.
const (
	TypeA    uint16 = 1
	TypeAAAA uint16 = 28
)

// Header is the fixed 12-byte DNS message header (RFC 1035 §4.1.1).
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// QR reports the query/response bit: false for a request, true for a
// response.
func (h Header) QR() bool { return h.Flags&qrMask != 0 }

// Z reports the reserved flag bit (mask 0x0040); RFC 1035 requires
// senders to set it to zero.
func (h Header) Z() bool { return h.Flags&zFlagMask != 0 }

// Question is one entry of the question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// RR is a resource record with its wire-format rdata kept opaque; type-
// specific interpretation happens at field-read time via Address.
type RR struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	RData []byte
}

// Address renders an A or AAAA record's rdata as text, returning false
// for any other type or a malformed-length rdata.
func (rr RR) Address() (string, bool) {
	switch rr.Type {
	case TypeA:
		if len(rr.RData) != net.IPv4len {
			return "", false
		}
		return net.IP(rr.RData).String(), true
	case TypeAAAA:
		if len(rr.RData) != net.IPv6len {
			return "", false
		}
		return net.IP(rr.RData).String(), true
	default:
		return "", false
	}
}

// Message is one decoded DNS message (query or response).
type Message struct {
	Header     Header
	Questions  []Question
	Answers    []RR
	Authority  []RR
	Additional []RR
}

// nameLimits bounds decodeName; threaded through from the flow state's
// configured limits rather than hardcoded, so a host can tune it.
type nameLimits struct {
	maxLen   int
	maxDepth int
}

// decodeMessage decodes exactly one DNS message from buf. buf must be
// the full message (datagram payload, or one already-extracted stream
// frame) — compression pointers are resolved against it directly.
func decodeMessage(buf []byte, limits nameLimits) (*Message, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("dnsproto: message shorter than header: %d bytes", len(buf))
	}

	msg := &Message{
		Header: Header{
			ID:      binary.BigEndian.Uint16(buf[0:2]),
			Flags:   binary.BigEndian.Uint16(buf[2:4]),
			QDCount: binary.BigEndian.Uint16(buf[4:6]),
			ANCount: binary.BigEndian.Uint16(buf[6:8]),
			NSCount: binary.BigEndian.Uint16(buf[8:10]),
			ARCount: binary.BigEndian.Uint16(buf[10:12]),
		},
	}

	pos := headerSize

	for i := 0; i < int(msg.Header.QDCount); i++ {
		name, n, err := decodeName(buf, pos, limits.maxLen, limits.maxDepth)
		if err != nil {
			return nil, fmt.Errorf("dnsproto: question[%d] name: %w", i, err)
		}
		pos += n
		if pos+4 > len(buf) {
			return nil, fmt.Errorf("dnsproto: question[%d] truncated type/class", i)
		}
		msg.Questions = append(msg.Questions, Question{
			Name:  name,
			Type:  binary.BigEndian.Uint16(buf[pos : pos+2]),
			Class: binary.BigEndian.Uint16(buf[pos+2 : pos+4]),
		})
		pos += 4
	}

	sections := []struct {
		count int
		dst   *[]RR
	}{
		{int(msg.Header.ANCount), &msg.Answers},
		{int(msg.Header.NSCount), &msg.Authority},
		{int(msg.Header.ARCount), &msg.Additional},
	}

	for _, sec := range sections {
		for i := 0; i < sec.count; i++ {
			rr, n, err := decodeRR(buf, pos, limits)
			if err != nil {
				return nil, fmt.Errorf("dnsproto: rr: %w", err)
			}
			pos += n
			*sec.dst = append(*sec.dst, rr)
		}
	}

	return msg, nil
}

func decodeRR(buf []byte, offset int, limits nameLimits) (RR, int, error) {
	name, n, err := decodeName(buf, offset, limits.maxLen, limits.maxDepth)
	if err != nil {
		return RR{}, 0, fmt.Errorf("name: %w", err)
	}
	pos := offset + n

	if pos+10 > len(buf) {
		return RR{}, 0, fmt.Errorf("truncated rr header at offset %d", pos)
	}
	rr := RR{
		Name:  name,
		Type:  binary.BigEndian.Uint16(buf[pos : pos+2]),
		Class: binary.BigEndian.Uint16(buf[pos+2 : pos+4]),
		TTL:   binary.BigEndian.Uint32(buf[pos+4 : pos+8]),
	}
	rdlen := int(binary.BigEndian.Uint16(buf[pos+8 : pos+10]))
	pos += 10

	if pos+rdlen > len(buf) {
		return RR{}, 0, fmt.Errorf("truncated rdata: need %d bytes, have %d", rdlen, len(buf)-pos)
	}
	rr.RData = append([]byte(nil), buf[pos:pos+rdlen]...)
	pos += rdlen

	return rr, pos - offset, nil
}
