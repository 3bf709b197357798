// Package ftpproto implements the FTP data-channel address parsers named
// in the core's component design: PORT, the 227 passive-mode reply,
// EPRT, and the 229 extended-passive-mode reply. Every parser here is a
// pure function over borrowed bytes — no allocation, no retained state —
// since the host invokes them once per command or reply line and
// discards the result immediately.
package ftpproto

import "fmt"

// maxOctet is the largest value any a,b,c,d,p1,p2 component may take;
// PORT and 227 encode an IPv4 address and a 16-bit port as six decimal
// octets, so a component above 255 can never be valid.
const maxOctet = 255

// parseSixTuple reads six comma-separated decimal numbers starting at
// data, each required to be 0-255, and returns the number of bytes
// consumed and the tuple itself. It does not interpret the first four as
// an IPv4 address — the core only cares about the port, reconstructed by
// the caller as p1*256+p2.
func parseSixTuple(data []byte) (tuple [6]int, consumed int, err error) {
	pos := 0
	for i := 0; i < 6; i++ {
		start := pos
		for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
			pos++
		}
		if pos == start {
			return tuple, 0, fmt.Errorf("ftpproto: expected decimal at component %d", i)
		}
		n := 0
		for _, b := range data[start:pos] {
			n = n*10 + int(b-'0')
			if n > maxOctet {
				return tuple, 0, fmt.Errorf("ftpproto: component %d overflows 0-255: %q", i, data[start:pos])
			}
		}
		tuple[i] = n

		if i < 5 {
			if pos >= len(data) || data[pos] != ',' {
				return tuple, 0, fmt.Errorf("ftpproto: expected ',' after component %d", i)
			}
			pos++
		}
	}
	return tuple, pos, nil
}

// portFromTuple combines the last two octets of a six-tuple into a
// 16-bit TCP port, per PORT/227's p1*256+p2 convention.
func portFromTuple(tuple [6]int) uint16 {
	return uint16(tuple[4]*256 + tuple[5])
}
