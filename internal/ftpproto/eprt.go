package ftpproto

import (
	"bytes"
	"fmt"
)

const maxPort = 65535

var eprtTag = []byte("EPRT")

// ParseEPRT parses an `EPRT |n|addr|port|` command line and returns the
// data-channel port. A port above 65535 fails (the boundary adapter
// reports 0 in that case per the core's contract; this function just
// returns the error).
func ParseEPRT(line []byte) (port uint16, err error) {
	rest := bytes.TrimSpace(line)
	if !bytes.HasPrefix(rest, eprtTag) {
		return 0, fmt.Errorf("ftpproto: not an EPRT command")
	}
	rest = bytes.TrimSpace(rest[len(eprtTag):])

	fields := bytes.Split(rest, []byte("|"))
	// "|n|addr|port|" splits into ["", n, addr, port, ""].
	if len(fields) != 5 {
		return 0, fmt.Errorf("ftpproto: EPRT: expected 3 pipe-delimited fields, got %d", max(len(fields)-2, 0))
	}

	portField := fields[3]
	n, err := parseDecimal(portField, maxPort)
	if err != nil {
		return 0, fmt.Errorf("ftpproto: EPRT port: %w", err)
	}
	return uint16(n), nil
}

// parseDecimal reads an unsigned decimal integer from an entire byte
// slice (no trailing garbage permitted), rejecting empty input or a
// value exceeding max.
func parseDecimal(data []byte, max int) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty decimal field")
	}
	n := 0
	for _, b := range data {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("non-decimal byte %q", b)
		}
		n = n*10 + int(b-'0')
		if n > max {
			return 0, fmt.Errorf("value exceeds %d: %q", max, data)
		}
	}
	return n, nil
}
