package ftpproto

import (
	"bytes"
	"fmt"
)

var epsvMarker = []byte("|||")

// ParseExtendedPassiveReply229 parses a `229 Entering Extended Passive
// Mode (|||port|).` reply and returns the data-channel port.
func ParseExtendedPassiveReply229(line []byte) (port uint16, err error) {
	idx := bytes.Index(line, epsvMarker)
	if idx == -1 {
		return 0, fmt.Errorf("ftpproto: 229 reply missing '|||'")
	}
	body := line[idx+len(epsvMarker):]

	end := 0
	for end < len(body) && body[end] >= '0' && body[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("ftpproto: 229 reply missing port digits")
	}

	n, err := parseDecimal(body[:end], maxPort)
	if err != nil {
		return 0, fmt.Errorf("ftpproto: 229 reply port: %w", err)
	}

	trailer := body[end:]
	if !bytes.HasPrefix(trailer, []byte("|)")) {
		return 0, fmt.Errorf("ftpproto: 229 reply missing '|)' trailer")
	}

	return uint16(n), nil
}
