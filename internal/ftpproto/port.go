package ftpproto

import (
	"bytes"
	"fmt"
)

var portTag = []byte("PORT")

// ParsePORT parses a `PORT a,b,c,d,p1,p2` command line and returns the
// data-channel port the client asked the server to connect back to.
func ParsePORT(line []byte) (port uint16, err error) {
	rest := bytes.TrimSpace(line)
	if !bytes.HasPrefix(rest, portTag) {
		return 0, fmt.Errorf("ftpproto: not a PORT command")
	}
	rest = bytes.TrimSpace(rest[len(portTag):])

	tuple, _, err := parseSixTuple(rest)
	if err != nil {
		return 0, fmt.Errorf("ftpproto: PORT: %w", err)
	}
	return portFromTuple(tuple), nil
}
