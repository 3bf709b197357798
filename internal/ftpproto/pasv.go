package ftpproto

import (
	"bytes"
	"fmt"
)

// ParsePassiveReply227 parses a `227 Entering Passive Mode
// (a,b,c,d,p1,p2).` reply and returns the data-channel port the server
// is listening on. The trailing `.` after the closing paren is optional.
func ParsePassiveReply227(line []byte) (port uint16, err error) {
	open := bytes.IndexByte(line, '(')
	if open == -1 {
		return 0, fmt.Errorf("ftpproto: 227 reply missing '('")
	}
	body := line[open+1:]

	tuple, consumed, err := parseSixTuple(body)
	if err != nil {
		return 0, fmt.Errorf("ftpproto: 227 reply: %w", err)
	}

	trailer := body[consumed:]
	if len(trailer) == 0 || trailer[0] != ')' {
		return 0, fmt.Errorf("ftpproto: 227 reply missing closing ')'")
	}

	return portFromTuple(tuple), nil
}
