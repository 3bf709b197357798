package gss

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/messages"
)

// ServiceIdentity is what a passive observer can read out of a krb5
// AP-REQ token without holding the service's keytab: the ticket's
// destination realm and service principal. Both are carried in cleartext
// in the Kerberos Ticket structure (RFC 4120 Section 5.3) — everything
// else (the client's identity, the session key) is inside the
// ticket's encrypted part and out of reach here.
type ServiceIdentity struct {
	ServicePrincipal string
	ServiceRealm     string
}

// ExtractServiceIdentity decodes enough of a krb5 AP-REQ token (the
// gss_token carried in an INIT or CONTINUE_INIT credential's handle, or
// returned in the server's RPCGSSInitRes) to log which service the client
// is authenticating to, for correlation purposes only. It does not and
// cannot authenticate the exchange.
func ExtractServiceIdentity(gssToken []byte) (*ServiceIdentity, error) {
	apReqBytes, err := stripGSSWrapper(gssToken)
	if err != nil {
		return nil, fmt.Errorf("gss: strip token wrapper: %w", err)
	}

	var apReq messages.APReq
	if err := apReq.Unmarshal(apReqBytes); err != nil {
		return nil, fmt.Errorf("gss: unmarshal AP-REQ: %w", err)
	}

	return &ServiceIdentity{
		ServicePrincipal: apReq.Ticket.SName.PrincipalNameString(),
		ServiceRealm:     apReq.Ticket.Realm,
	}, nil
}

// stripGSSWrapper removes the GSS-API initial context token framing
// (RFC 2743 Section 3.1: a 0x60 application tag, the mechanism OID, then
// a 2-byte RFC 1964 token ID) around a raw AP-REQ, if present. A token
// that does not start with the 0x60 tag is assumed to already be a raw
// AP-REQ.
func stripGSSWrapper(token []byte) ([]byte, error) {
	if len(token) < 2 {
		return nil, fmt.Errorf("token too short: %d bytes", len(token))
	}
	if token[0] != 0x60 {
		return token, nil
	}

	offset := 1
	length, bytesRead, err := parseASN1Length(token[offset:])
	if err != nil {
		return nil, fmt.Errorf("parse token length: %w", err)
	}
	offset += bytesRead

	if offset+length > len(token) {
		return nil, fmt.Errorf("token truncated: expected %d bytes, have %d", offset+length, len(token))
	}

	if offset >= len(token) || token[offset] != 0x06 {
		return nil, fmt.Errorf("expected OID tag 0x06 at offset %d", offset)
	}
	offset++

	if offset >= len(token) {
		return nil, fmt.Errorf("truncated OID length")
	}
	oidLen := int(token[offset])
	offset++
	offset += oidLen
	if offset > len(token) {
		return nil, fmt.Errorf("truncated after OID")
	}

	// Per RFC 1964 Section 1.1, the inner token starts with a 2-byte token
	// ID; for AP-REQ this is 0x01 0x00.
	if offset+2 > len(token) {
		return nil, fmt.Errorf("truncated token ID")
	}
	tokenID := (uint16(token[offset]) << 8) | uint16(token[offset+1])
	if tokenID != 0x0100 {
		return nil, fmt.Errorf("unexpected krb5 token ID 0x%04x (expected 0x0100 for AP-REQ)", tokenID)
	}
	offset += 2

	return token[offset:], nil
}

// parseASN1Length parses a BER/DER length field, returning the decoded
// length and the number of bytes it occupied.
func parseASN1Length(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty length field")
	}

	first := data[0]
	if first < 0x80 {
		return int(first), 1, nil
	}

	numBytes := int(first & 0x7f)
	if numBytes == 0 || numBytes > 4 {
		return 0, 0, fmt.Errorf("invalid ASN.1 length: %d bytes", numBytes)
	}
	if 1+numBytes > len(data) {
		return 0, 0, fmt.Errorf("truncated ASN.1 length")
	}

	length := 0
	for i := 1; i <= numBytes; i++ {
		length = (length << 8) | int(data[i])
	}
	return length, 1 + numBytes, nil
}
