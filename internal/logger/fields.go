package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are protocol-agnostic, supporting DNS, FTP, and NFSv4 alike.
// Use these keys consistently across all log statements for log aggregation
// and querying downstream of the sensor.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Flow & Direction
	// ========================================================================
	KeyFlowID    = "flow_id"   // Host-assigned flow identifier (opaque)
	KeyDirection = "direction" // to_server, to_client
	KeyGap       = "gap"       // Bytes of stream data lost before this call

	// ========================================================================
	// Protocol & Operation (protocol-agnostic)
	// ========================================================================
	KeyProtocol  = "protocol"   // Protocol type: dns, ftp, nfs4
	KeyProcedure = "procedure"  // Operation/opcode name: READ, WRITE, LOOKUP, COMPOUND, etc.
	KeyHandle    = "handle"     // NFS file handle (opaque identifier)
	KeyStatus    = "status"     // Operation status code (protocol-specific)
	KeyStatusMsg = "status_msg" // Human-readable status message

	// ========================================================================
	// Transaction & Event
	// ========================================================================
	KeyTxID      = "tx_id"      // Per-flow transaction identifier
	KeyXID       = "xid"        // SunRPC transaction identifier
	KeyEventCode = "event_code" // Raised anomaly event code
	KeyTxCap     = "tx_cap"     // Configured transaction queue cap

	// ========================================================================
	// Names & File Identity
	// ========================================================================
	KeyName       = "name"        // DNS query/RR name, NFS file/dir name
	KeyRRType     = "rrtype"      // DNS resource record type code
	KeyNameLen    = "name_len"    // Decoded name length in octets
	KeyCompDepth  = "comp_depth"  // DNS label-compression pointer chain depth

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"        // File offset for read/write operations
	KeyCount        = "count"         // Byte count requested
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written
	KeyEOF          = "eof"           // End of file indicator
	KeyStable       = "stable"        // Write durability level (sync, async, etc.)
	KeyIsLast       = "is_last"       // Last chunk of a file transfer

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyUID        = "uid"         // RPC credential UID (AUTH_UNIX)
	KeyGID        = "gid"         // RPC credential GID (AUTH_UNIX)
	KeyAuth       = "auth"        // RPC auth flavor

	// ========================================================================
	// GSS / Kerberos
	// ========================================================================
	KeyGSSProc    = "gss_proc"    // RPCSEC_GSS procedure (DATA, INIT, ...)
	KeyGSSService = "gss_service" // RPCSEC_GSS service (NONE, INTEGRITY, PRIVACY)
	KeyPrincipal  = "principal"   // Kerberos principal name, when recoverable

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeyOperation  = "operation"   // Sub-operation type for complex operations
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Flow & Direction
// ----------------------------------------------------------------------------

// FlowID returns a slog.Attr for the host-assigned flow identifier
func FlowID(id string) slog.Attr {
	return slog.String(KeyFlowID, id)
}

// Direction returns a slog.Attr for stream direction
func Direction(dir string) slog.Attr {
	return slog.String(KeyDirection, dir)
}

// Gap returns a slog.Attr for a reported stream gap length
func Gap(n uint32) slog.Attr {
	return slog.Uint64(KeyGap, uint64(n))
}

// ----------------------------------------------------------------------------
// Protocol & Operation
// ----------------------------------------------------------------------------

// Protocol returns a slog.Attr for protocol type (dns, ftp, nfs4)
func Protocol(proto string) slog.Attr {
	return slog.String(KeyProtocol, proto)
}

// Procedure returns a slog.Attr for operation/opcode name
func Procedure(name string) slog.Attr {
	return slog.String(KeyProcedure, name)
}

// Handle returns a slog.Attr for a file handle (formatted as hex)
func Handle(h []byte) slog.Attr {
	return slog.String(KeyHandle, fmt.Sprintf("%x", h))
}

// Status returns a slog.Attr for operation status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// StatusMsg returns a slog.Attr for human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// ----------------------------------------------------------------------------
// Transaction & Event
// ----------------------------------------------------------------------------

// TxID returns a slog.Attr for the per-flow transaction id
func TxID(id uint64) slog.Attr {
	return slog.Uint64(KeyTxID, id)
}

// XID returns a slog.Attr for the SunRPC XID
func XID(xid uint32) slog.Attr {
	return slog.Uint64(KeyXID, uint64(xid))
}

// EventCode returns a slog.Attr for a raised anomaly event code
func EventCode(code uint8) slog.Attr {
	return slog.Int(KeyEventCode, int(code))
}

// TxCap returns a slog.Attr for the configured transaction queue cap
func TxCap(cap int) slog.Attr {
	return slog.Int(KeyTxCap, cap)
}

// ----------------------------------------------------------------------------
// Names & File Identity
// ----------------------------------------------------------------------------

// Name returns a slog.Attr for a DNS/NFS name
func Name(name string) slog.Attr {
	return slog.String(KeyName, name)
}

// RRType returns a slog.Attr for a DNS resource record type code
func RRType(t uint16) slog.Attr {
	return slog.Uint64(KeyRRType, uint64(t))
}

// NameLen returns a slog.Attr for a decoded name's octet length
func NameLen(n int) slog.Attr {
	return slog.Int(KeyNameLen, n)
}

// CompDepth returns a slog.Attr for DNS compression pointer chain depth
func CompDepth(depth int) slog.Attr {
	return slog.Int(KeyCompDepth, depth)
}

// ----------------------------------------------------------------------------
// I/O Operations
// ----------------------------------------------------------------------------

// Offset returns a slog.Attr for file offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for byte count requested
func Count(c uint32) slog.Attr {
	return slog.Any(KeyCount, c)
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// EOF returns a slog.Attr for end-of-file indicator
func EOF(eof bool) slog.Attr {
	return slog.Bool(KeyEOF, eof)
}

// Stable returns a slog.Attr for write durability level
func Stable(s int) slog.Attr {
	return slog.Int(KeyStable, s)
}

// IsLast returns a slog.Attr for last-chunk indicator
func IsLast(last bool) slog.Attr {
	return slog.Bool(KeyIsLast, last)
}

// ----------------------------------------------------------------------------
// Client Identification
// ----------------------------------------------------------------------------

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// UID returns a slog.Attr for RPC credential UID
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// GID returns a slog.Attr for RPC credential GID
func GID(gid uint32) slog.Attr {
	return slog.Any(KeyGID, gid)
}

// Auth returns a slog.Attr for RPC authentication flavor
func Auth(flavor uint32) slog.Attr {
	return slog.Any(KeyAuth, flavor)
}

// ----------------------------------------------------------------------------
// GSS / Kerberos
// ----------------------------------------------------------------------------

// GSSProc returns a slog.Attr for the RPCSEC_GSS procedure
func GSSProc(proc uint32) slog.Attr {
	return slog.Uint64(KeyGSSProc, uint64(proc))
}

// GSSService returns a slog.Attr for the RPCSEC_GSS service
func GSSService(service uint32) slog.Attr {
	return slog.Uint64(KeyGSSService, uint64(service))
}

// Principal returns a slog.Attr for a Kerberos principal name
func Principal(name string) slog.Attr {
	return slog.String(KeyPrincipal, name)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}
