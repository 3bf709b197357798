package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds flow-scoped logging context. It is threaded through a
// parse call via context.Context so that every log line emitted while
// dissecting one flow carries the same correlation fields without each
// call site having to repeat them.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID, when the host propagates one
	SpanID    string    // OpenTelemetry span ID
	Protocol  string    // dns, ftp, nfs4
	FlowID    string    // host-assigned flow identifier (opaque, logged as-is)
	Direction string    // to_server, to_client
	TxID      uint64    // transaction id within the flow
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given flow.
func NewLogContext(flowID string) *LogContext {
	return &LogContext{
		FlowID:    flowID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Protocol:  lc.Protocol,
		FlowID:    lc.FlowID,
		Direction: lc.Direction,
		TxID:      lc.TxID,
		StartTime: lc.StartTime,
	}
}

// WithProtocol returns a copy with the protocol set
func (lc *LogContext) WithProtocol(protocol string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Protocol = protocol
	}
	return clone
}

// WithDirection returns a copy with the direction set
func (lc *LogContext) WithDirection(direction string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Direction = direction
	}
	return clone
}

// WithTx returns a copy with the transaction id set
func (lc *LogContext) WithTx(txID uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TxID = txID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
