package evloop

import "fmt"

// Kind identifies one of the error categories the loop can report through an
// error or hangup callback. Ported from the CodeError pattern in
// nabbar-golib/errors: a small integer enum with a message table, so callers
// can compare kinds with errors.Is instead of matching formatted strings.
type Kind uint8

const (
	// KindUnknown is never produced by the loop itself.
	KindUnknown Kind = iota
	// KindConstructionFailure: a listen or connect socket could not be created.
	KindConstructionFailure
	// KindAcceptTimeout: a staged inbound socket never reported connected.
	KindAcceptTimeout
	// KindConnectTimeout: an outbound socket never reached established.
	KindConnectTimeout
	// KindTransportError: a read or write syscall returned a failure.
	KindTransportError
	// KindHangup: peer-initiated close or idle-timeout expiry.
	KindHangup
)

var kindMessage = map[Kind]string{
	KindUnknown:             "unknown error",
	KindConstructionFailure: "construction failure",
	KindAcceptTimeout:       "Accept timeout.",
	KindConnectTimeout:      "Connect timeout.",
	KindTransportError:      "Connection error on poll layer.",
	KindHangup:              "hangup",
}

func (k Kind) String() string {
	if m, ok := kindMessage[k]; ok {
		return m
	}
	return kindMessage[KindUnknown]
}

// Error is the concrete error type every callback-facing error from the loop
// carries. It pairs a Kind with the connection id it happened on and an
// optional underlying cause.
type Error struct {
	Kind   Kind
	ID     ID
	Cause  error
	detail string
}

func newError(k Kind, id ID, cause error) *Error {
	return &Error{Kind: k, ID: id, Cause: cause}
}

func newErrorf(k Kind, id ID, format string, args ...interface{}) *Error {
	return &Error{Kind: k, ID: id, detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.detail != "" {
		msg = e.detail
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the same Kind, allowing errors.Is(err, evloop.KindAcceptTimeout).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (k Kind) Error() string { return k.String() }
