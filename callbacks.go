package evloop

import (
	"time"

	"github.com/jursonmo/evloop/log"
	"golang.org/x/sys/unix"
)

// ReadCB registers the callback invoked with each freshly-read chunk (§6).
func (l *Loop) ReadCB(id ID, cb ReadCallback) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.cb.onRead = cb
		}
	})
}

// WriteCB registers the callback polled during refill to pull outbound bytes (§4.6).
func (l *Loop) WriteCB(id ID, cb WriteCallback) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.cb.onWrite = cb
		}
	})
}

// ErrorCB registers the callback invoked after the connection has already
// been dropped due to a transport or timeout error.
func (l *Loop) ErrorCB(id ID, cb ErrorCallback) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.cb.onError = cb
		}
	})
}

// HupCB registers the callback invoked after the connection has already been
// dropped due to peer-initiated close or idle-timeout expiry.
func (l *Loop) HupCB(id ID, cb HangupCallback) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.cb.onHangup = cb
		}
	})
}

// Drop tears the connection down immediately, with no error reported — the
// caller already knows why. Safe to call from any goroutine.
func (l *Loop) Drop(id ID) {
	l.enqueue(func() {
		l.teardown(id, nil, false)
	})
}

// Finish marks the connection for a graceful, write-then-close teardown
// (§4.6 "finish"): the buffer is allowed to drain on the next write pass,
// after which the connection is dropped with no error reported. Reads
// already received but not yet delivered are still delivered.
func (l *Loop) Finish(id ID) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.finishPending = true
		}
	})
}

// Writing arms a connection for write readiness so a blocked WriteCB will be
// polled again once the backend reports writable (§4.6 back-pressure). Per
// §3/§4.6, this updates last_activity_ts the same as a read or write would.
func (l *Loop) Writing(id ID) {
	l.enqueue(func() {
		c, ok := l.reg.lookup(id)
		if !ok || c.dropped {
			return
		}
		c.touch(time.Now())
		if c.writing == ArmReadWrite {
			return
		}
		if err := l.be.ArmReadWrite(c.fd); err != nil {
			l.dropWithError(id, KindTransportError, err)
			return
		}
		c.writing = ArmReadWrite
		c.readOnlyPending = false
	})
}

// NotWriting requests the connection be downgraded back to read-only once
// its buffer has drained, rather than being polled for writability forever.
// Per §3/§4.6, this updates last_activity_ts the same as Writing does.
func (l *Loop) NotWriting(id ID) {
	l.enqueue(func() {
		if c, ok := l.reg.lookup(id); ok {
			c.touch(time.Now())
			c.readOnlyPending = true
		}
	})
}

// dropWithError performs the single teardown path every failure funnels
// through: remove from the registry, unregister from the backend, close the
// socket, then invoke the error callback. Idempotent — a connection already
// dropped by an earlier event in the same dispatch pass is a no-op.
func (l *Loop) dropWithError(id ID, kind Kind, cause error) {
	l.teardown(id, newError(kind, id, cause), false)
}

// hangup tears the connection down the same way but reports it through the
// hangup callback instead of the error callback (§7: peer-initiated close or
// idle-timeout expiry are not errors).
func (l *Loop) hangup(id ID) {
	l.teardown(id, nil, true)
}

func (l *Loop) teardown(id ID, cause *Error, isHangup bool) {
	c, ok := l.reg.remove(id)
	if !ok {
		return
	}
	l.be.Unregister(c.fd)
	if c.conn != nil {
		_ = c.conn.Close()
	} else {
		_ = unix.Close(c.fd)
	}
	switch {
	case cause != nil:
		if l.cfg.metrics != nil {
			l.cfg.metrics.onKind(cause.Kind)
		}
		if c.cb.onError != nil {
			c.cb.onError(l, id, cause)
		}
	case isHangup:
		if l.cfg.metrics != nil {
			l.cfg.metrics.onKind(KindHangup)
		}
		if c.cb.onHangup != nil {
			c.cb.onHangup(l, id)
		}
	default:
		l.log.Debug("connection dropped", log.Fields{"id": string(id)})
	}
}
