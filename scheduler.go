package evloop

import (
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// spin runs one iteration of the reactor (§4.7): arm admission if needed, run
// accept/connect housekeeping, sweep per-connection pending state, wait on
// the backend, then dispatch whatever came back in ERROR > HANGUP > READABLE
// > WRITABLE order.
func (l *Loop) spin() {
	now := time.Now()

	l.armListenersIfAdmissible()
	l.acceptHousekeeping(now)
	l.connectHousekeeping(now)
	l.prepareConnections(now)

	if l.cfg.metrics != nil {
		l.cfg.metrics.sync(l.reg)
	}

	if l.idle() {
		l.running = false
		return
	}

	events, err := l.be.Wait(l.cfg.PollTimeout, l.eventsBuf[:0])
	if err != nil {
		l.log.Warn("backend wait failed", nil)
		return
	}
	l.eventsBuf = events

	for _, ev := range events {
		l.dispatch(ev)
	}
}

// idle reports whether the loop has nothing left to do — no listeners, no
// connections, nothing connecting — the condition under which Start returns
// on its own even without an explicit Stop (§5).
func (l *Loop) idle() bool {
	if len(l.listeners) > 0 {
		return false
	}
	clients, servers, connecting := l.reg.count()
	return clients == 0 && servers == 0 && connecting == 0
}

// prepareConnections is the per-connection sweep that runs once per
// iteration before the backend wait (§4.6): finish a graceful teardown once
// its buffer has drained, downgrade a connection back to read-only once a
// requested NotWriting can take effect, and drop anything that has been idle
// past its timeout.
func (l *Loop) prepareConnections(now time.Time) {
	for id, c := range l.reg.byID {
		if c.dropped || c.role == RoleOutboundConnecting {
			continue
		}

		if c.finishPending && len(c.buffer) == 0 {
			// A Finish() completing is a deliberate, caller-initiated close,
			// not a peer hangup or an error — teardown the same quiet way
			// Drop does, with no callback and no Hangup metric bump.
			l.teardown(id, nil, false)
			continue
		}

		if c.readOnlyPending && len(c.buffer) == 0 && c.writing == ArmReadWrite {
			if err := l.be.ArmReadOnly(c.fd); err != nil {
				l.dropWithError(id, KindTransportError, err)
				continue
			}
			c.writing = ArmReadOnly
			c.readOnlyPending = false
		}

		if c.idleTimeout > 0 && c.idleFor(now) >= c.idleTimeout {
			l.hangup(id)
		}
	}
}

// dispatch routes one readiness event to the right handler, in
// ERROR > HANGUP > READABLE > WRITABLE priority (§4.7) so a socket that is
// both errored and readable is torn down rather than read from.
func (l *Loop) dispatch(ev Event) {
	if ln := l.listenerByFD(ev.FD); ln != nil {
		if ev.Bits&(Readable) != 0 {
			l.handleListenerReadable(ln)
		}
		return
	}

	c, ok := l.reg.lookupByFD(ev.FD)
	if !ok || c.dropped {
		return
	}

	switch {
	case ev.Bits&ErrorBit != 0:
		l.dropWithError(c.id, KindTransportError, errPollReportedError)
	case ev.Bits&Hangup != 0:
		l.hangup(c.id)
	case c.role == RoleOutboundConnecting:
		if ev.Bits&Writable != 0 {
			l.pollConnectCompletion(c)
		}
	default:
		if ev.Bits&Readable != 0 {
			l.handleReadable(c)
		}
		if !c.dropped && ev.Bits&Writable != 0 {
			l.handleWritable(c)
		}
	}
}

func (l *Loop) listenerByFD(fd int) *listener {
	for _, ln := range l.listeners {
		if ln.fd == fd {
			return ln
		}
	}
	return nil
}

// handleReadable performs one non-blocking read of up to ChunkSize bytes
// (§4.6). Per §4.7, an undefined result or an empty payload is treated as an
// error and drops the connection — this is not a hangup, even though a
// zero-byte read is what a clean peer close looks like at the syscall layer.
func (l *Loop) handleReadable(c *connection) {
	buf := make([]byte, l.cfg.ChunkSize)
	n, err := unix.Read(c.fd, buf)
	switch {
	case err != nil:
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return
		}
		l.dropWithError(c.id, KindTransportError, err)
		return
	case n == 0:
		l.dropWithError(c.id, KindTransportError, io.EOF)
		return
	}

	c.touch(time.Now())
	if c.cb.onRead != nil {
		c.cb.onRead(l, c.id, buf[:n])
	}
}

// handleWritable refills the outbound buffer from the write callback (while
// there's room and nothing pending that should stop refill), then issues one
// non-blocking write of whatever the buffer holds, removing the bytes that
// were actually accepted (§4.6 refill-then-drain).
func (l *Loop) handleWritable(c *connection) {
	if c.role == RoleOutboundConnecting {
		return
	}

	for len(c.buffer) < l.cfg.ChunkSize && !c.readOnlyPending && !c.finishPending && c.cb.onWrite != nil {
		chunk := c.cb.onWrite(l, c.id)
		if len(chunk) == 0 {
			break
		}
		c.buffer = append(c.buffer, chunk...)
	}

	if len(c.buffer) == 0 {
		return
	}

	n, err := unix.Write(c.fd, c.buffer)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return
		}
		l.dropWithError(c.id, KindTransportError, err)
		return
	}

	c.buffer = c.buffer[n:]
	c.touch(time.Now())
}

var errPollReportedError = &tlsConfigError{"evloop: poll layer reported an error condition on this fd"}
