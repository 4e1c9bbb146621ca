package evloop

import (
	"time"

	"github.com/jursonmo/evloop/log"
	"golang.org/x/sys/unix"
)

// Listen registers a listener (§6 `listen`). file selects a UNIX-domain
// socket; otherwise the listener is TCP. The accept callback fires once per
// accepted connection, right after accept(2) and before staging has cleared,
// so on a TLS listener the handshake may still be in progress.
func (l *Loop) Listen(opts ListenOptions) (ID, error) {
	if err := l.ensureBackend(); err != nil {
		return "", err
	}
	if tlsDisabledByEnv() {
		opts.TLS = false
	}
	ln, err := l.listenInternal(opts)
	if err != nil {
		return "", err
	}
	id := newID()
	ln.id = id
	l.listeners[id] = ln
	l.log.Info("listening", log.Fields{"network": ln.network, "addr": ln.addr})
	return id, nil
}

// handleListenerReadable implements the Accept Pipeline (§4.4): accept once,
// stage the socket, invoke the accept callback, call unlock, then disarm
// every listener so peers can take the accept right next iteration.
func (l *Loop) handleListenerReadable(ln *listener) {
	nfd, sa, err := unix.Accept(ln.fd)
	if err != nil {
		if err != unix.EAGAIN {
			l.log.Error("accept failed", log.Fields{"err": err})
		}
		return
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		l.log.Error("accept: set nonblock failed", log.Fields{"err": err})
		return
	}

	c := &connection{
		fd:          nfd,
		role:        RoleInboundAccepted,
		idleTimeout: l.cfg.IdleTimeout,
		acceptStart: time.Now(),
		tls:         ln.opts.TLS,
		sa:          sockaddrToAddr(sa),
		cb:          callbacks{onAccept: ln.opts.Accept},
	}
	c.touch(time.Now())
	id := l.reg.insert(c)

	l.staging = append(l.staging, &stagedAccept{conn: c, stagedAt: time.Now()})

	if ln.opts.TLS {
		l.beginTLSAccept(c, ln)
	} else {
		c.conn = &rawConn{fd: nfd, local: localAddrOf(nfd), remote: c.sa}
	}

	if c.cb.onAccept != nil {
		c.cb.onAccept(l, id)
	}

	l.cfg.Unlock()
	l.disarmListeners()
}

// acceptHousekeeping walks the staging list once per iteration (§4.4): drop
// anything that has overrun accept_timeout without connecting, and promote
// anything now connected to read-only-armed, normal operation.
func (l *Loop) acceptHousekeeping(now time.Time) {
	if len(l.staging) == 0 {
		return
	}
	kept := l.staging[:0]
	for _, st := range l.staging {
		c := st.conn
		if c.dropped {
			continue // already removed via some other path this iteration
		}
		connected, failed := l.stagedStatus(c)
		if failed != nil {
			l.dropWithError(c.id, KindTransportError, failed)
			continue
		}
		if !connected {
			if now.Sub(st.stagedAt) >= l.cfg.AcceptTimeout {
				l.dropWithError(c.id, KindAcceptTimeout, nil)
			} else {
				kept = append(kept, st)
			}
			continue
		}
		if !c.tls {
			// TLS sockets stay in blocking mode by design (§6); plain
			// sockets are non-blocking for the whole connection lifetime.
			if err := unix.SetNonblock(c.fd, true); err != nil {
				l.dropWithError(c.id, KindTransportError, err)
				continue
			}
		}
		if err := l.be.ArmRead(c.fd); err != nil {
			l.dropWithError(c.id, KindTransportError, err)
			continue
		}
		c.writing = ArmReadOnly
	}
	l.staging = kept
}
