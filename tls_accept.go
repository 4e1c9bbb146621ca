package evloop

import (
	"crypto/tls"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Staging decouples "accepted by the kernel" from "usable by the
// application" (§4.4 rationale) specifically so a TLS handshake can run to
// completion without the loop thread blocking on it. tlsState tracks that:
// handshakes run on their own goroutine against a blocking fd (§6 "TLS
// sockets are operated in blocking mode by explicit design"), and the loop's
// own housekeeping just polls the atomic state each iteration.
const (
	tlsPending int32 = iota
	tlsReady
	tlsFailed
)

func (l *Loop) beginTLSAccept(c *connection, ln *listener) {
	tlsCfg, err := buildTLSConfig(ln.opts.TLSCertFile, ln.opts.TLSKeyFile, "", nil)
	if err != nil {
		c.tlsErr = err
		atomic.StoreInt32(&c.tlsState, tlsFailed)
		return
	}

	if err := unix.SetNonblock(c.fd, false); err != nil {
		c.tlsErr = err
		atomic.StoreInt32(&c.tlsState, tlsFailed)
		return
	}

	raw := &rawConn{fd: c.fd, local: localAddrOf(c.fd), remote: c.sa}
	tc := tls.Server(raw, tlsCfg)
	c.conn = tc

	go func() {
		if err := tc.Handshake(); err != nil {
			c.tlsErr = err
			atomic.StoreInt32(&c.tlsState, tlsFailed)
			return
		}
		atomic.StoreInt32(&c.tlsState, tlsReady)
	}()
}

// stagedStatus reports whether a staged connection is ready for normal
// operation. Plain TCP sockets are ready the instant accept(2) returns them.
func (l *Loop) stagedStatus(c *connection) (connected bool, failed error) {
	if !c.tls {
		return true, nil
	}
	switch atomic.LoadInt32(&c.tlsState) {
	case tlsReady:
		return true, nil
	case tlsFailed:
		return false, c.tlsErr
	default:
		return false, nil
	}
}
