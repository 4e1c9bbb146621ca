package evloop

import (
	"net"
	"time"
)

// LocalInfo returns the local address of the socket backing id (§6 `local_info`).
func (l *Loop) LocalInfo(id ID) (net.Addr, bool) {
	c, ok := l.reg.lookup(id)
	if !ok {
		return nil, false
	}
	if lc, ok := c.conn.(interface{ LocalAddr() net.Addr }); ok {
		return lc.LocalAddr(), true
	}
	return nil, false
}

// RemoteInfo returns the peer address cached at accept/connect time (§6 `remote_info`).
func (l *Loop) RemoteInfo(id ID) (net.Addr, bool) {
	c, ok := l.reg.lookup(id)
	if !ok {
		return nil, false
	}
	return c.sa, true
}

// ListenAddr returns the bound address of a listener, useful when Listen was
// called with Port 0 and the host needs to learn which port the OS picked.
func (l *Loop) ListenAddr(id ID) (net.Addr, bool) {
	ln, ok := l.listeners[id]
	if !ok {
		return nil, false
	}
	return ln.lnaddr, true
}

// ConnectionTimeout returns the connection's current idle timeout, and — when
// d is supplied — first sets it (§6 `connection_timeout`, get/set overload).
func (l *Loop) ConnectionTimeout(id ID, d ...time.Duration) (time.Duration, bool) {
	c, ok := l.reg.lookup(id)
	if !ok {
		return 0, false
	}
	if len(d) > 0 {
		c.idleTimeout = d[0]
	}
	return c.idleTimeout, true
}
