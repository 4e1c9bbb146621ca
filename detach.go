package evloop

import (
	"fmt"
	"net"
)

// Detach removes a connection from the loop's bookkeeping and hands the
// caller a plain net.Conn over the same underlying socket, letting code
// outside the reactor take over its I/O (e.g. handing a freshly-upgraded
// connection to an unrelated protocol library). Ports the teacher's
// loopDetachConn. The connection must not already be dropped.
func (l *Loop) Detach(id ID) (net.Conn, error) {
	c, ok := l.reg.remove(id)
	if !ok {
		return nil, fmt.Errorf("evloop: connection %s not found", id)
	}
	l.be.Unregister(c.fd)

	if c.conn != nil {
		return c.conn, nil
	}
	return &rawConn{fd: c.fd, local: localAddrOf(c.fd), remote: c.sa}, nil
}
