package evloop

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// rawConn adapts a raw, syscall-level socket fd to net.Conn so it can be
// wrapped by crypto/tls when a listener or outbound connection asks for TLS.
// It generalizes the teacher's detachedConn (used there only for Detach) into
// the connection's normal I/O path for the TLS case; the non-TLS fast path
// still issues syscall.Read/syscall.Write directly from the scheduler,
// exactly as the teacher does.
type rawConn struct {
	fd     int
	local  net.Addr
	remote net.Addr
}

func (c *rawConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errConnClosed
	}
	return n, nil
}

func (c *rawConn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := unix.Write(c.fd, p[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (c *rawConn) Close() error                       { return unix.Close(c.fd) }
func (c *rawConn) LocalAddr() net.Addr                 { return c.local }
func (c *rawConn) RemoteAddr() net.Addr                { return c.remote }
func (c *rawConn) SetDeadline(time.Time) error         { return nil }
func (c *rawConn) SetReadDeadline(time.Time) error     { return nil }
func (c *rawConn) SetWriteDeadline(time.Time) error    { return nil }

var errConnClosed = &tlsConfigError{"evloop: peer closed connection"}
