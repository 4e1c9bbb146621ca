package evloop

import (
	"net"

	"golang.org/x/sys/unix"
)

// localAddrOf reads the local address a socket is bound to via getsockname(2),
// so rawConn (and therefore LocalInfo) reports the address the kernel
// actually assigned rather than leaving it unset. Returns nil on error
// rather than failing construction — an unavailable local address is not
// fatal to the connection itself.
func localAddrOf(fd int) net.Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

// sockaddrToAddr ports the teacher's internal.SockaddrToAddr: translate the
// low-level sockaddr returned by accept(2)/getpeername(2) into a net.Addr
// callers can use from LocalInfo/RemoteInfo.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: v.Name, Net: "unix"}
	default:
		return nil
	}
}
