package evloop

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// envDisableIPv6 is the environment toggle from spec.md §6: when set, only
// IPv4 addresses are considered when resolving an outbound Connect host.
const envDisableIPv6 = "EVLOOP_DISABLE_IPV6"

func ipv6DisabledByEnv() bool {
	return os.Getenv(envDisableIPv6) != ""
}

// ConnectOptions configures an outbound connection (§6 `connect`).
type ConnectOptions struct {
	Host         string
	Port         int // defaults to 80, or 443 if TLS
	TLS          bool
	TLSCAFile    string
	TLSVerifyCB  func(*x509.Certificate) error
	Connect      ConnectCallback
}

// Connect starts an outbound connection and returns immediately with its id;
// the connect callback fires once the socket reaches ESTABLISHED (§4.5).
// Socket construction itself is synchronous — a ConstructionFailure is
// reported to the caller directly, not through the error callback, since
// there's no connection id yet to attach it to.
func (l *Loop) Connect(opts ConnectOptions) (ID, error) {
	if err := l.ensureBackend(); err != nil {
		return "", err
	}
	if tlsDisabledByEnv() {
		opts.TLS = false
	}

	port := opts.Port
	if port == 0 {
		if opts.TLS {
			port = 443
		} else {
			port = 80
		}
	}

	fd, sa, err := dialNonblocking(opts.Host, port)
	if err != nil {
		return "", newError(KindConstructionFailure, "", err)
	}

	c := &connection{
		fd:           fd,
		role:         RoleOutboundConnecting,
		idleTimeout:  l.cfg.IdleTimeout,
		connectStart: time.Now(),
		tls:          opts.TLS,
		sa:           sa,
		cb:           callbacks{onConnect: opts.Connect},
	}
	c.touch(time.Now())
	id := l.reg.insert(c)

	if err := l.be.ArmReadWrite(fd); err != nil {
		l.reg.remove(id)
		_ = unix.Close(fd)
		return "", newError(KindConstructionFailure, id, err)
	}
	c.writing = ArmReadWrite

	if opts.TLS {
		c.pendingTLSCA = opts.TLSCAFile
		c.pendingTLSVerify = opts.TLSVerifyCB
	}

	return id, nil
}

// connectHousekeeping walks connecting records once per iteration (§4.5) and
// drops anything that has overrun connect_timeout. Detecting a *successful*
// connect is not done here: SO_ERROR reads 0 both while a non-blocking
// connect(2) is still in flight and once it has completed, so the only
// reliable signal is the backend itself reporting the fd writable — that
// check lives in pollConnectCompletion, called from dispatch's Writable case.
func (l *Loop) connectHousekeeping(now time.Time) {
	for _, c := range l.connectingSnapshot() {
		if c.dropped {
			continue
		}
		if now.Sub(c.connectStart) >= l.cfg.ConnectTimeout {
			l.dropWithError(c.id, KindConnectTimeout, nil)
		}
	}
}

// pollConnectCompletion checks SO_ERROR once the backend has reported a
// connecting fd writable — the point at which a non-blocking connect(2) is
// guaranteed to have finished, successfully or not (§4.5).
func (l *Loop) pollConnectCompletion(c *connection) {
	connected, sockErr := isSocketConnected(c.fd)
	if sockErr != nil {
		l.dropWithError(c.id, KindTransportError, sockErr)
		return
	}
	if connected {
		l.establishOutbound(c)
	}
}

func (l *Loop) connectingSnapshot() []*connection {
	out := make([]*connection, 0, l.reg.connecting)
	for _, c := range l.reg.byID {
		if c.role == RoleOutboundConnecting {
			out = append(out, c)
		}
	}
	return out
}

func (l *Loop) establishOutbound(c *connection) {
	c.role = RoleOutboundEstablished
	l.reg.bump(RoleOutboundConnecting, -1)
	l.reg.bump(RoleOutboundEstablished, 1)

	if c.tls {
		cfg, err := buildTLSConfig("", "", c.pendingTLSCA, c.pendingTLSVerify)
		if err != nil {
			l.dropWithError(c.id, KindConstructionFailure, err)
			return
		}
		if err := unix.SetNonblock(c.fd, false); err != nil {
			l.dropWithError(c.id, KindTransportError, err)
			return
		}
		raw := &rawConn{fd: c.fd, local: localAddrOf(c.fd), remote: c.sa}
		tc := tls.Client(raw, cfg)
		if err := tc.Handshake(); err != nil {
			l.dropWithError(c.id, KindTransportError, err)
			return
		}
		c.conn = tc
	} else {
		c.conn = &rawConn{fd: c.fd, local: localAddrOf(c.fd), remote: c.sa}
	}

	if c.cb.onConnect != nil {
		c.cb.onConnect(l, c.id)
	}
}

// dialNonblocking builds a non-blocking outbound TCP socket and issues a
// non-blocking connect(2), mirroring the teacher's raw-fd style for the
// inbound side. IPv6 is used when the resolved address is one.
func dialNonblocking(host string, port int) (fd int, remote net.Addr, err error) {
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return 0, nil, fmt.Errorf("evloop: resolve %q: %w", host, err)
	}
	if ipv6DisabledByEnv() {
		v4 := ips[:0]
		for _, ip := range ips {
			if ip.To4() != nil {
				v4 = append(v4, ip)
			}
		}
		if len(v4) == 0 {
			return 0, nil, fmt.Errorf("evloop: resolve %q: no IPv4 address and IPv6 is disabled", host)
		}
		ips = v4
	}
	ip := ips[0]

	domain := unix.AF_INET
	if ip.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return 0, nil, err
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return 0, nil, err
	}

	sa := ipPortToSockaddr(ip, port)
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		return 0, nil, err
	}
	return fd, sockaddrToAddr(sa), nil
}

// ipPortToSockaddr builds the unix.Sockaddr connect(2)/accept(2) expect from
// a resolved net.IP and port, picking the v4 or v6 variant as needed.
func ipPortToSockaddr(ip net.IP, port int) unix.Sockaddr {
	if v4 := ip.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], v4)
		return sa
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa
}

// isSocketConnected polls SO_ERROR the way a non-blocking connect(2) must be
// completed: writable without a pending socket error means ESTABLISHED.
func isSocketConnected(fd int) (bool, error) {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, err
	}
	if errno != 0 {
		return false, unix.Errno(errno)
	}
	return true, nil
}
