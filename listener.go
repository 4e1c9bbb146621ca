package evloop

import (
	"fmt"
	"net"
	"os"

	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/sys/unix"
)

// ListenOptions configures a single listen call (§6 public surface, `listen`).
type ListenOptions struct {
	Port       int
	Address    string // defaults to all interfaces
	File       string // UNIX-domain socket path; selects "unix" network when set
	QueueSize  int    // not used: listenInternal does not pass it on, the backlog is the one go_reuseport.Listen sets
	TLS        bool
	TLSCertFile string
	TLSKeyFile  string
	Accept      AcceptCallback
}

// listener is a bound listening socket together with its accept callback and
// raw fd, detached from Go's blocking net.Listener so the loop can arm it
// itself (§4.4).
type listener struct {
	id      ID
	netLn   net.Listener
	file    *os.File
	fd      int
	network string
	addr    string
	lnaddr  net.Addr
	opts    ListenOptions
	armed   bool
}

func (l *Loop) listenInternal(opts ListenOptions) (*listener, error) {
	network := "tcp"
	addr := fmt.Sprintf("%s:%d", opts.Address, opts.Port)
	if opts.File != "" {
		network = "unix"
		addr = opts.File
		_ = os.RemoveAll(opts.File)
	}

	ln, err := reuseport.Listen(network, addr)
	if err != nil {
		return nil, newError(KindConstructionFailure, "", err)
	}

	lst := &listener{
		netLn:   ln,
		network: network,
		addr:    addr,
		lnaddr:  ln.Addr(),
		opts:    opts,
	}
	if err := lst.detachToFD(); err != nil {
		return nil, newError(KindConstructionFailure, "", err)
	}
	return lst, nil
}

// detachToFD grabs the raw, non-blocking file descriptor backing the net.Listener
// so the loop's backend can arm it directly, mirroring listener.system() in
// the teacher.
func (l *listener) detachToFD() error {
	type filer interface {
		File() (*os.File, error)
	}
	fl, ok := l.netLn.(filer)
	if !ok {
		return fmt.Errorf("evloop: listener type %T does not support File()", l.netLn)
	}
	f, err := fl.File()
	if err != nil {
		return err
	}
	l.file = f
	l.fd = int(f.Fd())
	return unix.SetNonblock(l.fd, true)
}

func (l *listener) close() {
	if l.file != nil {
		_ = l.file.Close()
	}
	if l.netLn != nil {
		_ = l.netLn.Close()
	}
	if l.network == "unix" {
		_ = os.RemoveAll(l.addr)
	}
}
