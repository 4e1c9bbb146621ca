//go:build unix

package evloop

import (
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

// pollBackend is the portable fallback (§4.1 "poll"): it keeps its own table
// of registered fds and write-interest, and builds a fresh pollfd slice for
// every unix.Poll call. It is compiled on every unix GOOS (unlike
// kqueue/epoll, which are gated by GOOS) so that EVLOOP_FORCE_POLL works on
// any host the package builds on. The package itself builds only on Linux
// and the BSD family, where backend_epoll_linux.go or backend_kqueue_bsd.go
// defines the other two constructors.
type pollBackend struct {
	want map[int]bool // fd -> write interest armed
}

func newPollBackend() (backend, error) {
	return &pollBackend{want: make(map[int]bool)}, nil
}

func (b *pollBackend) ArmRead(fd int) error {
	b.want[fd] = false
	return nil
}

func (b *pollBackend) ArmReadWrite(fd int) error {
	b.want[fd] = true
	return nil
}

func (b *pollBackend) ArmReadOnly(fd int) error {
	if _, ok := b.want[fd]; !ok {
		b.want[fd] = false
		return nil
	}
	b.want[fd] = false
	return nil
}

func (b *pollBackend) Unregister(fd int) {
	delete(b.want, fd)
}

func (b *pollBackend) Wait(max time.Duration, dst []Event) ([]Event, error) {
	fds := make([]int, 0, len(b.want))
	for fd := range b.want {
		fds = append(fds, fd)
	}
	sort.Ints(fds) // deterministic order; no fairness guarantee is promised beyond spec.md §1

	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		ev := int16(unix.POLLIN)
		if b.want[fd] {
			ev |= unix.POLLOUT
		}
		pfds[i] = unix.PollFd{Fd: int32(fd), Events: ev}
	}

	timeoutMS := int(max / time.Millisecond)
	if max < 0 {
		timeoutMS = -1
	}
	n, err := unix.Poll(pfds, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	if n == 0 {
		return dst, nil
	}
	for _, p := range pfds {
		if p.Revents == 0 {
			continue
		}
		var bits EventBits
		if p.Revents&unix.POLLERR != 0 {
			bits |= ErrorBit
		}
		if p.Revents&(unix.POLLHUP|unix.POLLRDHUP) != 0 {
			bits |= Hangup
		}
		if p.Revents&unix.POLLIN != 0 {
			bits |= Readable
		}
		if p.Revents&unix.POLLOUT != 0 {
			bits |= Writable
		}
		dst = append(dst, Event{FD: int(p.Fd), Bits: bits})
	}
	return dst, nil
}

func (b *pollBackend) Close() error { return nil }

func (b *pollBackend) Name() string { return "poll" }
