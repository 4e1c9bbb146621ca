//go:build linux

package evloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollBackend is the kernel-queue variant's sibling on Linux: level-triggered
// epoll, tracking per-fd whether write interest is currently set so that
// ArmReadOnly knows whether it needs to issue an EPOLL_CTL_MOD at all.
type epollBackend struct {
	fd       int
	writeSet map[int]bool
}

func newEpollBackend() (backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{fd: fd, writeSet: make(map[int]bool)}, nil
}

func (b *epollBackend) events(write bool) uint32 {
	ev := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if write {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (b *epollBackend) ctl(op int, fd int, write bool) error {
	ev := unix.EpollEvent{Fd: int32(fd), Events: b.events(write)}
	return unix.EpollCtl(b.fd, op, fd, &ev)
}

func (b *epollBackend) ArmRead(fd int) error {
	if err := b.ctl(unix.EPOLL_CTL_ADD, fd, false); err != nil {
		if err == unix.EEXIST {
			err = b.ctl(unix.EPOLL_CTL_MOD, fd, false)
		}
		if err != nil {
			return err
		}
	}
	b.writeSet[fd] = false
	return nil
}

func (b *epollBackend) ArmReadWrite(fd int) error {
	if err := b.ctl(unix.EPOLL_CTL_ADD, fd, true); err != nil {
		if err == unix.EEXIST {
			err = b.ctl(unix.EPOLL_CTL_MOD, fd, true)
		}
		if err != nil {
			return err
		}
	}
	b.writeSet[fd] = true
	return nil
}

func (b *epollBackend) ArmReadOnly(fd int) error {
	if !b.writeSet[fd] {
		// idempotent: already read-only (or not registered at all, in which
		// case treat this as a plain read arm).
		if _, known := b.writeSet[fd]; !known {
			return b.ArmRead(fd)
		}
		return nil
	}
	if err := b.ctl(unix.EPOLL_CTL_MOD, fd, false); err != nil {
		return err
	}
	b.writeSet[fd] = false
	return nil
}

func (b *epollBackend) Unregister(fd int) {
	_ = unix.EpollCtl(b.fd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(b.writeSet, fd)
}

func (b *epollBackend) Wait(max time.Duration, dst []Event) ([]Event, error) {
	timeoutMS := int(max / time.Millisecond)
	if max < 0 {
		timeoutMS = -1
	}
	raw := make([]unix.EpollEvent, 128)
	n, err := unix.EpollWait(b.fd, raw, timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		var bits EventBits
		e := raw[i].Events
		if e&(unix.EPOLLERR) != 0 {
			bits |= ErrorBit
		}
		if e&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
			bits |= Hangup
		}
		if e&unix.EPOLLIN != 0 {
			bits |= Readable
		}
		if e&unix.EPOLLOUT != 0 {
			bits |= Writable
		}
		dst = append(dst, Event{FD: int(raw[i].Fd), Bits: bits})
	}
	return dst, nil
}

func (b *epollBackend) Close() error {
	return unix.Close(b.fd)
}

func (b *epollBackend) Name() string { return "epoll" }

// newKqueueBackend never succeeds on Linux; newBackend falls through to epoll.
func newKqueueBackend() (backend, error) {
	return nil, errBackendUnsupported
}
