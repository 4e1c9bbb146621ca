//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package evloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueBackend is the kernel-queue backend on BSD-family kernels (including
// Darwin). Read and write interest are independent filters in kqueue, so
// ArmReadOnly must explicitly EV_DELETE the write filter rather than simply
// not re-adding it — this is the "per-fd whether write interest is currently
// set" bookkeeping spec.md §4.1 calls out.
type kqueueBackend struct {
	fd       int
	writeSet map[int]bool
}

func newKqueueBackend() (backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueBackend{fd: fd, writeSet: make(map[int]bool)}, nil
}

func (b *kqueueBackend) change(changes []unix.Kevent_t) error {
	_, err := unix.Kevent(b.fd, changes, nil, nil)
	return err
}

func (b *kqueueBackend) ArmRead(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_CLEAR}
	if err := b.change([]unix.Kevent_t{ev}); err != nil {
		return err
	}
	delete(b.writeSet, fd)
	b.writeSet[fd] = false
	return nil
}

func (b *kqueueBackend) ArmReadWrite(fd int) error {
	evs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_CLEAR},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_CLEAR},
	}
	if err := b.change(evs); err != nil {
		return err
	}
	b.writeSet[fd] = true
	return nil
}

func (b *kqueueBackend) ArmReadOnly(fd int) error {
	if !b.writeSet[fd] {
		return nil // idempotent: no write filter currently armed
	}
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE}
	if err := b.change([]unix.Kevent_t{ev}); err != nil && err != unix.ENOENT {
		return err
	}
	b.writeSet[fd] = false
	return nil
}

func (b *kqueueBackend) Unregister(fd int) {
	evs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	_ = b.change(evs) // tolerate unregistering an fd never registered
	delete(b.writeSet, fd)
}

func (b *kqueueBackend) Wait(max time.Duration, dst []Event) ([]Event, error) {
	var ts unix.Timespec
	tsp := &ts
	if max < 0 {
		tsp = nil
	} else {
		ts = unix.NsecToTimespec(max.Nanoseconds())
	}
	raw := make([]unix.Kevent_t, 128)
	n, err := unix.Kevent(b.fd, nil, raw, tsp)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	byFD := make(map[int]EventBits, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		bits := byFD[fd]
		flags := raw[i].Flags
		if flags&unix.EV_ERROR != 0 {
			bits |= ErrorBit
		}
		if flags&unix.EV_EOF != 0 {
			// kqueue reports EOF via a flag rather than a distinct filter;
			// per spec.md §4.7 the fflags error bit distinguishes a genuine
			// error EOF from a clean-close EOF.
			if raw[i].Fflags != 0 {
				bits |= ErrorBit
			} else {
				bits |= Hangup
			}
		}
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			bits |= Readable
		case unix.EVFILT_WRITE:
			bits |= Writable
		}
		byFD[fd] = bits
	}
	for fd, bits := range byFD {
		dst = append(dst, Event{FD: fd, Bits: bits})
	}
	return dst, nil
}

func (b *kqueueBackend) Close() error {
	return unix.Close(b.fd)
}

func (b *kqueueBackend) Name() string { return "kqueue" }

// newEpollBackend never succeeds on BSD/Darwin; newBackend falls through to poll.
func newEpollBackend() (backend, error) {
	return nil, errBackendUnsupported
}
