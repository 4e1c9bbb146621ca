package evloop

import (
	"os"
	"time"
)

// EventBits is a bitmask of readiness conditions the backend reports for one fd.
type EventBits uint8

const (
	Readable EventBits = 1 << iota
	Writable
	Hangup
	ErrorBit
)

// Event is one (fd, readiness) pair returned from a Backend.Wait call.
type Event struct {
	FD   int
	Bits EventBits
}

// backend is the uniform readiness interface (§4.1) over the three
// implementations: kqueue, epoll, and a portable poll. All methods must
// tolerate being called with an fd that isn't currently registered, and
// repeated arms on the same fd must coalesce rather than duplicate
// registrations.
type backend interface {
	// ArmRead registers fd for read-only readiness.
	ArmRead(fd int) error
	// ArmReadWrite registers fd for read and write readiness.
	ArmReadWrite(fd int) error
	// ArmReadOnly downgrades an fd previously armed read-write back to read-only.
	ArmReadOnly(fd int) error
	// Unregister removes fd. Unregistering an fd that was never registered is a no-op.
	Unregister(fd int)
	// Wait blocks up to max for readiness, appending results to dst and
	// returning the (possibly reallocated) slice.
	Wait(max time.Duration, dst []Event) ([]Event, error)
	// Close releases the backend's own kernel resources (e.g. the epoll/kqueue fd).
	Close() error
	// Name identifies the backend for diagnostics ("kqueue", "epoll", "poll").
	Name() string
}

// forced backend selection, read once at first use. Environment toggles per
// spec.md §6: at most one force-backend flag is effective, and the priority
// of the remaining backends (kqueue > epoll > poll) is preserved for hosts
// that don't force anything.
const (
	envForcePoll   = "EVLOOP_FORCE_POLL"
	envForceEpoll  = "EVLOOP_FORCE_EPOLL"
	envForceKqueue = "EVLOOP_FORCE_KQUEUE"
)

// newBackend picks a backend in priority order kqueue > epoll > poll,
// honoring an environment override. Kqueue/epoll construction is deferred to
// first use by callers (see loop.go) since those queues do not survive a
// fork; newBackend itself is the "first use".
func newBackend() (backend, error) {
	switch {
	case os.Getenv(envForcePoll) != "":
		return newPollBackend()
	case os.Getenv(envForceEpoll) != "":
		b, err := newEpollBackend()
		if err == errBackendUnsupported {
			return newPollBackend()
		}
		return b, err
	case os.Getenv(envForceKqueue) != "":
		b, err := newKqueueBackend()
		if err == errBackendUnsupported {
			return newPollBackend()
		}
		return b, err
	}

	if b, err := newKqueueBackend(); err != errBackendUnsupported {
		return b, err
	}
	if b, err := newEpollBackend(); err != errBackendUnsupported {
		return b, err
	}
	return newPollBackend()
}
