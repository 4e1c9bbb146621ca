package evloop

import (
	"testing"
	"time"
)

// fakeBackend is a bookkeeping-only backend double for exercising admission
// and dispatch logic without a real kqueue/epoll/poll fd.
type fakeBackend struct {
	armedRead      map[int]bool
	armedReadWrite map[int]bool
	unregistered   []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{armedRead: map[int]bool{}, armedReadWrite: map[int]bool{}}
}

func (b *fakeBackend) ArmRead(fd int) error      { b.armedRead[fd] = true; delete(b.armedReadWrite, fd); return nil }
func (b *fakeBackend) ArmReadWrite(fd int) error { b.armedReadWrite[fd] = true; delete(b.armedRead, fd); return nil }
func (b *fakeBackend) ArmReadOnly(fd int) error  { return b.ArmRead(fd) }
func (b *fakeBackend) Unregister(fd int) {
	delete(b.armedRead, fd)
	delete(b.armedReadWrite, fd)
	b.unregistered = append(b.unregistered, fd)
}
func (b *fakeBackend) Wait(time.Duration, []Event) ([]Event, error) { return nil, nil }
func (b *fakeBackend) Close() error                                 { return nil }
func (b *fakeBackend) Name() string                                 { return "fake" }

func newTestLoop() *Loop {
	l := NewLoop(WithMaxClients(1))
	l.be = newFakeBackend()
	return l
}

func TestAdmissionArmsListenersUnderMaxClients(t *testing.T) {
	l := newTestLoop()
	ln := &listener{fd: 5}
	l.listeners[newID()] = ln

	l.armListenersIfAdmissible()

	fb := l.be.(*fakeBackend)
	if !ln.armed || !fb.armedRead[5] {
		t.Fatal("listener was not armed for read")
	}
	if !l.listening {
		t.Fatal("listening flag not set after arming")
	}
}

func TestAdmissionWithholdsAtMaxClients(t *testing.T) {
	l := newTestLoop()
	ln := &listener{fd: 5}
	l.listeners[newID()] = ln
	l.reg.insert(&connection{fd: 99, role: RoleInboundAccepted}) // at MaxClients=1 already

	l.armListenersIfAdmissible()

	if ln.armed {
		t.Fatal("listener armed despite being at max_clients")
	}
}

func TestAdmissionHonorsLockPredicate(t *testing.T) {
	l := newTestLoop()
	l.cfg.Lock = func(isEmpty bool) bool { return false }
	ln := &listener{fd: 5}
	l.listeners[newID()] = ln

	l.armListenersIfAdmissible()

	if ln.armed {
		t.Fatal("listener armed despite a false lock predicate")
	}
}

func TestDisarmListenersUnregistersEveryArmedListener(t *testing.T) {
	l := newTestLoop()
	ln := &listener{fd: 5}
	l.listeners[newID()] = ln
	l.armListenersIfAdmissible()

	l.disarmListeners()

	fb := l.be.(*fakeBackend)
	if ln.armed {
		t.Fatal("listener still marked armed after disarm")
	}
	if l.listening {
		t.Fatal("listening flag still set after disarm")
	}
	found := false
	for _, fd := range fb.unregistered {
		if fd == 5 {
			found = true
		}
	}
	if !found {
		t.Fatal("disarmListeners did not unregister the listener fd")
	}
}
