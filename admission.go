package evloop

import "github.com/jursonmo/evloop/log"

// armListenersIfAdmissible is the Admission Controller (§4.3): before each
// iteration, if at least one listener exists, clients < max_clients, and the
// lock predicate agrees, arm every listener for readability. The predicate
// may bridge to inter-process state (a file lock) and must be cheap and
// non-blocking; it is invoked at most once per iteration.
func (l *Loop) armListenersIfAdmissible() {
	if l.listening || len(l.listeners) == 0 {
		return
	}
	clients, _, _ := l.reg.count()
	if clients >= l.cfg.MaxClients {
		return
	}
	if !l.cfg.Lock(l.reg.empty()) {
		return
	}
	for _, ln := range l.listeners {
		if err := l.be.ArmRead(ln.fd); err != nil {
			l.log.Error("failed to arm listener", log.Fields{"fd": ln.fd, "err": err})
			continue
		}
		ln.armed = true
	}
	l.listening = true
}

// disarmListeners implements the "accept once, then unregister every
// listener" rule from §4.4: after one accept this iteration, every listener
// is unregistered so peers in a multi-process deployment can take the accept
// lock next. The lock predicate is consulted again before the next re-arm.
func (l *Loop) disarmListeners() {
	for _, ln := range l.listeners {
		if ln.armed {
			l.be.Unregister(ln.fd)
			ln.armed = false
		}
	}
	l.listening = false
}
