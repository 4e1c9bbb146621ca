package evloop

import (
	"sync"
	"time"

	"github.com/jursonmo/evloop/log"
)

// Loop is the single process-wide reactor (§2). Callbacks and all mutation of
// loop-owned state run on the goroutine that calls Start; public methods
// may be called from any goroutine — they enqueue a closure the loop drains
// at the top of every iteration, so the "no required external
// synchronization" guarantee in §5 holds for the loop's own state even
// though callers don't have to reason about which goroutine they're on.
type Loop struct {
	cfg Config
	log log.Logger

	be   backend
	beMu sync.Once // kqueue/epoll construction is deferred to first use (fork hazard, §4.1/§9)

	reg       *registry
	listeners map[ID]*listener
	staging   []*stagedAccept
	eventsBuf []Event

	listening bool
	running   bool

	cmdMu sync.Mutex
	cmds  []func()
}

type stagedAccept struct {
	conn     *connection
	stagedAt time.Time
}

// NewLoop constructs an independent Loop. Most hosts want the process-wide
// singleton (New); NewLoop exists for tests and for hosts that
// deliberately want more than one loop.
func NewLoop(opts ...Option) *Loop {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Loop{
		cfg:       cfg,
		log:       cfg.Logger,
		reg:       newRegistry(),
		listeners: make(map[ID]*listener),
	}
}

var (
	defaultOnce sync.Once
	defaultLoop *Loop
)

// New returns the process-wide singleton Loop (§6 `new()`), constructing it
// on first call with DefaultConfig. Per the design note in spec.md §9, the
// singleton is a policy applied here at the package level, not hidden inside
// the constructor: hosts that want an isolated Loop should call NewLoop
// instead.
func New() *Loop {
	defaultOnce.Do(func() {
		defaultLoop = NewLoop()
	})
	return defaultLoop
}

// ensureBackend performs the deferred kqueue/epoll construction described in
// §4.1 and §9: the first operation that actually needs a backend builds it,
// not NewLoop, so that forking between construction and first use doesn't
// inherit a doomed kernel queue fd.
func (l *Loop) ensureBackend() error {
	var err error
	l.beMu.Do(func() {
		l.be, err = newBackend()
	})
	return err
}

// enqueue schedules fn to run on the loop's own goroutine at the top of the
// next iteration. Safe to call from any goroutine, including before Start.
func (l *Loop) enqueue(fn func()) {
	l.cmdMu.Lock()
	l.cmds = append(l.cmds, fn)
	l.cmdMu.Unlock()
}

func (l *Loop) drainCommands() {
	l.cmdMu.Lock()
	cmds := l.cmds
	l.cmds = nil
	l.cmdMu.Unlock()
	for _, fn := range cmds {
		fn()
	}
}

// Start runs the loop until Stop is called or the loop goes idle (no
// listeners, connections, or connecting records remain). It blocks the
// calling goroutine; run it in its own goroutine if the host needs to keep
// control of the caller.
func (l *Loop) Start() error {
	if err := l.ensureBackend(); err != nil {
		return newError(KindConstructionFailure, "", err)
	}
	l.running = true
	for l.running {
		l.drainCommands()
		if !l.running {
			break
		}
		l.spin()
	}
	return nil
}

// Stop requests the loop to exit after the current iteration completes. It
// does not drop any in-flight connections (§5) — the caller drops what it
// wants dropped.
func (l *Loop) Stop() {
	l.enqueue(func() { l.running = false })
}
