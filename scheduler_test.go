package evloop

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestHandleReadableDeliversDataAndTouchesActivity(t *testing.T) {
	l := newTestLoop()
	a, b := socketpair(t)

	var got []byte
	c := &connection{fd: a, role: RoleInboundAccepted}
	c.cb.onRead = func(_ *Loop, _ ID, data []byte) { got = append(got, data...) }
	l.reg.insert(c)

	if _, err := unix.Write(b, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	before := c.lastActivity
	l.handleReadable(c)

	if string(got) != "hello" {
		t.Fatalf("onRead got %q; want %q", got, "hello")
	}
	if !c.lastActivity.After(before) {
		t.Fatal("handleReadable did not refresh lastActivity")
	}
}

func TestHandleReadableDropsWithErrorOnZeroByteRead(t *testing.T) {
	l := newTestLoop()
	a, b := socketpair(t)
	_ = unix.Close(b)

	var gotErr *Error
	var hungUp bool
	c := &connection{fd: a, role: RoleInboundAccepted}
	c.cb.onError = func(_ *Loop, _ ID, err *Error) { gotErr = err }
	c.cb.onHangup = func(*Loop, ID) { hungUp = true }
	l.reg.insert(c)

	l.handleReadable(c)

	// §4.7: an empty read is treated as an error, not a hangup, even though
	// at the syscall layer it's indistinguishable from a clean peer close.
	if hungUp {
		t.Fatal("handleReadable invoked the hangup callback on a zero-byte read")
	}
	if gotErr == nil || gotErr.Kind != KindTransportError {
		t.Fatalf("onError = %v; want a KindTransportError", gotErr)
	}
	if !c.dropped {
		t.Fatal("connection not dropped after a zero-byte read")
	}
}

func TestHandleWritableRefillsThenDrains(t *testing.T) {
	l := newTestLoop()
	a, b := socketpair(t)

	calls := 0
	c := &connection{fd: a, role: RoleOutboundEstablished}
	c.cb.onWrite = func(*Loop, ID) []byte {
		calls++
		if calls == 1 {
			return []byte("payload")
		}
		return nil
	}
	l.reg.insert(c)

	l.handleWritable(c)

	if len(c.buffer) != 0 {
		t.Fatalf("buffer not drained: %q remains", c.buffer)
	}
	if calls != 2 {
		t.Fatalf("onWrite called %d times; want 2 (one with data, one empty to stop refill)", calls)
	}

	readBuf := make([]byte, 32)
	n, err := unix.Read(b, readBuf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(readBuf[:n]) != "payload" {
		t.Fatalf("peer received %q; want %q", readBuf[:n], "payload")
	}
}

func TestHandleWritableSkipsConnectingSockets(t *testing.T) {
	l := newTestLoop()
	a, _ := socketpair(t)

	called := false
	c := &connection{fd: a, role: RoleOutboundConnecting}
	c.cb.onWrite = func(*Loop, ID) []byte { called = true; return []byte("x") }
	l.reg.insert(c)

	l.handleWritable(c)

	if called {
		t.Fatal("handleWritable polled the write callback for a still-connecting socket")
	}
}

func TestPrepareConnectionsDropsIdleConnections(t *testing.T) {
	l := newTestLoop()
	a, _ := socketpair(t)

	var hungUp bool
	c := &connection{fd: a, role: RoleInboundAccepted, idleTimeout: time.Millisecond}
	c.cb.onHangup = func(*Loop, ID) { hungUp = true }
	c.touch(time.Now().Add(-time.Hour))
	l.reg.insert(c)

	l.prepareConnections(time.Now())

	if !hungUp {
		t.Fatal("prepareConnections did not drop a connection past its idle timeout")
	}
}

func TestPrepareConnectionsFinishesOnceBufferDrains(t *testing.T) {
	l := newTestLoop()
	a, _ := socketpair(t)

	var hungUp, errored bool
	c := &connection{fd: a, role: RoleInboundAccepted}
	c.cb.onHangup = func(*Loop, ID) { hungUp = true }
	c.cb.onError = func(*Loop, ID, *Error) { errored = true }
	c.finishPending = true
	l.reg.insert(c)

	l.prepareConnections(time.Now())

	// A Finish() completing is a deliberate close, not a peer hangup — it
	// tears down the same silent way Drop does, with no callback at all.
	if hungUp || errored {
		t.Fatal("prepareConnections fired a callback finishing a drained connection; want silent teardown")
	}
	if !c.dropped {
		t.Fatal("prepareConnections did not drop a connection with an empty drained buffer")
	}
}
