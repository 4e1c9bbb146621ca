package evloop

import (
	"testing"
	"time"
)

func TestWritingTouchesActivity(t *testing.T) {
	l := newTestLoop()
	a, _ := socketpair(t)
	c := &connection{fd: a, role: RoleInboundAccepted}
	c.touch(time.Now().Add(-time.Hour))
	id := l.reg.insert(c)
	before := c.lastActivity

	l.Writing(id)
	l.drainCommands()

	if !c.lastActivity.After(before) {
		t.Fatal("Writing did not update last_activity_ts")
	}
	if c.writing != ArmReadWrite {
		t.Fatalf("writing = %v; want ArmReadWrite", c.writing)
	}
}

func TestNotWritingTouchesActivity(t *testing.T) {
	l := newTestLoop()
	a, _ := socketpair(t)
	c := &connection{fd: a, role: RoleInboundAccepted}
	c.touch(time.Now().Add(-time.Hour))
	id := l.reg.insert(c)
	before := c.lastActivity

	l.NotWriting(id)
	l.drainCommands()

	if !c.lastActivity.After(before) {
		t.Fatal("NotWriting did not update last_activity_ts")
	}
	if !c.readOnlyPending {
		t.Fatal("NotWriting did not set readOnlyPending")
	}
}
