package evloop

import "testing"

func TestRegistryInsertLookupRemove(t *testing.T) {
	r := newRegistry()
	c := &connection{fd: 42, role: RoleInboundAccepted}

	id := r.insert(c)
	if id == "" {
		t.Fatal("insert returned empty id")
	}
	if got, ok := r.lookup(id); !ok || got != c {
		t.Fatalf("lookup(%s) = %v, %v; want %v, true", id, got, ok, c)
	}
	if got, ok := r.lookupByFD(42); !ok || got != c {
		t.Fatalf("lookupByFD(42) = %v, %v; want %v, true", got, ok, c)
	}
	clients, servers, connecting := r.count()
	if clients != 1 || servers != 0 || connecting != 0 {
		t.Fatalf("count() = %d,%d,%d; want 1,0,0", clients, servers, connecting)
	}

	removed, ok := r.remove(id)
	if !ok || removed != c {
		t.Fatalf("remove(%s) = %v, %v; want %v, true", id, removed, ok, c)
	}
	if !c.dropped {
		t.Fatal("remove did not mark the connection dropped")
	}
	if clients, _, _ := r.count(); clients != 0 {
		t.Fatalf("count().clients after remove = %d; want 0", clients)
	}

	// Removing twice is a no-op, not a panic or a double-decrement.
	if _, ok := r.remove(id); ok {
		t.Fatal("second remove() reported success")
	}
	if _, ok := r.lookup(id); ok {
		t.Fatal("lookup still finds a removed connection")
	}
	if !r.empty() {
		t.Fatal("registry not empty after removing its only connection")
	}
}

func TestRegistryByFDReuse(t *testing.T) {
	r := newRegistry()
	c1 := &connection{fd: 7, role: RoleOutboundEstablished}
	id1 := r.insert(c1)
	r.remove(id1)

	// A later connection on the same fd must not be confused with the
	// removed one via the stale byFD index.
	c2 := &connection{fd: 7, role: RoleOutboundEstablished}
	id2 := r.insert(c2)

	got, ok := r.lookupByFD(7)
	if !ok || got != c2 {
		t.Fatalf("lookupByFD(7) = %v, %v; want the new connection", got, ok)
	}
	if _, ok := r.lookup(id1); ok {
		t.Fatal("old id still resolves after its fd was reused")
	}
	if _, ok := r.lookup(id2); !ok {
		t.Fatal("new id does not resolve")
	}
}

func TestRegistryBumpTracksRolesIndependently(t *testing.T) {
	r := newRegistry()
	a := &connection{fd: 1, role: RoleInboundAccepted}
	b := &connection{fd: 2, role: RoleOutboundEstablished}
	cc := &connection{fd: 3, role: RoleOutboundConnecting}

	r.insert(a)
	r.insert(b)
	r.insert(cc)

	clients, servers, connecting := r.count()
	if clients != 1 || servers != 1 || connecting != 1 {
		t.Fatalf("count() = %d,%d,%d; want 1,1,1", clients, servers, connecting)
	}

	r.bump(RoleOutboundConnecting, -1)
	r.bump(RoleOutboundEstablished, 1)
	if clients, servers, connecting := r.count(); clients != 1 || servers != 2 || connecting != 0 {
		t.Fatalf("count() after bump = %d,%d,%d; want 1,2,0", clients, servers, connecting)
	}
}
