package evloop

// registry is the connection-id -> connection record table plus the
// fd -> id index used to translate backend results back to records (§4.2).
// It is owned and touched only on the Loop's own goroutine; no locking.
type registry struct {
	byID map[ID]*connection
	byFD map[int]ID

	clients    int
	servers    int
	connecting int
}

func newRegistry() *registry {
	return &registry{
		byID: make(map[ID]*connection),
		byFD: make(map[int]ID),
	}
}

func (r *registry) insert(c *connection) ID {
	id := newID()
	c.id = id
	r.byID[id] = c
	r.byFD[c.fd] = id
	r.bump(c.role, 1)
	return id
}

func (r *registry) lookup(id ID) (*connection, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *registry) lookupByFD(fd int) (*connection, bool) {
	id, ok := r.byFD[fd]
	if !ok {
		return nil, false
	}
	return r.lookup(id)
}

func (r *registry) bump(role Role, delta int) {
	switch role {
	case RoleOutboundConnecting:
		r.connecting += delta
	case RoleOutboundEstablished:
		r.servers += delta
	case RoleInboundAccepted:
		r.clients += delta
	}
}

// remove is idempotent-safe: removing an id more than once, or visiting a
// dropped connection from a later dispatch in the same iteration, is a no-op.
// Closing the fd and unregistering from the backend are the caller's (loop's)
// responsibility once remove reports this was the first removal.
func (r *registry) remove(id ID) (*connection, bool) {
	c, ok := r.byID[id]
	if !ok || c.dropped {
		return nil, false
	}
	c.dropped = true
	r.bump(c.role, -1)
	delete(r.byID, id)
	if cur, ok := r.byFD[c.fd]; ok && cur == id {
		delete(r.byFD, c.fd)
	}
	return c, true
}

func (r *registry) empty() bool {
	return len(r.byID) == 0
}

func (r *registry) count() (clients, servers, connecting int) {
	return r.clients, r.servers, r.connecting
}
