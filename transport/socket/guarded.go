package socket

import "sync"

// Guarded serializes access to a socket handle that is assigned once.
type Guarded struct {
	access   sync.Mutex
	socket   *Socket
	assigned bool
}

// Set stores socket unless one was already assigned and force is false. It
// reports whether the handle was stored.
func (g *Guarded) Set(socket *Socket, force bool) bool {
	g.access.Lock()
	defer g.access.Unlock()
	if g.assigned && !force {
		return false
	}
	g.socket = socket
	g.assigned = true
	return true
}

// Acquire locks the handle for a single I/O attempt. A nil socket means not
// yet connected. The caller must call unlock as soon as the attempt returns.
func (g *Guarded) Acquire() (socket *Socket, unlock func()) {
	g.access.Lock()
	return g.socket, g.access.Unlock
}

func (g *Guarded) Assigned() bool {
	g.access.Lock()
	defer g.access.Unlock()
	return g.assigned
}
