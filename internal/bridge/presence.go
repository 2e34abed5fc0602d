package bridge

import (
	"sync"
)

// Presence tracks live connections and which account each one authenticated
// as. It is owned by the bridge and injected into the event handlers; the
// credential store, not this map, stays the source of truth for "who is
// connected".
type Presence struct {
	mu    sync.RWMutex
	conns map[*client]struct{}
	users map[int64]*client
}

// NewPresence creates new instance of Presence.
func NewPresence() *Presence {
	return &Presence{
		conns: make(map[*client]struct{}),
		users: make(map[int64]*client),
	}
}

func (p *Presence) addConn(c *client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conns[c] = struct{}{}
}

// bind inserts or overwrites the entry for the given account id.
func (p *Presence) bind(id int64, c *client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users[id] = c
}

// removeConn drops the connection and scans the account entries for the one
// bound to it. It returns the bound client when the connection had
// authenticated, nil otherwise.
func (p *Presence) removeConn(c *client) *client {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.conns, c)

	for id, bound := range p.users {
		if bound == c {
			delete(p.users, id)
			return bound
		}
	}

	return nil
}

func (p *Presence) lookup(id int64) (*client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.users[id]
	return c, ok
}

func (p *Presence) len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.conns)
}

// broadcast delivers the event to every connection. except may be nil.
func (p *Presence) broadcast(event string, v interface{}, except *client) {
	p.mu.RLock()
	conns := make([]*client, 0, len(p.conns))
	for c := range p.conns {
		if c != except {
			conns = append(conns, c)
		}
	}
	p.mu.RUnlock()

	for _, c := range conns {
		if err := c.send(event, v); err != nil {
			log.WithError(err).Debug("failed to deliver broadcast")
		}
	}
}
