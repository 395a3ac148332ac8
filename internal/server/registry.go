package server

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidJoin is returned when a join carries a blank username
	// or room after trimming whitespace.
	ErrInvalidJoin = errors.New("username and room are required")
	// ErrAlreadyJoined is returned on a second join attempt for the
	// same connection; a connection identifies once per session.
	ErrAlreadyJoined = errors.New("already joined a room")
	// ErrNotIdentified is returned for actions from a connection that
	// never joined or has already left.
	ErrNotIdentified = errors.New("user not found")
)

// Identity is a connection's username and room. Both are set exactly
// once when the connection joins and never change for that session.
type Identity struct {
	Username string
	Room     string
}

// ConnRegistry maps connection ids to their current identity. It is
// the single source of truth for who a connection is.
type ConnRegistry struct {
	mu    sync.Mutex
	conns map[string]*Identity
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		conns: make(map[string]*Identity),
	}
}

// Register records a connection that has no identity yet. Called on
// transport connect.
func (cr *ConnRegistry) Register(connId string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if _, ok := cr.conns[connId]; !ok {
		cr.conns[connId] = nil
	}
}

// Identify binds a username and room to a registered connection.
func (cr *ConnRegistry) Identify(connId, username, room string) (Identity, error) {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)
	if username == "" || room == "" {
		return Identity{}, ErrInvalidJoin
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	ident, ok := cr.conns[connId]
	if !ok {
		return Identity{}, ErrNotIdentified
	}
	if ident != nil {
		return Identity{}, ErrAlreadyJoined
	}

	id := Identity{Username: username, Room: room}
	cr.conns[connId] = &id
	return id, nil
}

// Lookup returns the identity for a connection, if it has one.
func (cr *ConnRegistry) Lookup(connId string) (Identity, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	ident := cr.conns[connId]
	if ident == nil {
		return Identity{}, false
	}
	return *ident, true
}

// Forget removes the connection and returns its prior identity. It is
// shared by explicit leaves and transport disconnects and is safe to
// call more than once.
func (cr *ConnRegistry) Forget(connId string) (Identity, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	ident, ok := cr.conns[connId]
	delete(cr.conns, connId)
	if !ok || ident == nil {
		return Identity{}, false
	}
	return *ident, true
}
