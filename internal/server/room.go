package server

import (
	"log"
	"slices"
	"sync"
)

type tallyKey struct {
	messageId string
	emoji     string
}

// room holds the live state for one named room: the ordered member
// list, the typing set and the reaction tallies. Every field is
// guarded by mu, and every broadcast happens with mu held, so each
// room has a single event order that all members observe identically.
//
// A room exists in the hub's map iff it has at least one member; the
// hub creates and deletes rooms while holding its own lock ahead of
// mu, making lazy creation and delete-on-empty atomic with the
// membership change.
type room struct {
	name string
	log  *log.Logger

	mu      sync.Mutex
	members []*Client
	typing  map[*Client]struct{}
	tallies map[tallyKey]int
}

func newRoom(name string, logger *log.Logger) *room {
	return &room{
		name:    name,
		log:     logger,
		typing:  make(map[*Client]struct{}),
		tallies: make(map[tallyKey]int),
	}
}

// rosterLocked returns member usernames in join order.
func (r *room) rosterLocked() []string {
	users := make([]string, len(r.members))
	for i, c := range r.members {
		users[i] = c.username
	}
	return users
}

func (r *room) hasMemberLocked(c *Client) bool {
	return slices.Contains(r.members, c)
}

func (r *room) removeMemberLocked(c *Client) {
	for i, member := range r.members {
		if member == c {
			r.members = slices.Delete(r.members, i, i+1)
			return
		}
	}
}

// broadcastLocked enqueues msg to every member except skip. Enqueues
// never block; a member whose send buffer is full is stopped and
// cleans up through the standard leave path instead of stalling the
// room.
func (r *room) broadcastLocked(msg *ServerMessage, skip *Client) {
	for _, c := range r.members {
		if c == skip {
			continue
		}

		if !c.queueMessage(msg) {
			r.log.Printf("stopping slow connection %q in room %q", c.id, r.name)
			c.stopClient()
		}
	}
}
