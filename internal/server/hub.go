package server

import (
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/acameron/roomcast/internal/stats"
	"github.com/acameron/roomcast/internal/types"
	"github.com/google/uuid"
)

const (
	statActiveClients = "NumActiveClients"
	statActiveRooms   = "NumActiveRooms"
	statMessages      = "NumMessages"
	statReactions     = "NumReactions"
)

// Hub coordinates room membership, presence, message fan-out, typing
// indicators and reaction tallies for all connections.
//
// Lock order is roomsMu before a room's mu. Join and leave hold
// roomsMu across the membership mutation so that lazy room creation
// and delete-on-empty never race; sends, typing and reactions only
// take roomsMu for the room lookup, so unrelated rooms never contend
// on the fan-out path.
type Hub struct {
	log      *log.Logger
	stats    stats.StatsProvider
	registry *ConnRegistry

	roomsMu sync.Mutex
	rooms   map[string]*room

	clientsMu sync.Mutex
	clients   map[*Client]struct{}
}

func NewHub(logger *log.Logger, sp stats.StatsProvider) *Hub {
	for _, name := range []string{statActiveClients, statActiveRooms, statMessages, statReactions} {
		sp.RegisterMetric(name)
	}

	return &Hub{
		log:      logger,
		stats:    sp,
		registry: NewConnRegistry(),
		rooms:    make(map[string]*room),
		clients:  make(map[*Client]struct{}),
	}
}

// RegisterClient records a new transport session with no identity yet.
func (h *Hub) RegisterClient(c *Client) {
	h.registry.Register(c.id)

	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	h.clientsMu.Unlock()

	h.stats.Incr(statActiveClients)
	h.log.Printf("registered connection %q", c.id)
}

// Join binds an identity to the connection, adds it to the room
// (creating the room on first join) and broadcasts userJoined with the
// refreshed roster to every member including the joiner.
func (h *Hub) Join(c *Client, username, roomName string) error {
	ident, err := h.registry.Identify(c.id, username, roomName)
	if err != nil {
		return err
	}

	// Denormalized copies for roster building; immutable for the rest
	// of the session and published to other goroutines by the room
	// lock below.
	c.username = ident.Username
	c.room = ident.Room

	h.roomsMu.Lock()
	r, ok := h.rooms[ident.Room]
	if !ok {
		r = newRoom(ident.Room, h.log)
		h.rooms[ident.Room] = r
		h.stats.Incr(statActiveRooms)
	}

	r.mu.Lock()
	r.members = append(r.members, c)
	r.broadcastLocked(NewUserJoined(ident.Username, len(r.members), r.rosterLocked()), nil)
	r.mu.Unlock()
	h.roomsMu.Unlock()

	h.log.Printf("%q joined room %q", ident.Username, ident.Room)
	return nil
}

// Leave removes the connection's identity, membership and typing flag,
// broadcasts userLeft to the remaining members and deletes the room if
// it is now empty. It is the single teardown routine shared by
// explicit leaves and transport disconnects, and a no-op for
// connections that never joined.
func (h *Hub) Leave(c *Client) {
	ident, ok := h.registry.Forget(c.id)
	if !ok {
		return
	}

	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	r, ok := h.rooms[ident.Room]
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMemberLocked(c) {
		return
	}

	_, wasTyping := r.typing[c]
	delete(r.typing, c)
	r.removeMemberLocked(c)

	if len(r.members) == 0 {
		delete(h.rooms, r.name)
		h.stats.Decr(statActiveRooms)
	}

	if wasTyping {
		// A dropped connection must never leave a stale typing
		// indicator behind.
		r.broadcastLocked(NewUserStoppedTyping(ident.Username), nil)
	}
	r.broadcastLocked(NewUserLeft(ident.Username, len(r.members), r.rosterLocked()), nil)

	h.log.Printf("%q left room %q", ident.Username, ident.Room)
}

// Disconnect runs the standard cleanup for a closed transport session.
func (h *Hub) Disconnect(c *Client) {
	h.Leave(c)

	h.clientsMu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.stats.Decr(statActiveClients)
	}
	h.clientsMu.Unlock()

	h.log.Printf("connection %q closed", c.id)
}

// SendMessage stamps the text with the author's username, a
// server-minted message id and the server timestamp, and delivers it
// to every member of the author's room including the author.
func (h *Hub) SendMessage(c *Client, text string) (*MessageEvent, error) {
	ident, ok := h.registry.Lookup(c.id)
	if !ok {
		return nil, ErrNotIdentified
	}

	r := h.getRoom(ident.Room)
	if r == nil {
		return nil, ErrNotIdentified
	}

	r.mu.Lock()
	if !r.hasMemberLocked(c) {
		// Raced a completed disconnect for this connection.
		r.mu.Unlock()
		return nil, ErrNotIdentified
	}

	ev := &MessageEvent{
		MessageId: uuid.New().String(),
		Username:  ident.Username,
		Text:      text,
		Timestamp: Now(),
	}
	r.broadcastLocked(&ServerMessage{Timestamp: ev.Timestamp, ReceiveMessage: ev}, nil)
	r.mu.Unlock()

	h.stats.Incr(statMessages)
	return ev, nil
}

// Typing sets the connection's typing flag and notifies the other
// members of its room. Clients re-assert the flag; there is no
// server-side expiry beyond the forced clear on leave.
func (h *Hub) Typing(c *Client) error {
	ident, ok := h.registry.Lookup(c.id)
	if !ok {
		return ErrNotIdentified
	}

	r := h.getRoom(ident.Room)
	if r == nil {
		return ErrNotIdentified
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMemberLocked(c) {
		return ErrNotIdentified
	}

	r.typing[c] = struct{}{}
	r.broadcastLocked(NewUserTyping(ident.Username), c)
	return nil
}

// StopTyping clears the typing flag. Calling it with no active flag is
// a no-op, not an error.
func (h *Hub) StopTyping(c *Client) error {
	ident, ok := h.registry.Lookup(c.id)
	if !ok {
		return ErrNotIdentified
	}

	r := h.getRoom(ident.Room)
	if r == nil {
		return ErrNotIdentified
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMemberLocked(c) {
		return ErrNotIdentified
	}

	if _, wasTyping := r.typing[c]; !wasTyping {
		return nil
	}

	delete(r.typing, c)
	r.broadcastLocked(NewUserStoppedTyping(ident.Username), c)
	return nil
}

// AddReaction increments the tally for (messageId, emoji) by exactly
// one and broadcasts the authoritative count to the whole room.
// Message ids are not validated against sent messages and repeated
// reactions from the same user are counted.
func (h *Hub) AddReaction(c *Client, messageId, emoji string) (int, error) {
	ident, ok := h.registry.Lookup(c.id)
	if !ok {
		return 0, ErrNotIdentified
	}

	r := h.getRoom(ident.Room)
	if r == nil {
		return 0, ErrNotIdentified
	}

	r.mu.Lock()
	if !r.hasMemberLocked(c) {
		r.mu.Unlock()
		return 0, ErrNotIdentified
	}

	key := tallyKey{messageId: messageId, emoji: emoji}
	r.tallies[key]++
	count := r.tallies[key]
	r.broadcastLocked(NewReaction(messageId, emoji, count, ident.Username), nil)
	r.mu.Unlock()

	h.stats.Incr(statReactions)
	return count, nil
}

func (h *Hub) getRoom(name string) *room {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	return h.rooms[name]
}

// Rooms returns a snapshot of every room, sorted by name.
func (h *Hub) Rooms() []types.RoomInfo {
	h.roomsMu.Lock()
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.roomsMu.Unlock()

	infos := make([]types.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		infos = append(infos, types.RoomInfo{
			Name:      r.name,
			UserCount: len(r.members),
			Users:     r.rosterLocked(),
		})
		r.mu.Unlock()
	}

	slices.SortFunc(infos, func(a, b types.RoomInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// RoomInfo returns the snapshot for one room and whether it exists.
func (h *Hub) RoomInfo(name string) (types.RoomInfo, bool) {
	r := h.getRoom(name)
	if r == nil {
		return types.RoomInfo{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return types.RoomInfo{
		Name:      r.name,
		UserCount: len(r.members),
		Users:     r.rosterLocked(),
	}, true
}

// Shutdown stops every connected client; each one cleans up through
// its read pump teardown.
func (h *Hub) Shutdown() {
	h.clientsMu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		c.stopClient()
	}

	h.log.Println("hub stopped")
}
