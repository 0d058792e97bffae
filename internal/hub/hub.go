// Package hub relays mutation announcements between sessions editing the
// same note and tracks per-room presence. It never validates or persists
// payloads: the REST block store has already done that on the sender's side,
// and the hub is an announce-only side channel, not a second write path.
package hub

import (
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"collabnote-backend/internal/model"
)

// AccessGuard resolves whether a caller may act on a note. The service
// package's AccessGuard satisfies it.
type AccessGuard interface {
	VerifyNoteAccess(noteID, callerID int64) (*model.Note, error)
}

// Sender is the outbound half of a connection. *websocket.Conn satisfies it.
type Sender interface {
	WriteJSON(v interface{}) error
}

// Message is the JSON envelope exchanged over the collab channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Conn is one authenticated connection. A connection belongs to at most one
// room at a time; joining a second note is ignored.
type Conn struct {
	ID      string
	UserID  int64
	sender  Sender
	writeMu sync.Mutex

	room *room // guarded by the hub mutex
}

func (c *Conn) send(msg Message) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.sender.WriteJSON(msg); err != nil {
		log.Printf("[Hub] Failed to send to %s: %v", c.ID, err)
	}
}

// room groups the connections viewing one note. Presence is identity-keyed:
// several tabs of one user count as one presence entry, refcounted so the
// entry survives until the last of that user's connections leaves.
type room struct {
	noteID  int64
	conns   map[*Conn]struct{}
	members map[int64]int // userID -> connection count
}

func (r *room) memberIDs() []int64 {
	ids := make([]int64, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Hub owns the room and presence tables. State is process-local and not
// durable: a reconnect rebuilds presence from scratch.
type Hub struct {
	guard AccessGuard

	mu    sync.RWMutex
	rooms map[int64]*room
}

// New creates a Hub around the given access guard.
func New(guard AccessGuard) *Hub {
	return &Hub{
		guard: guard,
		rooms: make(map[int64]*room),
	}
}

// Register wraps an authenticated transport connection. The caller is
// responsible for calling Disconnect when the transport closes.
func (h *Hub) Register(userID int64, sender Sender) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		sender: sender,
	}
}

// Join adds the connection to the note's room after an access check and
// broadcasts the updated presence list to every room member, the joiner
// included. An unauthorized or failed join is a silent no-op by contract:
// the caller simply never receives room traffic, and no error goes back
// over the channel.
func (h *Hub) Join(c *Conn, noteID int64) {
	if _, err := h.guard.VerifyNoteAccess(noteID, c.UserID); err != nil {
		log.Printf("[Hub] Join denied for user %d on note %d: %v", c.UserID, noteID, err)
		return
	}

	h.mu.Lock()
	if c.room != nil {
		// One room per connection.
		h.mu.Unlock()
		return
	}

	r, ok := h.rooms[noteID]
	if !ok {
		r = &room{
			noteID:  noteID,
			conns:   make(map[*Conn]struct{}),
			members: make(map[int64]int),
		}
		h.rooms[noteID] = r
		log.Printf("[Hub] Created room for note %d", noteID)
	}

	r.conns[c] = struct{}{}
	r.members[c.UserID]++
	c.room = r

	msg := Message{Type: "presence", Payload: r.memberIDs()}
	targets := r.connList()
	h.mu.Unlock()

	for _, t := range targets {
		t.send(msg)
	}
}

// Disconnect removes the connection from its room, if any, broadcasts the
// shrunken presence list to the remaining members, and discards the room
// once it is empty.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	r := c.room
	if r == nil {
		h.mu.Unlock()
		return
	}
	c.room = nil

	delete(r.conns, c)
	r.members[c.UserID]--
	if r.members[c.UserID] <= 0 {
		delete(r.members, c.UserID)
	}

	if len(r.conns) == 0 {
		delete(h.rooms, r.noteID)
		h.mu.Unlock()
		log.Printf("[Hub] Removed empty room for note %d", r.noteID)
		return
	}

	msg := Message{Type: "presence", Payload: r.memberIDs()}
	targets := r.connList()
	h.mu.Unlock()

	for _, t := range targets {
		t.send(msg)
	}
}

// Relay forwards an announcement to every connection in the note's room
// except the sender. Payloads are forwarded as-is; messages for rooms with
// no members go nowhere.
func (h *Hub) Relay(sender *Conn, noteID int64, msg Message) {
	h.mu.RLock()
	r, ok := h.rooms[noteID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		if c != sender {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.send(msg)
	}
}

// RoomCount reports the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Presence returns the distinct member identities of a note's room.
func (h *Hub) Presence(noteID int64) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[noteID]
	if !ok {
		return nil
	}
	return r.memberIDs()
}

func (r *room) connList() []*Conn {
	conns := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
