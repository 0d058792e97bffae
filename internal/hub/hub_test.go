package hub_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabnote-backend/internal/errs"
	"collabnote-backend/internal/hub"
	"collabnote-backend/internal/model"
)

// fakeGuard authorizes a fixed note -> owner mapping.
type fakeGuard struct {
	owners map[int64]int64
}

func (g *fakeGuard) VerifyNoteAccess(noteID, callerID int64) (*model.Note, error) {
	owner, ok := g.owners[noteID]
	if !ok {
		return nil, errs.ErrNoteNotFound
	}
	if owner != callerID {
		return nil, errs.ErrForbidden
	}
	return &model.Note{ID: noteID, UserID: owner}, nil
}

// fakeSender records every message written to the connection.
type fakeSender struct {
	mu   sync.Mutex
	msgs []hub.Message
}

func (s *fakeSender) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, v.(hub.Message))
	return nil
}

func (s *fakeSender) messages() []hub.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hub.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *fakeSender) lastPresence() ([]int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Type == "presence" {
			return s.msgs[i].Payload.([]int64), true
		}
	}
	return nil, false
}

func TestJoinBroadcastsPresence(t *testing.T) {
	h := hub.New(&fakeGuard{owners: map[int64]int64{1: 10}})

	sender := &fakeSender{}
	conn := h.Register(10, sender)
	h.Join(conn, 1)

	assert.Equal(t, 1, h.RoomCount())
	assert.Equal(t, []int64{10}, h.Presence(1))

	// The joiner itself receives the presence list.
	got, ok := sender.lastPresence()
	require.True(t, ok)
	assert.Equal(t, []int64{10}, got)
}

func TestJoinDeniedIsSilent(t *testing.T) {
	h := hub.New(&fakeGuard{owners: map[int64]int64{1: 10}})

	sender := &fakeSender{}
	conn := h.Register(99, sender)
	h.Join(conn, 1)

	// No room, no error back over the channel.
	assert.Equal(t, 0, h.RoomCount())
	assert.Empty(t, sender.messages())

	// And the intruder never receives room traffic.
	owner := h.Register(10, &fakeSender{})
	h.Join(owner, 1)
	h.Relay(owner, 1, hub.Message{Type: "block:created", Payload: "x"})
	assert.Empty(t, sender.messages())
}

func TestPresenceCollapsesTabs(t *testing.T) {
	guard := &fakeGuard{owners: map[int64]int64{1: 10}}
	h := hub.New(guard)

	// Same user joins from three tabs.
	conns := make([]*hub.Conn, 3)
	for i := range conns {
		conns[i] = h.Register(10, &fakeSender{})
		h.Join(conns[i], 1)
	}

	assert.Equal(t, []int64{10}, h.Presence(1))

	// Closing one tab keeps the user present.
	h.Disconnect(conns[0])
	assert.Equal(t, []int64{10}, h.Presence(1))

	// Closing the last tab removes the user and the room.
	h.Disconnect(conns[1])
	h.Disconnect(conns[2])
	assert.Nil(t, h.Presence(1))
	assert.Equal(t, 0, h.RoomCount())
}

func TestPresenceSortedIdentities(t *testing.T) {
	guard := &fakeGuard{owners: map[int64]int64{1: 10}}
	h := hub.New(guard)

	owner := h.Register(10, &fakeSender{})
	h.Join(owner, 1)

	// Additional identities join the shared room once the guard allows them.
	for _, id := range []int64{30, 20} {
		guard.owners[1] = id
		c := h.Register(id, &fakeSender{})
		h.Join(c, 1)
	}

	assert.Equal(t, []int64{10, 20, 30}, h.Presence(1))
}

func TestRelayExcludesSender(t *testing.T) {
	guard := &fakeGuard{owners: map[int64]int64{1: 10}}
	h := hub.New(guard)

	senderA := &fakeSender{}
	connA := h.Register(10, senderA)
	h.Join(connA, 1)

	senderB := &fakeSender{}
	connB := h.Register(10, senderB)
	h.Join(connB, 1)

	beforeA := len(senderA.messages())
	beforeB := len(senderB.messages())

	msg := hub.Message{Type: "block:created", Payload: map[string]string{"content": "hi"}}
	h.Relay(connA, 1, msg)

	// Only the peer sees the announcement.
	assert.Len(t, senderA.messages(), beforeA)
	got := senderB.messages()
	require.Len(t, got, beforeB+1)
	assert.Equal(t, "block:created", got[len(got)-1].Type)
}

func TestRelayToEmptyRoomIsNoop(t *testing.T) {
	h := hub.New(&fakeGuard{owners: map[int64]int64{1: 10}})

	conn := h.Register(10, &fakeSender{})
	// Never joined: relay goes nowhere and does not panic.
	h.Relay(conn, 1, hub.Message{Type: "block:created"})
	h.Relay(conn, 42, hub.Message{Type: "block:created"})
}

func TestOneRoomPerConnection(t *testing.T) {
	guard := &fakeGuard{owners: map[int64]int64{1: 10, 2: 10}}
	h := hub.New(guard)

	conn := h.Register(10, &fakeSender{})
	h.Join(conn, 1)
	h.Join(conn, 2)

	// The second join is ignored.
	assert.Equal(t, []int64{10}, h.Presence(1))
	assert.Nil(t, h.Presence(2))
	assert.Equal(t, 1, h.RoomCount())
}

func TestDisconnectBroadcastsShrunkenPresence(t *testing.T) {
	guard := &fakeGuard{owners: map[int64]int64{1: 10}}
	h := hub.New(guard)

	senderA := &fakeSender{}
	connA := h.Register(10, senderA)
	h.Join(connA, 1)

	guard.owners[1] = 20
	senderB := &fakeSender{}
	connB := h.Register(20, senderB)
	h.Join(connB, 1)

	got, ok := senderA.lastPresence()
	require.True(t, ok)
	assert.Equal(t, []int64{10, 20}, got)

	h.Disconnect(connB)

	got, ok = senderA.lastPresence()
	require.True(t, ok)
	assert.Equal(t, []int64{10}, got)
}

func TestDisconnectWithoutRoom(t *testing.T) {
	h := hub.New(&fakeGuard{owners: map[int64]int64{}})

	conn := h.Register(10, &fakeSender{})
	// Disconnecting a connection that never joined is a no-op.
	h.Disconnect(conn)
	h.Disconnect(conn)
	assert.Equal(t, 0, h.RoomCount())
}
