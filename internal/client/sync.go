package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collabnote-backend/internal/errs"
	"collabnote-backend/internal/model"
)

// Session is one client's live view of a single note. Local mutations go
// through the REST API first; only after the server accepts does the session
// update its cache and announce the canonical result over the websocket.
// Announcements from other sessions are merged idempotently, so a block the
// session already created locally is not duplicated when its own announcement
// echoes back through a reconnect.
type Session struct {
	api    *Client
	noteID int64

	mu       sync.Mutex
	conn     *websocket.Conn
	blocks   []model.Block
	presence []int64
}

// NewSession creates a session for the note. Call Refresh to load the
// initial block list and Connect to join the realtime room.
func NewSession(api *Client, noteID int64) *Session {
	return &Session{api: api, noteID: noteID}
}

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connect dials the collab websocket and joins the note's room. The access
// token captured at login is sent as the upgrade cookie.
func (s *Session) Connect(baseURL string) error {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws/collab"

	header := http.Header{}
	header.Set("Cookie", "access_token="+s.api.AccessToken())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("dial collab websocket: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	return s.send(envelope{
		Type:    "note:join",
		Payload: map[string]int64{"noteId": s.noteID},
	})
}

// Listen reads announcements until the connection closes and merges them
// into the local block list. Run it in its own goroutine.
func (s *Session) Listen() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("session not connected")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg inboundEnvelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg inboundEnvelope) {
	switch msg.Type {
	case "block:created", "block:updated":
		var block model.Block
		if err := json.Unmarshal(msg.Payload, &block); err != nil {
			return
		}
		if msg.Type == "block:created" {
			s.applyCreated(block)
		} else {
			s.applyUpdated(block)
		}

	case "block:deleted":
		var p struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		s.applyDeleted(p.ID)

	case "blocks:reordered":
		var pairs []BlockOrder
		if err := json.Unmarshal(msg.Payload, &pairs); err != nil {
			return
		}
		s.applyReordered(pairs)

	case "presence":
		var users []int64
		if err := json.Unmarshal(msg.Payload, &users); err != nil {
			return
		}
		s.mu.Lock()
		s.presence = users
		s.mu.Unlock()
	}
}

// Close shuts the websocket connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Refresh replaces the local block list with the server's current state.
func (s *Session) Refresh() error {
	blocks, err := s.api.Blocks(s.noteID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blocks = blocks
	s.mu.Unlock()
	return nil
}

// Blocks returns a copy of the cached block list in display order.
func (s *Session) Blocks() []model.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Presence returns the user IDs last reported present in the room.
func (s *Session) Presence() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.presence))
	copy(out, s.presence)
	return out
}

// CreateBlock creates a block, caches the result, and announces it.
func (s *Session) CreateBlock(req CreateBlockRequest) (*model.Block, error) {
	block, err := s.api.CreateBlock(s.noteID, req)
	if err != nil {
		return nil, err
	}
	s.applyCreated(*block)
	s.announce("sync:blockCreated", map[string]interface{}{
		"noteId": s.noteID,
		"block":  block,
	})
	return block, nil
}

// UpdateBlock applies a partial update guarded by the locally-cached lock
// token. On a conflict the session re-fetches the full block list so the
// caller sees the winning state, and returns the conflict error.
func (s *Session) UpdateBlock(blockID int64, req UpdateBlockRequest) (*model.Block, error) {
	if req.ExpectedUpdatedAt == nil {
		if cached, ok := s.cachedBlock(blockID); ok {
			token := cached.UpdatedAt.Format(time.RFC3339Nano)
			req.ExpectedUpdatedAt = &token
		}
	}

	block, err := s.api.UpdateBlock(s.noteID, blockID, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			if refreshErr := s.Refresh(); refreshErr != nil {
				return nil, refreshErr
			}
			return nil, errs.ErrConflict
		}
		return nil, err
	}

	s.applyUpdated(*block)
	s.announce("sync:blockUpdated", map[string]interface{}{
		"noteId": s.noteID,
		"block":  block,
	})
	return block, nil
}

// DeleteBlock removes a block, drops it from the cache, and announces it.
func (s *Session) DeleteBlock(blockID int64) error {
	if err := s.api.DeleteBlock(s.noteID, blockID); err != nil {
		return err
	}
	s.applyDeleted(blockID)
	s.announce("sync:blockDeleted", map[string]interface{}{
		"noteId":  s.noteID,
		"blockId": blockID,
	})
	return nil
}

// ReorderBlocks submits a reorder batch, applies it locally, and announces it.
func (s *Session) ReorderBlocks(pairs []BlockOrder) error {
	if err := s.api.ReorderBlocks(s.noteID, pairs); err != nil {
		return err
	}
	s.applyReordered(pairs)
	s.announce("sync:blocksReordered", map[string]interface{}{
		"noteId": s.noteID,
		"order":  pairs,
	})
	return nil
}

func (s *Session) cachedBlock(blockID int64) (model.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if b.ID == blockID {
			return b, true
		}
	}
	return model.Block{}, false
}

// applyCreated inserts the block unless it is already cached.
func (s *Session) applyCreated(block model.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].ID == block.ID {
			s.blocks[i] = block
			s.resortLocked()
			return
		}
	}
	s.blocks = append(s.blocks, block)
	s.resortLocked()
}

// applyUpdated replaces the cached block wholesale. An update for a block
// the session has not seen yet is inserted, since the server state wins.
func (s *Session) applyUpdated(block model.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].ID == block.ID {
			s.blocks[i] = block
			s.resortLocked()
			return
		}
	}
	s.blocks = append(s.blocks, block)
	s.resortLocked()
}

// applyDeleted removes the block; deleting an absent block is a no-op.
func (s *Session) applyDeleted(blockID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.blocks {
		if s.blocks[i].ID == blockID {
			s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
			return
		}
	}
}

// applyReordered applies the (id, order_index) pairs to cached blocks and
// resorts. Pairs naming unknown blocks are skipped.
func (s *Session) applyReordered(pairs []BlockOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pairs {
		for i := range s.blocks {
			if s.blocks[i].ID == p.ID {
				s.blocks[i].OrderIndex = p.OrderIndex
				break
			}
		}
	}
	s.resortLocked()
}

// resortLocked restores display order. Caller holds mu.
func (s *Session) resortLocked() {
	sort.SliceStable(s.blocks, func(i, j int) bool {
		if s.blocks[i].OrderIndex != s.blocks[j].OrderIndex {
			return s.blocks[i].OrderIndex < s.blocks[j].OrderIndex
		}
		return s.blocks[i].ID < s.blocks[j].ID
	})
}

func (s *Session) send(msg envelope) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("session not connected")
	}
	return conn.WriteJSON(msg)
}

func (s *Session) announce(msgType string, payload interface{}) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	// Announcements are best-effort: the REST mutation already succeeded,
	// and peers recover missed events on their next refetch.
	_ = conn.WriteJSON(envelope{Type: msgType, Payload: payload})
}
