package handler

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"

	"collabnote-backend/internal/hub"
)

// CollabWSHandler bridges websocket connections to the realtime hub. The
// channel is announce-only: clients emit sync events after a successful REST
// mutation, and the handler relays the already-validated payloads to room
// peers. Malformed or unauthorized messages are dropped without a reply.
type CollabWSHandler struct {
	hub *hub.Hub
}

// NewCollabWSHandler creates a CollabWSHandler.
func NewCollabWSHandler(h *hub.Hub) *CollabWSHandler {
	return &CollabWSHandler{hub: h}
}

// inboundMessage is the envelope read off the socket.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	NoteID int64 `json:"noteId"`
}

type blockSyncPayload struct {
	NoteID int64           `json:"noteId"`
	Block  json.RawMessage `json:"block"`
}

type deleteSyncPayload struct {
	NoteID  int64 `json:"noteId"`
	BlockID int64 `json:"blockId"`
}

type reorderSyncPayload struct {
	NoteID int64           `json:"noteId"`
	Order  json.RawMessage `json:"order"`
}

// HandleWebSocket runs the read loop for one authenticated connection. The
// upgrade middleware has already verified the access_token cookie and stored
// the caller identity in Locals.
func (h *CollabWSHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(int64)
	if !ok {
		c.Close()
		return
	}

	conn := h.hub.Register(userID, c)
	log.Printf("[CollabWS] Connected: user=%d conn=%s", userID, conn.ID)

	defer func() {
		h.hub.Disconnect(conn)
		c.Close()
		log.Printf("[CollabWS] Disconnected: user=%d conn=%s", userID, conn.ID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "note:join":
			var p joinPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil || p.NoteID == 0 {
				continue
			}
			h.hub.Join(conn, p.NoteID)

		case "sync:blockCreated":
			h.relayBlock(conn, msg.Payload, "block:created")

		case "sync:blockUpdated":
			h.relayBlock(conn, msg.Payload, "block:updated")

		case "sync:blockDeleted":
			var p deleteSyncPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil || p.NoteID == 0 {
				continue
			}
			h.hub.Relay(conn, p.NoteID, hub.Message{
				Type:    "block:deleted",
				Payload: map[string]int64{"id": p.BlockID},
			})

		case "sync:blocksReordered":
			var p reorderSyncPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil || p.NoteID == 0 {
				continue
			}
			h.hub.Relay(conn, p.NoteID, hub.Message{
				Type:    "blocks:reordered",
				Payload: p.Order,
			})
		}
	}
}

func (h *CollabWSHandler) relayBlock(conn *hub.Conn, payload json.RawMessage, outType string) {
	var p blockSyncPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.NoteID == 0 {
		return
	}
	h.hub.Relay(conn, p.NoteID, hub.Message{
		Type:    outType,
		Payload: p.Block,
	})
}
