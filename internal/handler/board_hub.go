package handler

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
)

// =============================================================================
// Board Hub - 보드 단위 live 채널 중계
// =============================================================================

const heartbeatInterval = 30 * time.Second

// BoardHub manages all board rooms and their live-channel subscribers.
type BoardHub struct {
	boards   map[string]*BoardRoom
	mu       sync.RWMutex
	presence *presence.Manager // optional
	serverID string
}

// BoardRoom is one board's live topic: every frame published by a subscriber
// is relayed to all current subscribers. Senders self-filter their own
// echoes by sender id; the transport does not enforce it.
type BoardRoom struct {
	ID      string
	clients map[*websocket.Conn]*BoardClient
	mu      sync.RWMutex
	hub     *BoardHub
}

// BoardClient is one connected subscriber.
type BoardClient struct {
	UserID        string
	Conn          *websocket.Conn
	writeMu       sync.Mutex
	lastHeartbeat time.Time
}

// NewBoardHub creates the hub. presenceManager may be nil.
func NewBoardHub(presenceManager *presence.Manager, serverID string) *BoardHub {
	return &BoardHub{
		boards:   make(map[string]*BoardRoom),
		presence: presenceManager,
		serverID: serverID,
	}
}

// GetOrCreateRoom gets an existing board room or creates a new one.
func (h *BoardHub) GetOrCreateRoom(boardID string) *BoardRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.boards[boardID]; exists {
		return room
	}

	room := &BoardRoom{
		ID:      boardID,
		clients: make(map[*websocket.Conn]*BoardClient),
		hub:     h,
	}
	h.boards[boardID] = room
	log.Printf("[BoardHub] Created room: %s", boardID)
	return room
}

// RemoveRoom removes an empty board room.
func (h *BoardHub) RemoveRoom(boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.boards[boardID]; exists {
		room.mu.RLock()
		empty := len(room.clients) == 0
		room.mu.RUnlock()
		if empty {
			delete(h.boards, boardID)
			log.Printf("[BoardHub] Removed room: %s", boardID)
		}
	}
}

// HandleWebSocket serves one live-channel subscription. The upgrade
// middleware has already validated the board token and set boardId/userId.
func (h *BoardHub) HandleWebSocket(c *websocket.Conn) {
	boardID, ok1 := c.Locals("boardId").(string)
	userID, ok2 := c.Locals("userId").(string)
	if !ok1 || !ok2 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"invalid session"}`))
		c.Close()
		return
	}

	room := h.GetOrCreateRoom(boardID)
	client := &BoardClient{
		UserID:        userID,
		Conn:          c,
		lastHeartbeat: time.Now(),
	}

	room.mu.Lock()
	room.clients[c] = client
	total := len(room.clients)
	room.mu.Unlock()

	log.Printf("[Board %s] Subscriber joined: %s, total: %d", boardID, userID, total)

	if h.presence != nil {
		if err := h.presence.SetPresence(boardID, userID, h.serverID); err != nil {
			log.Printf("[Board %s] Presence set failed for %s: %v", boardID, userID, err)
		}
	}
	room.broadcastPresence(userID, "join")

	defer func() {
		room.mu.Lock()
		delete(room.clients, c)
		remaining := len(room.clients)
		room.mu.Unlock()
		c.Close()

		if h.presence != nil {
			h.presence.RemovePresence(boardID, userID)
		}
		room.broadcastPresence(userID, "leave")
		log.Printf("[Board %s] Subscriber left: %s, remaining: %d", boardID, userID, remaining)

		if remaining == 0 {
			h.RemoveRoom(boardID)
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg model.LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		// The embedded sender id is the receivers' self-echo filter; never
		// trust the client to set it to someone else.
		msg.SenderID = userID

		room.Broadcast(msg)
		h.refreshHeartbeat(room, client)
	}
}

// Broadcast relays one message to every current subscriber of the room.
func (r *BoardRoom) Broadcast(msg model.LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Board %s] Failed to marshal message: %v", r.ID, err)
		return
	}

	r.mu.RLock()
	clients := make([]*BoardClient, 0, len(r.clients))
	for _, cl := range r.clients {
		clients = append(clients, cl)
	}
	r.mu.RUnlock()

	for _, cl := range clients {
		cl.writeMu.Lock()
		err := cl.Conn.WriteMessage(websocket.TextMessage, data)
		cl.writeMu.Unlock()
		if err != nil {
			log.Printf("[Board %s] Failed to send to %s: %v", r.ID, cl.UserID, err)
		}
	}
}

func (r *BoardRoom) broadcastPresence(userID, event string) {
	r.Broadcast(model.LiveMessage{
		Type:     model.MsgPresence,
		SenderID: "server",
		Presence: &model.PresencePayload{UserID: userID, Event: event},
	})
}

// refreshHeartbeat extends the presence TTL at most once per interval so a
// busy drag does not hammer Redis.
func (h *BoardHub) refreshHeartbeat(room *BoardRoom, client *BoardClient) {
	if h.presence == nil {
		return
	}
	now := time.Now()
	if now.Sub(client.lastHeartbeat) < heartbeatInterval {
		return
	}
	client.lastHeartbeat = now
	if err := h.presence.UpdateHeartbeat(room.ID, client.UserID); err != nil {
		log.Printf("[Board %s] Heartbeat failed for %s: %v", room.ID, client.UserID, err)
	}
}
