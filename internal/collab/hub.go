package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Room struct {
	canvasID string
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
}

func NewRoom(canvasID string) *Room {
	return &Room{
		canvasID: canvasID,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

// Hub tracks who is viewing which canvas and fans out presence and
// stored-change notices.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // canvasID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes joins and leaves until ctx is cancelled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Viewers returns how many clients are connected to a canvas.
func (h *Hub) Viewers(canvasID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[canvasID]; ok {
		return len(room.clients)
	}
	return 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CanvasID]
	if !ok {
		room = NewRoom(client.CanvasID)
		h.rooms[client.CanvasID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, UserID: client.UserID}))

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinMsg := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg.ClientID = client.ClientID
	joinMsg.UserID = client.UserID
	h.broadcastToRoom(client.CanvasID, joinMsg, client.ClientID)

	slog.Info("viewer joined", "user", client.UserID, "canvas", client.CanvasID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CanvasID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.CanvasID)
	}
	h.mu.Unlock()

	leaveMsg := newMessage(TypePresenceLeave, PresenceLeavePayload{ClientID: client.ClientID, UserID: client.UserID})
	leaveMsg.ClientID = client.ClientID
	leaveMsg.UserID = client.UserID
	h.broadcastToRoom(client.CanvasID, leaveMsg, "")

	slog.Info("viewer left", "user", client.UserID, "canvas", client.CanvasID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.UserID = sender.UserID
	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.CanvasID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &presence)

	outMsg := newMessage(TypePresenceUpdate, presence)
	outMsg.ClientID = sender.ClientID
	outMsg.UserID = sender.UserID
	h.broadcastToRoom(sender.CanvasID, outMsg, sender.ClientID)
}

// CanvasUpdated tells every viewer of a canvas that a new version was
// stored.
func (h *Hub) CanvasUpdated(canvasID, userID string) {
	msg := newMessage(TypeCanvasUpdated, CanvasUpdatedPayload{UserID: userID})
	msg.CanvasID = canvasID
	h.broadcastToRoom(canvasID, msg, "")
}

func (h *Hub) CanvasDeleted(canvasID string) {
	msg := newMessage(TypeCanvasDeleted, struct{}{})
	msg.CanvasID = canvasID
	h.broadcastToRoom(canvasID, msg, "")
}

func (h *Hub) broadcastToRoom(canvasID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[canvasID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
