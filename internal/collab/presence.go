package collab

import (
	"log/slog"
	"slices"
	"sync"
)

// PresenceManager keeps the last presence each connection reported in a
// room. A user with two tabs open has two entries.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]PresencePayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = clonePresence(p)
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// GetAll returns copies, safe to marshal while updates continue.
func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		p := clonePresence(&v)
		result[k] = &p
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if len(msg.Payload) == 0 {
		slog.Error("marshal presence state")
		return nil
	}
	return msg
}

func clonePresence(p *PresencePayload) PresencePayload {
	out := *p
	if p.Cursor != nil {
		c := *p.Cursor
		out.Cursor = &c
	}
	out.Devices = slices.Clone(p.Devices)
	out.Shapes = slices.Clone(p.Shapes)
	return out
}
