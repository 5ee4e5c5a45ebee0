// Package snackhub is the realtime gateway: it tracks authenticated
// connections, keeps per-session broadcast groups, and routes snack events
// between participants. Fanout goes through redis pub/sub so events raised
// by HTTP handlers or other instances reach locally connected clients.
package snackhub

import (
	"encoding/json"
	"sync"

	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"go.uber.org/zap"
)

// Hub owns the connection registry. The user -> connection lookup lives
// here as injected state, added on authenticate and removed on disconnect;
// nothing is package-global.
type Hub struct {
	Storage   storage.Storage
	Lifecycle *lifecycle.Service

	RegisterCh   chan Client
	UnregisterCh chan Client

	broadcastCh chan models.Broadcast

	mu     sync.RWMutex
	conns  map[string]Client          // connID -> every live connection
	users  map[uint]Client            // userID -> latest bound connection
	groups map[uint]map[string]Client // sessionID -> connID -> subscriber
}

// NewHub creates a hub; call Run in its own goroutine.
func NewHub(s storage.Storage, lc *lifecycle.Service) *Hub {
	return &Hub{
		Storage:      s,
		Lifecycle:    lc,
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		broadcastCh:  make(chan models.Broadcast, 64),
		conns:        make(map[string]Client),
		users:        make(map[uint]Client),
		groups:       make(map[uint]map[string]Client),
	}
}

// Run is the hub's dispatcher loop: connection lifecycle plus delivery of
// fanout units arriving from redis.
func (h *Hub) Run() {
	go h.listenBroadcasts()

	for {
		select {
		case client := <-h.RegisterCh:
			h.addConn(client)
		case client := <-h.UnregisterCh:
			h.removeConn(client)
			client.Close()
		case b := <-h.broadcastCh:
			h.deliver(b)
		}
	}
}

// listenBroadcasts relays the redis subscription into the dispatcher.
func (h *Hub) listenBroadcasts() {
	pubsub := h.Storage.SubscribeBroadcasts()
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var b models.Broadcast
		if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
			zap.L().Warn("dropping malformed broadcast", zap.Error(err))
			continue
		}
		h.broadcastCh <- b
	}
}

func (h *Hub) addConn(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[client.ConnID()] = client
}

// removeConn unbinds the connection everywhere. A participant silently
// disconnecting does not end their session; only the registry entry goes.
func (h *Hub) removeConn(client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, client.ConnID())
	if uid := client.UserID(); uid != 0 && h.users[uid] == client {
		delete(h.users, uid)
	}
	for sessionID, group := range h.groups {
		delete(group, client.ConnID())
		if len(group) == 0 {
			delete(h.groups, sessionID)
		}
	}
}

// bind records the authenticated identity. A newer connection for the same
// user replaces the previous one as the targeted-delivery endpoint.
func (h *Hub) bind(client Client, userID uint, username string) {
	client.Bind(userID, username)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[userID] = client
}

// joinGroup subscribes the connection to a session's broadcast group.
func (h *Hub) joinGroup(sessionID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[sessionID]
	if !ok {
		group = make(map[string]Client)
		h.groups[sessionID] = group
	}
	group[client.ConnID()] = client
}

// userClient returns the bound connection for a user, if any.
func (h *Hub) userClient(userID uint) (Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.users[userID]
	return c, ok
}

// deliver fans a broadcast out to its targets. Targeted units go to one
// user's connection; group units go to every subscriber of the session,
// minus the excluded user. A session-ended unit also tears the group down.
func (h *Hub) deliver(b models.Broadcast) {
	var targets []Client
	h.mu.RLock()
	if b.TargetUserID != 0 {
		if c, ok := h.users[b.TargetUserID]; ok {
			targets = append(targets, c)
		}
	} else if group, ok := h.groups[b.SessionID]; ok {
		for _, c := range group {
			if b.ExcludeUserID != 0 && c.UserID() == b.ExcludeUserID {
				continue
			}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.trySend(c, b.Event)
	}

	if b.Event.Name == models.EventSessionEnded && b.SessionID != 0 {
		h.mu.Lock()
		delete(h.groups, b.SessionID)
		h.mu.Unlock()
	}
}

// trySend queues an event without blocking the dispatcher. A connection
// whose buffer is full is considered dead and evicted.
func (h *Hub) trySend(client Client, ev models.Event) {
	select {
	case client.SendChannel() <- ev:
	default:
		zap.L().Warn("evicting slow realtime client",
			zap.String("connId", client.ConnID()),
			zap.Uint("userId", client.UserID()))
		h.removeConn(client)
		client.Close()
	}
}

// sendError emits an error event back to the offending connection only.
func (h *Hub) sendError(client Client, message string) {
	ev, err := models.NewEvent(models.EventError, models.ErrorPayload{Message: message})
	if err != nil {
		return
	}
	h.trySend(client, ev)
}

// publish hands a fanout unit to redis; local delivery happens when it
// comes back on the subscription, same as on every other instance.
func (h *Hub) publish(b models.Broadcast) {
	if err := h.Storage.PublishBroadcast(b); err != nil {
		zap.L().Error("failed to publish broadcast",
			zap.String("event", b.Event.Name), zap.Error(err))
	}
}
