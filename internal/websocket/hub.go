// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "rollcall-service/internal/domain/websocket"
	"rollcall-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Authenticator validates an access token against signature, blacklist and live session
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// ConnectionGauge observes connection counts
type ConnectionGauge interface {
	WSConnected(delta int)
}

type Hub struct {
	// Registered clients by user ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage
	done      chan struct{}
	closeOnce sync.Once

	handlers *handlerRegistry

	auth   Authenticator
	gauge  ConnectionGauge
	logger *zap.Logger
}

type BroadcastMessage struct {
	UserIDs []int64 // nil means everyone
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
}

func NewHub(auth Authenticator, gauge ConnectionGauge, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		handlers:   newHandlerRegistry(),
		auth:       auth,
		gauge:      gauge,
		logger:     logger,
	}
}

// AuthenticateClient validates the token and describes the connecting client
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if h.auth == nil {
		return nil, ErrUnauthorized
	}

	claims, err := h.auth.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &ClientAuth{
		UserID:    claims.UserID,
		SessionID: claims.ID,
		Username:  claims.Username,
		Role:      claims.Role,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlers.add(handler)
}

// HandleClientMessage routes a client message to a registered handler; ok is
// false when no handler claims the type.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	return h.handlers.dispatch(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Register hands a new client to the hub loop
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.auth.UserID] == nil {
		h.clients[client.auth.UserID] = make(map[*Client]bool)
	}
	h.clients[client.auth.UserID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	for _, ch := range wstypes.DefaultChannels {
		client.Subscribe(ch)
	}
	if h.gauge != nil {
		h.gauge.WSConnected(1)
	}

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.auth.UserID),
		zap.String("session_id", client.auth.SessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":    client.auth.UserID,
		"session_id": client.auth.SessionID,
		"username":   client.auth.Username,
		"role":       client.auth.Role,
		"channels":   wstypes.DefaultChannels,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.auth.UserID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.auth.UserID)
	}
	if h.gauge != nil {
		h.gauge.WSConnected(-1)
	}

	h.logger.Info("websocket client disconnected",
		zap.Int64("user_id", client.auth.UserID),
		zap.String("session_id", client.auth.SessionID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	send := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			send(clients)
		}
		return
	}
	for _, id := range msg.UserIDs {
		send(h.clients[id])
	}
}

// Publish queues a message for the hub loop; it never blocks the caller.
func (h *Hub) Publish(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, message dropped",
			zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) GetConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID int64) bool {
	return h.GetConnectedClients(userID) > 0
}

// ========== Domain pushes ==========

// PublishCheckin tells an event's participants about a new check-in
func (h *Hub) PublishCheckin(participantIDs []int64, data wstypes.CheckinEventData) {
	h.Publish(&BroadcastMessage{
		UserIDs: nonNil(participantIDs),
		Channel: wstypes.ChannelCheckins,
		Message: wstypes.NewMessage(wstypes.EventTypeCheckinCreated, data),
	})
}

// PublishEvent pushes an event-channel message (updated, joined, left) to the given users
func (h *Hub) PublishEvent(userIDs []int64, eventType wstypes.EventType, data interface{}) {
	h.Publish(&BroadcastMessage{
		UserIDs: nonNil(userIDs),
		Channel: wstypes.ChannelEvents,
		Message: wstypes.NewMessage(eventType, data),
	})
}

// ForceLogout notifies the user's sockets and closes the ones bound to the
// session; an empty sessionID closes them all.
func (h *Hub) ForceLogout(userID int64, sessionID string, reason string) {
	msg := wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
		SessionID: sessionID,
		Reason:    reason,
		Message:   "You have been logged out",
	})

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		client.SendMessage(msg)
		if sessionID == "" || client.auth.SessionID == sessionID {
			// the write pump drains the message before sending the close frame
			client.Close()
		}
	}
}

// DisconnectUser closes every socket for a user
func (h *Hub) DisconnectUser(userID int64, reason string) {
	msg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
		"reason": reason,
	})

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		client.SendMessage(msg)
		client.Close()
	}
	h.logger.Info("disconnected user sockets", zap.Int64("user_id", userID), zap.String("reason", reason))
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
