// internal/websocket/handler.go
package websocket

import (
	"context"
	"sync"

	wstypes "rollcall-service/internal/domain/websocket"
)

// MessageHandler answers client messages of the types it lists
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// handlerRegistry maps a message type to the one handler that owns it.
// A later registration for the same type replaces the earlier one.
type handlerRegistry struct {
	mu     sync.RWMutex
	byType map[wstypes.EventType]MessageHandler
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{byType: make(map[wstypes.EventType]MessageHandler)}
}

func (r *handlerRegistry) add(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range handler.SupportedEvents() {
		r.byType[t] = handler
	}
}

// dispatch reports false when no handler owns msg.Type
func (r *handlerRegistry) dispatch(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	r.mu.RLock()
	handler, ok := r.byType[msg.Type]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}
