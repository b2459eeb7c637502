package websocket

import (
	"context"
	"sync"
	"testing"

	wstypes "menupro-service/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
)

type namedHandler struct {
	name   string
	events []wstypes.EventType
}

func (h *namedHandler) HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	return nil
}

func (h *namedHandler) SupportedEvents() []wstypes.EventType {
	return h.events
}

func TestHandlerRegistry_Routing(t *testing.T) {
	r := NewHandlerRegistry()
	notif := &namedHandler{name: "notif", events: []wstypes.EventType{wstypes.EventTypeNotificationRead, wstypes.EventTypeNotificationCount}}
	ent := &namedHandler{name: "ent", events: []wstypes.EventType{wstypes.EventTypeEntitlementCheck}}
	r.Register(notif)
	r.Register(ent)

	got, ok := r.GetHandler(wstypes.EventTypeNotificationCount)
	assert.True(t, ok)
	assert.Same(t, notif, got)

	got, ok = r.GetHandler(wstypes.EventTypeEntitlementCheck)
	assert.True(t, ok)
	assert.Same(t, ent, got)

	_, ok = r.GetHandler(wstypes.EventTypePing)
	assert.False(t, ok)

	assert.Equal(t, []wstypes.EventType{
		wstypes.EventTypeEntitlementCheck,
		wstypes.EventTypeNotificationCount,
		wstypes.EventTypeNotificationRead,
	}, r.Events())
}

func TestHandlerRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewHandlerRegistry()
	first := &namedHandler{name: "first", events: []wstypes.EventType{wstypes.EventTypeEntitlementCheck}}
	second := &namedHandler{name: "second", events: []wstypes.EventType{wstypes.EventTypeEntitlementCheck}}
	r.Register(first)
	r.Register(second)

	got, _ := r.GetHandler(wstypes.EventTypeEntitlementCheck)
	assert.Same(t, second, got)
}

func TestHandlerRegistry_ConcurrentAccess(t *testing.T) {
	r := NewHandlerRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(&namedHandler{events: []wstypes.EventType{wstypes.EventTypeNotificationRead}})
		}()
		go func() {
			defer wg.Done()
			r.GetHandler(wstypes.EventTypeNotificationRead)
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 1)
}
