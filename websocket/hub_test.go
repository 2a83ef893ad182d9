package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, buffer int) *Client {
	return &Client{
		hub:   h,
		send:  make(chan []byte, buffer),
		rooms: make(map[string]bool),
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	h := NewHub()
	fast := newTestClient(h, 4)
	slow := newTestClient(h, 1)
	h.clients[fast] = true
	h.clients[slow] = true
	h.joinRoom(fast, "r1")
	h.joinRoom(slow, "r1")

	// Fill the slow client's buffer so the next broadcast cannot land.
	slow.send <- []byte("backlog")

	h.broadcastToRoom("r1", []byte(`{"type":"message"}`))

	require.Len(t, fast.send, 1)
	assert.Equal(t, `{"type":"message"}`, string(<-fast.send))

	h.roomsMux.RLock()
	_, fastThere := h.rooms["r1"][fast]
	_, slowThere := h.rooms["r1"][slow]
	_, slowRegistered := h.clients[slow]
	h.roomsMux.RUnlock()
	assert.True(t, fastThere)
	assert.False(t, slowThere)
	assert.False(t, slowRegistered)

	// The dropped client's channel is closed once its backlog drains.
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestBroadcastRacesRegistration(t *testing.T) {
	h := NewHub()
	go h.Run()

	// Hammer broadcasts from many goroutines while the hub loop registers
	// and unregisters; the race detector flags any unguarded map access.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				client := newTestClient(h, 1)
				h.register <- client
				h.joinRoom(client, "busy")
				h.broadcastToRoom("busy", []byte(fmt.Sprintf(`{"n":%d}`, n)))
				h.unregister <- client
			}
		}(i)
	}
	wg.Wait()
}
