package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Rooms mapping (roomID -> clients)
	rooms map[string]map[*Client]bool

	// Guards clients and rooms. Broadcasts run on caller goroutines, not
	// just the hub loop, so registration state needs the lock everywhere.
	roomsMux sync.RWMutex

	// Inbound messages from the clients
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.roomsMux.Lock()
			h.clients[client] = true
			h.roomsMux.Unlock()
		case client := <-h.unregister:
			h.roomsMux.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)

				// Remove client from all rooms
				for roomID, clients := range h.rooms {
					if _, ok := clients[client]; ok {
						delete(h.rooms[roomID], client)
						// Clean up empty rooms
						if len(h.rooms[roomID]) == 0 {
							delete(h.rooms, roomID)
						}
					}
				}
			}
			h.roomsMux.Unlock()
		case message := <-h.broadcast:
			// Every broadcastable event carries a room_id in its payload
			var msg Message
			if err := json.Unmarshal(message, &msg); err != nil {
				log.Printf("error unmarshaling broadcast message: %v", err)
				continue
			}

			var payload struct {
				RoomID string `json:"room_id"`
			}

			payloadBytes, err := json.Marshal(msg.Payload)
			if err != nil {
				log.Printf("error marshaling payload: %v", err)
				continue
			}

			if err := json.Unmarshal(payloadBytes, &payload); err != nil {
				log.Printf("error unmarshaling payload: %v", err)
				continue
			}

			if payload.RoomID != "" {
				h.broadcastToRoom(payload.RoomID, message)
			}
		}
	}
}

// joinRoom adds a client to a room
func (h *Hub) joinRoom(client *Client, roomID string) {
	h.roomsMux.Lock()
	defer h.roomsMux.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// leaveRoom removes a client from a room
func (h *Hub) leaveRoom(client *Client, roomID string) {
	h.roomsMux.Lock()
	defer h.roomsMux.Unlock()

	if _, ok := h.rooms[roomID]; ok {
		delete(h.rooms[roomID], client)
		// Clean up empty rooms
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// broadcastToRoom sends a message to all clients in a room. A client whose
// send buffer is full gets dropped, so it needs the write lock.
func (h *Hub) broadcastToRoom(roomID string, message []byte) {
	h.roomsMux.Lock()
	defer h.roomsMux.Unlock()

	if clients, ok := h.rooms[roomID]; ok {
		for client := range clients {
			select {
			case client.send <- message:
			default:
				delete(clients, client)
				// Unregister may race in behind us; only the first
				// remover closes the channel.
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastToRoom sends a message to all clients in a room
func BroadcastToRoom(roomID string, msgType string, payload interface{}) {
	msg := Message{
		Type:    msgType,
		Payload: payload,
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	hub.broadcastToRoom(roomID, msgBytes)
}

// Global hub instance
var hub *Hub

// InitHub initializes the global hub
func InitHub() {
	hub = NewHub()
	go hub.Run()
}
