package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Misikirayu/mate-finder/internal/models"
	websocket "github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 32
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

var (
	ErrHubStopped  = errors.New("hub stopped")
	ErrForeignRoom = errors.New("cannot join another user's room")
)

// EventRelay forwards events to every server instance. Implementations must
// eventually call Deliver on each instance's hub.
type EventRelay interface {
	Publish(ctx context.Context, event models.Event, userIDs ...int64) error
}

type messageLookup interface {
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
}

// Hub owns room membership. Rooms are keyed by user id and every mutation
// happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan delivery
	direct     chan directMessage
	done       chan struct{}
	logger     *zap.Logger

	relayMu sync.RWMutex
	relay   EventRelay
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	room   int64
	send   chan []byte

	// joined is owned by the ReadPump goroutine.
	joined bool
}

type joinRequest struct {
	client *Client
	userID int64
}

type delivery struct {
	userIDs []int64
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan delivery, 64),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// SetRelay routes Publish through relay. A nil relay restores local delivery.
func (h *Hub) SetRelay(relay EventRelay) {
	h.relayMu.Lock()
	h.relay = relay
	h.relayMu.Unlock()
}

// detachRelay clears relay if it is still the active one.
func (h *Hub) detachRelay(relay EventRelay) {
	h.relayMu.Lock()
	defer h.relayMu.Unlock()
	if h.relay == relay {
		h.relay = nil
	}
}

func (h *Hub) currentRelay() EventRelay {
	h.relayMu.RLock()
	defer h.relayMu.RUnlock()
	return h.relay
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.rooms = make(map[int64]map[*Client]struct{})
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case req := <-h.join:
			h.joinRoom(req)
		case d := <-h.broadcast:
			h.deliver(d)
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; ok {
				h.push(msg.client, msg.payload)
			}
		}
	}
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join places the client in the room of userID. A client may only join its
// own room.
func (h *Hub) Join(client *Client, userID int64) error {
	if userID != client.userID {
		return ErrForeignRoom
	}
	select {
	case h.join <- joinRequest{client: client, userID: userID}:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Publish implements services.EventPublisher. With a relay configured the
// event fans out across instances; a relay failure falls back to local rooms.
func (h *Hub) Publish(ctx context.Context, event models.Event, userIDs ...int64) error {
	if relay := h.currentRelay(); relay != nil {
		err := relay.Publish(ctx, event, userIDs...)
		if err == nil {
			return nil
		}
		h.logger.Warn("relay publish failed, delivering locally", zap.String("type", event.Type), zap.Error(err))
	}
	return h.Deliver(ctx, event, userIDs...)
}

// Deliver sends the event to the rooms of this instance only.
func (h *Hub) Deliver(ctx context.Context, event models.Event, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- delivery{userIDs: userIDs, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) reply(client *Client, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("encode reply", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.direct <- directMessage{client: client, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) joinRoom(req joinRequest) {
	client := req.client
	if _, ok := h.clients[client]; !ok {
		return
	}
	if client.room != 0 {
		h.leaveRoom(client)
	}

	set, ok := h.rooms[req.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[req.userID] = set
	}
	set[client] = struct{}{}
	client.room = req.userID
	h.logger.Debug("client joined room", zap.Int64("user_id", req.userID), zap.Int("connections", len(set)))

	if joined, err := models.NewEvent(models.EventJoined, map[string]int64{"userId": req.userID}); err == nil {
		if payload, err := json.Marshal(joined); err == nil {
			h.push(client, payload)
		}
	}
}

func (h *Hub) leaveRoom(client *Client) {
	set, ok := h.rooms[client.room]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.rooms, client.room)
	}
	client.room = 0
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.leaveRoom(client)
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug("client left", zap.Int64("user_id", client.userID))
}

func (h *Hub) deliver(d delivery) {
	seen := make(map[int64]struct{}, len(d.userIDs))
	for _, userID := range d.userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		for client := range h.rooms[userID] {
			h.push(client, d.payload)
		}
	}
}

// push never blocks the hub; a client whose buffer is full is dropped.
func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("dropping slow realtime client", zap.Int64("user_id", client.userID))
		h.drop(client)
	}
}

func (c *Client) ReadPump(ctx context.Context, messages messageLookup) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming models.Event
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.writeError("invalid message payload")
			continue
		}
		c.handle(ctx, messages, incoming)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeError(message string) {
	event, err := models.NewEvent(models.EventError, map[string]string{"error": message})
	if err != nil {
		return
	}
	c.hub.reply(c, event)
}
