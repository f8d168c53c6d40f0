package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"truthordare/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
	commandTimeout = 10 * time.Second

	inboundRate  = rate.Limit(20)
	inboundBurst = 40
)

// GameCommands is the set of room actions a connection can trigger.
type GameCommands interface {
	Join(ctx context.Context, code, connID string, player game.Player) error
	Leave(ctx context.Context, code, connID string, userID uint) error
	StartGame(ctx context.Context, code string) error
	Spin(ctx context.Context, code string) error
	FlipCoin(ctx context.Context, code string) error
	InitTaskSession(ctx context.Context, code string, targetID uint, targetName string, taskType game.TaskType) error
	SubmitQuestion(ctx context.Context, code string, userID uint, userName, text string) error
	Vote(ctx context.Context, code string, userID uint, vote game.Vote) error
	CompleteTask(ctx context.Context, code string) error
}

// Hub tracks websocket connections and the room each one is attached to.
// It implements game.Broadcaster.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	commands   GameCommands
}

type Client struct {
	hub      *Hub
	id       string
	socket   *websocket.Conn
	send     chan []byte
	room     string
	userID   uint
	username string
	limiter  *rate.Limiter
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type inboundPlayer struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// inboundPayload is the union of every client event payload. User ids sent
// by clients are ignored in favour of the authenticated identity.
type inboundPayload struct {
	RoomCode         string         `json:"roomCode"`
	Player           *inboundPlayer `json:"player"`
	UserName         string         `json:"userName"`
	Question         string         `json:"question"`
	Vote             game.Vote      `json:"vote"`
	TargetPlayerID   uint           `json:"targetPlayerId"`
	TargetPlayerName string         `json:"targetPlayerName"`
	TaskType         game.TaskType  `json:"taskType"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetCommands wires the game the hub forwards client events to.
func (h *Hub) SetCommands(commands GameCommands) {
	h.commands = commands
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.id] = client
			total := len(h.clients)
			h.mutex.Unlock()
			log.Debug().Str("conn", client.id).Uint("user", client.userID).Int("clients", total).Msg("client registered")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.id]; ok {
				h.detachLocked(client)
				delete(h.clients, client.id)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			log.Debug().Str("conn", client.id).Uint("user", client.userID).Int("clients", total).Msg("client unregistered")
		}
	}
}

func (h *Hub) Attach(code, connID string) {
	code = NormalizeCode(code)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if client.room != "" && client.room != code {
		h.detachLocked(client)
	}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]struct{})
	}
	h.rooms[code][connID] = struct{}{}
	client.room = code
}

func (h *Hub) Detach(code, connID string) {
	code = NormalizeCode(code)

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if client, ok := h.clients[connID]; ok && client.room == code {
		h.detachLocked(client)
		return
	}
	if members, ok := h.rooms[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// detachLocked must be called with h.mutex held.
func (h *Hub) detachLocked(client *Client) {
	if client.room == "" {
		return
	}
	if members, ok := h.rooms[client.room]; ok {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
	}
	client.room = ""
}

func (h *Hub) Broadcast(code, event string, payload any) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal broadcast")
		return
	}
	code = NormalizeCode(code)

	var slow []*Client
	sent := 0
	h.mutex.RLock()
	for connID := range h.rooms[code] {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	h.dropSlow(slow)
	log.Debug().Str("room", code).Str("event", event).Int("recipients", sent).Msg("broadcast")
}

func (h *Hub) Send(connID, event string, payload any) {
	data, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to marshal message")
		return
	}

	// Run closes send channels under the write lock.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.dropSlow([]*Client{client})
	}
}

func (h *Hub) dropSlow(clients []*Client) {
	for _, client := range clients {
		log.Warn().Str("conn", client.id).Uint("user", client.userID).Msg("send buffer full, closing connection")
		go h.UnregisterClient(client)
	}
}

// RoomSize reports how many connections are attached to code.
func (h *Hub) RoomSize(code string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[NormalizeCode(code)])
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID uint, username string) *Client {
	client := &Client{
		hub:      h,
		id:       uuid.NewString(),
		socket:   conn,
		send:     make(chan []byte, sendBufferSize),
		userID:   userID,
		username: username,
		limiter:  rate.NewLimiter(inboundRate, inboundBurst),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return client
	}

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) reply(event string, payload any) {
	c.hub.Send(c.id, event, payload)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("websocket read error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.reply(game.EventError, "Too many requests")
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("malformed message")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.socket.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg inboundMessage) {
	if msg.Type == "ping" {
		c.reply("pong", "pong")
		return
	}
	if c.hub.commands == nil {
		return
	}

	var p inboundPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Str("type", msg.Type).Msg("malformed payload")
			return
		}
	}
	code := NormalizeCode(p.RoomCode)
	if code == "" {
		log.Debug().Str("conn", c.id).Str("type", msg.Type).Msg("message without room code")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := c.hub.commands
	var err error
	switch msg.Type {
	case "join_room":
		player := game.Player{UserID: c.userID, Name: c.username}
		if p.Player != nil {
			if p.Player.Name != "" {
				player.Name = p.Player.Name
			}
			player.Avatar = p.Player.Avatar
		}
		err = cmd.Join(ctx, code, c.id, player)

	case "leave_room":
		err = cmd.Leave(ctx, code, c.id, c.userID)

	case "start_game":
		err = cmd.StartGame(ctx, code)

	case "spin_request":
		err = cmd.Spin(ctx, code)

	case "coin_flip_request":
		err = cmd.FlipCoin(ctx, code)

	case "submit_question":
		name := p.UserName
		if name == "" {
			name = c.username
		}
		err = cmd.SubmitQuestion(ctx, code, c.userID, name, p.Question)

	case "vote_task":
		err = cmd.Vote(ctx, code, c.userID, p.Vote)
		if errors.Is(err, game.ErrInvalidVote) {
			c.reply(game.EventError, "Invalid vote")
		}

	case "init_task_session":
		err = cmd.InitTaskSession(ctx, code, p.TargetPlayerID, p.TargetPlayerName, p.TaskType)

	case "task_complete":
		err = cmd.CompleteTask(ctx, code)

	default:
		log.Debug().Str("conn", c.id).Str("type", msg.Type).Msg("unknown message type")
		return
	}

	if err != nil {
		log.Debug().Err(err).Str("conn", c.id).Str("room", code).Str("type", msg.Type).Msg("command not applied")
	}
}
