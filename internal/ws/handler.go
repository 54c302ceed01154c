// Package ws streams conversation events to browser clients and accepts
// chat intents over the same socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roleplay-chat/backend/internal/conversation"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
	wstypes "roleplay-chat/backend/pkg/ws"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	sendBuffer  = 256
	eventBuffer = 256
)

// Hub tracks live connections
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ActiveConnections is the number of open sockets
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a close frame to every client
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
	}
}

// Client is one socket bound to one conversation
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	conv *conversation.Orchestrator
	hub  *Hub
	log  *logger.Logger
}

// Handler upgrades requests on /sessions/:sid/ws
type Handler struct {
	hub      *Hub
	sessions *conversation.Sessions
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler creates a handler. An origin list containing "*" or nothing
// accepts every origin.
func NewHandler(hub *Hub, sessions *conversation.Sessions, allowedOrigins []string, log *logger.Logger) *Handler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &Handler{
		hub:      hub,
		sessions: sessions,
		log:      logger.OrNop(log).WithComponent("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowAll || slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// ServeWS upgrades the connection and runs it until the peer leaves
func (h *Handler) ServeWS(c *gin.Context) {
	sid := c.Param("sid")
	conv, err := h.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.LogWarn(err, "Error upgrading connection", "session_id", sid)
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		conv: conv,
		hub:  h.hub,
	}
	client.log = h.log.WithSessionID(sid).WithFields("client_id", client.ID)

	h.hub.register(client)
	client.log.Info("WebSocket connection established")

	events, unsubscribe := conv.Subscribe(eventBuffer)
	go client.forward(events)
	go client.writePump()

	snapshot := conv.Snapshot()
	client.enqueue(wstypes.TypeState, snapshot)

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	client.readPump(ctx)

	cancel()
	unsubscribe()
	close(client.done)
	h.hub.unregister(client)
	client.log.Info("WebSocket connection closed")
}

func (c *Client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogWarn(err, "Unexpected close")
			}
			return
		}

		var env wstypes.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "malformed frame"))
			continue
		}
		c.handle(ctx, env)
	}
}

func (c *Client) handle(ctx context.Context, env wstypes.Envelope) {
	switch env.Type {
	case wstypes.TypeChat:
		var content wstypes.ChatContent
		if err := json.Unmarshal(env.Content, &content); err != nil {
			c.sendError(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "chat frame needs text"))
			return
		}
		// the outcome arrives as conversation events
		if _, err := c.conv.SubmitMessageStream(ctx, content.Text); err != nil {
			c.sendError(err)
		}

	case wstypes.TypeSelect:
		var content wstypes.SelectContent
		if err := json.Unmarshal(env.Content, &content); err != nil {
			c.sendError(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "select frame needs characterId"))
			return
		}
		if _, err := c.conv.SelectCharacter(ctx, content.CharacterID); err != nil {
			c.sendError(err)
		}

	case wstypes.TypeClear:
		c.conv.ClearMessages(ctx)

	case wstypes.TypeClearError:
		c.conv.ClearError()

	case wstypes.TypeStopSpeech:
		c.conv.StopSpeech()

	case wstypes.TypePing:
		c.enqueue(wstypes.TypePong, nil)

	default:
		c.sendError(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, "unknown frame type "+env.Type))
	}
}

// forward turns conversation events into frames until events is closed
func (c *Client) forward(events <-chan conversation.Event) {
	for ev := range events {
		switch ev.Type {
		case conversation.EventState:
			c.enqueue(wstypes.TypeState, ev.State)
		case conversation.EventMessage:
			c.enqueue(wstypes.TypeMessage, ev.Message)
		case conversation.EventChunk:
			c.enqueue(wstypes.TypeChunk, wstypes.ChunkContent{Chunk: ev.Chunk, Text: ev.Text})
		}
	}
}

func (c *Client) sendError(err error) {
	c.enqueue(wstypes.TypeError, wstypes.ErrorContent{
		Code:    apperrors.GetErrorCode(err),
		Message: apperrors.GetErrorMessage(err),
	})
}

func (c *Client) enqueue(t string, content any) {
	env, err := wstypes.NewEnvelope(t, content)
	if err != nil {
		c.log.LogError(err, "Error encoding frame", "type", t)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.log.LogError(err, "Error encoding frame", "type", t)
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.log.Warn("Send buffer full, dropping frame", "type", t)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
