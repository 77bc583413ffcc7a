package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pickmecinime/cinime/backend/internal/pkg/logger"
	chatservice "github.com/pickmecinime/cinime/backend/internal/service/chat"
	"github.com/pickmecinime/cinime/backend/internal/service/interaction"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc        *chatservice.Service
	interactionSvc *interaction.Service
	upgrader       websocket.Upgrader
	readTimeout    time.Duration
	log            *zap.Logger
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service, interactionSvc *interaction.Service, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc:        chatSvc,
		interactionSvc: interactionSvc,
		readTimeout:    readTimeout,
		log:            logger.Module(log, "websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// MoodMessage 心情快捷消息
type MoodMessage struct {
	MoodID string `json:"moodId"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	state, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	c := &conn{Conn: raw}
	defer c.Close()

	log := h.log.With(zap.String("session_id", sessionID))
	log.Info("new connection")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c.SetReadDeadline(time.Now().Add(h.readTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, c)

	h.send(c, sessionID, "connected", map[string]any{
		"personaId": state.Session.PersonaID,
		"turns":     len(state.Transcript()),
	})

	for {
		var msg inboundMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			return
		}

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(c, sessionID, "session mismatch")
		} else {
			h.handleMessage(ctx, c, state, &msg)
		}

		// a slow reply must not leave the next read with an expired deadline
		c.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, state *chatservice.State, msg *inboundMessage) {
	var input interaction.Input
	switch msg.Type {
	case "text":
		var payload TextMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(c, state.Session.ID, "invalid text payload")
			return
		}
		input.Text = payload.Text
	case "mood":
		var payload MoodMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			h.sendError(c, state.Session.ID, "invalid mood payload")
			return
		}
		input.MoodID = payload.MoodID
	default:
		h.sendError(c, state.Session.ID, "unsupported message type: "+msg.Type)
		return
	}

	text, err := h.interactionSvc.ResolveText(input)
	if err != nil {
		h.sendError(c, state.Session.ID, err.Error())
		return
	}

	h.send(c, state.Session.ID, "thinking", map[string]any{"text": text})

	exchange, err := h.interactionSvc.Submit(ctx, state, input)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.sendError(c, state.Session.ID, err.Error())
		}
		return
	}

	h.send(c, state.Session.ID, "turn", exchange)
}

func (h *Handler) send(c *conn, sessionID, kind string, data interface{}) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		h.log.Debug("write failed", zap.String("type", kind), zap.Error(err))
	}
}

func (h *Handler) sendError(c *conn, sessionID, message string) {
	h.send(c, sessionID, "error", map[string]string{"message": message})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
