package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/session"
)

// WebSocketHandler drives a session from the client's playback clock: the
// client pushes time updates at its own cadence and gets the overlay frame
// for each one back. Sampling correctness lives in the session, not in the
// timer, so jittery cadence is harmless.
type WebSocketHandler struct {
	manager  *session.Manager
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// ClientMessage is one message from the viewer.
//
//	{"type":"time","t":7.2,"playing":true,"clips":{"goalkeeper":0.65}}
type ClientMessage struct {
	Type    string             `json:"type"`
	T       float64            `json:"t"`
	Playing bool               `json:"playing"`
	Clips   map[string]float64 `json:"clips,omitempty"`
}

type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewWebSocketHandler(manager *session.Manager, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	sess, err := h.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Overlay stream connected",
		zap.String("session_id", sess.ID),
		zap.String("client_ip", c.ClientIP()))

	conn.SetReadLimit(64 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	done := make(chan struct{})
	var once sync.Once
	closeDone := func() { once.Do(func() { close(done) }) }

	go h.pingRoutine(conn, ticker, done, closeDone)

	for {
		select {
		case <-done:
			return
		default:
			var message ClientMessage
			if err := conn.ReadJSON(&message); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Error("Websocket error", zap.Error(err))
				}
				closeDone()
				return
			}
			h.handleMessage(conn, sess, &message)
		}
	}
}

func (h *WebSocketHandler) handleMessage(conn *websocket.Conn, sess *session.Session, message *ClientMessage) {
	switch message.Type {
	case "time":
		frame := sess.Overlay(message.T, message.Playing, parseClipTimes(message.Clips))
		h.send(conn, "overlay", frame)
	case "status":
		h.send(conn, "status", sess.Snapshot())
	case "ping":
		h.send(conn, "pong", map[string]any{"timestamp": time.Now().Unix()})
	default:
		h.logger.Warn("Unknown message type received", zap.String("type", message.Type))
		h.sendError(conn, "Unknown message type: "+message.Type)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, messageType string, data any) {
	message := ServerMessage{Type: messageType, Data: data}
	if err := conn.WriteJSON(message); err != nil {
		h.logger.Error("Failed to send websocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, errorMsg string) {
	h.send(conn, "error", map[string]any{
		"message":   errorMsg,
		"timestamp": time.Now().Unix(),
	})
}

func (h *WebSocketHandler) pingRoutine(conn *websocket.Conn, ticker *time.Ticker, done chan struct{}, closeDone func()) {
	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeDone()
				return
			}
		case <-done:
			return
		}
	}
}
