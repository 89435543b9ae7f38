package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/receiver"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Outbound messages buffered per client before it counts as slow
	sendBuffer = 64
)

// wsClient is one websocket connection. readPump and writePump each run on
// their own goroutine; only writePump writes to conn.
type wsClient struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan Message

	// ctx is cancelled when the client goes away, abandoning its command.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsClient{
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan Message, sendBuffer),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// enqueue queues msg without blocking. It reports false when the queue is
// full.
func (c *wsClient) enqueue(msg Message) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close asks writePump to send a close frame and drop the connection.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	c := newWSClient(conn)
	s.register(c)
	logging.LogConnection(c.remoteAddr, "websocket_upgraded")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		defer func() {
			s.unregister(c)
			c.close()
			logging.LogConnection(c.remoteAddr, "websocket_closed")
		}()
		s.readPump(c)
	}()
}

// readPump reads command requests until the peer goes away. Each command
// blocks this client's reads until the receiver answers, so one client's
// commands are answered in order.
func (s *Server) readPump(c *wsClient) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("WebSocket connection closed unexpectedly",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(c.remoteAddr, "received", messageType, data)

		if messageType != websocket.TextMessage {
			continue
		}

		var req CommandRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Command == "" {
			c.enqueue(Message{Event: string(receiver.EventError), Error: errBadRequest.Error(), Reply: true})
			continue
		}

		ev, err := s.receiver.SendCommand(c.ctx, req.Command, req.Value)
		reply := NewEventMessage(ev)
		if err != nil {
			reply = NewErrorMessage(err)
		}
		reply.Reply = true
		c.enqueue(reply)
	}
}

// writePump sends queued messages and keeps the connection alive with pings
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"))
			return

		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error("Failed to marshal message", zap.Error(err))
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug("WebSocket write failed",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
			logging.LogWebSocketMessage(c.remoteAddr, "sent", websocket.TextMessage, data)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
