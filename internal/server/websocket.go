package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/pagebuilder/internal/dragdrop"
	"github.com/conneroisu/pagebuilder/internal/editor"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer. Touch moves carry hit lists.
	maxMessageSize = 64 * 1024
)

// Client message types.
const (
	MsgDragStart   = "drag_start"
	MsgDragHover   = "drag_hover"
	MsgDragEnd     = "drag_end"
	MsgDrop        = "drop"
	MsgTouchStart  = "touch_start"
	MsgTouchMove   = "touch_move"
	MsgTouchEnd    = "touch_end"
	MsgTouchCancel = "touch_cancel"
	MsgKeyDown     = "key_down"
	MsgEditBegin   = "edit_begin"
	MsgEditChange  = "edit_change"
	MsgEditRevert  = "edit_revert"
	MsgEditEnd     = "edit_end"
)

// ClientMessage is a gesture or edit sent by the browser.
type ClientMessage struct {
	Type           string            `json:"type"`
	SectionID      string            `json:"sectionId,omitempty"`
	Index          int               `json:"index,omitempty"`
	HoverIndex     int               `json:"hoverIndex,omitempty"`
	Rect           dragdrop.Rect     `json:"rect"`
	Pointer        *dragdrop.Point   `json:"pointer,omitempty"`
	Point          dragdrop.Point    `json:"point"`
	ViewportHeight float64           `json:"viewportHeight,omitempty"`
	Hits           []dragdrop.Target `json:"hits,omitempty"`
	Key            string            `json:"key,omitempty"`
	Field          string            `json:"field,omitempty"`
	Value          any               `json:"value,omitempty"`
}

// ServerMessage is sent to one client. Store events are broadcast as
// store.Event instead.
type ServerMessage struct {
	Type    string            `json:"type"`
	For     string            `json:"for,omitempty"`
	Handled *bool             `json:"handled,omitempty"`
	DY      float64           `json:"dy,omitempty"`
	Session *dragdrop.Session `json:"session,omitempty"`
	Editor  *editor.State     `json:"editor,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Client is one WebSocket connection with its own drag controller and
// property editor buffer.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	drag   *dragdrop.Controller
	logger logging.Logger

	editorMu sync.Mutex
	editor   *editor.Buffer

	done      chan struct{}
	closeOnce sync.Once
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.checkOrigin(r); err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket origin rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade error")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := s.newClient(conn)

	select {
	case s.register <- client:
	case <-r.Context().Done():
		client.close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump(ctx)
	client.readPump(ctx)

	select {
	case s.unregister <- client:
	case <-time.After(writeWait):
		client.close()
	}
}

func (s *Server) newClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
		logger: s.logger.WithComponent("ws"),
		done:   make(chan struct{}),
	}
	c.drag = dragdrop.New(s.builder, dragdrop.ScrollerFunc(func(dy float64) {
		c.sendJSON(ServerMessage{Type: "scroll", DY: dy})
	}), s.config.DragSettings(), s.logger)

	return c
}

// checkOrigin accepts same-host origins, the configured allowed origins and
// the usual local development hosts for the configured port.
func (s *Server) checkOrigin(r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host && (u.Scheme == "http" || u.Scheme == "https") {
		return nil
	}

	return validation.ValidateOrigin(origin, s.allowedOrigins())
}

func (s *Server) allowedOrigins() []string {
	port := s.config.Server.Port
	allowed := append([]string(nil), s.config.Server.AllowedOrigins...)

	return append(allowed,
		fmt.Sprintf("%s:%d", s.config.Server.Host, port),
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
	)
}

// originPatterns lists the hosts of allowedOrigins for the upgrade check.
func (s *Server) originPatterns() []string {
	var patterns []string
	for _, origin := range s.allowedOrigins() {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}

	return patterns
}

func (s *Server) runWebSocketHub(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-s.register:
			s.clientsMutex.Lock()
			s.clients[client] = struct{}{}
			count := len(s.clients)
			s.clientsMutex.Unlock()
			s.logger.Info(ctx, "Client connected", "clients", count)

		case client := <-s.unregister:
			s.clientsMutex.Lock()
			_, ok := s.clients[client]
			delete(s.clients, client)
			count := len(s.clients)
			s.clientsMutex.Unlock()
			client.close()
			if ok {
				s.logger.Info(ctx, "Client disconnected", "clients", count)
			}

		case message := <-s.broadcast:
			s.clientsMutex.RLock()
			var failed []*Client
			for client := range s.clients {
				if !client.enqueue(message) {
					failed = append(failed, client)
				}
			}
			s.clientsMutex.RUnlock()

			if len(failed) > 0 {
				s.clientsMutex.Lock()
				for _, client := range failed {
					delete(s.clients, client)
				}
				s.clientsMutex.Unlock()
				// The close handshake can wait on the peer; keep the hub moving.
				for _, client := range failed {
					go client.close()
				}
			}
		}
	}
}

// enqueue reports false when the client's queue is full.
func (c *Client) enqueue(message []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error(context.Background(), err, "Failed to marshal message", "type", msg.Type)
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn(context.Background(), nil, "client queue full, dropping message", "type", msg.Type)
	}
}

// close tears the client down: the drag controller is unmounted, pending
// edits are flushed and the connection is closed. Safe to call repeatedly.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.drag.Unmount()
		c.endEdit()
		c.conn.Close(websocket.StatusNormalClosure, "")
	})
}

// readPump pumps messages from the websocket connection
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				select {
				case <-c.done:
				default:
					c.logger.Debug(ctx, "WebSocket read ended", "error", err.Error())
				}
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(ServerMessage{Type: "error", Message: "invalid message"})
			continue
		}
		c.handleMessage(ctx, msg)
	}
}

// writePump pumps messages to the websocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return

		case message := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.logger.Debug(ctx, "WebSocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case MsgDragStart:
		session := c.drag.BeginDrag(msg.SectionID, msg.Index)
		c.sendJSON(ServerMessage{Type: "ack", For: msg.Type, Session: &session})
	case MsgDragHover:
		c.ack(msg.Type, c.drag.Hover(msg.HoverIndex, msg.Rect, msg.Pointer))
	case MsgDragEnd:
		c.drag.EndDrag()
	case MsgDrop:
		c.drag.Drop()
	case MsgTouchStart:
		c.drag.TouchStart(msg.SectionID, msg.Index, msg.Point)
	case MsgTouchMove:
		c.ack(msg.Type, c.drag.TouchMove(msg.Point, msg.ViewportHeight, msg.Hits))
	case MsgTouchEnd:
		c.drag.TouchEnd()
	case MsgTouchCancel:
		c.drag.TouchCancel()
	case MsgKeyDown:
		c.ack(msg.Type, c.drag.KeyDown(msg.Key))

	case MsgEditBegin:
		c.beginEdit(ctx, msg.SectionID)
	case MsgEditChange:
		c.withEditor(msg.Type, func(b *editor.Buffer) {
			b.Change(msg.Field, msg.Value)
		})
	case MsgEditRevert:
		c.withEditor(msg.Type, (*editor.Buffer).Revert)
	case MsgEditEnd:
		c.endEdit()

	default:
		c.sendJSON(ServerMessage{Type: "error", For: msg.Type, Message: "unknown message type"})
	}
}

func (c *Client) ack(forType string, handled bool) {
	c.sendJSON(ServerMessage{Type: "ack", For: forType, Handled: &handled})
}

func (c *Client) beginEdit(ctx context.Context, sectionID string) {
	c.endEdit()

	buf, err := editor.NewBuffer(c.server.builder, sectionID,
		editor.WithDelay(c.server.config.Editor.Debounce),
		editor.WithLogger(c.server.logger),
		editor.WithNotify(func(st editor.State) {
			c.sendJSON(ServerMessage{Type: "editor", Editor: &st})
		}),
	)
	if err != nil {
		c.logger.Debug(ctx, "edit_begin rejected", "section", sectionID, "error", err.Error())
		c.sendJSON(ServerMessage{Type: "error", For: MsgEditBegin, Message: err.Error()})
		return
	}

	c.editorMu.Lock()
	c.editor = buf
	c.editorMu.Unlock()

	st := buf.State()
	c.sendJSON(ServerMessage{Type: "editor", Editor: &st})
}

func (c *Client) withEditor(forType string, fn func(*editor.Buffer)) {
	c.editorMu.Lock()
	buf := c.editor
	c.editorMu.Unlock()

	if buf == nil {
		c.sendJSON(ServerMessage{Type: "error", For: forType, Message: "no section is being edited"})
		return
	}

	fn(buf)
	st := buf.State()
	c.sendJSON(ServerMessage{Type: "editor", Editor: &st})
}

// endEdit commits pending edits and releases the buffer.
func (c *Client) endEdit() {
	c.editorMu.Lock()
	buf := c.editor
	c.editor = nil
	c.editorMu.Unlock()

	if buf != nil {
		buf.Flush()
		buf.Close()
	}
}
