package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", e.ts.URL)
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, func() bool { return e.clientCount() > 0 }, 2*time.Second, 10*time.Millisecond)

	return conn
}

func (e *testEnv) clientCount() int {
	e.srv.clientsMutex.RLock()
	defer e.srv.clientsMutex.RUnlock()
	return len(e.srv.clients)
}

func send(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

// readUntil returns the first message accepted by match, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "no matching message received")

		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg
		}
	}
}

func ofType(typ string) func(map[string]any) bool {
	return func(msg map[string]any) bool { return msg["type"] == typ }
}

func ackFor(typ string) func(map[string]any) bool {
	return func(msg map[string]any) bool { return msg["type"] == "ack" && msg["for"] == typ }
}

func TestWebSocketBroadcastsStoreEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	env.add(t, "hero")

	msg := readUntil(t, conn, ofType("section_added"))
	assert.Equal(t, "section-1", msg["sectionId"])
	state := msg["state"].(map[string]any)
	assert.Len(t, state["sections"], 1)
}

func TestWebSocketDragAndEscape(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	env.add(t, "footer")
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgDragStart, SectionID: "section-2", Index: 1})
	ack := readUntil(t, conn, ackFor(MsgDragStart))
	session := ack["session"].(map[string]any)
	assert.Equal(t, "section-2", session["sectionId"])
	assert.EqualValues(t, 1, session["index"])

	state := env.srv.Builder().State()
	assert.True(t, state.IsDragging)
	assert.Equal(t, "section-2", state.DraggedSectionID)

	send(t, conn, ClientMessage{Type: MsgKeyDown, Key: "Enter"})
	ack = readUntil(t, conn, ackFor(MsgKeyDown))
	assert.Equal(t, false, ack["handled"])

	send(t, conn, ClientMessage{Type: MsgKeyDown, Key: "Escape"})
	ack = readUntil(t, conn, ackFor(MsgKeyDown))
	assert.Equal(t, true, ack["handled"])

	state = env.srv.Builder().State()
	assert.False(t, state.IsDragging)
	assert.Empty(t, state.DraggedSectionID)
}

func TestWebSocketDisconnectCancelsDrag(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgDragStart, SectionID: "section-1", Index: 0})
	readUntil(t, conn, ackFor(MsgDragStart))
	require.True(t, env.srv.Builder().State().IsDragging)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))

	assert.Eventually(t, func() bool {
		return !env.srv.Builder().State().IsDragging
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return env.clientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketIdleClientLeavesOtherDragAlone(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	env.add(t, "footer")
	owner := env.dial(t)
	idle := env.dial(t)
	require.Eventually(t, func() bool { return env.clientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	send(t, owner, ClientMessage{Type: MsgDragStart, SectionID: "section-2", Index: 1})
	readUntil(t, owner, ackFor(MsgDragStart))

	send(t, idle, ClientMessage{Type: MsgKeyDown, Key: "Escape"})
	ack := readUntil(t, idle, ackFor(MsgKeyDown))
	assert.Equal(t, false, ack["handled"])

	require.NoError(t, idle.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool { return env.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	state := env.srv.Builder().State()
	assert.True(t, state.IsDragging)
	assert.Equal(t, "section-2", state.DraggedSectionID)

	send(t, owner, ClientMessage{Type: MsgKeyDown, Key: "Escape"})
	ack = readUntil(t, owner, ackFor(MsgKeyDown))
	assert.Equal(t, true, ack["handled"])
	assert.False(t, env.srv.Builder().State().IsDragging)
}

func TestWebSocketEditing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgEditChange, Field: "title", Value: "x"})
	errMsg := readUntil(t, conn, ofType("error"))
	assert.Equal(t, MsgEditChange, errMsg["for"])
	assert.Equal(t, "no section is being edited", errMsg["message"])

	send(t, conn, ClientMessage{Type: MsgEditBegin, SectionID: "section-1"})
	opened := readUntil(t, conn, ofType("editor"))
	ed := opened["editor"].(map[string]any)
	assert.Equal(t, "section-1", ed["sectionId"])
	assert.Equal(t, false, ed["dirty"])

	send(t, conn, ClientMessage{Type: MsgEditChange, Field: "title", Value: "Acme"})
	updated := readUntil(t, conn, ofType("section_updated"))
	assert.Equal(t, "section-1", updated["sectionId"])

	section, ok := env.srv.Builder().GetSectionByID("section-1")
	require.True(t, ok)
	props := section.Props
	title, _ := json.Marshal(props)
	assert.Contains(t, string(title), `"Acme"`)

	send(t, conn, ClientMessage{Type: MsgEditEnd})
	send(t, conn, ClientMessage{Type: MsgEditRevert})
	errMsg = readUntil(t, conn, ofType("error"))
	assert.Equal(t, MsgEditRevert, errMsg["for"])
}

func TestWebSocketEditBeginMissingSection(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: MsgEditBegin, SectionID: "ghost"})
	msg := readUntil(t, conn, ofType("error"))
	assert.Equal(t, MsgEditBegin, msg["for"])
	assert.NotEmpty(t, msg["message"])
}

func TestWebSocketUnknownMessage(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.dial(t)

	send(t, conn, ClientMessage{Type: "teleport"})
	msg := readUntil(t, conn, ofType("error"))
	assert.Equal(t, "teleport", msg["for"])
	assert.Equal(t, "unknown message type", msg["message"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{broken")))
	msg = readUntil(t, conn, ofType("error"))
	assert.Equal(t, "invalid message", msg["message"])
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSecurityMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/sections", addSectionRequest{TemplateID: "hero"},
		"Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, env.srv.Builder().GetOrderedSections())

	resp = env.do(t, http.MethodPost, "/api/sections", addSectionRequest{TemplateID: "hero"},
		"Origin", env.ts.URL)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodOptions, "/api/sections", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}
