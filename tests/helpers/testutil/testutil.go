// Package testutil provides testing utilities and helpers for gateway tests.
package testutil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ahmadawais/wordpress-playground/internal/protocol"
)

// Engine is a scripted execution engine connected over the socket
// endpoint. It answers forwarded requests with whatever the installed
// handler returns.
type Engine struct {
	t       *testing.T
	conn    *websocket.Conn
	handler func(*protocol.RequestMessage) *protocol.Response
	done    chan struct{}
}

// ConnectEngine dials the gateway's engine socket, drains the welcome
// frame, and starts the reply loop. The handler may be nil; install one
// later with Respond.
func ConnectEngine(t *testing.T, srv *httptest.Server, handler func(*protocol.RequestMessage) *protocol.Response) *Engine {
	t.Helper()

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "engine socket dial")

	// Welcome frame.
	var welcome map[string]interface{}
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(data, &welcome))
	require.Equal(t, protocol.TypeSystem, welcome["type"])

	e := &Engine{
		t:       t,
		conn:    conn,
		handler: handler,
		done:    make(chan struct{}),
	}
	go e.loop()
	t.Cleanup(e.Close)
	return e
}

// Attach announces the engine's scope to the gateway.
func (e *Engine) Attach(scope string) {
	e.t.Helper()
	err := e.conn.WriteJSON(map[string]string{
		"type":  protocol.TypeAttach,
		"scope": scope,
	})
	require.NoError(e.t, err)
}

// Close tears down the socket. Safe to call more than once.
func (e *Engine) Close() {
	select {
	case <-e.done:
	default:
		close(e.done)
		e.conn.Close()
	}
}

func (e *Engine) loop() {
	for {
		_, data, err := e.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil || env.Type != protocol.TypeHTTPRequest {
			continue
		}
		var msg protocol.RequestMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		if e.handler == nil {
			continue
		}
		resp := e.handler(&msg)
		if resp == nil {
			continue // simulate an engine that never answers
		}
		reply, err := protocol.Encode(&protocol.ResponseMessage{
			Type:      protocol.TypeResponse,
			RequestID: msg.RequestID,
			Response:  resp,
		})
		if err != nil {
			continue
		}
		if err := e.conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}

// TextResponse builds a plain-text engine reply.
func TextResponse(status int, body string) *protocol.Response {
	return &protocol.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       protocol.Body(body),
	}
}
