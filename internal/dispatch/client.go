package dispatch

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ahmadawais/wordpress-playground/internal/protocol"
	"github.com/ahmadawais/wordpress-playground/internal/shared/id"
)

// Conn is the write half of a browser-context connection.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected browser context, known to the gateway only
// by its opaque handle.
type Client struct {
	id   id.ClientID
	conn Conn

	mu      sync.Mutex // serializes writes; gorilla allows one concurrent writer
	claimed bool
}

// NewClient wraps a connection with a fresh handle.
func NewClient(conn Conn) *Client {
	return &Client{
		id:   id.NewClientID(),
		conn: conn,
	}
}

// ID returns the client's opaque handle.
func (c *Client) ID() id.ClientID {
	return c.id
}

// Send encodes msg and writes it as one text frame.
func (c *Client) Send(msg interface{}) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
