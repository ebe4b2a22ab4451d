package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Frame is one WebSocket message received from the client: either a JSON
// control message (Binary false) or raw PCM16 audio (Binary true).
type Frame struct {
	Binary bool
	Data   []byte
}

// Conn abstracts the WebSocket connection so the conversation loop can be
// tested without a network.
type Conn interface {
	// Receive blocks until the next frame arrives. It returns an error when
	// the connection is closed or the context is canceled.
	Receive(ctx context.Context) (Frame, error)

	// SendJSON marshals v and sends it as a text message.
	SendJSON(ctx context.Context, v any) error

	// SendBinary sends raw bytes as a binary message.
	SendBinary(ctx context.Context, data []byte) error

	// Close closes the connection with a normal-closure status.
	Close() error
}

// wsConn adapts a coder/websocket connection to Conn.
type wsConn struct {
	conn *websocket.Conn
}

var _ Conn = (*wsConn)(nil)

// NewConn wraps an accepted WebSocket connection.
func NewConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Receive(ctx context.Context) (Frame, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("protocol: read: %w", err)
	}
	return Frame{Binary: typ == websocket.MessageBinary, Data: data}, nil
}

func (c *wsConn) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: marshal: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	}
	return nil
}

func (c *wsConn) SendBinary(ctx context.Context, data []byte) error {
	if err := c.conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	}
	return nil
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "session closed")
}
