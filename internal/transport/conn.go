package transport

import (
	"context"

	"github.com/coder/websocket"
)

// Conn is the minimal socket surface the session needs. *websocket.Conn
// satisfies it through wsConn; tests substitute in-memory fakes.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Dialer opens a Conn to the given websocket URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

// DefaultDialer dials with coder/websocket.
func DefaultDialer(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w wsConn) Close(code websocket.StatusCode, reason string) error {
	return w.c.Close(code, reason)
}

// isNormalClosure reports whether the peer closed cleanly. Anything else
// schedules a reconnect.
func isNormalClosure(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
