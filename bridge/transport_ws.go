package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport carries bridge frames over a WebSocket relay. Inbound frames
// are read by a single loop and fed to the bridge's Dispatch.
type WSTransport struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// DialWS connects to a relay endpoint and starts the read loop feeding the
// given bridge. Closing the transport stops the loop.
func DialWS(ctx context.Context, url string, b *Bridge) (*WSTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay %s: %w", url, err)
	}

	t := &WSTransport{conn: conn, done: make(chan struct{})}
	go t.readLoop(b)
	return t, nil
}

// Send writes one envelope. Writes are serialized; gorilla connections do
// not support concurrent writers.
func (t *WSTransport) Send(_ context.Context, env Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	return nil
}

// Close shuts the connection down and stops the read loop.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

func (t *WSTransport) readLoop(b *Bridge) {
	for {
		var resp Response
		if err := t.conn.ReadJSON(&resp); err != nil {
			select {
			case <-t.done:
			default:
				_ = t.Close()
			}
			return
		}
		b.Dispatch(resp)
	}
}
