package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait          = 5 * time.Second
	DefaultReadTimeout = 60 * time.Second
	DefaultMaxMessage  = 1 << 20 // 1 MB
)

// WebSocketDialer dials the telemetry endpoint over gorilla/websocket.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
	// ReadTimeout is how long the transport waits for any frame, ping
	// included, before treating the connection as dead.
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: %w", url, err)
	}

	t := &wsTransport{conn: conn, readTimeout: d.ReadTimeout}
	if t.readTimeout <= 0 {
		t.readTimeout = DefaultReadTimeout
	}
	limit := d.MaxMessageSize
	if limit <= 0 {
		limit = DefaultMaxMessage
	}
	conn.SetReadLimit(limit)
	t.extend()
	conn.SetPingHandler(func(appData string) error {
		t.extend()
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	return t, nil
}

type wsTransport struct {
	conn        *websocket.Conn
	readTimeout time.Duration
}

func (t *wsTransport) extend() {
	_ = t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrTransportClosed, err)
		}
		return nil, err
	}
	t.extend()
	return data, nil
}

// Close sends a normal closure frame on a best-effort basis and closes the socket.
func (t *wsTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return t.conn.Close()
}
