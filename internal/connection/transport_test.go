package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDialer_ReadsFramesUntilNormalClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	pong := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		conn.SetPongHandler(func(data string) error {
			pong <- data
			return nil
		})
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		_ = conn.WriteControl(websocket.PingMessage, []byte("hb"), time.Now().Add(time.Second))
		select {
		case <-pong:
		case <-time.After(2 * time.Second):
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"state_update"}`))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	tr, err := WebSocketDialer{ReadTimeout: 2 * time.Second}.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	data, err := tr.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(data))

	// the ping is answered while this read is blocked
	data, err = tr.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"state_update"}`, string(data))

	_, err = tr.ReadMessage()
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestWebSocketDialer_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := WebSocketDialer{}.Dial(context.Background(), wsURL(srv))
	require.Error(t, err)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Contains(t, err.Error(), "403")
}

func TestWebSocketDialer_WithManager(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"state_update","data":{}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rec := newRecorder()
	mgr := NewManager(Config{URL: wsURL(srv)}, WebSocketDialer{}, nil, nil, rec.callbacks())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mgr.Run(ctx) }()

	rec.expect(t, Connecting)
	rec.expect(t, Connected)
	assert.JSONEq(t, `{"type":"state_update","data":{}}`, string(rec.frame(t)))

	mgr.Teardown()
	rec.expect(t, Disconnected)
}
