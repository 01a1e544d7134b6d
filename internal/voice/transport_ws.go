package voice

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxloop/voxd/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// CloseSessionNotFound is sent when a client connects with an unknown or
// stale session id.
const CloseSessionNotFound = 4000

// wsTransport implements Transport over a WebSocket connection.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // protects concurrent writes
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

// ReadPump reads audio and control messages from the WebSocket.
// Binary frames are pushed to frames; text frames go to onControl.
func (t *wsTransport) ReadPump(ctx context.Context, cancel context.CancelFunc, frames chan<- []byte, onControl func([]byte)) {
	defer cancel()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debugf("ws read error: %v", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		case websocket.TextMessage:
			onControl(data)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// SendAudio sends a complete audio payload as one binary frame.
func (t *wsTransport) SendAudio(audio []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// SendControl sends a JSON control message as a text frame.
func (t *wsTransport) SendControl(msg ControlMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// KeepAlive sends periodic pings so dead peers are detected by the read
// deadline. Blocks until ctx is done or a write fails.
func (t *wsTransport) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.writeMu.Lock()
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the underlying WebSocket connection.
func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// closeWithReason sends a close frame with the given code before closing.
func closeWithReason(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
