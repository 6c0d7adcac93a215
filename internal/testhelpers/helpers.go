// Package testhelpers provides WebSocket and HTTP utilities shared by the
// pixelplace tests.
package testhelpers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every read the helpers perform.
const DefaultTimeout = 2 * time.Second

// WebSocketURL converts an httptest server URL into the URL of its /ws endpoint.
func WebSocketURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

// ConnectWebSocket creates a WebSocket connection to the specified URL,
// sending origin as the Origin header when it is not empty.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url and registers the connection for closing at test end.
func MustConnect(t *testing.T, url, origin string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, origin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJSON marshals v and sends it as one text frame.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// SendRaw sends data as one text frame.
func SendRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// ReadMessage reads one frame and decodes it as a JSON object.
func ReadMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(DefaultTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg), "frame %q is not a JSON object", data)
	return msg
}

// ReadUntilType reads frames until one carries the given type and returns it.
func ReadUntilType(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(DefaultTimeout)
	for time.Now().Before(deadline) {
		msg := ReadMessage(t, conn)
		if msg["type"] == msgType {
			return msg
		}
	}
	require.FailNow(t, "no message received", "type %q", msgType)
	return nil
}

// ExpectNoMessage asserts that nothing arrives on conn within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "expected no message, received %q", data)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	require.Failf(t, "unexpected read error", "%v", err)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
