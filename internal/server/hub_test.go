package server

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/chat"
	"github.com/Tyrowin/pixelplace/internal/policy"
	"github.com/Tyrowin/pixelplace/internal/protocol"
)

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	pol, err := policy.New(policy.DefaultWords(), '*', 24)
	require.NoError(t, err)
	return newTestHubWithPolicy(t, opts, pol)
}

func newTestHubWithPolicy(t *testing.T, opts Options, pol TextPolicy) *Hub {
	t.Helper()
	return startHub(t, board.New(4, 3), opts, pol)
}

func newTestHubSized(t *testing.T, opts Options, width, height int) *Hub {
	t.Helper()
	pol, err := policy.New(policy.DefaultWords(), '*', 24)
	require.NoError(t, err)
	return startHub(t, board.New(width, height), opts, pol)
}

func startHub(t *testing.T, b *board.Board, opts Options, pol TextPolicy) *Hub {
	t.Helper()
	h := NewHub(b, chat.NewLog(5), pol, opts, logs.GetLoggerFromLevel(slog.LevelDebug))
	go h.Run()
	t.Cleanup(func() { _ = h.Shutdown(time.Second) })
	return h
}

// joinDetached registers a client without a connection; its queue is read
// directly by the test.
func joinDetached(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(nil, h, "detached")
	require.True(t, h.join(c))
	return c
}

func joinNamed(t *testing.T, h *Hub, name, team string) *Client {
	t.Helper()
	c := joinDetached(t, h)
	assert.Equal(t, "init", recv(t, c)["type"])
	send(t, h, c, protocol.SetName{Player: name, Team: team})
	assert.Equal(t, "nameAccepted", recv(t, c)["type"])
	return c
}

func send(t *testing.T, h *Hub, c *Client, msg protocol.ClientMessage) {
	t.Helper()
	require.True(t, h.submit(inboundMessage{client: c, msg: msg}))
}

func recv(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data, ok := <-c.GetSendChan():
		require.True(t, ok, "send queue closed")
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for message")
		return nil
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.GetSendChan():
		require.Failf(t, "unexpected message", "%s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

// flush waits until every message submitted before it has been applied.
func flush(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	send(t, h, c, protocol.SetName{Player: ""})
	require.Equal(t, "nameRejected", recv(t, c)["type"])
}

func TestHubSendsInitFirst(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)

	msg := recv(t, c)
	assert.Equal(t, "init", msg["type"])
	rows, ok := msg["board"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 4)
	assert.Equal(t, board.DefaultColor, rows[2].([]any)[3])
	assert.Equal(t, []any{}, msg["chat"])
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubInitCarriesEarlierState(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	alice := joinNamed(t, h, "Alice", "")

	send(t, h, alice, protocol.SetPixel{X: 1, Y: 2, Color: "#FF0000"})
	send(t, h, alice, protocol.Chat{Text: "hello", Channel: chat.Global})
	recv(t, alice)
	recv(t, alice)

	late := joinDetached(t, h)
	msg := recv(t, late)
	require.Equal(t, "init", msg["type"])
	assert.Equal(t, "#FF0000", msg["board"].([]any)[2].([]any)[1])
	assert.Equal(t, []any{map[string]any{"player": "Alice", "text": "hello"}}, msg["chat"])
}

func TestHubPixelBroadcastsToEveryone(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	alice := joinNamed(t, h, "Alice", "")
	bob := joinDetached(t, h)
	recv(t, bob)

	send(t, h, alice, protocol.SetPixel{X: 3, Y: 0, Color: "#00FF00"})

	want := map[string]any{"type": "pixel", "x": 3.0, "y": 0.0, "color": "#00FF00", "player": "Alice"}
	assert.Equal(t, want, recv(t, alice))
	assert.Equal(t, want, recv(t, bob))

	color, err := h.Board().Cell(3, 0)
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", color)
	assert.Equal(t, 1, alice.session.PixelsPlaced)
}

func TestHubPixelUsesGuestUntilNamed(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)
	recv(t, c)

	send(t, h, c, protocol.SetPixel{X: 0, Y: 0, Color: "#000000"})
	assert.Equal(t, DefaultDisplayName, recv(t, c)["player"])
}

func TestHubDropsOutOfBoundsPixel(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)
	recv(t, c)

	send(t, h, c, protocol.SetPixel{X: 4, Y: 0, Color: "#000000"})
	send(t, h, c, protocol.SetPixel{X: 0, Y: -1, Color: "#000000"})
	flush(t, h, c)

	assert.Equal(t, map[string]int{board.DefaultColor: 12}, h.Board().Histogram())
	assert.Equal(t, 0, c.session.PixelsPlaced)
}

func TestHubRejectsForbiddenName(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)
	recv(t, c)

	send(t, h, c, protocol.SetName{Player: "xXshitXx"})
	msg := recv(t, c)
	assert.Equal(t, "nameRejected", msg["type"])
	assert.Equal(t, policy.ErrNameForbidden.Error(), msg["reason"])
	assert.Equal(t, DefaultDisplayName, c.session.DisplayName)
	assert.False(t, c.session.Named)

	send(t, h, c, protocol.SetPixel{X: 0, Y: 0, Color: "#000000"})
	assert.Equal(t, DefaultDisplayName, recv(t, c)["player"])
}

func TestHubNameRepliesOnlyToSender(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	bob := joinDetached(t, h)
	recv(t, bob)

	joinNamed(t, h, "Alice", "")
	expectSilence(t, bob)
}

func TestHubChatIsRedactedAndStored(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	alice := joinNamed(t, h, "Alice", "")
	bob := joinDetached(t, h)
	recv(t, bob)

	send(t, h, alice, protocol.Chat{Text: "I fuck", Channel: chat.Global})

	want := map[string]any{"type": "chat", "player": "Alice", "text": "I ****"}
	assert.Equal(t, want, recv(t, alice))
	assert.Equal(t, want, recv(t, bob))
	assert.Equal(t, []chat.Message{{Player: "Alice", Text: "I ****"}}, h.Chat().Recent())
	assert.Equal(t, 1, alice.session.ChatsSent)
}

func TestHubTeamChatStaysInTeam(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	red1 := joinNamed(t, h, "Alice", "red")
	red2 := joinNamed(t, h, "Bob", "red")
	blue := joinNamed(t, h, "Carol", "blue")

	send(t, h, red1, protocol.Chat{Text: "flank left", Channel: chat.Team})

	want := map[string]any{"type": "chat", "player": "Alice", "text": "flank left", "channel": "team"}
	assert.Equal(t, want, recv(t, red1))
	assert.Equal(t, want, recv(t, red2))
	expectSilence(t, blue)
	assert.Zero(t, h.Chat().Len())
}

func TestHubDropsTeamChatWithoutTeam(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	loner := joinNamed(t, h, "Alice", "")

	send(t, h, loner, protocol.Chat{Text: "anyone?", Channel: chat.Team})
	flush(t, h, loner)
	assert.Zero(t, loner.session.ChatsSent)
}

func TestHubDropsSlowClient(t *testing.T) {
	opts := DefaultOptions()
	opts.SendBuffer = 1
	h := newTestHub(t, opts)

	fast := joinDetached(t, h)
	recv(t, fast)
	slow := joinDetached(t, h)

	send(t, h, fast, protocol.SetPixel{X: 0, Y: 0, Color: "#123456"})
	recv(t, fast)

	assert.Equal(t, "init", recv(t, slow)["type"])
	_, ok := <-slow.GetSendChan()
	assert.False(t, ok, "slow client queue should be closed")
	assert.Equal(t, 1, h.ClientCount())
}

func TestHubUnregisterForgetsSession(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)
	recv(t, c)

	require.True(t, h.limiter.TryAdmit(c.SessionID()))
	h.leave(c)

	_, ok := <-c.GetSendChan()
	assert.False(t, ok)
	assert.Eventually(t, func() bool { return h.limiter.tracked() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())
}

func TestClientAdmitAfterLeaveKeepsLimiterClean(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	c := joinDetached(t, h)
	recv(t, c)

	h.leave(c)
	_, ok := <-c.GetSendChan()
	require.False(t, ok)
	require.Eventually(t, func() bool { return h.limiter.tracked() == 0 }, time.Second, 10*time.Millisecond)

	// A frame still in flight on the read side after the hub let go.
	_, ok = c.admit([]byte(`{"type":"setPixel","x":0,"y":0,"color":"#000000"}`))
	assert.False(t, ok)
	assert.Zero(t, h.limiter.tracked())
}

func TestHubIgnoresMessagesFromUnknownClient(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	watcher := joinDetached(t, h)
	recv(t, watcher)

	stranger := NewClient(nil, h, "stranger")
	send(t, h, stranger, protocol.SetPixel{X: 0, Y: 0, Color: "#000000"})
	expectSilence(t, watcher)
}

type panickyPolicy struct{}

func (panickyPolicy) CheckName(string) error { panic("boom") }
func (panickyPolicy) Redact(text string) string { return text }

func TestHubSurvivesPanicInHandler(t *testing.T) {
	h := newTestHubWithPolicy(t, DefaultOptions(), panickyPolicy{})
	c := joinDetached(t, h)
	recv(t, c)

	send(t, h, c, protocol.SetName{Player: "Alice"})
	send(t, h, c, protocol.SetPixel{X: 1, Y: 1, Color: "#ABCDEF"})
	assert.Equal(t, "pixel", recv(t, c)["type"])
}

func TestHubShutdownClosesQueues(t *testing.T) {
	pol, err := policy.New(nil, '*', 24)
	require.NoError(t, err)
	h := NewHub(board.New(2, 2), chat.NewLog(5), pol, DefaultOptions(), logs.GetLoggerFromLevel(slog.LevelDebug))
	go h.Run()

	c := NewClient(nil, h, "detached")
	require.True(t, h.join(c))
	require.NoError(t, h.Shutdown(time.Second))

	assert.Equal(t, "init", recv(t, c)["type"])
	_, ok := <-c.GetSendChan()
	assert.False(t, ok)
	assert.False(t, h.join(NewClient(nil, h, "late")))
}
