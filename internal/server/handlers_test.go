package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "pixelplace server is running!", rec.Body.String())
}

func TestWebSocketHandlerRejectsNonGET(t *testing.T) {
	h := newTestHub(t, DefaultOptions())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.WebSocketHandler(rec, httptest.NewRequest(method, "/ws", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}

func TestWebSocketHandlerRequiresUpgrade(t *testing.T) {
	h := newTestHub(t, DefaultOptions())

	rec := httptest.NewRecorder()
	h.WebSocketHandler(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.ClientCount())
}

func TestStatsHandler(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	_, err := h.Board().SetCell(0, 0, "#000000", "Alice")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.StatsHandler(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var stats Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Width)
	assert.Equal(t, 3, stats.Height)
	assert.Zero(t, stats.Clients)
	assert.Zero(t, stats.ChatMessages)
	assert.GreaterOrEqual(t, stats.UptimeSeconds, 0.0)
}

func TestBoardHandler(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	_, err := h.Board().SetCell(3, 2, "#ABCDEF", "Alice")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.BoardHandler(rec, httptest.NewRequest(http.MethodGet, "/board.json", nil))

	var snap BoardSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 4, snap.Width)
	assert.Equal(t, 3, snap.Height)
	assert.Equal(t, "#ABCDEF", snap.Board[2][3])
}

func TestSetupRoutes(t *testing.T) {
	h := newTestHub(t, DefaultOptions())
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>place</h1>"), 0o600))

	srv := httptest.NewServer(SetupRoutes(h, static))
	defer srv.Close()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/health", http.StatusOK, "pixelplace server is running!"},
		{http.MethodGet, "/stats", http.StatusOK, `"clients"`},
		{http.MethodGet, "/board.json", http.StatusOK, `"board"`},
		{http.MethodGet, "/", http.StatusOK, "<h1>place</h1>"},
		{http.MethodGet, "/missing.js", http.StatusNotFound, ""},
		{http.MethodPost, "/ws", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, http.NoBody)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.Contains(string(body), tt.body), "body %q", body)
		})
	}
}

func TestCreateServer(t *testing.T) {
	handler := http.NewServeMux()
	srv := CreateServer(":9999", handler)

	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, handler, srv.Handler)
	assert.NotZero(t, srv.ReadTimeout)
	assert.NotZero(t, srv.WriteTimeout)
	assert.NotZero(t, srv.IdleTimeout)
}
