// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, runtime stats and the board snapshot.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is the body of the stats endpoint.
type Stats struct {
	Clients       int     `json:"clients"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	ChatMessages  int     `json:"chatMessages"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	RSSBytes      uint64  `json:"rssBytes,omitempty"`
}

// BoardSnapshot is the body of the board endpoint.
type BoardSnapshot struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Board  [][]string `json:"board"`
}

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the connection, and hands the new
// Client to the hub, which sends the init snapshot and launches its pumps.
func (h *Hub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)
	if !h.join(client) {
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "pixelplace server is running!")
}

// StatsHandler reports connected clients, board size, chat backlog and
// process memory.
func (h *Hub) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	stats := Stats{
		Clients:       h.ClientCount(),
		Width:         h.board.Width(),
		Height:        h.board.Height(),
		ChatMessages:  h.chat.Len(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			stats.RSSBytes = memInfo.RSS
		} else {
			h.log.Debug("Failed to collect memory info", "error", err)
		}
	}

	h.writeJSON(w, stats)
}

// BoardHandler serves the current board as JSON.
func (h *Hub) BoardHandler(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, BoardSnapshot{
		Width:  h.board.Width(),
		Height: h.board.Height(),
		Board:  h.board.Get(),
	})
}

func (h *Hub) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("Error writing JSON response", "error", err)
	}
}
