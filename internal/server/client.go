// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/pixelplace/internal/protocol"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Client represents a WebSocket client connection on the board.
// It owns the connection, the outgoing message queue, and the session
// record for this connection.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	addr    string
	closed  bool
	session *Session
}

// NewClient creates a new Client instance with the provided WebSocket connection,
// hub reference, and client address. The client's send channel is buffered
// so a slow reader does not stall the hub.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(hub.opts.MaxMessageSize)
	}

	return &Client{
		conn:    conn,
		send:    make(chan []byte, hub.opts.SendBuffer),
		hub:     hub,
		addr:    addr,
		closed:  false,
		session: NewSession(),
	}
}

// GetSendChan returns the client's send channel for reading outgoing messages.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// SessionID returns the identifier of the client's session.
func (c *Client) SessionID() string {
	return c.session.ID
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.log.Debug("Error setting initial read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.hub.log.Debug("Error setting read deadline in pong handler", "addr", c.addr, "error", err)
		}
		return nil
	})
}

// handleReadError logs the error according to its kind. Every read error
// ends the read loop.
func (c *Client) handleReadError(err error) {
	log := c.hub.log

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("Message exceeded maximum size", "addr", c.addr, "limit", c.hub.opts.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Debug("Client disconnected", "addr", c.addr, "error", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Debug("Client connection closed", "addr", c.addr, "error", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		log.Warn("Unexpected WebSocket error", "addr", c.addr, "error", err)
	default:
		log.Warn("WebSocket read error", "addr", c.addr, "error", err)
	}
}

// admit decodes a raw frame and applies the rate limit. It returns false
// when the frame must be dropped.
func (c *Client) admit(raw []byte) (protocol.ClientMessage, bool) {
	if c.hub.isClosed(c) {
		return nil, false
	}

	msg, err := c.hub.decoder.Decode(raw)
	if err != nil {
		c.hub.log.Debug("Dropping invalid message", "addr", c.addr, "error", err)
		return nil, false
	}

	if isMutation(msg) && !c.hub.limiter.TryAdmit(c.session.ID) {
		c.hub.log.Debug("Rate limit exceeded; discarding message",
			"addr", c.addr, "limit", c.hub.opts.RateLimit.Limit, "window", c.hub.opts.RateLimit.Window)
		return nil, false
	}
	return msg, true
}

// readPump decodes and admits frames concurrently with other clients, then
// hands them to the hub, which applies them one at a time.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.hub.limiter.Forget(c.session.ID)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.hub.log.Debug("Error closing connection in readPump", "error", err)
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		msg, ok := c.admit(raw)
		if !ok {
			continue
		}

		if !c.hub.submit(inboundMessage{client: c, msg: msg}) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.hub.log.Debug("Error closing connection in writePump", "error", err)
	}
}

// handleMessage writes one outgoing message and returns false if the connection should be closed.
// Each message goes out as its own text frame so clients can parse frames independently.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.hub.log.Debug("Error setting write deadline", "addr", c.addr, "error", err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.hub.log.Debug("Error writing message", "addr", c.addr, "error", err)
		}
		return false
	}
	return true
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.hub.log.Debug("Error writing close message", "addr", c.addr, "error", err)
	}
	return false
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.hub.log.Debug("Error setting write deadline for ping", "addr", c.addr, "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.hub.log.Debug("Error writing ping message", "addr", c.addr, "error", err)
		return false
	}
	return true
}
