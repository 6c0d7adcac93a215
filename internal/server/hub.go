// Package server coordinates client registration, board and chat mutation,
// and ordered fan-out for the pixelplace WebSocket system via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/pixelplace/internal/board"
	"github.com/Tyrowin/pixelplace/internal/chat"
	"github.com/Tyrowin/pixelplace/internal/protocol"
)

// Hub owns the live sessions and is the single writer of the board and the
// chat log. Its Run loop applies registrations and admitted messages one
// at a time, so every client observes pixel and chat events in the same
// order they were accepted, and a new client's snapshot precedes every
// delta it receives.
type Hub struct {
	board    *board.Board
	chat     *chat.Log
	policy   TextPolicy
	decoder  *protocol.Decoder
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	opts     Options
	log      *slog.Logger
	started  time.Time

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub around the given board, chat log and text policy.
// The returned Hub is ready to manage WebSocket connections once Run is started.
func NewHub(b *board.Board, c *chat.Log, policy TextPolicy, opts Options, log *slog.Logger) *Hub {
	opts = sanitizeOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	origins := newOriginPolicy(opts.AllowedOrigins, log)

	return &Hub{
		board:   b,
		chat:    c,
		policy:  policy,
		decoder: protocol.NewDecoder(opts.MaxChatLength),
		limiter: NewRateLimiter(opts.RateLimit.Limit, opts.RateLimit.Window),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		opts:       opts,
		log:        log,
		started:    time.Now(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Board returns the board owned by the hub.
func (h *Hub) Board() *board.Board { return h.board }

// Chat returns the chat log owned by the hub.
func (h *Hub) Chat() *chat.Log { return h.chat }

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// join hands a new client to the Run loop. It returns false once the hub
// is shutting down.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// submit queues an admitted message for the critical section.
func (h *Hub) submit(in inboundMessage) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration and message dispatch. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.dispatch(in)
		}
	}
}

// handleRegister queues the init snapshot as the client's first message,
// adds it to the broadcast set, and launches its pumps.
func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("Received nil client registration; skipping")
		return
	}

	payload, err := protocol.Encode(protocol.NewInit(h.board.Get(), h.chat.Recent()))
	if err != nil {
		h.log.Error("Encoding init snapshot failed", "error", err)
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	client.send <- payload
	h.log.Info("Client registered", "addr", client.addr, "session", client.session.ID, "clients", clientCount)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(client.send)
	h.limiter.Forget(client.session.ID)

	s := client.session
	h.log.Info("Client unregistered",
		"addr", client.addr,
		"session", s.ID,
		"player", s.DisplayName,
		"pixels", s.PixelsPlaced,
		"chats", s.ChatsSent,
		"connected", time.Since(s.ConnectedAt).Round(time.Second),
		"clients", clientCount)
}

// dispatch applies one admitted message. A panic while handling a single
// message is logged and does not stop the loop.
func (h *Hub) dispatch(in inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Recovered from panic while handling message", "panic", r)
		}
	}()

	if !h.isRegistered(in.client) {
		return
	}

	switch m := in.msg.(type) {
	case protocol.SetName:
		h.handleSetName(in.client, m)
	case protocol.SetPixel:
		h.handleSetPixel(in.client, m)
	case protocol.Chat:
		h.handleChat(in.client, m)
	case protocol.Ping:
	default:
		h.log.Warn("Unhandled message kind", "kind", m)
	}
}

func (h *Hub) isRegistered(c *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[c]
}

// isClosed reports whether the hub has already dropped c.
func (h *Hub) isClosed(c *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return c.closed
}

func (h *Hub) handleSetName(c *Client, m protocol.SetName) {
	if err := h.policy.CheckName(m.Player); err != nil {
		h.log.Debug("Name rejected", "session", c.session.ID, "error", err)
		h.reply(c, protocol.NewNameRejected(err.Error()))
		return
	}

	c.session.Rename(m.Player, m.Team)
	h.reply(c, protocol.NewNameAccepted(m.Player))
}

func (h *Hub) handleSetPixel(c *Client, m protocol.SetPixel) {
	evt, err := h.board.SetCell(m.X, m.Y, m.Color, c.session.DisplayName)
	if err != nil {
		h.log.Debug("Dropping pixel", "session", c.session.ID, "error", err)
		return
	}
	c.session.PixelsPlaced++

	h.publish(protocol.NewPixel(evt), everyone)
}

func (h *Hub) handleChat(c *Client, m protocol.Chat) {
	msg := chat.Message{
		Player: c.session.DisplayName,
		Text:   h.policy.Redact(m.Text),
	}

	switch m.Channel {
	case chat.Team:
		team := c.session.Team
		if team == "" {
			h.log.Debug("Dropping team chat from session without team", "session", c.session.ID)
			return
		}
		msg.Channel = chat.Team
		c.session.ChatsSent++
		h.publish(protocol.NewChatBroadcast(msg), sameTeam(team))
	default:
		h.chat.Append(msg)
		c.session.ChatsSent++
		h.publish(protocol.NewChatBroadcast(msg), everyone)
	}
}

func everyone(*Client) bool { return true }

func sameTeam(team string) func(*Client) bool {
	return func(c *Client) bool { return c.session.Team == team }
}

// reply sends msg to a single client.
func (h *Hub) reply(c *Client, msg any) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("Encoding reply failed", "error", err)
		return
	}
	if !h.safeSend(c, payload) {
		h.removeFailedClients([]*Client{c})
	}
}

// publish encodes msg once and queues it for every registered client
// accepted by the predicate. Clients whose queue is full are dropped
// instead of stalling the loop.
func (h *Hub) publish(msg any, accept func(*Client) bool) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		h.log.Error("Encoding broadcast failed", "error", err)
		return
	}

	clients := h.getClientSnapshot()
	var clientsToRemove []*Client
	for _, client := range clients {
		if !accept(client) {
			continue
		}
		if !h.safeSend(client, payload) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.removeFailedClients(clientsToRemove)
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients removes clients that failed to receive messages and closes their channels
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var removed []*Client
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			removed = append(removed, client)
		}
	}
	h.mutex.Unlock()

	for _, client := range removed {
		close(client.send)
		h.limiter.Forget(client.session.ID)
		h.log.Warn("Client removed due to full send buffer", "addr", client.addr, "session", client.session.ID)
	}
}

// shutdownClients closes every client queue and connection.
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
		client.closed = true
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Debug("Error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	h.log.Info("Closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
