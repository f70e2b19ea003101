package sse

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/libraryhub/library-server/internal/id"
)

const (
	defaultQueueSize    = 1000
	defaultClientBuffer = 100
	defaultHeartbeat    = 30 * time.Second
)

// Client is one open event stream.
type Client struct {
	ID          string
	UserID      string
	IsAdmin     bool
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
}

// accepts reports whether e may be delivered to the client.
// Ledger events are admin-only; user-scoped events reach their user and admins.
func (c *Client) accepts(e Event) bool {
	if c.IsAdmin {
		return true
	}
	if e.Type == EventHistoryAppended {
		return false
	}
	return e.UserID == "" || e.UserID == c.UserID
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeartbeat sets the interval between keepalive broadcasts.
func WithHeartbeat(d time.Duration) Option {
	return func(m *Manager) { m.heartbeat = d }
}

// WithBuffers sets the shared queue size and the per-client buffer size.
func WithBuffers(queue, perClient int) Option {
	return func(m *Manager) {
		m.events = make(chan Event, queue)
		m.clientBuffer = perClient
	}
}

// Manager fans store events out to connected clients.
// Slow clients lose events rather than stalling the broadcast loop.
type Manager struct {
	logger       *slog.Logger
	heartbeat    time.Duration
	clientBuffer int

	mu      sync.RWMutex
	clients map[string]*Client

	// closeMu guards closing events against concurrent Emit.
	closeMu sync.RWMutex
	closed  bool
	events  chan Event

	started  atomic.Bool
	loopDone chan struct{}
}

// NewManager creates a Manager. Call Start to begin broadcasting.
func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		logger:       logger,
		heartbeat:    defaultHeartbeat,
		clientBuffer: defaultClientBuffer,
		clients:      make(map[string]*Client),
		events:       make(chan Event, defaultQueueSize),
		loopDone:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the broadcast loop until ctx is canceled or Shutdown closes the queue.
// It blocks; run it in its own goroutine. Only the first call has any effect.
func (m *Manager) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	defer close(m.loopDone)

	m.logger.Info("SSE manager starting", "heartbeat", m.heartbeat)

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)
		case <-ticker.C:
			m.broadcast(NewHeartbeatEvent())
		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			return
		}
	}
}

// Shutdown refuses further events, delivers what is already queued and
// disconnects every client. It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	if m.closed {
		m.closeMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.events)
	m.closeMu.Unlock()

	if m.started.Load() {
		select {
		case <-m.loopDone:
		case <-ctx.Done():
		}
	}

	// Whatever the loop did not get to.
	drained := 0
drain:
	for {
		select {
		case <-ctx.Done():
			m.logger.Warn("SSE drain timed out, remaining events dropped")
			break drain
		case event, ok := <-m.events:
			if !ok {
				break drain
			}
			m.broadcast(event)
			drained++
		}
	}

	m.closeAllClients()
	m.logger.Info("SSE manager shut down", "drained", drained)
	return nil
}

func (m *Manager) broadcast(event Event) {
	var delivered, filtered, dropped int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.clients {
		if !c.accepts(event) {
			filtered++
			continue
		}
		select {
		case c.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				"client_id", c.ID,
				"event_type", event.Type)
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			"event_type", event.Type,
			slog.Group("clients",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

// Connect registers a client for the given caller.
func (m *Manager) Connect(userID string, isAdmin bool) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		UserID:      userID,
		IsAdmin:     isAdmin,
		ConnectedAt: time.Now(),
		EventChan:   make(chan Event, m.clientBuffer),
		Done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.clients[c.ID] = c
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		"client_id", c.ID,
		"user_id", userID,
		"is_admin", isAdmin,
		"total_clients", total)
	return c, nil
}

// Disconnect removes a client and closes its channels. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
		c.close()
	}
	total := len(m.clients)
	m.mu.Unlock()

	if ok {
		m.logger.Info("SSE client disconnected",
			"client_id", clientID,
			"duration", time.Since(c.ConnectedAt),
			"total_clients", total)
	}
}

// Emit queues an Event for broadcast. It never blocks: when the queue is
// full or the manager is shut down the event is dropped.
// Emit satisfies store.EventEmitter.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("ignoring emitted value that is not an SSE event")
		return
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Error("SSE queue full, dropping event", "event_type", evt.Type)
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clients {
		c.close()
	}
	clear(m.clients)
}

// close must be called with the manager lock held.
func (c *Client) close() {
	close(c.Done)
	close(c.EventChan)
}
