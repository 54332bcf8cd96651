// Package client is the public face of the session layer. A Client owns one
// logical game session: it keeps the connection alive across drops, reduces
// the inbound event stream into a consistent GameState, and lets callers
// mutate that state optimistically ahead of server confirmation.
//
// Clients are explicitly constructed and independently closeable; nothing
// here is a process-wide singleton, so tests (and screens) can run several
// side by side.
package client

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/internal/classify"
	"github.com/WallyThePenguin/wordscape-client/internal/match"
	"github.com/WallyThePenguin/wordscape-client/internal/storage"
	"github.com/WallyThePenguin/wordscape-client/internal/store"
	"github.com/WallyThePenguin/wordscape-client/internal/transport"
	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// ErrNoIdentity means the caller must re-authenticate before opening a
// session; the client never invents one.
var ErrNoIdentity = errors.New("client: missing identity")

type Config struct {
	ServerURL string

	// SnapshotKey keys the persisted snapshot; empty disables persistence.
	SnapshotKey string
	Storage     storage.Store

	Logger *zap.Logger
	Clock  clock.Clock
	Dialer transport.Dialer // test hook

	// Timing knobs; zero values take the documented defaults.
	DialTimeout     time.Duration
	WriteTimeout    time.Duration
	Heartbeat       time.Duration
	ConnectThrottle time.Duration
	MaxAttempts     int
	CoalesceWindow  time.Duration
	FlushDebounce   time.Duration
	LowDrain        time.Duration
	SnapshotTTL     time.Duration
	PendingGuard    time.Duration

	// OnError receives transport-level failures. Only
	// transport.ErrRetriesExhausted means the session stopped trying;
	// everything else is recoverable and already being retried.
	OnError func(error)
	// OnWordRejected is the transient negative acknowledgment for a word
	// the server refused; it is unrelated to connectivity.
	OnWordRejected func(word string)
}

type Client struct {
	cfg Config
	log *zap.Logger
	clk clock.Clock

	session *transport.Session
	sched   *classify.Scheduler
	store   *store.Store
	machine *match.Machine

	// Transport callbacks only enqueue here; a dedicated dispatcher
	// goroutine does the actual handling, so handlers are free to call
	// back into the session without stalling its loop.
	events chan any
	stop   chan struct{}

	mu        sync.Mutex
	subs      []func(wordgame.Snapshot)
	connSubs  []func(transport.Status)
	identity  string
	gameID    string
	practice  bool
	opened    bool
	closeOnce sync.Once
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	c := &Client{
		cfg:    cfg,
		log:    cfg.Logger,
		clk:    cfg.Clock,
		events: make(chan any, 256),
		stop:   make(chan struct{}),
	}

	c.store = store.New(store.Config{
		Clock:         cfg.Clock,
		Logger:        cfg.Logger.Named("store"),
		FlushDebounce: cfg.FlushDebounce,
		LowDrain:      cfg.LowDrain,
		SnapshotTTL:   cfg.SnapshotTTL,
		Storage:       cfg.Storage,
		Key:           cfg.SnapshotKey,
		OnChange:      c.onChange,
	}, wordgame.NewGameState(""))

	c.machine = match.New(match.Config{
		Clock:        cfg.Clock,
		Logger:       cfg.Logger.Named("match"),
		PendingGuard: cfg.PendingGuard,
		RequestState: func() { c.RequestState() },
		Stage:        c.store.Stage,
		OnFinished:   func(wordgame.GameState) {},
	})

	c.sched = classify.NewScheduler(cfg.Clock, cfg.Logger.Named("classify"),
		cfg.CoalesceWindow, c.deliver)

	c.session = transport.NewSession(transport.Config{
		URL:             cfg.ServerURL,
		DialTimeout:     cfg.DialTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		Heartbeat:       cfg.Heartbeat,
		ConnectThrottle: cfg.ConnectThrottle,
		MaxAttempts:     cfg.MaxAttempts,
		Clock:           cfg.Clock,
		Logger:          cfg.Logger.Named("transport"),
		Dialer:          cfg.Dialer,
		OnMessage:       func(m protocol.ServerMessage) { c.push(m) },
		OnStatus:        func(st transport.Status) { c.push(st) },
		OnError:         func(err error) { c.push(err) },
	})
	go c.dispatch()
	return c
}

// push enqueues without ever blocking the session loop; on overflow the
// oldest event is dropped, which degrades advisory updates gracefully.
func (c *Client) push(v any) {
	select {
	case c.events <- v:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- v:
		default:
		}
	}
}

func (c *Client) dispatch() {
	for {
		select {
		case v := <-c.events:
			switch ev := v.(type) {
			case protocol.ServerMessage:
				c.onMessage(ev)
			case transport.Status:
				c.onStatus(ev)
			case error:
				c.onError(ev)
			}
		case <-c.stop:
			return
		}
	}
}

// Open starts the session for the given identity. If a fresh persisted
// snapshot exists it is loaded synchronously and an authoritative state
// request is queued to reconcile any drift.
func (c *Client) Open(identity string) error {
	if identity == "" {
		return ErrNoIdentity
	}
	c.mu.Lock()
	c.identity = identity
	c.opened = true
	c.mu.Unlock()

	rehydrated := c.store.Rehydrate()
	c.session.Connect(identity)
	if rehydrated {
		// Queued if the dial hasn't finished; flushed on connect.
		c.RequestState()
	}
	return nil
}

// Close tears everything down and persists the final snapshot.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.session.Close()
		close(c.stop)
		c.sched.Close()
		c.machine.Close()
		c.store.Close()
	})
}

// Reconnect restarts the connection after the retry budget was exhausted.
func (c *Client) Reconnect() {
	c.mu.Lock()
	id := c.identity
	c.mu.Unlock()
	if id != "" {
		c.session.Connect(id)
	}
}

// State returns the current reconciled view.
func (c *Client) State() wordgame.GameState { return c.store.State() }

// ConnectionState reports the transport lifecycle.
func (c *Client) ConnectionState() transport.Status { return c.session.Status() }

// Subscribe registers a GameState observer and invokes it once immediately
// with the current snapshot.
func (c *Client) Subscribe(fn func(wordgame.Snapshot)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
	fn(c.store.Snapshot())
}

// SubscribeConnection registers a ConnectionState observer.
func (c *Client) SubscribeConnection(fn func(transport.Status)) {
	c.mu.Lock()
	c.connSubs = append(c.connSubs, fn)
	c.mu.Unlock()
	fn(c.session.Status())
}

// onMessage runs on the dispatcher goroutine for every parsed inbound frame.
func (c *Client) onMessage(m protocol.ServerMessage) {
	switch m.Type {
	case protocol.KindQueueMatched:
		if m.GameID != "" {
			c.mu.Lock()
			c.gameID = m.GameID
			c.practice = false
			c.mu.Unlock()
			c.session.Send(protocol.KindJoinGame, protocol.ClientMessage{GameID: m.GameID})
		}
	case protocol.KindWordSubmissionResult:
		if m.Success != nil && !*m.Success && m.Word != nil && c.cfg.OnWordRejected != nil {
			c.cfg.OnWordRejected(*m.Word)
		}
	case protocol.KindError:
		c.log.Warn("server error", zap.String("error", m.Error))
	}
	c.sched.Offer(m)
}

// deliver is the scheduler's output: translate and stage.
func (c *Client) deliver(m protocol.ServerMessage, prio wordgame.Priority) {
	patch, err := wordgame.FromServer(m, c.clk.Now())
	if err != nil {
		// Classifier boundary: a malformed field drops, the session lives.
		c.log.Warn("partial inbound message", zap.String("type", string(m.Type)), zap.Error(err))
	}
	if !patch.IsZero() {
		c.store.Stage(patch, prio)
	}
}

func (c *Client) onChange(snap wordgame.Snapshot) {
	c.machine.Observe(snap)
	c.mu.Lock()
	subs := make([]func(wordgame.Snapshot), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Client) onStatus(st transport.Status) {
	c.machine.SetConnected(st == transport.StatusConnected)
	c.mu.Lock()
	subs := make([]func(transport.Status), len(c.connSubs))
	copy(subs, c.connSubs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func (c *Client) onError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}
