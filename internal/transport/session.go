// Package transport owns the physical websocket: connection lifecycle,
// backoff and retry, keep-alive, and outbound queueing while disconnected.
// One Session is one logical connection for one identity; it runs as a
// single goroutine reading an inbox, so all state below is loop-owned.
package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
)

type Config struct {
	URL             string
	DialTimeout     time.Duration
	WriteTimeout    time.Duration
	Heartbeat       time.Duration
	ConnectThrottle time.Duration
	MaxAttempts     int

	Clock  clock.Clock
	Logger *zap.Logger
	Dialer Dialer

	// Callbacks run on the session goroutine and must not block.
	OnMessage func(protocol.ServerMessage)
	OnStatus  func(Status)
	OnError   func(error)
}

func (c *Config) withDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = 30 * time.Second
	}
	if c.ConnectThrottle == 0 {
		c.ConnectThrottle = 300 * time.Millisecond
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Dialer == nil {
		c.Dialer = DefaultDialer
	}
}

type outbound struct {
	kind    protocol.Kind
	payload any
}

// loop messages
type connectMsg struct{ identity string }
type sendMsg struct {
	kind    protocol.Kind
	payload any
	reply   chan bool
}
type closeMsg struct{ done chan struct{} }
type dialDone struct {
	gen  int
	conn Conn
	err  error
}
type inboundMsg struct {
	gen  int
	data []byte
}
type readerDone struct {
	gen int
	err error
}

type Session struct {
	cfg Config
	log *zap.Logger
	clk clock.Clock

	inbox     chan any
	done      chan struct{}
	closeOnce sync.Once
	status    atomic.Int32

	// loop-owned from here down
	m          Machine
	conn       Conn
	gen        int
	dialCancel context.CancelFunc
	queue      []outbound

	dialTimer    *clock.Timer
	dialTimerGen int
	retryTimer   *clock.Timer
	throttle     *clock.Timer
	heartbeat    *clock.Ticker

	lastAttempt time.Time
	pendingIDs  []string
}

func NewSession(cfg Config) *Session {
	cfg.withDefaults()
	s := &Session{
		cfg:   cfg,
		log:   cfg.Logger,
		clk:   cfg.Clock,
		inbox: make(chan any, 64),
		done:  make(chan struct{}),
		m:     Machine{MaxAttempts: cfg.MaxAttempts},
	}
	go s.loop()
	return s
}

// Connect opens (or reuses) the connection for the given identity. Calling
// it while already connected with the same identity is a no-op.
func (s *Session) Connect(identity string) {
	select {
	case s.inbox <- connectMsg{identity: identity}:
	case <-s.done:
	}
}

// Send transmits immediately when connected and reports whether it did.
// While disconnected the message is queued for the next connection and a
// connection attempt is kicked off if none is in progress.
func (s *Session) Send(kind protocol.Kind, payload any) bool {
	reply := make(chan bool, 1)
	select {
	case s.inbox <- sendMsg{kind: kind, payload: payload, reply: reply}:
	case <-s.done:
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-s.done:
		return false
	}
}

// Status is safe to call from any goroutine.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// Close tears the session down: cancels timers, detaches the reader, and
// closes the socket. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		done := make(chan struct{})
		s.inbox <- closeMsg{done: done}
		<-done
	})
}

func (s *Session) loop() {
	for {
		var dialC, retryC, throttleC, hbC <-chan time.Time
		if s.dialTimer != nil {
			dialC = s.dialTimer.C
		}
		if s.retryTimer != nil {
			retryC = s.retryTimer.C
		}
		if s.throttle != nil {
			throttleC = s.throttle.C
		}
		if s.heartbeat != nil {
			hbC = s.heartbeat.C
		}

		select {
		case m := <-s.inbox:
			switch msg := m.(type) {
			case connectMsg:
				s.handleConnect(msg.identity)

			case sendMsg:
				msg.reply <- s.handleSend(msg.kind, msg.payload)

			case dialDone:
				s.handleDialDone(msg)

			case inboundMsg:
				if msg.gen != s.gen {
					break // frame from a torn-down socket
				}
				sm, err := protocol.Decode(msg.data)
				if err != nil {
					s.log.Warn("dropping unparseable frame", zap.Error(err))
					s.report(&ParseError{Err: err})
					break
				}
				if s.cfg.OnMessage != nil {
					s.cfg.OnMessage(sm)
				}

			case readerDone:
				if msg.gen != s.gen {
					break
				}
				s.conn = nil
				if isNormalClosure(msg.err) {
					s.apply(s.m.Step(Event{Kind: EvConnClosed}))
				} else {
					s.log.Info("connection lost", zap.Error(msg.err))
					s.report(&ConnectionError{Err: msg.err})
					s.apply(s.m.Step(Event{Kind: EvConnLost, Err: msg.err}))
				}

			case closeMsg:
				s.apply(s.m.Step(Event{Kind: EvClose}))
				s.stopTimer(&s.dialTimer)
				s.stopTimer(&s.retryTimer)
				s.stopTimer(&s.throttle)
				if s.dialCancel != nil {
					s.dialCancel()
				}
				close(s.done)
				close(msg.done)
				return
			}

		case <-dialC:
			s.dialTimer = nil
			if s.dialTimerGen != s.gen {
				break
			}
			// Abort the in-flight dial; a late success would be stale.
			if s.dialCancel != nil {
				s.dialCancel()
			}
			s.gen++
			s.log.Info("dial timed out")
			s.report(&ConnectionError{Err: ErrDialTimeout})
			s.apply(s.m.Step(Event{Kind: EvDialTimeout}))

		case <-retryC:
			s.retryTimer = nil
			s.apply(s.m.Step(Event{Kind: EvRetryDue}))

		case <-throttleC:
			s.throttle = nil
			if len(s.pendingIDs) == 0 {
				break
			}
			id := s.pendingIDs[0]
			s.pendingIDs = s.pendingIDs[1:]
			s.lastAttempt = s.clk.Now()
			s.apply(s.m.Step(Event{Kind: EvConnect, Identity: id}))
			if len(s.pendingIDs) > 0 {
				s.throttle = s.clk.Timer(s.cfg.ConnectThrottle)
			}

		case <-hbC:
			if s.conn == nil {
				break
			}
			if err := s.writeFrame(protocol.KindPing, nil); err != nil {
				s.report(&ConnectionError{Err: err})
				s.apply(s.m.Step(Event{Kind: EvConnLost, Err: err}))
			}
		}
	}
}

// handleConnect serializes connect requests: calls landing inside the
// throttle window are queued and drained one per window, so simultaneous
// UI effects cannot fire competing dials.
func (s *Session) handleConnect(identity string) {
	now := s.clk.Now()
	if !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.cfg.ConnectThrottle {
		s.pendingIDs = append(s.pendingIDs, identity)
		if s.throttle == nil {
			s.throttle = s.clk.Timer(s.cfg.ConnectThrottle - now.Sub(s.lastAttempt))
		}
		return
	}
	s.lastAttempt = now
	s.apply(s.m.Step(Event{Kind: EvConnect, Identity: identity}))
}

func (s *Session) handleSend(kind protocol.Kind, payload any) bool {
	if s.m.Status == StatusConnected && s.conn != nil {
		err := s.writeFrame(kind, payload)
		if err == nil {
			return true
		}
		s.queue = append(s.queue, outbound{kind: kind, payload: payload})
		s.report(&ConnectionError{Err: err})
		s.apply(s.m.Step(Event{Kind: EvConnLost, Err: err}))
		return false
	}
	s.queue = append(s.queue, outbound{kind: kind, payload: payload})
	if s.m.Status == StatusDisconnected && s.m.Identity != "" {
		s.handleConnect(s.m.Identity)
	}
	return false
}

func (s *Session) handleDialDone(msg dialDone) {
	if msg.gen != s.gen {
		if msg.conn != nil {
			_ = msg.conn.Close(websocket.StatusNormalClosure, "stale dial")
		}
		return
	}
	s.stopTimer(&s.dialTimer)
	s.dialCancel = nil
	if msg.err != nil {
		s.log.Info("dial failed", zap.Error(msg.err))
		s.report(&ConnectionError{Err: msg.err})
		s.apply(s.m.Step(Event{Kind: EvDialError, Err: msg.err}))
		return
	}
	s.conn = msg.conn
	s.startReader(msg.gen, msg.conn)
	s.log.Info("connected", zap.String("identity", s.m.Identity))
	s.apply(s.m.Step(Event{Kind: EvDialOK}))
}

func (s *Session) apply(actions []Action) {
	for _, a := range actions {
		switch a.Kind {
		case ActDial:
			s.startDial()
		case ActCloseConn:
			s.closeConn()
		case ActArmDialTimeout:
			s.stopTimer(&s.dialTimer)
			s.dialTimer = s.clk.Timer(s.cfg.DialTimeout)
			s.dialTimerGen = s.gen
		case ActArmRetry:
			s.stopTimer(&s.retryTimer)
			s.retryTimer = s.clk.Timer(a.Delay)
			s.log.Info("reconnect scheduled",
				zap.Int("attempt", s.m.Attempt), zap.Duration("in", a.Delay))
		case ActHeartbeatOn:
			s.stopHeartbeat()
			s.heartbeat = s.clk.Ticker(s.cfg.Heartbeat)
		case ActHeartbeatOff:
			s.stopHeartbeat()
		case ActFlushQueue:
			s.flushQueue()
		case ActReport:
			s.log.Warn("giving up on reconnect", zap.Error(a.Err))
			s.report(a.Err)
		}
	}
	s.publishStatus()
}

func (s *Session) startDial() {
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.dialCancel = cancel
	url := s.cfg.URL
	dial := s.cfg.Dialer
	go func() {
		conn, err := dial(ctx, url)
		select {
		case s.inbox <- dialDone{gen: gen, conn: conn, err: err}:
		case <-s.done:
			if conn != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
			}
		}
	}()
}

// startReader pumps frames into the inbox, tagged with the connection
// generation so frames from a replaced socket are discarded.
func (s *Session) startReader(gen int, conn Conn) {
	go func() {
		for {
			data, err := conn.Read(context.Background())
			if err != nil {
				select {
				case s.inbox <- readerDone{gen: gen, err: err}:
				case <-s.done:
				}
				return
			}
			select {
			case s.inbox <- inboundMsg{gen: gen, data: data}:
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Session) flushQueue() {
	for len(s.queue) > 0 {
		ob := s.queue[0]
		if err := s.writeFrame(ob.kind, ob.payload); err != nil {
			s.report(&ConnectionError{Err: err})
			s.apply(s.m.Step(Event{Kind: EvConnLost, Err: err}))
			return
		}
		s.queue = s.queue[1:]
	}
}

func (s *Session) writeFrame(kind protocol.Kind, payload any) error {
	data, err := protocol.Envelope(kind, s.m.Identity, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	return s.conn.Write(ctx, data)
}

func (s *Session) closeConn() {
	// Bump the generation first so the old reader's frames are ignored.
	s.gen++
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "bye")
		s.conn = nil
	}
}

func (s *Session) stopTimer(t **clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (s *Session) stopHeartbeat() {
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
}

func (s *Session) publishStatus() {
	old := Status(s.status.Swap(int32(s.m.Status)))
	if old != s.m.Status && s.cfg.OnStatus != nil {
		s.cfg.OnStatus(s.m.Status)
	}
}

func (s *Session) report(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
