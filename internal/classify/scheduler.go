package classify

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// Deliver hands a classified message to the next stage (the state store).
type Deliver func(protocol.ServerMessage, wordgame.Priority)

// Scheduler delivers high-priority messages immediately and debounces the
// rest per kind: only the last message of a kind inside the window goes
// through. Unrelated kinds never hold each other up. A high delivery
// cancels any pending coalesced delivery of the same kind, so a stale
// debounced update can never overwrite a fresher authoritative one.
type Scheduler struct {
	mu      sync.Mutex
	clk     clock.Clock
	log     *zap.Logger
	window  time.Duration
	cls     *Classifier
	deliver Deliver
	pending map[protocol.Kind]*pendingEntry
	closed  bool
}

type pendingEntry struct {
	timer *clock.Timer
	msg   protocol.ServerMessage
	prio  wordgame.Priority
}

func NewScheduler(clk clock.Clock, log *zap.Logger, window time.Duration, deliver Deliver) *Scheduler {
	if window <= 0 {
		window = 50 * time.Millisecond
	}
	return &Scheduler{
		clk:     clk,
		log:     log,
		window:  window,
		cls:     NewClassifier(),
		deliver: deliver,
		pending: map[protocol.Kind]*pendingEntry{},
	}
}

// Offer classifies and routes one inbound message.
func (s *Scheduler) Offer(m protocol.ServerMessage) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prio := s.cls.Classify(m)

	if prio == wordgame.PriorityHigh {
		if e, ok := s.pending[m.Type]; ok {
			e.timer.Stop()
			delete(s.pending, m.Type)
		}
		s.mu.Unlock()
		s.deliver(m, wordgame.PriorityHigh)
		return
	}

	if e, ok := s.pending[m.Type]; ok {
		e.msg = m
		e.prio = prio
		e.timer.Reset(s.window)
		s.mu.Unlock()
		return
	}
	kind := m.Type
	e := &pendingEntry{msg: m, prio: prio}
	e.timer = s.clk.AfterFunc(s.window, func() { s.fire(kind) })
	s.pending[kind] = e
	s.mu.Unlock()
}

func (s *Scheduler) fire(kind protocol.Kind) {
	s.mu.Lock()
	e, ok := s.pending[kind]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.pending, kind)
	msg, prio := e.msg, e.prio
	s.mu.Unlock()
	s.deliver(msg, prio)
}

// Close drops anything still waiting in a window.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for kind, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, kind)
	}
}
