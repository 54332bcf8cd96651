// Package match tracks the game lifecycle the UI observes: PENDING while
// waiting for an opponent, ACTIVE during play, FINISHED forever after. It
// watches store transitions and contributes its own predicted ones: a local
// one-second countdown to mask server latency, and a stuck-pending guard
// that re-requests authoritative state rather than fabricating any.
package match

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

type Config struct {
	Clock        clock.Clock
	Logger       *zap.Logger
	PendingGuard time.Duration

	// RequestState asks the server for a fresh authoritative view.
	RequestState func()
	// Stage feeds a locally predicted patch into the store.
	Stage func(wordgame.Patch, wordgame.Priority)
	// OnFinished fires exactly once on entry to FINISHED, even when the
	// predicted expiry and the server's end event both arrive.
	OnFinished func(wordgame.GameState)
}

func (c *Config) withDefaults() {
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.PendingGuard == 0 {
		c.PendingGuard = 10 * time.Second
	}
}

type Machine struct {
	cfg Config
	clk clock.Clock
	log *zap.Logger

	mu            sync.Mutex
	status        wordgame.Status
	connected     bool
	remaining     int
	sawDeadline   bool // a positive time value has been observed
	activated     bool // derived-activation patch already staged
	finishedFired bool
	closed        bool

	countdown     *clock.Ticker
	countdownStop chan struct{}
	guard         *clock.Timer
}

func New(cfg Config) *Machine {
	cfg.withDefaults()
	return &Machine{
		cfg:    cfg,
		clk:    cfg.Clock,
		log:    cfg.Logger,
		status: wordgame.StatusPending,
	}
}

// SetConnected gates the stuck-pending guard: it only runs while the
// transport is actually up, since re-requesting state over a dead socket
// just grows the outbound queue.
func (m *Machine) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.connected = connected
	if connected && m.status == wordgame.StatusPending {
		m.armGuardLocked()
	} else if !connected {
		m.stopGuardLocked()
	}
}

// Observe reacts to every applied store transition.
func (m *Machine) Observe(snap wordgame.Snapshot) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	st := snap.State

	// Authoritative (or echoed local) countdown correction.
	m.remaining = st.TimeRemaining
	if st.TimeRemaining > 0 {
		m.sawDeadline = true
	}

	m.status = st.Status

	var stageActive bool
	if st.Status == wordgame.StatusPending && !m.activated && wordgame.ShouldActivate(st) {
		m.activated = true
		stageActive = true
	}

	var fireFinished bool
	if st.Status == wordgame.StatusFinished && !m.finishedFired {
		m.finishedFired = true
		fireFinished = true
	}

	switch st.Status {
	case wordgame.StatusActive:
		m.stopGuardLocked()
		m.startCountdownLocked()
	case wordgame.StatusPending:
		if m.connected {
			m.armGuardLocked()
		}
	case wordgame.StatusFinished:
		m.stopGuardLocked()
		m.stopCountdownLocked()
	}
	m.mu.Unlock()

	if stageActive {
		m.log.Info("activating from opponent + letters", zap.String("game", st.GameID))
		active := wordgame.StatusActive
		m.cfg.Stage(wordgame.Patch{
			Tier:      wordgame.TierSpeculative,
			CreatedAt: m.clk.Now(),
			Status:    &active,
		}, wordgame.PriorityHigh)
	}
	if fireFinished {
		m.log.Info("game finished",
			zap.String("game", st.GameID), zap.String("winner", st.Winner))
		if m.cfg.OnFinished != nil {
			m.cfg.OnFinished(st)
		}
	}
}

// Status returns the machine's current lifecycle state.
func (m *Machine) Status() wordgame.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) startCountdownLocked() {
	if m.countdown != nil {
		return
	}
	m.countdown = m.clk.Ticker(time.Second)
	m.countdownStop = make(chan struct{})
	tick, stop := m.countdown.C, m.countdownStop
	go func() {
		for {
			select {
			case <-tick:
				m.tick()
			case <-stop:
				return
			}
		}
	}()
}

func (m *Machine) stopCountdownLocked() {
	if m.countdown == nil {
		return
	}
	m.countdown.Stop()
	close(m.countdownStop)
	m.countdown = nil
	m.countdownStop = nil
}

// tick decrements the displayed clock once per second while ACTIVE. It is
// purely predictive: any authoritative time value overrides it on arrival.
func (m *Machine) tick() {
	m.mu.Lock()
	if m.closed || m.status != wordgame.StatusActive {
		m.mu.Unlock()
		return
	}
	if m.remaining > 0 {
		m.remaining--
	}
	rem := m.remaining
	expired := rem == 0 && m.sawDeadline
	m.mu.Unlock()

	remCopy := rem
	m.cfg.Stage(wordgame.Patch{
		Tier:          wordgame.TierSpeculative,
		CreatedAt:     m.clk.Now(),
		TimeRemaining: &remCopy,
	}, wordgame.PriorityLow)

	if expired {
		// Predicted expiry; the server's end event, if later, is idempotent.
		finished := wordgame.StatusFinished
		m.cfg.Stage(wordgame.Patch{
			Tier:      wordgame.TierSpeculative,
			CreatedAt: m.clk.Now(),
			Status:    &finished,
		}, wordgame.PriorityHigh)
	}
}

func (m *Machine) armGuardLocked() {
	if m.guard != nil {
		return
	}
	m.guard = m.clk.AfterFunc(m.cfg.PendingGuard, m.guardFired)
}

func (m *Machine) stopGuardLocked() {
	if m.guard != nil {
		m.guard.Stop()
		m.guard = nil
	}
}

// guardFired re-requests authoritative state when we've sat in PENDING too
// long while connected, then re-arms. Recovery aid only; it invents nothing.
func (m *Machine) guardFired() {
	m.mu.Lock()
	stuck := !m.closed && m.connected && m.status == wordgame.StatusPending
	m.guard = nil
	if stuck {
		m.guard = m.clk.AfterFunc(m.cfg.PendingGuard, m.guardFired)
	}
	m.mu.Unlock()
	if stuck {
		m.log.Info("still pending, re-requesting state")
		if m.cfg.RequestState != nil {
			m.cfg.RequestState()
		}
	}
}

// Close cancels all timers. Further observations are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopGuardLocked()
	m.stopCountdownLocked()
}
