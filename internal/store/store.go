// Package store keeps the reconciled view of game state: a versioned mirror
// of server truth merged with locally staged optimistic patches. All
// mutation funnels through here; the UI and transport only read it or hand
// it patches.
package store

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/internal/storage"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

type Config struct {
	Clock         clock.Clock
	Logger        *zap.Logger
	FlushDebounce time.Duration // normal-priority window
	LowDrain      time.Duration // periodic drain for low priority
	SnapshotTTL   time.Duration // rehydration freshness bound

	Storage storage.Store // optional snapshot persistence
	Key     string        // persistence key, usually the game id

	// OnChange observes every applied state transition. Runs without the
	// store lock held, so observers may stage patches back.
	OnChange func(wordgame.Snapshot)
}

func (c *Config) withDefaults() {
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.FlushDebounce == 0 {
		c.FlushDebounce = 50 * time.Millisecond
	}
	if c.LowDrain == 0 {
		c.LowDrain = 500 * time.Millisecond
	}
	if c.SnapshotTTL == 0 {
		c.SnapshotTTL = 30 * time.Second
	}
}

type Store struct {
	cfg Config
	clk clock.Clock
	log *zap.Logger

	mu         sync.Mutex
	state      wordgame.GameState
	version    int
	capturedAt time.Time
	buffer     []wordgame.Patch
	flushTimer *clock.Timer
	// lastAuth pins fields written by a high-priority patch: a buffered
	// normal/low patch created before that write loses those fields.
	lastAuth      map[wordgame.Field]time.Time
	lastPersisted int
	closed        bool

	drain     *clock.Ticker
	drainStop chan struct{}
}

func New(cfg Config, initial wordgame.GameState) *Store {
	cfg.withDefaults()
	s := &Store{
		cfg:      cfg,
		clk:      cfg.Clock,
		log:      cfg.Logger,
		state:    initial,
		lastAuth: map[wordgame.Field]time.Time{},
	}
	s.drain = s.clk.Ticker(cfg.LowDrain)
	s.drainStop = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.drain.C:
				s.Flush()
			case <-s.drainStop:
				return
			}
		}
	}()
	return s
}

// Stage routes a patch by priority: high applies immediately, normal joins
// the debounced flush, low waits for the periodic drain.
func (s *Store) Stage(p wordgame.Patch, prio wordgame.Priority) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.clk.Now()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	switch prio {
	case wordgame.PriorityHigh:
		snap, changed := s.applyLocked([]wordgame.Patch{p}, true)
		s.mu.Unlock()
		if changed {
			s.emit(snap)
		}
		return
	case wordgame.PriorityNormal:
		s.buffer = append(s.buffer, p)
		if s.flushTimer == nil {
			s.flushTimer = s.clk.AfterFunc(s.cfg.FlushDebounce, s.Flush)
		}
	default:
		s.buffer = append(s.buffer, p)
	}
	s.mu.Unlock()
}

// Flush applies everything buffered as one state transition. Later patches
// win on conflicting fields; fields pinned by a newer high-priority write
// are dropped from older buffered patches.
func (s *Store) Flush() {
	s.mu.Lock()
	if s.closed || len(s.buffer) == 0 {
		if s.flushTimer != nil {
			s.flushTimer.Stop()
			s.flushTimer = nil
		}
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = nil
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	snap, changed := s.applyLocked(batch, false)
	s.mu.Unlock()
	if changed {
		s.emit(snap)
	}
}

// applyLocked merges patches in arrival order with a single version bump.
// Caller holds s.mu.
func (s *Store) applyLocked(batch []wordgame.Patch, pin bool) (wordgame.Snapshot, bool) {
	next := s.state
	anyChange := false
	for _, p := range batch {
		if !pin {
			drop := map[wordgame.Field]bool{}
			for _, f := range p.Fields() {
				if at, ok := s.lastAuth[f]; ok && !at.Before(p.CreatedAt) {
					drop[f] = true
				}
			}
			p = p.Drop(drop)
			if p.IsZero() {
				continue
			}
		}
		merged, changed, err := wordgame.Merge(next, p)
		if err != nil {
			// Terminal state: late patches are logged and discarded.
			s.log.Debug("discarding patch after finish", zap.Error(err))
			continue
		}
		next = merged
		if len(changed) > 0 {
			anyChange = true
		}
		if pin {
			now := s.clk.Now()
			for _, f := range p.Fields() {
				s.lastAuth[f] = now
			}
		}
	}
	if !anyChange {
		return wordgame.Snapshot{}, false
	}
	s.state = next
	s.version++
	s.capturedAt = s.clk.Now()
	snap := wordgame.Snapshot{Version: s.version, CapturedAt: s.capturedAt, State: s.state}
	s.persistLocked(snap)
	return snap, true
}

func (s *Store) emit(snap wordgame.Snapshot) {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(snap)
	}
}

// State returns a copy of the current view.
func (s *Store) State() wordgame.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current versioned snapshot.
func (s *Store) Snapshot() wordgame.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wordgame.Snapshot{Version: s.version, CapturedAt: s.capturedAt, State: s.state}
}

// Rehydrate loads a persisted snapshot if one exists and is fresh enough.
// Stale or corrupt snapshots are removed and ignored. Returns whether a
// snapshot was loaded; the caller should follow a load with an
// authoritative state request to reconcile drift.
func (s *Store) Rehydrate() bool {
	if s.cfg.Storage == nil || s.cfg.Key == "" {
		return false
	}
	data, ok, err := s.cfg.Storage.Get(s.cfg.Key)
	if err != nil || !ok {
		return false
	}
	var snap wordgame.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Warn("discarding corrupt snapshot", zap.Error(err))
		_ = s.cfg.Storage.Remove(s.cfg.Key)
		return false
	}
	if s.clk.Now().Sub(snap.CapturedAt) > s.cfg.SnapshotTTL {
		_ = s.cfg.Storage.Remove(s.cfg.Key)
		return false
	}

	s.mu.Lock()
	s.state = snap.State
	s.version = snap.Version
	s.capturedAt = snap.CapturedAt
	s.lastPersisted = snap.Version
	s.mu.Unlock()
	s.emit(snap)
	return true
}

// persistLocked writes the snapshot through, best effort. Never regresses:
// a lower version does not overwrite a higher persisted one.
func (s *Store) persistLocked(snap wordgame.Snapshot) {
	if s.cfg.Storage == nil || s.cfg.Key == "" || snap.Version <= s.lastPersisted {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.cfg.Storage.Set(s.cfg.Key, data); err != nil {
		s.log.Warn("snapshot persist failed", zap.Error(err))
		return
	}
	s.lastPersisted = snap.Version
}

// Close flushes what's pending, persists the final snapshot, and stops the
// drain ticker.
func (s *Store) Close() {
	s.Flush()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.drain.Stop()
	close(s.drainStop)
	if s.version > 0 {
		snap := wordgame.Snapshot{Version: s.version, CapturedAt: s.capturedAt, State: s.state}
		s.lastPersisted = 0 // force the final write
		s.persistLocked(snap)
	}
	s.mu.Unlock()
}
