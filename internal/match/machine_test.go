package match

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

type harness struct {
	mu        sync.Mutex
	staged    []wordgame.Patch
	prios     []wordgame.Priority
	requests  int
	finished  []wordgame.GameState
	m         *Machine
	mock      *clock.Mock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{mock: clock.NewMock()}
	h.m = New(Config{
		Clock: h.mock,
		RequestState: func() {
			h.mu.Lock()
			h.requests++
			h.mu.Unlock()
		},
		Stage: func(p wordgame.Patch, prio wordgame.Priority) {
			h.mu.Lock()
			h.staged = append(h.staged, p)
			h.prios = append(h.prios, prio)
			h.mu.Unlock()
		},
		OnFinished: func(st wordgame.GameState) {
			h.mu.Lock()
			h.finished = append(h.finished, st)
			h.mu.Unlock()
		},
	})
	t.Cleanup(h.m.Close)
	return h
}

func (h *harness) stagedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.staged)
}

func (h *harness) stagedStatus() []wordgame.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []wordgame.Status
	for _, p := range h.staged {
		if p.Status != nil {
			out = append(out, *p.Status)
		}
	}
	return out
}

func (h *harness) requestCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

func (h *harness) finishedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.finished)
}

func snap(st wordgame.GameState) wordgame.Snapshot {
	return wordgame.Snapshot{Version: 1, State: st}
}

func TestActivatesWhenOpponentAndLettersPresent(t *testing.T) {
	h := newHarness(t)

	st := wordgame.NewGameState("g1")
	h.m.Observe(snap(st))
	if h.stagedCount() != 0 {
		t.Fatalf("bare pending state staged %d patches", h.stagedCount())
	}

	st.OpponentConnected = true
	h.m.Observe(snap(st))
	if h.stagedCount() != 0 {
		t.Fatalf("opponent without letters staged %d patches", h.stagedCount())
	}

	st.Letters = "ACTSER"
	h.m.Observe(snap(st))
	sts := h.stagedStatus()
	if len(sts) != 1 || sts[0] != wordgame.StatusActive {
		t.Fatalf("staged statuses = %v, want one ACTIVE", sts)
	}

	// A repeat of the same pending view does not stage again.
	h.m.Observe(snap(st))
	if got := h.stagedStatus(); len(got) != 1 {
		t.Fatalf("activation staged twice: %v", got)
	}
}

func TestCountdownTicksWhileActive(t *testing.T) {
	h := newHarness(t)

	st := wordgame.NewGameState("g1")
	st.Status = wordgame.StatusActive
	st.TimeRemaining = 90
	h.m.Observe(snap(st))

	for i := 0; i < 3; i++ {
		h.mock.Add(time.Second)
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		n := 0
		for _, p := range h.staged {
			if p.TimeRemaining != nil {
				n++
			}
		}
		return n >= 3
	}, 2*time.Second, 5*time.Millisecond, "countdown never ticked")

	h.mu.Lock()
	var last *int
	for _, p := range h.staged {
		if p.TimeRemaining != nil {
			last = p.TimeRemaining
		}
	}
	h.mu.Unlock()
	if last == nil || *last != 87 {
		t.Fatalf("last predicted time = %v, want 87", last)
	}
	// Predicted ticks ride the low-priority drain.
	h.mu.Lock()
	for i, p := range h.staged {
		if p.TimeRemaining != nil && h.prios[i] != wordgame.PriorityLow {
			t.Errorf("tick %d staged at %v, want low", i, h.prios[i])
		}
	}
	h.mu.Unlock()
}

func TestPredictedExpiryFinishesOnce(t *testing.T) {
	h := newHarness(t)

	st := wordgame.NewGameState("g1")
	st.Status = wordgame.StatusActive
	st.TimeRemaining = 2
	h.m.Observe(snap(st))

	for i := 0; i < 2; i++ {
		h.mock.Add(time.Second)
		time.Sleep(5 * time.Millisecond)
	}
	require.Eventually(t, func() bool {
		for _, s := range h.stagedStatus() {
			if s == wordgame.StatusFinished {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "expiry never predicted")

	// The server's own end event arrives after the prediction.
	st.Status = wordgame.StatusFinished
	st.Winner = "p1"
	h.m.Observe(snap(st))
	h.m.Observe(snap(st))
	if h.finishedCount() != 1 {
		t.Fatalf("OnFinished fired %d times, want 1", h.finishedCount())
	}
}

func TestNoExpiryWithoutObservedDeadline(t *testing.T) {
	h := newHarness(t)

	// ACTIVE but the server never sent a time value.
	st := wordgame.NewGameState("g1")
	st.Status = wordgame.StatusActive
	h.m.Observe(snap(st))

	h.mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	for _, s := range h.stagedStatus() {
		if s == wordgame.StatusFinished {
			t.Fatal("predicted a finish with no deadline ever observed")
		}
	}
}

func TestStuckPendingGuardRequestsState(t *testing.T) {
	h := newHarness(t)

	h.m.SetConnected(true)
	h.m.Observe(snap(wordgame.NewGameState("g1")))

	h.mock.Add(10 * time.Second)
	require.Eventually(t, func() bool { return h.requestCount() == 1 },
		2*time.Second, 5*time.Millisecond, "guard never fired")

	// Still pending: the guard re-arms and asks again.
	h.mock.Add(10 * time.Second)
	require.Eventually(t, func() bool { return h.requestCount() == 2 },
		2*time.Second, 5*time.Millisecond, "guard did not re-arm")

	// Going ACTIVE disarms it.
	st := wordgame.NewGameState("g1")
	st.Status = wordgame.StatusActive
	st.TimeRemaining = 90
	h.m.Observe(snap(st))
	h.mock.Add(30 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if h.requestCount() != 2 {
		t.Fatalf("guard fired while active: %d requests", h.requestCount())
	}
}

func TestGuardOnlyRunsWhileConnected(t *testing.T) {
	h := newHarness(t)

	h.m.Observe(snap(wordgame.NewGameState("g1")))
	h.mock.Add(30 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if h.requestCount() != 0 {
		t.Fatalf("guard fired while disconnected: %d requests", h.requestCount())
	}

	h.m.SetConnected(true)
	h.mock.Add(10 * time.Second)
	require.Eventually(t, func() bool { return h.requestCount() == 1 },
		2*time.Second, 5*time.Millisecond, "guard never fired after connect")

	h.m.SetConnected(false)
	h.mock.Add(30 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if h.requestCount() != 1 {
		t.Fatalf("guard fired after disconnect: %d requests", h.requestCount())
	}
}

func TestCloseStopsEverything(t *testing.T) {
	h := newHarness(t)

	st := wordgame.NewGameState("g1")
	st.Status = wordgame.StatusActive
	st.TimeRemaining = 90
	h.m.Observe(snap(st))
	h.m.Close()

	before := h.stagedCount()
	h.mock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if h.stagedCount() != before {
		t.Fatal("countdown staged after close")
	}
	h.m.Observe(snap(st))
	if h.m.Status() != wordgame.StatusActive {
		t.Fatalf("status = %v", h.m.Status())
	}
}
