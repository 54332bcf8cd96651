package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/WallyThePenguin/wordscape-client/internal/storage"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

type changeLog struct {
	mu    sync.Mutex
	snaps []wordgame.Snapshot
}

func (l *changeLog) record(s wordgame.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *changeLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.snaps)
}

func (l *changeLog) last() wordgame.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snaps) == 0 {
		return wordgame.Snapshot{}
	}
	return l.snaps[len(l.snaps)-1]
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func newTestStore(t *testing.T, mock *clock.Mock, st storage.Store) (*Store, *changeLog) {
	t.Helper()
	log := &changeLog{}
	s := New(Config{
		Clock:    mock,
		Storage:  st,
		Key:      "g1",
		OnChange: log.record,
	}, wordgame.NewGameState("g1"))
	t.Cleanup(s.Close)
	return s, log
}

func TestStageHighAppliesImmediately(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	s.Stage(wordgame.Patch{Score: intp(9)}, wordgame.PriorityHigh)

	if got := s.State().Score; got != 9 {
		t.Fatalf("score = %d, want 9", got)
	}
	if log.count() != 1 {
		t.Fatalf("changes = %d, want 1", log.count())
	}
	if v := log.last().Version; v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
}

func TestStageNormalCoalescesInWindow(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	for _, n := range []int{1, 2, 3} {
		s.Stage(wordgame.Patch{Score: intp(n)}, wordgame.PriorityNormal)
	}
	if log.count() != 0 {
		t.Fatalf("emitted inside the debounce window: %d", log.count())
	}

	mock.Add(50 * time.Millisecond)
	if log.count() != 1 {
		t.Fatalf("changes = %d, want one batched transition", log.count())
	}
	snap := log.last()
	if snap.State.Score != 3 {
		t.Fatalf("score = %d, want last write to win", snap.State.Score)
	}
	if snap.Version != 1 {
		t.Fatalf("version = %d, want a single bump for the batch", snap.Version)
	}
}

func TestHighPinBeatsBufferedNormal(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	// An optimistic guess sits in the window; the server's verdict for the
	// same field lands meanwhile.
	s.Stage(wordgame.Patch{Score: intp(5)}, wordgame.PriorityNormal)
	s.Stage(wordgame.Patch{Score: intp(9)}, wordgame.PriorityHigh)

	mock.Add(50 * time.Millisecond)
	if got := s.State().Score; got != 9 {
		t.Fatalf("score = %d, want the authoritative 9 to stand", got)
	}
	// One change for the high apply; the flush had nothing left to say.
	if log.count() != 1 {
		t.Fatalf("changes = %d, want 1", log.count())
	}
}

func TestPinDropsOnlyContestedFields(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	s.Stage(wordgame.Patch{Score: intp(5), CurrentWord: strp("CAT")}, wordgame.PriorityNormal)
	s.Stage(wordgame.Patch{Score: intp(9)}, wordgame.PriorityHigh)

	mock.Add(50 * time.Millisecond)
	st := s.State()
	if st.Score != 9 {
		t.Fatalf("score = %d, want 9", st.Score)
	}
	if st.CurrentWord != "CAT" {
		t.Fatalf("currentWord = %q, the unpinned field should apply", st.CurrentWord)
	}
	if log.count() != 2 {
		t.Fatalf("changes = %d, want high apply + partial flush", log.count())
	}
}

func TestLowWaitsForDrain(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	s.Stage(wordgame.Patch{TimeRemaining: intp(90)}, wordgame.PriorityLow)

	// The debounce window passing is not enough; low has no timer of its own.
	mock.Add(100 * time.Millisecond)
	if log.count() != 0 {
		t.Fatalf("low applied before the drain: %d changes", log.count())
	}

	mock.Add(400 * time.Millisecond) // drain tick at 500ms
	require.Eventually(t, func() bool { return log.count() == 1 },
		2*time.Second, 5*time.Millisecond, "drain never applied the low patch")
	if got := s.State().TimeRemaining; got != 90 {
		t.Fatalf("timeRemaining = %d, want 90", got)
	}
}

func TestTerminalStateDiscardsLatePatches(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	fin := wordgame.StatusFinished
	s.Stage(wordgame.Patch{Status: &fin, Winner: strp("p2")}, wordgame.PriorityHigh)
	before := log.count()

	s.Stage(wordgame.Patch{Score: intp(99)}, wordgame.PriorityHigh)
	if got := s.State().Score; got != 0 {
		t.Fatalf("score = %d, finished game must not move", got)
	}
	if log.count() != before {
		t.Fatalf("late patch emitted a change")
	}
}

func TestPersistAndRehydrateFresh(t *testing.T) {
	mock := clock.NewMock()
	mem := storage.NewMemStore()
	s, _ := newTestStore(t, mock, mem)

	letters := "ACTSER"
	s.Stage(wordgame.Patch{Letters: &letters, Score: intp(6)}, wordgame.PriorityHigh)
	s.Close()

	// A new store for the same key inside the freshness bound picks it up.
	mock.Add(10 * time.Second)
	s2, log2 := newTestStore(t, mock, mem)
	if !s2.Rehydrate() {
		t.Fatal("fresh snapshot should rehydrate")
	}
	st := s2.State()
	if st.Letters != "ACTSER" || st.Score != 6 {
		t.Fatalf("rehydrated state = %+v", st)
	}
	if s2.Snapshot().Version != 1 {
		t.Fatalf("version = %d, want the persisted version", s2.Snapshot().Version)
	}
	if log2.count() != 1 {
		t.Fatalf("rehydrate should emit the loaded snapshot once, got %d", log2.count())
	}
}

func TestRehydrateRejectsStale(t *testing.T) {
	mock := clock.NewMock()
	mem := storage.NewMemStore()
	s, _ := newTestStore(t, mock, mem)

	s.Stage(wordgame.Patch{Score: intp(6)}, wordgame.PriorityHigh)
	s.Close()

	mock.Add(31 * time.Second)
	s2, _ := newTestStore(t, mock, mem)
	if s2.Rehydrate() {
		t.Fatal("stale snapshot must not rehydrate")
	}
	if _, ok, _ := mem.Get("g1"); ok {
		t.Fatal("stale snapshot should be removed from storage")
	}
}

func TestRehydrateRejectsCorrupt(t *testing.T) {
	mock := clock.NewMock()
	mem := storage.NewMemStore()
	require.NoError(t, mem.Set("g1", []byte("{broken")))

	s, _ := newTestStore(t, mock, mem)
	if s.Rehydrate() {
		t.Fatal("corrupt snapshot must not rehydrate")
	}
	if _, ok, _ := mem.Get("g1"); ok {
		t.Fatal("corrupt snapshot should be removed from storage")
	}
}

func TestPersistNeverRegresses(t *testing.T) {
	mock := clock.NewMock()
	mem := storage.NewMemStore()
	s, _ := newTestStore(t, mock, mem)

	s.Stage(wordgame.Patch{Score: intp(1)}, wordgame.PriorityHigh)
	s.Stage(wordgame.Patch{Score: intp(2)}, wordgame.PriorityHigh)

	data, ok, err := mem.Get("g1")
	require.NoError(t, err)
	require.True(t, ok)
	var snap wordgame.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	if snap.Version != 2 || snap.State.Score != 2 {
		t.Fatalf("persisted snapshot = %+v", snap)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	mock := clock.NewMock()
	s, log := newTestStore(t, mock, nil)

	s.Stage(wordgame.Patch{Score: intp(4)}, wordgame.PriorityNormal)
	s.Close()

	if got := s.State().Score; got != 4 {
		t.Fatalf("score = %d, close should flush the buffer", got)
	}
	if log.count() != 1 {
		t.Fatalf("changes = %d, want 1", log.count())
	}
	// Staging after close is a no-op.
	s.Stage(wordgame.Patch{Score: intp(8)}, wordgame.PriorityHigh)
	if got := s.State().Score; got != 4 {
		t.Fatalf("score moved after close: %d", got)
	}
}
