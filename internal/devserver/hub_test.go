package devserver

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(context.Background(), clock.NewMock(), zap.NewNop(), nil)
	t.Cleanup(func() { h.Inbox() <- ShutdownHub{} })
	return h
}

func TestHubMatchesTwoWaiters(t *testing.T) {
	h := newTestHub(t)

	out1, out2 := newOutbox(), newOutbox()
	h.Inbox() <- JoinQueue{Identity: "p1", Outbox: out1}
	h.Inbox() <- JoinQueue{Identity: "p2", Outbox: out2}

	m1 := recvKind(t, out1, protocol.KindQueueMatched)
	m2 := recvKind(t, out2, protocol.KindQueueMatched)
	if m1.GameID == "" || m1.GameID != m2.GameID {
		t.Fatalf("game ids: %q vs %q", m1.GameID, m2.GameID)
	}

	reply := make(chan *Room, 1)
	h.Inbox() <- GetRoom{ID: m1.GameID, Reply: reply}
	if room := <-reply; room == nil {
		t.Fatal("matched room should be registered")
	}
}

func TestHubRequeueKeepsLatestOutbox(t *testing.T) {
	h := newTestHub(t)

	stale, fresh, out2 := newOutbox(), newOutbox(), newOutbox()
	h.Inbox() <- JoinQueue{Identity: "p1", Outbox: stale}
	h.Inbox() <- JoinQueue{Identity: "p1", Outbox: fresh}
	h.Inbox() <- JoinQueue{Identity: "p2", Outbox: out2}

	recvKind(t, fresh, protocol.KindQueueMatched)
	recvKind(t, out2, protocol.KindQueueMatched)
	expectQuiet(t, stale, protocol.KindQueueMatched)
}

func TestHubLeaveQueueCancelsWaiting(t *testing.T) {
	h := newTestHub(t)

	out1, out2 := newOutbox(), newOutbox()
	h.Inbox() <- JoinQueue{Identity: "p1", Outbox: out1}
	h.Inbox() <- LeaveQueue{Identity: "p1"}
	h.Inbox() <- JoinQueue{Identity: "p2", Outbox: out2}

	expectQuiet(t, out1, protocol.KindQueueMatched)
	expectQuiet(t, out2, protocol.KindQueueMatched)
}

func TestHubStartPractice(t *testing.T) {
	h := newTestHub(t)

	reply := make(chan *Room, 1)
	h.Inbox() <- StartPractice{Identity: "p1", Reply: reply}
	room := <-reply
	if room == nil {
		t.Fatal("practice should create a room")
	}

	out := newOutbox()
	room.Inbox() <- Join{Identity: "p1", Outbox: out}
	snap := recvKind(t, out, protocol.KindGameState)
	if *snap.GameStatus != "active" {
		t.Fatalf("practice status = %s, want active", *snap.GameStatus)
	}

	lookup := make(chan *Room, 1)
	h.Inbox() <- GetRoom{ID: room.ID(), Reply: lookup}
	if got := <-lookup; got != room {
		t.Fatal("practice room should be registered under its id")
	}
}

func TestHubGetRoomUnknownID(t *testing.T) {
	h := newTestHub(t)

	reply := make(chan *Room, 1)
	h.Inbox() <- GetRoom{ID: "nope", Reply: reply}
	select {
	case room := <-reply:
		if room != nil {
			t.Fatalf("unknown id returned %v", room)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lookup reply")
	}
}
