package devserver

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
)

// HubMsg is the actor inbox vocabulary for the hub.
type HubMsg interface{ isHubMsg() }

type JoinQueue struct {
	Identity string
	Outbox   chan protocol.ServerMessage
}

type LeaveQueue struct{ Identity string }

type GetRoom struct {
	ID    string
	Reply chan *Room
}

type StartPractice struct {
	Identity string
	Reply    chan *Room
}

type RemoveRoom struct{ ID string }

type ShutdownHub struct{}

func (JoinQueue) isHubMsg()     {}
func (LeaveQueue) isHubMsg()    {}
func (GetRoom) isHubMsg()       {}
func (StartPractice) isHubMsg() {}
func (RemoveRoom) isHubMsg()    {}
func (ShutdownHub) isHubMsg()   {}

type waiting struct {
	identity string
	out      chan protocol.ServerMessage
}

// Hub owns the room registry and the matchmaking queue, one goroutine.
type Hub struct {
	inbox   chan HubMsg
	rooms   map[string]*Room
	queue   []waiting
	clk     clock.Clock
	log     *zap.Logger
	archive *Archive
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, clk clock.Clock, log *zap.Logger, archive *Archive) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   map[string]*Room{},
		clk:     clk,
		log:     log,
		archive: archive,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case JoinQueue:
				h.joinQueue(msg)

			case LeaveQueue:
				for i, w := range h.queue {
					if w.identity == msg.Identity {
						h.queue = append(h.queue[:i], h.queue[i+1:]...)
						break
					}
				}

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case StartPractice:
				room := h.newRoom(true)
				msg.Reply <- room

			case RemoveRoom:
				delete(h.rooms, msg.ID)

			case ShutdownHub:
				for _, r := range h.rooms {
					r.Inbox() <- Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

// joinQueue pairs the newcomer with whoever is waiting, or parks them.
func (h *Hub) joinQueue(msg JoinQueue) {
	for len(h.queue) > 0 {
		w := h.queue[0]
		h.queue = h.queue[1:]
		if w.identity == msg.Identity {
			continue // re-queued; keep only the latest outbox
		}
		room := h.newRoom(false)
		h.log.Info("matched", zap.String("game", room.ID()),
			zap.String("a", w.identity), zap.String("b", msg.Identity))
		matched := protocol.ServerMessage{Type: protocol.KindQueueMatched, GameID: room.ID()}
		deliver(w.out, matched)
		deliver(msg.Outbox, matched)
		return
	}
	h.queue = append(h.queue, waiting{identity: msg.Identity, out: msg.Outbox})
}

func (h *Hub) newRoom(practice bool) *Room {
	id := strings.Split(uuid.NewString(), "-")[0]
	var onFinish func(Result)
	if h.archive != nil {
		onFinish = h.archive.Save
	}
	room := NewRoom(h.ctx, id, practice, h.clk, h.log.Named("room"), onFinish)
	h.rooms[id] = room
	return room
}

func deliver(out chan protocol.ServerMessage, msg protocol.ServerMessage) {
	select {
	case out <- msg:
	default:
	}
}
