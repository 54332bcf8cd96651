package devserver

import (
	"context"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// RoomMsg is the actor inbox vocabulary for one game room.
type RoomMsg interface{ isRoomMsg() }

type Join struct {
	Identity string
	Name     string
	Outbox   chan protocol.ServerMessage
}

type Leave struct{ Identity string }

type Submit struct {
	Identity string
	Word     string
}

type ReqState struct{ Identity string }

type Shutdown struct{}

func (Join) isRoomMsg()     {}
func (Leave) isRoomMsg()    {}
func (Submit) isRoomMsg()   {}
func (ReqState) isRoomMsg() {}
func (Shutdown) isRoomMsg() {}

type player struct {
	name      string
	score     int
	words     []string
	connected bool
	out       chan protocol.ServerMessage
}

// Room runs one game as a single goroutine owning all its state.
type Room struct {
	inbox chan RoomMsg

	id        string
	letters   string
	possible  int
	remaining int
	status    wordgame.Status
	players   map[string]*player
	practice  bool

	clk    clock.Clock
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// onFinish runs once when the game ends, e.g. to archive the result.
	onFinish func(Result)
}

// Result summarizes a finished game.
type Result struct {
	GameID  string
	Winner  string
	Players map[string]int // identity -> final score
}

const gameSeconds = 120

func NewRoom(parent context.Context, id string, practice bool, clk clock.Clock, log *zap.Logger, onFinish func(Result)) *Room {
	ctx, cancel := context.WithCancel(parent)
	letters := letterSets[rand.Intn(len(letterSets))]
	r := &Room{
		inbox:     make(chan RoomMsg, 64),
		id:        id,
		letters:   letters,
		possible:  possibleWords(letters),
		remaining: gameSeconds,
		status:    wordgame.StatusPending,
		players:   map[string]*player{},
		practice:  practice,
		clk:       clk,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		onFinish:  onFinish,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- RoomMsg { return r.inbox }
func (r *Room) ID() string            { return r.id }

func (r *Room) loop() {
	ticker := r.clk.Ticker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			r.tick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.join(msg)
			case Leave:
				r.leave(msg.Identity)
			case Submit:
				r.submit(msg.Identity, msg.Word)
			case ReqState:
				if p, ok := r.players[msg.Identity]; ok {
					r.sendTo(msg.Identity, p, r.snapshotFor(msg.Identity))
				}
			case Shutdown:
				r.cancel()
				return
			}
		}
	}
}

func (r *Room) join(msg Join) {
	p, ok := r.players[msg.Identity]
	if !ok {
		p = &player{name: msg.Name}
		r.players[msg.Identity] = p
	}
	p.connected = true
	p.out = msg.Outbox
	if p.name == "" {
		p.name = msg.Identity
	}

	// Tell the other side someone arrived.
	for id, other := range r.players {
		if id == msg.Identity {
			continue
		}
		name := p.name
		r.sendTo(id, other, protocol.ServerMessage{
			Type:         protocol.KindOpponentJoined,
			GameID:       r.id,
			OpponentName: &name,
		})
	}

	if r.status == wordgame.StatusPending && (r.practice || r.fullHouse()) {
		r.status = wordgame.StatusActive
	}
	r.broadcastState()
}

func (r *Room) leave(identity string) {
	p, ok := r.players[identity]
	if !ok {
		return
	}
	p.connected = false
	p.out = nil
	for id, other := range r.players {
		if id == identity {
			continue
		}
		r.sendTo(id, other, protocol.ServerMessage{
			Type:   protocol.KindOpponentLeft,
			GameID: r.id,
		})
	}
	if r.practice {
		r.cancel()
	}
}

func (r *Room) submit(identity, word string) {
	p, ok := r.players[identity]
	if !ok || r.status != wordgame.StatusActive {
		return
	}
	w := normalize(word)
	ok = validWord(w, r.letters) && !contains(p.words, w)
	success := ok
	if ok {
		p.words = append(p.words, w)
		p.score += points(w)
	}

	score := p.score
	r.sendTo(identity, p, protocol.ServerMessage{
		Type:    protocol.KindWordSubmissionResult,
		GameID:  r.id,
		Word:    &w,
		Success: &success,
		Score:   &score,
	})
	if !success {
		return
	}

	pts := points(w)
	for id, other := range r.players {
		if id == identity {
			continue
		}
		oppScore := p.score
		r.sendTo(id, other, protocol.ServerMessage{
			Type:          protocol.KindOpponentScored,
			GameID:        r.id,
			Word:          &w,
			Points:        &pts,
			OpponentScore: &oppScore,
		})
	}
}

func (r *Room) tick() {
	if r.status != wordgame.StatusActive {
		return
	}
	r.remaining--
	if r.remaining <= 0 {
		r.finish()
		return
	}
	// Advisory refresh. Clients smooth the clock locally; this corrects
	// drift and carries any state they may have missed.
	if r.remaining%5 == 0 {
		r.broadcastState()
	}
}

func (r *Room) finish() {
	r.remaining = 0
	r.status = wordgame.StatusFinished
	winner := r.winner()

	for id, p := range r.players {
		msg := r.snapshotFor(id)
		msg.Type = protocol.KindGameEnd
		msg.Winner = &winner
		r.sendTo(id, p, msg)
	}

	if r.onFinish != nil {
		res := Result{GameID: r.id, Winner: winner, Players: map[string]int{}}
		for id, p := range r.players {
			res.Players[id] = p.score
		}
		r.onFinish(res)
	}
	r.cancel()
}

func (r *Room) winner() string {
	best, winner := -1, ""
	tied := false
	for _, p := range r.players {
		switch {
		case p.score > best:
			best, winner, tied = p.score, p.name, false
		case p.score == best:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return winner
}

func (r *Room) snapshotFor(identity string) protocol.ServerMessage {
	self := r.players[identity]
	status := string(r.status)
	remaining := protocol.FormatClock(r.remaining)
	letters := r.letters
	possible := r.possible
	score := self.score

	msg := protocol.ServerMessage{
		Type:          protocol.KindGameState,
		GameID:        r.id,
		Letters:       &letters,
		Score:         &score,
		FoundWords:    self.words,
		GameStatus:    &status,
		PossibleWords: &possible,
		TimeRemaining: &remaining,
	}
	for id, other := range r.players {
		if id == identity {
			continue
		}
		oppScore := other.score
		oppName := other.name
		oppConn := other.connected
		msg.OpponentScore = &oppScore
		msg.OpponentName = &oppName
		msg.OpponentConnected = &oppConn
		msg.OpponentWords = other.words
	}
	return msg
}

func (r *Room) broadcastState() {
	for id, p := range r.players {
		r.sendTo(id, p, r.snapshotFor(id))
	}
}

// sendTo drops slow or disconnected clients rather than blocking the room.
func (r *Room) sendTo(identity string, p *player, msg protocol.ServerMessage) {
	if p.out == nil {
		return
	}
	select {
	case p.out <- msg:
	default:
		r.log.Warn("dropping slow client", zap.String("identity", identity))
		p.connected = false
		p.out = nil
	}
}

func (r *Room) fullHouse() bool {
	n := 0
	for _, p := range r.players {
		if p.connected {
			n++
		}
	}
	return n >= 2
}
