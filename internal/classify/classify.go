// Package classify assigns inbound events a priority and coalesces rapid
// repeats of advisory kinds before they reach the state store. Decisive
// events (a word landed, the game ended) bypass coalescing entirely.
package classify

import (
	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// Kinds that are always game-critical, regardless of payload.
var highKinds = map[protocol.Kind]bool{
	protocol.KindQueueMatched:         true,
	protocol.KindOpponentJoined:       true,
	protocol.KindOpponentLeft:         true,
	protocol.KindOpponentScored:       true,
	protocol.KindWordSubmissionResult: true,
	protocol.KindGameEnd:              true,
}

// Classifier derives a priority for each inbound message. It remembers the
// last message per kind so an advisory snapshot that actually moves the
// game (new letters, score change, a word list that grew, a lifecycle
// status flip) is promoted to high instead of sitting in a debounce window.
type Classifier struct {
	lastSeen map[protocol.Kind]protocol.ServerMessage
}

func NewClassifier() *Classifier {
	return &Classifier{lastSeen: map[protocol.Kind]protocol.ServerMessage{}}
}

func (c *Classifier) Classify(m protocol.ServerMessage) wordgame.Priority {
	prev, seen := c.lastSeen[m.Type]
	c.lastSeen[m.Type] = m

	if highKinds[m.Type] {
		return wordgame.PriorityHigh
	}
	if lettersChanged(prev, m, seen) ||
		scoreChanged(prev, m, seen) ||
		wordListGrew(prev, m, seen) ||
		statusChanged(prev, m, seen) {
		return wordgame.PriorityHigh
	}
	return wordgame.PriorityNormal
}

func lettersChanged(prev, m protocol.ServerMessage, seen bool) bool {
	if m.Letters == nil {
		return false
	}
	return !seen || prev.Letters == nil || *prev.Letters != *m.Letters
}

func scoreChanged(prev, m protocol.ServerMessage, seen bool) bool {
	changed := func(a, b *int) bool {
		if b == nil {
			return false
		}
		return !seen || a == nil || *a != *b
	}
	return changed(prev.Score, m.Score) || changed(prev.OpponentScore, m.OpponentScore)
}

func wordListGrew(prev, m protocol.ServerMessage, seen bool) bool {
	if !seen {
		return len(m.FoundWords) > 0 || len(m.OpponentWords) > 0
	}
	return len(m.FoundWords) > len(prev.FoundWords) ||
		len(m.OpponentWords) > len(prev.OpponentWords)
}

func statusChanged(prev, m protocol.ServerMessage, seen bool) bool {
	if m.GameStatus == nil {
		return false
	}
	return !seen || prev.GameStatus == nil || *prev.GameStatus != *m.GameStatus
}
