package client

import (
	"math/rand"
	"strings"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// JoinQueue asks to be matched against another player. Returns whether the
// message went out immediately (false means it was queued for reconnect).
func (c *Client) JoinQueue() bool {
	return c.session.Send(protocol.KindJoinQueue, nil)
}

func (c *Client) LeaveQueue() bool {
	return c.session.Send(protocol.KindLeaveQueue, nil)
}

// JoinGame enters a specific game, typically after QUEUE_MATCHED.
func (c *Client) JoinGame(gameID string) bool {
	c.mu.Lock()
	c.gameID = gameID
	c.practice = false
	c.mu.Unlock()
	return c.session.Send(protocol.KindJoinGame, protocol.ClientMessage{GameID: gameID})
}

// RequestState asks for a fresh authoritative snapshot.
func (c *Client) RequestState() bool {
	c.mu.Lock()
	gameID := c.gameID
	c.mu.Unlock()
	return c.session.Send(protocol.KindRequestState, protocol.ClientMessage{GameID: gameID})
}

// StartPractice opens a single-player session.
func (c *Client) StartPractice() bool {
	c.mu.Lock()
	c.practice = true
	c.mu.Unlock()
	return c.session.Send(protocol.KindStartPractice, nil)
}

func (c *Client) EndPractice() bool {
	c.mu.Lock()
	c.practice = false
	c.mu.Unlock()
	return c.session.Send(protocol.KindEndPractice, nil)
}

// TapLetter appends a letter from the dealt set to the in-progress word.
// Letters not in the current set are ignored.
func (c *Client) TapLetter(letter rune) {
	st := c.store.State()
	up := strings.ToUpper(string(letter))
	if !strings.Contains(st.Letters, up) {
		return
	}
	word := st.CurrentWord + up
	c.stageWord(word)
}

// DeleteLetter removes the last letter of the in-progress word.
func (c *Client) DeleteLetter() {
	st := c.store.State()
	if st.CurrentWord == "" {
		return
	}
	c.stageWord(st.CurrentWord[:len(st.CurrentWord)-1])
}

// Shuffle permutes the displayed letters. Purely cosmetic.
func (c *Client) Shuffle() {
	st := c.store.State()
	if len(st.Letters) < 2 {
		return
	}
	letters := []rune(st.Letters)
	rand.Shuffle(len(letters), func(i, j int) {
		letters[i], letters[j] = letters[j], letters[i]
	})
	shuffled := string(letters)
	c.store.Stage(wordgame.Patch{
		Tier:      wordgame.TierSpeculative,
		CreatedAt: c.clk.Now(),
		Letters:   &shuffled,
	}, wordgame.PriorityNormal)
}

// SubmitWord sends the in-progress word and optimistically pre-applies its
// likely point value (one point per letter). The authoritative
// WORD_SUBMISSION_RESULT supersedes the guess either way.
func (c *Client) SubmitWord() bool {
	st := c.store.State()
	word := st.CurrentWord
	if word == "" {
		return false
	}

	guess := st.Score + len(word)
	empty := ""
	c.store.Stage(wordgame.Patch{
		Tier:        wordgame.TierSpeculative,
		CreatedAt:   c.clk.Now(),
		Score:       &guess,
		CurrentWord: &empty,
	}, wordgame.PriorityNormal)

	c.mu.Lock()
	kind := protocol.KindSubmitWord
	if c.practice {
		kind = protocol.KindSubmitPractice
	}
	gameID := c.gameID
	c.mu.Unlock()
	return c.session.Send(kind, protocol.ClientMessage{GameID: gameID, Word: word})
}

func (c *Client) stageWord(word string) {
	c.store.Stage(wordgame.Patch{
		Tier:        wordgame.TierSpeculative,
		CreatedAt:   c.clk.Now(),
		CurrentWord: &word,
	}, wordgame.PriorityNormal)
}
