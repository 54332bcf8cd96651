package wordgame

import (
	"fmt"
	"time"

	"github.com/WallyThePenguin/wordscape-client/pkg/protocol"
)

// FromServer converts an inbound server message into an authoritative patch.
// A malformed timeRemaining is dropped from the patch and reported through
// the returned error; the rest of the message still applies.
func FromServer(m protocol.ServerMessage, now time.Time) (Patch, error) {
	p := Patch{Tier: TierAuthoritative, CreatedAt: now}
	var err error

	if m.GameID != "" {
		p.GameID = strptr(m.GameID)
	}
	p.Letters = m.Letters
	p.Score = m.Score
	p.OpponentScore = m.OpponentScore
	p.AddFoundWords = m.FoundWords
	p.AddOpponentWords = m.OpponentWords
	p.OpponentConnected = m.OpponentConnected
	p.OpponentName = m.OpponentName
	p.PossibleWords = m.PossibleWords

	if m.GameStatus != nil {
		if st, ok := StatusFromString(*m.GameStatus); ok {
			p.Status = &st
		} else {
			err = fmt.Errorf("wordgame: unknown gameStatus %q", *m.GameStatus)
		}
	}
	if m.Winner != nil {
		p.Winner = m.Winner
	}
	if m.TimeRemaining != nil {
		if secs, perr := protocol.ParseClock(*m.TimeRemaining); perr == nil {
			p.TimeRemaining = &secs
		} else {
			err = perr
		}
	}

	switch m.Type {
	case protocol.KindOpponentJoined:
		p.OpponentConnected = boolptr(true)
	case protocol.KindOpponentLeft:
		p.OpponentConnected = boolptr(false)
	case protocol.KindOpponentScored:
		if m.Word != nil {
			p.AddOpponentWords = append(p.AddOpponentWords, *m.Word)
			p.LastOpponentWord = m.Word
		}
		if m.Points != nil {
			p.LastOpponentGain = m.Points
		}
	case protocol.KindWordSubmissionResult:
		// The word was consumed either way; clear the in-progress entry.
		p.CurrentWord = strptr("")
		if m.Success != nil && *m.Success && m.Word != nil {
			p.AddFoundWords = append(p.AddFoundWords, *m.Word)
		}
	case protocol.KindGameEnd:
		st := StatusFinished
		p.Status = &st
	}

	return p, err
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }
