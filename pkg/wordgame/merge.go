package wordgame

import (
	"errors"
	"slices"
)

// ErrFinished rejects mutations after the game reached its terminal state.
var ErrFinished = errors.New("wordgame: game already finished")

// Merge applies a patch to a state and returns the next state along with
// the fields that actually changed. The input state is never mutated.
//
// Once Status is FINISHED the state is frozen: the only patch still accepted
// is an idempotent re-finish (Status=FINISHED and/or Winner), which changes
// nothing. Everything else returns ErrFinished.
func Merge(s GameState, p Patch) (GameState, []Field, error) {
	if s.Status == StatusFinished && !isRefinish(p) {
		return s, nil, ErrFinished
	}

	next := s
	next.FoundWords = slices.Clone(s.FoundWords)
	next.OpponentWords = slices.Clone(s.OpponentWords)
	var changed []Field

	setStr := func(f Field, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, f)
		}
	}
	setInt := func(f Field, dst *int, v *int) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, f)
		}
	}

	setStr(FieldGameID, &next.GameID, p.GameID)
	setStr(FieldLetters, &next.Letters, p.Letters)
	setStr(FieldCurrentWord, &next.CurrentWord, p.CurrentWord)
	setInt(FieldScore, &next.Score, p.Score)
	setInt(FieldOpponentScore, &next.OpponentScore, p.OpponentScore)
	setInt(FieldTimeRemaining, &next.TimeRemaining, p.TimeRemaining)
	setInt(FieldPossibleWords, &next.PossibleWords, p.PossibleWords)
	setStr(FieldOpponentName, &next.OpponentName, p.OpponentName)
	setStr(FieldWinner, &next.Winner, p.Winner)
	setStr(FieldLastOpponentWord, &next.LastOpponentWord, p.LastOpponentWord)
	if p.LastOpponentGain != nil && next.LastOpponentGain != *p.LastOpponentGain {
		next.LastOpponentGain = *p.LastOpponentGain
	}

	if p.OpponentConnected != nil && next.OpponentConnected != *p.OpponentConnected {
		next.OpponentConnected = *p.OpponentConnected
		changed = append(changed, FieldOpponentConnected)
	}
	if p.Status != nil && next.Status != *p.Status {
		next.Status = *p.Status
		changed = append(changed, FieldStatus)
	}

	if appendWords(&next.FoundWords, p.AddFoundWords) {
		changed = append(changed, FieldFoundWords)
	}
	if appendWords(&next.OpponentWords, p.AddOpponentWords) {
		changed = append(changed, FieldOpponentWords)
	}

	return next, changed, nil
}

// appendWords adds entries absent from the list, preserving order.
// Word lists are append-only duplicate-free sets for the session.
func appendWords(list *[]string, add []string) bool {
	grew := false
	for _, w := range add {
		if w == "" || slices.Contains(*list, w) {
			continue
		}
		*list = append(*list, w)
		grew = true
	}
	return grew
}

func isRefinish(p Patch) bool {
	for _, f := range p.Fields() {
		if f != FieldStatus && f != FieldWinner {
			return false
		}
	}
	return p.Status == nil || *p.Status == StatusFinished
}
