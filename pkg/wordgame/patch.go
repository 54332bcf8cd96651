package wordgame

import "time"

// Tier distinguishes locally staged guesses from server truth. An
// authoritative write pins a field so older speculative patches can never
// re-apply over it after a reconnect replay.
type Tier int

const (
	TierSpeculative Tier = iota
	TierAuthoritative
)

// Field names one patchable GameState field, used for provenance tracking.
type Field string

const (
	FieldGameID            Field = "gameId"
	FieldLetters           Field = "letters"
	FieldCurrentWord       Field = "currentWord"
	FieldScore             Field = "score"
	FieldOpponentScore     Field = "opponentScore"
	FieldFoundWords        Field = "foundWords"
	FieldOpponentWords     Field = "opponentWords"
	FieldTimeRemaining     Field = "timeRemaining"
	FieldPossibleWords     Field = "possibleWords"
	FieldStatus            Field = "status"
	FieldOpponentName      Field = "opponentName"
	FieldOpponentConnected Field = "opponentConnected"
	FieldWinner            Field = "winner"
	FieldLastOpponentWord  Field = "lastOpponentWord"
)

// Patch is a partial update to GameState. Nil pointer means "leave alone".
// Word lists are append-only, so patches carry additions, never replacements.
type Patch struct {
	Tier      Tier
	CreatedAt time.Time

	GameID            *string
	Letters           *string
	CurrentWord       *string
	Score             *int
	OpponentScore     *int
	AddFoundWords     []string
	AddOpponentWords  []string
	TimeRemaining     *int
	PossibleWords     *int
	Status            *Status
	OpponentName      *string
	OpponentConnected *bool
	Winner            *string
	LastOpponentWord  *string
	LastOpponentGain  *int
}

// Fields lists which fields this patch touches.
func (p Patch) Fields() []Field {
	var fs []Field
	if p.GameID != nil {
		fs = append(fs, FieldGameID)
	}
	if p.Letters != nil {
		fs = append(fs, FieldLetters)
	}
	if p.CurrentWord != nil {
		fs = append(fs, FieldCurrentWord)
	}
	if p.Score != nil {
		fs = append(fs, FieldScore)
	}
	if p.OpponentScore != nil {
		fs = append(fs, FieldOpponentScore)
	}
	if len(p.AddFoundWords) > 0 {
		fs = append(fs, FieldFoundWords)
	}
	if len(p.AddOpponentWords) > 0 {
		fs = append(fs, FieldOpponentWords)
	}
	if p.TimeRemaining != nil {
		fs = append(fs, FieldTimeRemaining)
	}
	if p.PossibleWords != nil {
		fs = append(fs, FieldPossibleWords)
	}
	if p.Status != nil {
		fs = append(fs, FieldStatus)
	}
	if p.OpponentName != nil {
		fs = append(fs, FieldOpponentName)
	}
	if p.OpponentConnected != nil {
		fs = append(fs, FieldOpponentConnected)
	}
	if p.Winner != nil {
		fs = append(fs, FieldWinner)
	}
	if p.LastOpponentWord != nil {
		fs = append(fs, FieldLastOpponentWord)
	}
	return fs
}

// IsZero reports whether the patch touches nothing.
func (p Patch) IsZero() bool { return len(p.Fields()) == 0 }

// Drop returns a copy of the patch with the named fields removed.
func (p Patch) Drop(fields map[Field]bool) Patch {
	out := p
	if fields[FieldGameID] {
		out.GameID = nil
	}
	if fields[FieldLetters] {
		out.Letters = nil
	}
	if fields[FieldCurrentWord] {
		out.CurrentWord = nil
	}
	if fields[FieldScore] {
		out.Score = nil
	}
	if fields[FieldOpponentScore] {
		out.OpponentScore = nil
	}
	if fields[FieldFoundWords] {
		out.AddFoundWords = nil
	}
	if fields[FieldOpponentWords] {
		out.AddOpponentWords = nil
	}
	if fields[FieldTimeRemaining] {
		out.TimeRemaining = nil
	}
	if fields[FieldPossibleWords] {
		out.PossibleWords = nil
	}
	if fields[FieldStatus] {
		out.Status = nil
	}
	if fields[FieldOpponentName] {
		out.OpponentName = nil
	}
	if fields[FieldOpponentConnected] {
		out.OpponentConnected = nil
	}
	if fields[FieldWinner] {
		out.Winner = nil
	}
	if fields[FieldLastOpponentWord] {
		out.LastOpponentWord = nil
		out.LastOpponentGain = nil
	}
	return out
}
