package wordgame

import "time"

// Status is the game lifecycle. FINISHED is terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// StatusFromString maps a wire gameStatus value onto a Status.
func StatusFromString(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusFinished:
		return Status(s), true
	default:
		return "", false
	}
}

// Priority orders how staged patches reach the state.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// GameState is the canonical view the UI renders. It is only ever mutated
// through Merge; everything else holds copies.
type GameState struct {
	GameID            string   `json:"gameId"`
	Letters           string   `json:"letters"`
	CurrentWord       string   `json:"currentWord"`
	FoundWords        []string `json:"foundWords"`
	OpponentWords     []string `json:"opponentWords"`
	Score             int      `json:"score"`
	OpponentScore     int      `json:"opponentScore"`
	TimeRemaining     int      `json:"timeRemaining"` // seconds
	PossibleWords     int      `json:"possibleWords"`
	Status            Status   `json:"status"`
	OpponentName      string   `json:"opponentName"`
	OpponentConnected bool     `json:"opponentConnected"`
	Winner            string   `json:"winner"`
	LastOpponentWord  string   `json:"lastOpponentWord"`
	LastOpponentGain  int      `json:"lastOpponentGain"`
}

// NewGameState returns the pre-match view for one game.
func NewGameState(gameID string) GameState {
	return GameState{
		GameID:        gameID,
		Status:        StatusPending,
		FoundWords:    []string{},
		OpponentWords: []string{},
	}
}

// Snapshot is a versioned, point-in-time copy of GameState, usable for
// persistence across reloads.
type Snapshot struct {
	Version    int       `json:"version"`
	CapturedAt time.Time `json:"capturedAt"`
	State      GameState `json:"state"`
}
