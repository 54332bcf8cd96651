package protocol

import "encoding/json"

// Kind is a wire message type, shared by both directions.
type Kind string

// Client -> Server
const (
	KindPing           Kind = "PING"
	KindJoinQueue      Kind = "JOIN_QUEUE"
	KindLeaveQueue     Kind = "LEAVE_QUEUE"
	KindJoinGame       Kind = "JOIN_GAME"
	KindSubmitWord     Kind = "SUBMIT_WORD"
	KindRequestState   Kind = "REQUEST_STATE"
	KindStartPractice  Kind = "START_PRACTICE"
	KindSubmitPractice Kind = "SUBMIT_PRACTICE"
	KindEndPractice    Kind = "END_PRACTICE"
)

// Server -> Client
const (
	KindQueueMatched         Kind = "QUEUE_MATCHED"
	KindGameState            Kind = "GAME_STATE"
	KindOpponentJoined       Kind = "OPPONENT_JOINED"
	KindOpponentLeft         Kind = "OPPONENT_LEFT"
	KindOpponentScored       Kind = "OPPONENT_SCORED"
	KindWordSubmissionResult Kind = "WORD_SUBMISSION_RESULT"
	KindGameEnd              Kind = "GAME_END"
	KindError                Kind = "ERROR"
)

// ClientMessage is the flat shape the server reads off the wire.
type ClientMessage struct {
	Type     Kind   `json:"type"`
	Identity string `json:"identity,omitempty"`
	GameID   string `json:"gameId,omitempty"`
	Word     string `json:"word,omitempty"`
}

// ServerMessage carries every field any inbound kind can set. Optional
// fields are pointers so the classifier can tell "absent" from "zero".
type ServerMessage struct {
	Type              Kind     `json:"type"`
	GameID            string   `json:"gameId,omitempty"`
	Letters           *string  `json:"letters,omitempty"`
	Score             *int     `json:"score,omitempty"`
	OpponentScore     *int     `json:"opponentScore,omitempty"`
	FoundWords        []string `json:"foundWords,omitempty"`
	OpponentWords     []string `json:"opponentWords,omitempty"`
	OpponentConnected *bool    `json:"opponentConnected,omitempty"`
	OpponentName      *string  `json:"opponentName,omitempty"`
	GameStatus        *string  `json:"gameStatus,omitempty"`
	Winner            *string  `json:"winner,omitempty"`
	PossibleWords     *int     `json:"possibleWords,omitempty"`
	TimeRemaining     *string  `json:"timeRemaining,omitempty"` // "mm:ss"
	Word              *string  `json:"word,omitempty"`
	Success           *bool    `json:"success,omitempty"`
	Points            *int     `json:"points,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Envelope wraps an outbound payload with its type and sender identity.
// If the payload already declares the same type, the payload's fields are
// folded up to the top level instead of nesting, keeping the wire shape flat.
func Envelope(kind Kind, identity string, payload any) ([]byte, error) {
	out := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
	}
	out["type"] = kind
	if identity != "" {
		out["identity"] = identity
	}
	return json.Marshal(out)
}

// Decode parses raw inbound bytes into a ServerMessage.
func Decode(data []byte) (ServerMessage, error) {
	var m ServerMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
