package wordgame

// ShouldActivate reports whether a pending game has seen enough to begin:
// either the server says so outright through gameStatus, or the opponent is
// present and letters have been dealt.
func ShouldActivate(s GameState) bool {
	if s.Status != StatusPending {
		return false
	}
	return s.OpponentConnected && s.Letters != ""
}
