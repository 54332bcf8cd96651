package wordgame

import "testing"

func TestShouldActivate(t *testing.T) {
	st := NewGameState("g1")
	if ShouldActivate(st) {
		t.Fatal("empty pending state must not activate")
	}

	st.OpponentConnected = true
	if ShouldActivate(st) {
		t.Fatal("opponent without letters must not activate")
	}

	st.Letters = "ACTSER"
	if !ShouldActivate(st) {
		t.Fatal("opponent + letters while pending should activate")
	}

	st.Status = StatusActive
	if ShouldActivate(st) {
		t.Fatal("already active")
	}

	st.Status = StatusFinished
	if ShouldActivate(st) {
		t.Fatal("finished never reactivates")
	}
}
