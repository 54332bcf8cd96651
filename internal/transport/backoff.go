package transport

import (
	"math"
	"time"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 15 * time.Second
)

// Backoff returns the wait before reconnect attempt n (1-based).
// Attempts 1-2 grow linearly; from the third on the delay grows by 1.5x
// per attempt, capped at 15s.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt <= 2 {
		return time.Duration(attempt) * backoffBase
	}
	ms := 1000 * math.Pow(1.5, float64(attempt-2))
	if ms > float64(backoffCap/time.Millisecond) {
		ms = float64(backoffCap / time.Millisecond)
	}
	return time.Duration(math.Round(ms)) * time.Millisecond
}
