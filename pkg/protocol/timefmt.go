package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errBadClock = errors.New("protocol: bad mm:ss value")

// ParseClock converts a "mm:ss" display value into whole seconds.
func ParseClock(s string) (int, error) {
	mins, secs, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errBadClock
	}
	m, err := strconv.Atoi(mins)
	if err != nil || m < 0 {
		return 0, errBadClock
	}
	sec, err := strconv.Atoi(secs)
	if err != nil || sec < 0 || sec > 59 {
		return 0, errBadClock
	}
	return m*60 + sec, nil
}

// FormatClock renders whole seconds as "mm:ss". Negative values clamp to 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
