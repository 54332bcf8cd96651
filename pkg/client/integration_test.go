package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WallyThePenguin/wordscape-client/internal/devserver"
	"github.com/WallyThePenguin/wordscape-client/internal/transport"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

// practiceWord maps each letter set the dev server deals to a word its
// dictionary accepts.
var practiceWord = map[string]string{
	"ACTSER":  "CAT",
	"PLANETS": "PLAN",
	"STONER":  "NOTE",
}

func TestPracticeEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end practice run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := devserver.New(ctx, clock.New(), zap.NewNop(), nil)
	defer srv.Shutdown()
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c := New(Config{ServerURL: url})
	defer c.Close()

	require.NoError(t, c.Open("it|player"))
	require.Eventually(t, func() bool {
		return c.ConnectionState() == transport.StatusConnected
	}, 5*time.Second, 10*time.Millisecond, "never connected")

	c.StartPractice()
	require.Eventually(t, func() bool {
		st := c.State()
		return st.Status == wordgame.StatusActive && st.Letters != ""
	}, 5*time.Second, 10*time.Millisecond, "practice game never activated")

	letters := c.State().Letters
	word := practiceWord[letters]
	require.NotEmpty(t, word, "no known word for dealt letters %q", letters)

	for i, r := range word {
		c.TapLetter(r)
		want := word[:i+1]
		require.Eventually(t, func() bool { return c.State().CurrentWord == want },
			5*time.Second, 5*time.Millisecond, "tap %q never applied", want)
	}
	require.True(t, c.SubmitWord())

	// The server confirms the word; the reconciled view converges on it.
	require.Eventually(t, func() bool {
		st := c.State()
		return len(st.FoundWords) == 1 && st.FoundWords[0] == word && st.Score == len(word)
	}, 5*time.Second, 10*time.Millisecond, "submission never confirmed")

	// A duplicate submission is refused and leaves the score alone.
	for i, r := range word {
		c.TapLetter(r)
		want := word[:i+1]
		require.Eventually(t, func() bool { return c.State().CurrentWord == want },
			5*time.Second, 5*time.Millisecond)
	}
	require.True(t, c.SubmitWord())
	require.Eventually(t, func() bool {
		st := c.State()
		return st.CurrentWord == "" && len(st.FoundWords) == 1 && st.Score == len(word)
	}, 5*time.Second, 10*time.Millisecond, "duplicate never resolved")
}

func TestTwoClientsMatchAndPlay(t *testing.T) {
	if testing.Short() {
		t.Skip("end-to-end match run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := devserver.New(ctx, clock.New(), zap.NewNop(), nil)
	defer srv.Shutdown()
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c1 := New(Config{ServerURL: url})
	defer c1.Close()
	c2 := New(Config{ServerURL: url})
	defer c2.Close()

	require.NoError(t, c1.Open("player-one"))
	require.NoError(t, c2.Open("player-two"))
	for _, c := range []*Client{c1, c2} {
		require.Eventually(t, func() bool {
			return c.ConnectionState() == transport.StatusConnected
		}, 5*time.Second, 10*time.Millisecond)
	}

	c1.JoinQueue()
	c2.JoinQueue()

	// QUEUE_MATCHED triggers the automatic JOIN_GAME on both sides.
	for _, c := range []*Client{c1, c2} {
		require.Eventually(t, func() bool {
			st := c.State()
			return st.GameID != "" && st.Status == wordgame.StatusActive
		}, 5*time.Second, 10*time.Millisecond, "client never entered the game")
	}
	require.Equal(t, c1.State().GameID, c2.State().GameID)

	// One side scores; the other observes it.
	letters := c1.State().Letters
	word := practiceWord[letters]
	require.NotEmpty(t, word, "no known word for dealt letters %q", letters)
	for i, r := range word {
		c1.TapLetter(r)
		want := word[:i+1]
		require.Eventually(t, func() bool { return c1.State().CurrentWord == want },
			5*time.Second, 5*time.Millisecond)
	}
	require.True(t, c1.SubmitWord())

	require.Eventually(t, func() bool {
		st := c2.State()
		return st.OpponentScore == len(word) && st.LastOpponentWord == word
	}, 5*time.Second, 10*time.Millisecond, "opponent never saw the word")
	require.Eventually(t, func() bool {
		return c1.State().Score == len(word)
	}, 5*time.Second, 10*time.Millisecond)
}
