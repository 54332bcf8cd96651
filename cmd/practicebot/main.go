// practicebot opens a practice session against the dev server, plays a few
// words, and prints every state transition. Handy for eyeballing the whole
// client stack against a live socket.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/WallyThePenguin/wordscape-client/internal/config"
	"github.com/WallyThePenguin/wordscape-client/internal/storage"
	"github.com/WallyThePenguin/wordscape-client/internal/transport"
	"github.com/WallyThePenguin/wordscape-client/pkg/client"
	"github.com/WallyThePenguin/wordscape-client/pkg/wordgame"
)

var tryWords = []string{"CAT", "RATE", "STARE", "PLANET", "TRACE", "XYZZY"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	identity := "bot-" + uuid.NewString()[:8]
	var store storage.Store = storage.NewMemStore()
	if cfg.SnapshotDir != "" {
		fs, err := storage.NewFileStore(cfg.SnapshotDir)
		if err != nil {
			logger.Fatal("snapshot dir", zap.Error(err))
		}
		store = fs
	}

	c := client.New(client.Config{
		ServerURL:   cfg.ServerURL,
		SnapshotKey: identity,
		Storage:     store,
		Logger:      logger,
		OnError: func(err error) {
			logger.Warn("session error", zap.Error(err))
		},
		OnWordRejected: func(word string) {
			logger.Info("word rejected", zap.String("word", word))
		},
	})
	defer c.Close()

	c.Subscribe(func(snap wordgame.Snapshot) {
		logger.Info("state",
			zap.Int("version", snap.Version),
			zap.String("status", string(snap.State.Status)),
			zap.String("letters", snap.State.Letters),
			zap.Int("score", snap.State.Score),
			zap.Strings("found", snap.State.FoundWords))
	})
	c.SubscribeConnection(func(st transport.Status) {
		logger.Info("connection", zap.String("state", st.String()))
	})

	if err := c.Open(identity); err != nil {
		logger.Fatal("open failed", zap.Error(err))
	}
	c.StartPractice()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, word := range tryWords {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			for _, r := range word {
				c.TapLetter(r)
			}
			c.SubmitWord()
		}
		return nil
	})

	<-ctx.Done()
	c.EndPractice()
	_ = g.Wait()
}
