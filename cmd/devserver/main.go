package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/WallyThePenguin/wordscape-client/internal/config"
	"github.com/WallyThePenguin/wordscape-client/internal/devserver"
)

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var archive *devserver.Archive
	if cfg.DatabaseURL != "" {
		archive, err = devserver.OpenArchive(cfg.DatabaseURL, logger.Named("archive"))
		if err != nil {
			logger.Fatal("archive unavailable", zap.Error(err))
		}
	}

	srv := devserver.New(ctx, clock.New(), logger, archive)
	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Routes()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Shutdown()
		return httpSrv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
