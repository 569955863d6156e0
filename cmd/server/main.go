package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"stitchdesk/internal/app"
	"stitchdesk/internal/config"
	"stitchdesk/internal/db"
	"stitchdesk/internal/handler"
	"stitchdesk/internal/logger"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	lg := logger.New("stitchdesk-api")
	a, err := app.New(cfg, lg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer a.Close()

	if err := db.Migrate(a.DB); err != nil {
		log.Fatal(err)
	}

	r := handler.New(handler.Deps{
		Services:      a.Services,
		Documents:     a.Renderer,
		Log:           lg,
		Ping:          a.Ping,
		SessionSecret: cfg.SessionSecret,
		MediaDir:      cfg.MediaDir,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server_start", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		expireLoop(ctx, a, cfg.ExpiryInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		lg.Info("server_stop", nil)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("server_exit", err, nil)
		os.Exit(1)
	}
}

// expireLoop moves lapsed subscriptions to expired on every tick.
func expireLoop(ctx context.Context, a *app.App, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Services.Subscriptions.ExpireDue(ctx)
			if err != nil {
				a.Log.Error("expire_subscriptions", err, nil)
				continue
			}
			if n > 0 {
				a.Log.Info("expire_subscriptions", map[string]any{"expired": n})
			}
		}
	}
}
