package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbxark/intakebot"
	"github.com/tbxark/intakebot/api"
	"github.com/tbxark/intakebot/config"
	"github.com/tbxark/intakebot/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := startApp(ctx, cfg); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, cfg *config.Config) error {
	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	tg, err := telegram.Connect(cfg.TelegramBotToken)
	if err != nil {
		return err
	}
	dispatcher := intakebot.NewDispatcher(d.engine, nil, d.workers)
	bot := telegram.New(tg, dispatcher, telegram.WithSendRate(cfg.SendRate))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			return serveAdmin(ctx, cfg.HTTPAddr, d)
		})
	}
	slog.Info("Bot started", "store", cfg.StoreDriver, "sessions", cfg.SessionBackend, "admin", cfg.HTTPAddr)
	err = g.Wait()
	slog.Info("Bot stopped")
	return err
}

func serveAdmin(ctx context.Context, addr string, d *deps) error {
	app := api.New(d.workers, d.catalog)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Admin API listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := app.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
