package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tbxark/intakebot"
	"github.com/tbxark/intakebot/config"
	"github.com/tbxark/intakebot/dialogue"
)

func testConfig(t *testing.T, driver string) *config.Config {
	return &config.Config{
		TelegramBotToken: "t",
		OracleTimeout:    time.Second,
		StoreDriver:      driver,
		SQLitePath:       filepath.Join(t.TempDir(), "workers.db"),
		SessionBackend:   config.SessionMemory,
		SessionTTL:       time.Minute,
		HistoryLimit:     10,
		SendRate:         30,
		LogLevel:         "info",
	}
}

func TestBuildDeps(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{config.StoreMemory, config.StoreSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			d, err := buildDeps(context.Background(), testConfig(t, driver))
			if err != nil {
				t.Fatalf("buildDeps: %v", err)
			}
			defer d.Close()

			dispatcher := intakebot.NewDispatcher(d.engine, nil, d.workers)
			reply, err := dispatcher.Handle(context.Background(), "42", "/isci_ekle")
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if reply.Text != dialogue.RegistrationIntro {
				t.Fatalf("unexpected reply %q", reply.Text)
			}
		})
	}
}

func TestBuildDepsRejectsMissingCatalog(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t, config.StoreMemory)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := buildDeps(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}
