package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot"
	"github.com/tbxark/intakebot/agent"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/config"
	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/worker"
	"github.com/tbxark/intakebot/worker/postgres"
	"github.com/tbxark/intakebot/worker/sqlite"
)

type deps struct {
	engine  *agent.Engine
	workers worker.Store
	catalog *catalog.Catalog
	closers []io.Closer
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
}

func buildDeps(ctx context.Context, cfg *config.Config) (_ *deps, err error) {
	d := &deps{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if d.catalog, err = loadCatalog(cfg.CatalogPath); err != nil {
		return nil, err
	}
	if err = d.openWorkers(ctx, cfg); err != nil {
		return nil, err
	}
	o, err := newOracle(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, history, err := d.openSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.engine, err = agent.NewEngine(
		sessions,
		[]*agent.Flow{
			intakebot.NewRegistrationFlow(o, d.workers, time.Now),
			intakebot.NewBookingFlow(o, d.catalog),
		},
		agent.WithHistory(history),
		agent.WithStepTimeout(cfg.OracleTimeout),
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func (d *deps) openWorkers(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		slog.Warn("Using in-memory worker store, records are lost on restart")
		d.workers = worker.NewMemoryStore()
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		d.workers = s
		d.closers = append(d.closers, s)
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		d.workers = s
		d.closers = append(d.closers, s)
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	return nil
}

func (d *deps) openSessions(ctx context.Context, cfg *config.Config) (agent.SessionStore, agent.HistoryReadWriter, error) {
	trimmer := agent.KeepSystemLastNTrimmer{N: cfg.HistoryLimit}
	if cfg.SessionBackend != config.SessionRedis {
		return agent.NewMemorySessionStore(cfg.SessionTTL), agent.NewMemoryHistoryStore(trimmer), nil
	}
	client, err := agent.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	d.closers = append(d.closers, client)
	sessions := agent.NewSessionStore(agent.NewRedisCache[*agent.Session](client, cfg.SessionTTL), cfg.SessionTTL)
	history := agent.NewHistoryStore(agent.NewRedisCache[[]*schema.Message](client, cfg.SessionTTL), trimmer)
	return sessions, history, nil
}

// newOracle prefers the model-backed oracle and falls back to keyword matching when the
// model fails. Without an API key only keyword matching is available.
func newOracle(ctx context.Context, cfg *config.Config) (oracle.Oracle, error) {
	local := oracle.NewLocalOracle()
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, using the keyword oracle")
		return local, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OracleTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	tool, err := oracle.NewToolBasedOracle(cm)
	if err != nil {
		return nil, err
	}
	return oracle.NewFailbackOracle(tool, local), nil
}
