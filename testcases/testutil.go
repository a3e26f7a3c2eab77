// Package testcases exercises the dialogues against a real chat model. The tests skip
// unless INTAKEBOT_RUN_LIVE_TESTS=1 and a model is configured through OPENAI_API_KEY,
// OPENAI_BASE_URL and OPENAI_MODEL or ../config.json.
package testcases

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/tbxark/intakebot"
	"github.com/tbxark/intakebot/agent"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/worker"
)

type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func loadConfig(path string) (*Config, error) {
	conf := Config{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("OPENAI_MODEL"),
	}
	if conf.APIKey != "" {
		return &conf, nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = sonic.Unmarshal(file, &conf)
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func InitChatModel(t *testing.T) *openai.ChatModel {
	if os.Getenv("INTAKEBOT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set INTAKEBOT_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}

	ctx := context.Background()
	conf, err := loadConfig("../config.json")
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	if conf.APIKey == "" {
		t.Skip("no api key configured")
		return nil
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  conf.APIKey,
		Model:   conf.Model,
		BaseURL: conf.BaseURL,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return chatModel
}

func NewLiveOracle(t *testing.T) *oracle.ToolBasedOracle {
	chatModel := InitChatModel(t)
	if chatModel == nil {
		return nil
	}
	o, err := oracle.NewToolBasedOracle(chatModel)
	if err != nil {
		t.Fatalf("failed to create oracle: %v", err)
	}
	return o
}

// NewLiveDispatcher wires both dialogues to the live oracle with in-memory stores.
func NewLiveDispatcher(t *testing.T) (*intakebot.Dispatcher, *worker.MemoryStore) {
	o := NewLiveOracle(t)
	if o == nil {
		return nil, nil
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	workers := worker.NewMemoryStore()
	engine, err := agent.NewEngine(
		agent.NewMemorySessionStore(time.Hour),
		[]*agent.Flow{
			intakebot.NewRegistrationFlow(o, workers, time.Now),
			intakebot.NewBookingFlow(o, cat),
		},
		agent.WithHistory(agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: 10})),
		agent.WithStepTimeout(time.Minute),
	)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return intakebot.NewDispatcher(engine, nil, workers), workers
}

func Say(t *testing.T, d *intakebot.Dispatcher, user, text string) agent.Reply {
	t.Helper()
	reply, err := d.Handle(context.Background(), user, text)
	if err != nil {
		t.Fatalf("turn %q failed: %v", text, err)
	}
	t.Logf("user: %s\nbot: %s", text, reply.Text)
	return reply
}
