package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/intakebot"
	"github.com/tbxark/intakebot/agent"
	"github.com/tbxark/intakebot/catalog"
	"github.com/tbxark/intakebot/oracle"
	"github.com/tbxark/intakebot/worker"
)

func main() {
	conf := flag.String("config", "", "path to a JSON file with api_key, base_url and model; empty uses the keyword oracle")
	user := flag.String("user", "console", "user id of the conversation")
	flag.Parse()
	config, err := loadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	err = startApp(context.Background(), config, *user)
	if err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func newOracle(ctx context.Context, config *Config) (oracle.Oracle, error) {
	local := oracle.NewLocalOracle()
	if config.APIKey == "" {
		return local, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  config.APIKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	tool, err := oracle.NewToolBasedOracle(cm)
	if err != nil {
		return nil, err
	}
	return oracle.NewFailbackOracle(tool, local), nil
}

func startApp(ctx context.Context, config *Config, user string) error {
	slog.SetLogLoggerLevel(slog.LevelInfo)
	o, err := newOracle(ctx, config)
	if err != nil {
		return err
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	workers := worker.NewMemoryStore()
	engine, err := agent.NewEngine(
		agent.NewMemorySessionStore(time.Hour),
		[]*agent.Flow{
			intakebot.NewRegistrationFlow(o, workers, time.Now),
			intakebot.NewBookingFlow(o, cat),
		},
		agent.WithHistory(agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: 10})),
	)
	if err != nil {
		return err
	}
	intakeAgent := intakebot.NewAgent(
		"IntakeBot",
		"Registers workers and finds available service providers through conversation",
		intakebot.NewDispatcher(engine, nil, workers),
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: intakeAgent,
	})
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Merhaba! Komutlar için /yardim yazın.")
	chatCtx := agent.WithStateKey(ctx, user)
	for {
		fmt.Print("Kullanıcı: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Girdi sona erdi. Çıkılıyor.")
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		iter := runner.Run(chatCtx, []*schema.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			msg, mErr := event.Output.MessageOutput.GetMessage()
			if mErr != nil {
				return mErr
			}
			fmt.Printf("\nBot: %v\n======\n", msg.Content)
		}
	}
	return nil
}
