package command

import (
	"context"
	"strings"
)

// LocalCommandParser recognises slash commands, with an optional @botname suffix, and a
// few bare cancel words.
type LocalCommandParser struct {
	Commands       map[string]Kind
	CancelKeywords []string
}

var _ Parser = (*LocalCommandParser)(nil)

func NewLocalCommandParser() *LocalCommandParser {
	return &LocalCommandParser{
		Commands: map[string]Kind{
			"isci_ekle":    Register,
			"register":     Register,
			"isci_listesi": ListWorkers,
			"workers":      ListWorkers,
			"iptal":        Cancel,
			"cancel":       Cancel,
			"start":        Start,
			"yardim":       Help,
			"yardım":       Help,
			"help":         Help,
		},
		CancelKeywords: []string{"iptal", "vazgeç", "vazgec", "cancel"},
	}
}

func (p *LocalCommandParser) ParseCommand(ctx context.Context, input string) (Command, error) {
	text := strings.TrimSpace(input)
	if !strings.HasPrefix(text, "/") {
		normalized := strings.ToLower(text)
		for _, keyword := range p.CancelKeywords {
			if normalized == keyword {
				return Command{Kind: Cancel}, nil
			}
		}
		return Command{Kind: None}, nil
	}

	word, args, _ := strings.Cut(text[1:], " ")
	word, _, _ = strings.Cut(word, "@")
	kind, ok := p.Commands[strings.ToLower(word)]
	if !ok {
		return Command{Kind: None}, nil
	}
	return Command{Kind: kind, Args: strings.TrimSpace(args)}, nil
}
