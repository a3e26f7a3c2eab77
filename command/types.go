package command

import "context"

type Kind string

const (
	Register    Kind = "register"
	ListWorkers Kind = "list_workers"
	Cancel      Kind = "cancel"
	Start       Kind = "start"
	Help        Kind = "help"
	// None means the input is plain dialogue text.
	None Kind = "none"
)

type Command struct {
	Kind Kind
	// Args is the trimmed text after the command word.
	Args string
}

type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}
