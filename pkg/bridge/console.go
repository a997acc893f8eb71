package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// Console runs the local interactive command loop. It speaks the same
// command language as the Telegram bot, which makes it the quickest way
// to poke a backend without any Telegram credentials.
type Console struct {
	dispatcher *Dispatcher
}

func NewConsole(dispatcher *Dispatcher) *Console {
	return &Console{dispatcher: dispatcher}
}

// Run reads commands until EOF, Ctrl+C, or an exit command.
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "qtbridge> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".qtbridge_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println(c.dispatcher.HelpText())
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}

		fmt.Printf("\n%s\n\n", c.dispatcher.Execute(ctx, input))
	}
}
