package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"

	"leo/internal/agent"
)

const replHelp = `Commands:
  /help    show this help
  /tools   list available tools
  /copy    copy the last answer to the clipboard
  /reset   start a fresh conversation
  /quit    exit`

// Run starts the interactive prompt and blocks until the user quits or
// stdin closes.
func (a *App) Run(ctx context.Context) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Raw output still works without a renderer.
		renderer = nil
	}

	fmt.Printf("Leo 🦁 — %s via %s\n", a.cfg.Model.Name, a.cfg.Model.Provider)
	fmt.Println("Type /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, msg := a.handleCommand(line)
			if msg != "" {
				fmt.Println(msg)
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := a.Turn(ctx, line)
		if err != nil {
			if errors.Is(err, agent.ErrMaxIterations) {
				fmt.Println("I couldn't finish within the iteration limit. Try a narrower request.")
				continue
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}
		a.printReply(renderer, reply)
	}
}

// handleCommand processes a slash command and returns whether the REPL
// should exit, plus a message to print.
func (a *App) handleCommand(line string) (quit bool, msg string) {
	switch strings.Fields(line)[0] {
	case "/help":
		return false, replHelp
	case "/tools":
		return false, strings.Join(a.Tools(), "\n")
	case "/copy":
		if a.lastReply == "" {
			return false, "Nothing to copy yet."
		}
		if err := clipboard.WriteAll(a.lastReply); err != nil {
			return false, fmt.Sprintf("Copy failed: %v", err)
		}
		return false, fmt.Sprintf("Copied %d characters.", len(a.lastReply))
	case "/reset":
		a.ResetHistory()
		return false, "Conversation reset."
	case "/quit", "/exit":
		return true, "Bye!"
	default:
		return false, fmt.Sprintf("Unknown command %q. Type /help for commands.", line)
	}
}

func (a *App) printReply(renderer *glamour.TermRenderer, reply string) {
	if renderer != nil {
		if out, err := renderer.Render(reply); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Println(reply)
}
