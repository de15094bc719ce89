package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pensieve-ai/pensieve/internal/app"
	"github.com/pensieve-ai/pensieve/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.NewSession("interactive")
	hist := session.NewHistory()
	fmt.Printf("pensieve chat (session %s) — type /quit to exit\n", sess.ID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			hist.Clear()
			fmt.Println("history cleared")
			continue
		}

		answer, err := a.Assistant.Answer(ctx, input, hist)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(answer)
		hist.AddExchange(input, answer)
	}

	if err := scanner.Err(); err != nil && !isInterrupted(ctx) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

func isInterrupted(ctx context.Context) bool {
	return ctx.Err() != nil
}
