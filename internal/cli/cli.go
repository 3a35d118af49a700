// Package cli is the interactive console front-end.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"assistant-bot/internal/session"
)

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"

	separator = "==================================="
)

type Bridge interface {
	HandleInbound(ctx context.Context, key, displayNameHint, text string) (string, error)
	StartSession(ctx context.Context, key, displayNameHint string) (session.Session, error)
}

type Chat struct {
	bridge Bridge
	in     io.Reader
	out    io.Writer
}

func New(bridge Bridge) *Chat {
	return &Chat{bridge: bridge, in: os.Stdin, out: os.Stdout}
}

// Run drives the console chat loop until the user types exit/quit, input
// ends or ctx is cancelled.
func (c *Chat) Run(ctx context.Context) error {
	key := "cli:" + uuid.NewString()

	fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, separator, colorReset)
	fmt.Fprintf(c.out, "%sOpenAI Assistant Chatbot%s\n", colorBlue, colorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, separator, colorReset)
	fmt.Fprintf(c.out, "%sType 'exit' or 'quit' to end the conversation%s\n", colorCyan, colorReset)
	fmt.Fprintf(c.out, "%sStarting a new conversation...%s\n", colorCyan, colorReset)

	sess, err := c.bridge.StartSession(ctx, key, "You")
	if err != nil {
		return fmt.Errorf("failed to start console session: %w", err)
	}
	fmt.Fprintf(c.out, "%sThread created: %s%s\n", colorYellow, sess.ThreadID, colorReset)
	fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, separator, colorReset)

	scanner := bufio.NewScanner(c.in)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(c.out, "%sYou: %s", colorGreen, colorReset)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			fmt.Fprintf(c.out, "%sEnding conversation...%s\n", colorYellow, colorReset)
			return nil
		}

		fmt.Fprintf(c.out, "%sProcessing...%s\n", colorCyan, colorReset)
		reply, err := c.bridge.HandleInbound(ctx, key, "You", line)
		if err != nil {
			fmt.Fprintf(c.out, "%sError: %v%s\n", colorRed, err, colorReset)
			continue
		}
		fmt.Fprintf(c.out, "%sAssistant: %s%s\n", colorBlue, colorReset, reply)
		fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, separator, colorReset)
	}
}
