package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"reflector/internal/config"
	"reflector/internal/domain/models"
	"reflector/internal/domain/services"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// maxLineBytes fits the longest prompt the service accepts, newline included.
const maxLineBytes = config.MaxPromptLength*utf8.UTFMax + 1

// newPromptScanner reads one prompt or command per line.
func newPromptScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return scanner
}

type CLI struct {
	ctx      context.Context
	service  services.ReflectService
	provider string
	scanner  *bufio.Scanner
	out      io.Writer
	threadID string
	document models.Document
	logger   *slog.Logger
}

// run reads until :quit or end of input. A read failure ends the session with an error.
func (cli *CLI) run() error {
	fmt.Fprintf(cli.out, "\n%s╔══════════════════════════════════════╗%s\n", colorCyan, colorReset)
	fmt.Fprintf(cli.out, "%s║         Reflector CLI                ║%s\n", colorCyan, colorReset)
	fmt.Fprintf(cli.out, "%s╚══════════════════════════════════════╝%s\n", colorCyan, colorReset)
	fmt.Fprintf(cli.out, "%sThread: %s | Provider: %s | Blocks: %d%s\n", colorBlue, cli.threadID, cli.provider, len(cli.document.Blocks), colorReset)
	fmt.Fprintln(cli.out, "Enter a prompt, or :show, :history, :save <path>, :quit")

	for {
		fmt.Fprint(cli.out, "\n> ")
		if !cli.scanner.Scan() {
			if err := cli.scanner.Err(); err != nil {
				cli.logger.Error("read input failed", "thread_id", cli.threadID, "error", err)
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}
		line := strings.TrimSpace(cli.scanner.Text())
		if line == "" {
			continue
		}
		if !cli.handle(line) {
			fmt.Fprintf(cli.out, "%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return nil
		}
	}
}

// handle runs one command or prompt; false ends the session
func (cli *CLI) handle(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case ":quit", ":q":
		return false
	case ":show":
		cli.showDocument()
	case ":history":
		cli.showHistory()
	case ":save":
		cli.save(strings.TrimSpace(arg))
	default:
		cli.reflect(line)
	}
	return true
}

func (cli *CLI) reflect(prompt string) {
	cli.logger.Debug("reflect prompt", "thread_id", cli.threadID, "prompt", prompt)

	resp, err := cli.service.ProcessReflectionRequest(cli.ctx, &services.ReflectRequest{
		ThreadID: cli.threadID,
		Document: cli.document,
		Prompt:   prompt,
	})
	if err != nil {
		cli.logger.Error("reflect failed", "error", err)
		fmt.Fprintf(cli.out, "%s❌ %v%s\n", colorRed, err, colorReset)
		return
	}

	changes := diffBlocks(cli.document, resp.Document)
	cli.document = resp.Document
	if len(changes) == 0 {
		fmt.Fprintf(cli.out, "%s⚠ No blocks changed%s\n", colorYellow, colorReset)
		return
	}
	for _, c := range changes {
		fmt.Fprintf(cli.out, "%s~ %s%s\n", colorCyan, c.ID, colorReset)
		fmt.Fprintf(cli.out, "%s- %s%s\n", colorRed, c.Before, colorReset)
		fmt.Fprintf(cli.out, "%s+ %s%s\n", colorGreen, c.After, colorReset)
	}
}

func (cli *CLI) showDocument() {
	if len(cli.document.Blocks) == 0 {
		fmt.Fprintln(cli.out, "(empty document)")
		return
	}
	for _, b := range cli.document.Blocks {
		fmt.Fprintf(cli.out, "%s[%s]%s %s\n", colorBlue, b.ID, colorReset, b.Content)
	}
}

func (cli *CLI) showHistory() {
	sessions, err := cli.service.ListThreadSessions(cli.ctx, cli.threadID)
	if err != nil {
		fmt.Fprintf(cli.out, "%s❌ %v%s\n", colorRed, err, colorReset)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cli.out, "(no turns yet)")
		return
	}
	for i, s := range sessions {
		fmt.Fprintf(cli.out, "%d. %s%s%s (%s, %d messages, %d rejected)\n",
			i+1, colorCyan, s.Prompt, colorReset, s.Model, len(s.Messages), len(s.Rejections))
	}
}

func (cli *CLI) save(path string) {
	if path == "" {
		fmt.Fprintf(cli.out, "%s⚠ Usage: :save <path>%s\n", colorYellow, colorReset)
		return
	}
	data, err := json.MarshalIndent(cli.document, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		fmt.Fprintf(cli.out, "%s❌ Failed to save: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Fprintf(cli.out, "%s✓ Saved to %s%s\n", colorGreen, path, colorReset)
}

// blockChange is a block whose content differs between two documents
type blockChange struct {
	ID     string
	Before string
	After  string
}

// diffBlocks lists content changes of blocks present in both documents, in after's order
func diffBlocks(before, after models.Document) []blockChange {
	var changes []blockChange
	for _, b := range after.Blocks {
		prev, ok := before.Block(b.ID)
		if ok && prev.Content != b.Content {
			changes = append(changes, blockChange{ID: b.ID, Before: prev.Content, After: b.Content})
		}
	}
	return changes
}
