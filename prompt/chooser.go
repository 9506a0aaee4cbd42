// Package prompt holds the terminal interactions of a reconciliation run:
// picking a provider when several match and showing fetch progress.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/goliatone/go-event-registrations/core"
)

// LineReader is the slice of *readline.Instance the chooser uses.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

type ReaderFactory func(prompt string) (LineReader, error)

// Chooser asks the user to pick one provider from a numbered list.
type Chooser struct {
	Out       io.Writer
	NewReader ReaderFactory
}

func NewChooser(out io.Writer) *Chooser {
	if out == nil {
		out = os.Stderr
	}
	return &Chooser{Out: out, NewReader: readlineFactory}
}

func readlineFactory(prompt string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return rl, nil
}

// ChooseProvider blocks until a valid index is entered, the input ends, or
// ctx is cancelled. Invalid answers re-prompt.
func (c *Chooser) ChooseProvider(ctx context.Context, eventType string, choices []core.ProviderChoice) (string, error) {
	if len(choices) == 0 {
		return "", core.NoProvidersAvailableError(eventType)
	}
	factory := c.NewReader
	if factory == nil {
		factory = readlineFactory
	}
	out := c.Out
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprintf(out, "Multiple event providers offer %s:\n", eventType)
	for i, choice := range choices {
		label := choice.Label
		if label == "" {
			label = choice.ID
		}
		fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, label, choice.InstanceID)
	}

	reader, err := factory(fmt.Sprintf("Select provider [1-%d]: ", len(choices)))
	if err != nil {
		return "", err
	}
	defer reader.Close()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", core.AmbiguousProviderError(eventType, "selection cancelled")
		}
		if err != nil {
			return "", fmt.Errorf("readline error: %w", err)
		}
		index, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || index < 1 || index > len(choices) {
			fmt.Fprintf(out, "Enter a number between 1 and %d\n", len(choices))
			continue
		}
		return choices[index-1].ID, nil
	}
}

var _ core.ProviderChooser = (*Chooser)(nil)
