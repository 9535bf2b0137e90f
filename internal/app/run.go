// Package app orchestrates one request/response cycle: substitute the
// raw input into the prompt, validate its size, dispatch to the
// provider and write the reply out.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aicat-dev/aicat/internal/chat"
)

// ErrBudgetDeclined reports that the user was asked to confirm an
// over-budget prompt and declined. It maps to a clean zero exit, not
// an error report.
var ErrBudgetDeclined = errors.New("input size confirmation declined")

// Completer performs the provider exchange. Satisfied by
// *provider.Client; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, p chat.Prompt) (chat.Message, error)
}

// Runner holds the collaborators of one invocation. It is built once
// in cmd and used for exactly one Run.
type Runner struct {
	Completer Completer

	// DefaultModel fills prompt.Model when the template and the flags
	// left it empty.
	DefaultModel string

	// Output receives the echoed input (when RepeatInput is set) and
	// the reply content.
	Output io.Writer

	// ConfirmInput is read for the interactive size confirmation,
	// normally stdin.
	ConfirmInput io.Reader

	// ConfirmOutput receives the confirmation question, normally
	// stderr so it never pollutes piped output.
	ConfirmOutput io.Writer

	// Interactive selects between asking for size confirmation and
	// failing hard when the prompt exceeds its character budget.
	Interactive bool

	// RepeatInput echoes the raw input before the reply, useful when
	// extending a file in place instead of replacing it.
	RepeatInput bool

	// RenderMarkdown formats the reply with glamour before writing
	// it. Only ever set when Output is a terminal; the conversation
	// always stores the raw content.
	RenderMarkdown bool
}

// Run substitutes rawInput into the prompt's placeholders, performs
// the exchange and returns the prompt with the assistant reply
// appended, ready to be persisted.
func (r *Runner) Run(ctx context.Context, p chat.Prompt, rawInput string) (chat.Prompt, error) {
	for i := range p.Messages {
		p.Messages[i].Content = strings.ReplaceAll(p.Messages[i].Content, chat.PlaceholderToken, rawInput)
	}

	if p.Model == "" {
		p.Model = r.DefaultModel
	}

	// streaming is unsupported, force it off whatever was stored
	p.Stream = false

	if err := r.validateSize(p); err != nil {
		return chat.Prompt{}, err
	}

	reply, err := r.Completer.Complete(ctx, p)
	if err != nil {
		return chat.Prompt{}, err
	}
	slog.Debug("received reply", "content", reply.Content)

	p.Messages = append(p.Messages, reply)

	if r.RepeatInput {
		if _, err := io.WriteString(r.Output, rawInput+"\n"); err != nil {
			return chat.Prompt{}, fmt.Errorf("writing echoed input: %w", err)
		}
	}
	if err := r.writeReply(reply.Content); err != nil {
		return chat.Prompt{}, err
	}

	return p, nil
}

// validateSize enforces the character budget. A sum equal to the
// limit passes; in interactive mode anything above it asks for an
// exact "Y" to proceed, otherwise it is a configuration error.
func (r *Runner) validateSize(p chat.Prompt) error {
	count := p.CharCount()
	slog.Debug("validating prompt size", "chars", count, "char_limit", p.CharLimit)

	if p.CharLimit <= 0 || count <= p.CharLimit {
		return nil
	}

	if !r.Interactive {
		return fmt.Errorf("input of %d chars is larger than the %d limit in non-interactive mode", count, p.CharLimit)
	}

	fmt.Fprintf(r.ConfirmOutput,
		"The number of chars in the input %d is greater than the set limit %d\nDo you want to continue? High costs may ensue.\n[Y/n]\n",
		count, p.CharLimit)

	answer, err := bufio.NewReader(r.ConfirmInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if strings.TrimSpace(answer) != "Y" {
		fmt.Fprintln(r.ConfirmOutput, "exiting...")
		return ErrBudgetDeclined
	}
	return nil
}

func (r *Runner) writeReply(content string) error {
	out := content
	if r.RenderMarkdown {
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
		if err == nil {
			if rendered, rerr := renderer.Render(content); rerr == nil {
				out = rendered
			}
		}
	}
	if _, err := io.WriteString(r.Output, out); err != nil {
		return fmt.Errorf("writing reply: %w", err)
	}
	return nil
}
