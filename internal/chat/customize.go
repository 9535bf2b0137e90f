package chat

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/yargevad/filepathx"
)

// Params are the runtime overrides layered on top of a stored
// template. Pointer fields distinguish "not provided" from a zero
// value.
type Params struct {
	API         API
	Model       string
	Temperature *float64
	CharLimit   *int
	// Context holds glob patterns whose matching files are injected
	// into the prompt as a system message. `**` is supported.
	Context []string
}

// Customize merges a stored template with runtime overrides and an
// optional free-text command, and normalizes the message list so that
// exactly one placeholder token survives, always in a trailing user
// message.
//
// The step order is load-bearing: it decides where the context message
// lands and which message ends up carrying the placeholder. An empty
// freeText means no command was provided.
func Customize(p Prompt, params Params, freeText string) (Prompt, error) {
	slog.Debug("pre-customization prompt", "prompt", fmt.Sprintf("%+v", p))

	if params.API != "" {
		p.API = params.API
	}
	if params.Model != "" {
		p.Model = params.Model
	}
	if params.CharLimit != nil {
		p.CharLimit = *params.CharLimit
	}
	if params.Temperature != nil {
		t := *params.Temperature
		if t == 0 {
			// literal 0 is not deterministic on current APIs
			t = zeroTemperatureEpsilon
		}
		p.Temperature = &t
	}

	context, err := collectContext(params.Context)
	if err != nil {
		return Prompt{}, err
	}
	if context != "" {
		msg := System("files content for context:\n\n" + context)
		p.Messages = insertBeforeFirstUser(p.Messages, msg)
	}

	if freeText != "" {
		if !strings.Contains(freeText, PlaceholderToken) {
			freeText += PlaceholderToken
		}
		// remove existing input placeholders so just one survives
		for i := range p.Messages {
			p.Messages[i].Content = strings.ReplaceAll(p.Messages[i].Content, PlaceholderToken, "")
		}
		p.Messages = append(p.Messages, User(freeText))
	}

	// make sure the last message is a user one and carries the
	// placeholder: that is where the raw input will be substituted
	var last Message
	if n := len(p.Messages); n == 0 || p.Messages[n-1].Role != "user" {
		last = User(PlaceholderToken)
	} else {
		last = p.Messages[n-1]
		p.Messages = p.Messages[:n-1]
	}
	if !strings.Contains(last.Content, PlaceholderToken) {
		last.Content += PlaceholderToken
	}
	p.Messages = append(p.Messages, last)

	slog.Debug("post-customization prompt", "prompt", fmt.Sprintf("%+v", p))

	return p, nil
}

// collectContext expands each glob pattern and concatenates the
// content of every matching readable file into fenced blocks. A bad
// pattern is fatal; an unreadable match is skipped.
func collectContext(patterns []string) (string, error) {
	var sb strings.Builder
	for _, pattern := range patterns {
		paths, err := filepathx.Glob(pattern)
		if err != nil {
			return "", fmt.Errorf("reading glob pattern %q: %w", pattern, err)
		}
		for _, path := range paths {
			content, err := os.ReadFile(path)
			if err != nil {
				slog.Debug("skipping unreadable context file", "path", path, "err", err)
				continue
			}
			fmt.Fprintf(&sb, "%s:\n```\n%s\n```\n", path, content)
		}
	}
	return sb.String(), nil
}

// insertBeforeFirstUser places msg before the first user-role message
// so injected context always lands after earlier system turns but
// before the first user turn. With no user turn it goes last.
func insertBeforeFirstUser(messages []Message, msg Message) []Message {
	for i, m := range messages {
		if m.Role == "user" {
			out := make([]Message, 0, len(messages)+1)
			out = append(out, messages[:i]...)
			out = append(out, msg)
			out = append(out, messages[i:]...)
			return out
		}
	}
	return append(messages, msg)
}
