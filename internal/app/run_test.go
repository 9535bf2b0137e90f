package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aicat-dev/aicat/internal/chat"
)

type fakeCompleter struct {
	reply chat.Message
	err   error
	got   chat.Prompt
}

func (f *fakeCompleter) Complete(_ context.Context, p chat.Prompt) (chat.Message, error) {
	f.got = p
	return f.reply, f.err
}

func catPrompt() chat.Prompt {
	return chat.Prompt{
		API: chat.APIOllama,
		Messages: []chat.Message{
			chat.System("you are a cat"),
			chat.User(chat.PlaceholderToken),
		},
	}
}

func TestRunSubstitutesInputAndWritesReply(t *testing.T) {
	completer := &fakeCompleter{reply: chat.Assistant("meow")}
	var out bytes.Buffer
	r := &Runner{
		Completer:     completer,
		DefaultModel:  "phi3",
		Output:        &out,
		ConfirmOutput: &bytes.Buffer{},
	}

	updated, err := r.Run(context.Background(), catPrompt(), "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent := completer.got
	if sent.Model != "phi3" {
		t.Errorf("sent model = %q, want the api default", sent.Model)
	}
	if sent.Stream {
		t.Error("stream was not forced off")
	}
	wantSent := []chat.Message{chat.System("you are a cat"), chat.User("hello")}
	if len(sent.Messages) != 2 || sent.Messages[0] != wantSent[0] || sent.Messages[1] != wantSent[1] {
		t.Errorf("sent messages = %+v, want %+v", sent.Messages, wantSent)
	}

	if out.String() != "meow" {
		t.Errorf("output = %q, want the reply content only", out.String())
	}

	last := updated.Messages[len(updated.Messages)-1]
	if last != chat.Assistant("meow") {
		t.Errorf("last message = %+v, want the appended reply", last)
	}
}

func TestRunRepeatsInput(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{
		Completer:     &fakeCompleter{reply: chat.Assistant("meow")},
		DefaultModel:  "phi3",
		Output:        &out,
		ConfirmOutput: &bytes.Buffer{},
		RepeatInput:   true,
	}
	if _, err := r.Run(context.Background(), catPrompt(), "hi"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hi\nmeow" {
		t.Errorf("output = %q, want the input echoed first", out.String())
	}
}

func TestRunReplacesEveryPlaceholderOccurrence(t *testing.T) {
	completer := &fakeCompleter{reply: chat.Assistant("ok")}
	p := chat.Prompt{
		API:      chat.APIOllama,
		Messages: []chat.Message{chat.User(chat.PlaceholderToken + " and " + chat.PlaceholderToken)},
	}
	r := &Runner{
		Completer:     completer,
		DefaultModel:  "m",
		Output:        &bytes.Buffer{},
		ConfirmOutput: &bytes.Buffer{},
	}
	if _, err := r.Run(context.Background(), p, "X"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := completer.got.Messages[0].Content; got != "X and X" {
		t.Errorf("content = %q, want every occurrence substituted", got)
	}
}

func TestRunKeepsExplicitModel(t *testing.T) {
	completer := &fakeCompleter{reply: chat.Assistant("ok")}
	p := catPrompt()
	p.Model = "llama3"
	r := &Runner{
		Completer:     completer,
		DefaultModel:  "phi3",
		Output:        &bytes.Buffer{},
		ConfirmOutput: &bytes.Buffer{},
	}
	if _, err := r.Run(context.Background(), p, "x"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if completer.got.Model != "llama3" {
		t.Errorf("model = %q, want the prompt's own model kept", completer.got.Model)
	}
}

func TestRunPropagatesCompleterError(t *testing.T) {
	r := &Runner{
		Completer:     &fakeCompleter{err: errors.New("boom")},
		DefaultModel:  "m",
		Output:        &bytes.Buffer{},
		ConfirmOutput: &bytes.Buffer{},
	}
	if _, err := r.Run(context.Background(), catPrompt(), "x"); err == nil {
		t.Fatal("expected the provider error to surface")
	}
}

func TestRunSizeValidation(t *testing.T) {
	// after substitution the two messages hold exactly 16 chars
	prompt := func(limit int) chat.Prompt {
		return chat.Prompt{
			API:       chat.APIOllama,
			CharLimit: limit,
			Messages: []chat.Message{
				chat.System("12345678"),
				chat.User(chat.PlaceholderToken),
			},
		}
	}
	const input = "abcdefgh"

	newRunner := func(interactive bool, answer string) (*Runner, *bytes.Buffer) {
		confirm := &bytes.Buffer{}
		return &Runner{
			Completer:     &fakeCompleter{reply: chat.Assistant("ok")},
			DefaultModel:  "m",
			Output:        &bytes.Buffer{},
			ConfirmInput:  strings.NewReader(answer),
			ConfirmOutput: confirm,
			Interactive:   interactive,
		}, confirm
	}

	t.Run("sum equal to limit passes", func(t *testing.T) {
		r, confirm := newRunner(false, "")
		if _, err := r.Run(context.Background(), prompt(16), input); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if confirm.Len() != 0 {
			t.Errorf("confirmation prompt written: %q", confirm.String())
		}
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		r, _ := newRunner(false, "")
		if _, err := r.Run(context.Background(), prompt(0), input); err != nil {
			t.Fatalf("Run: %v", err)
		}
	})

	t.Run("one above limit fails non-interactively", func(t *testing.T) {
		r, _ := newRunner(false, "")
		_, err := r.Run(context.Background(), prompt(15), input)
		if err == nil || errors.Is(err, ErrBudgetDeclined) {
			t.Fatalf("err = %v, want a hard error", err)
		}
	})

	t.Run("interactive Y continues", func(t *testing.T) {
		r, confirm := newRunner(true, "Y\n")
		if _, err := r.Run(context.Background(), prompt(15), input); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !strings.Contains(confirm.String(), "Do you want to continue?") {
			t.Errorf("confirmation prompt missing: %q", confirm.String())
		}
	})

	t.Run("interactive decline exits cleanly", func(t *testing.T) {
		r, _ := newRunner(true, "n\n")
		_, err := r.Run(context.Background(), prompt(15), input)
		if !errors.Is(err, ErrBudgetDeclined) {
			t.Fatalf("err = %v, want ErrBudgetDeclined", err)
		}
	})

	t.Run("interactive empty answer declines", func(t *testing.T) {
		r, _ := newRunner(true, "\n")
		_, err := r.Run(context.Background(), prompt(15), input)
		if !errors.Is(err, ErrBudgetDeclined) {
			t.Fatalf("err = %v, want ErrBudgetDeclined", err)
		}
	})
}
