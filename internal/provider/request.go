// Package provider converts the internal Prompt into the wire shape
// each backend expects, performs the HTTP exchange and normalizes the
// heterogeneous response envelopes back into one assistant message.
package provider

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/aicat-dev/aicat/internal/chat"
)

// anthropicMaxTokens is required by the messages endpoint and has no
// counterpart in the internal model.
const anthropicMaxTokens = 4096

// openAIRequest is the chat-completions body shared by OpenAI,
// Mistral, Groq, Cerebras, Azure OpenAI and Ollama: messages pass
// through with roles untouched.
type openAIRequest struct {
	Model       string         `json:"model"`
	Messages    []chat.Message `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	Stream      bool           `json:"stream"`
}

// anthropicRequest differs from the OpenAI family: no system role in
// the message list and a mandatory max_tokens.
type anthropicRequest struct {
	Model       string         `json:"model"`
	Messages    []chat.Message `json:"messages"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens"`
	Stream      bool           `json:"stream"`
}

// BuildRequestBody serializes the prompt into the wire format of its
// API. The model must be resolved by this point; a missing one is a
// configuration error.
func BuildRequestBody(p chat.Prompt) ([]byte, error) {
	if p.Model == "" {
		return nil, fmt.Errorf("no model specified for api %q: set one in the prompt, the api config or with --model", p.API)
	}

	var body any
	switch p.API {
	case chat.APIOpenAI, chat.APIMistral, chat.APIGroq, chat.APIOllama, chat.APIAzureOpenAI, chat.APICerebras:
		body = openAIRequest{
			Model:       p.Model,
			Messages:    p.Messages,
			Temperature: p.Temperature,
			Stream:      p.Stream,
		}
	case chat.APIAnthropic:
		body = anthropicRequest{
			Model:       p.Model,
			Messages:    mergeForAnthropic(p.Messages),
			Temperature: p.Temperature,
			MaxTokens:   anthropicMaxTokens,
			Stream:      p.Stream,
		}
	default:
		return nil, fmt.Errorf("api %q cannot be used for requests", p.API)
	}

	encoded, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("serializing %s request: %w", p.API, err)
	}
	return encoded, nil
}

// mergeForAnthropic relabels system messages to user ones, then folds
// consecutive same-role messages together with a blank-line separator.
// The endpoint rejects message lists that do not strictly alternate
// between user and assistant.
func mergeForAnthropic(messages []chat.Message) []chat.Message {
	merged := make([]chat.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			m.Role = "user"
		}
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content += "\n\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}
	return merged
}
