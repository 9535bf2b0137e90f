// Package chat holds the central Prompt/Message model shared by the
// customizer, the provider adapters and the orchestrator, plus the
// on-disk template and conversation stores.
package chat

import "fmt"

// PlaceholderToken is the sentinel substring standing in for the
// user-supplied input inside template messages. It is replaced exactly
// once per invocation, right before transmission.
const PlaceholderToken = "#[<input>]"

// zeroTemperatureEpsilon replaces a caller-supplied temperature of
// exactly 0: some providers do not guarantee determinism at literal 0.
const zeroTemperatureEpsilon = 1e-13

// API selects the backend provider. It determines the wire format and
// the auth scheme used for a request. Stored as a string so config
// files round-trip unknown values up to validation time.
type API string

const (
	APIOpenAI      API = "openai"
	APIMistral     API = "mistral"
	APIGroq        API = "groq"
	APIOllama      API = "ollama"
	APIAnthropic   API = "anthropic"
	APIAzureOpenAI API = "azureopenai"
	APICerebras    API = "cerebras"

	// APITest exists only so tests can exercise dispatch without a
	// real backend. Requests against it always fail to build.
	APITest API = "anotherapifortests"
)

// ParseAPI validates a provider name coming from a flag or a config
// file.
func ParseAPI(s string) (API, error) {
	switch api := API(s); api {
	case APIOpenAI, APIMistral, APIGroq, APIOllama, APIAnthropic, APIAzureOpenAI, APICerebras, APITest:
		return api, nil
	default:
		return "", fmt.Errorf("unknown api %q, expected one of openai, mistral, groq, ollama, anthropic, azureopenai, cerebras", s)
	}
}

// Message is a single chat turn. Role is semantically one of
// "system", "user" or "assistant"; it stays a plain string so provider
// responses pass through unchanged.
type Message struct {
	Role    string `toml:"role" json:"role"`
	Content string `toml:"content" json:"content"`
}

func System(content string) Message { return Message{Role: "system", Content: content} }

func User(content string) Message { return Message{Role: "user", Content: content} }

func Assistant(content string) Message { return Message{Role: "assistant", Content: content} }

// Prompt is one chat session or template: the ordered message history
// plus the request parameters tied to it. Field names must stay
// aligned with the TOML files users already have on disk.
type Prompt struct {
	API         API       `toml:"api" json:"api"`
	Model       string    `toml:"model,omitempty" json:"model,omitempty"`
	Messages    []Message `toml:"messages" json:"messages"`
	Temperature *float64  `toml:"temperature,omitempty" json:"temperature,omitempty"`
	CharLimit   int       `toml:"char_limit,omitempty" json:"char_limit,omitempty"`
	Stream      bool      `toml:"stream,omitempty" json:"stream,omitempty"`
}

// CharCount sums the content length of every message, the unit the
// char_limit budget is expressed in.
func (p Prompt) CharCount() int {
	n := 0
	for _, m := range p.Messages {
		n += len(m.Content)
	}
	return n
}

const defaultSystemMessage = "You are an extremely skilled programmer with a keen eye for detail and an emphasis on readable code. " +
	"You have been tasked with acting as a smart version of the cat unix program. You take text and a prompt in and write text out. " +
	"For that reason, it is of crucial importance to just write the desired output. Do not under any circumstance write any comment or thought " +
	"as your output will be piped into other programs. Do not write the markdown delimiters for code as well. " +
	"Sometimes you will be asked to implement or extend some input code. Same thing goes here, write only what was asked because what you write will " +
	"be directly added to the user's editor. " +
	"Never ever write ``` around the code. " +
	"Make sure to keep the indentation and formatting."

// DefaultPrompt is the template generated under the "default" key: a
// local model told to behave like a smarter cat.
func DefaultPrompt() Prompt {
	return Prompt{
		API:       APIOllama,
		Messages:  []Message{System(defaultSystemMessage)},
		CharLimit: 50000,
	}
}

// EmptyPrompt is the template generated under the "empty" key: same
// defaults, no preset messages.
func EmptyPrompt() Prompt {
	return Prompt{
		API:       APIOllama,
		Messages:  []Message{},
		CharLimit: 50000,
	}
}
