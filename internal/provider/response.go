package provider

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/aicat-dev/aicat/internal/chat"
)

// ParseResponse extracts the assistant reply from a provider response
// body. Each API family wraps the message differently; a body that
// does not match the expected envelope (including an empty choice or
// content array) is a parse error, never a panic.
func ParseResponse(api chat.API, body []byte) (chat.Message, error) {
	var path string
	switch api {
	case chat.APIAnthropic:
		path = "content.0.text"
	case chat.APIOllama:
		path = "message.content"
	default:
		path = "choices.0.message.content"
	}

	if !gjson.ValidBytes(body) {
		return chat.Message{}, fmt.Errorf("parsing %s response: invalid JSON: %s", api, truncateForError(body))
	}
	content := gjson.GetBytes(body, path)
	if !content.Exists() {
		return chat.Message{}, fmt.Errorf("parsing %s response: missing %q in: %s", api, path, truncateForError(body))
	}
	return chat.Assistant(content.String()), nil
}

// truncateForError keeps response bodies in error messages readable.
func truncateForError(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
