package provider

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/aicat-dev/aicat/internal/chat"
)

func TestBuildOpenAIRequestPassesRolesThrough(t *testing.T) {
	temp := 0.2
	p := chat.Prompt{
		API:         chat.APIOpenAI,
		Model:       "gpt-4",
		Temperature: &temp,
		Messages: []chat.Message{
			chat.System("s"),
			chat.User("u"),
			chat.Assistant("a"),
		},
	}
	body, err := BuildRequestBody(p)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}

	if got := gjson.GetBytes(body, "model").String(); got != "gpt-4" {
		t.Errorf("model = %q, want gpt-4", got)
	}
	roles := gjson.GetBytes(body, "messages.#.role").Array()
	want := []string{"system", "user", "assistant"}
	if len(roles) != len(want) {
		t.Fatalf("messages = %s", gjson.GetBytes(body, "messages").Raw)
	}
	for i, r := range roles {
		if r.String() != want[i] {
			t.Errorf("messages[%d].role = %q, want %q", i, r.String(), want[i])
		}
	}
	if got := gjson.GetBytes(body, "temperature").Float(); got != 0.2 {
		t.Errorf("temperature = %v, want 0.2", got)
	}
	if stream := gjson.GetBytes(body, "stream"); !stream.Exists() || stream.Bool() {
		t.Errorf("stream = %s, want explicit false", stream.Raw)
	}
	if gjson.GetBytes(body, "max_tokens").Exists() {
		t.Error("openai request must not carry max_tokens")
	}
}

func TestBuildRequestOpenAIFamilyShape(t *testing.T) {
	for _, api := range []chat.API{chat.APIMistral, chat.APIGroq, chat.APIOllama, chat.APIAzureOpenAI, chat.APICerebras} {
		t.Run(string(api), func(t *testing.T) {
			body, err := BuildRequestBody(chat.Prompt{
				API:      api,
				Model:    "m",
				Messages: []chat.Message{chat.User("hi")},
			})
			if err != nil {
				t.Fatalf("BuildRequestBody: %v", err)
			}
			if gjson.GetBytes(body, "max_tokens").Exists() {
				t.Errorf("%s request must not carry max_tokens", api)
			}
			if got := gjson.GetBytes(body, "messages.0.role").String(); got != "user" {
				t.Errorf("role = %q, want user", got)
			}
		})
	}
}

func TestBuildAnthropicRequest(t *testing.T) {
	p := chat.Prompt{
		API:   chat.APIAnthropic,
		Model: "claude-3-opus-20240229",
		Messages: []chat.Message{
			chat.System("sys"),
			chat.User("usr"),
			chat.Assistant("a1"),
			chat.Assistant("a2"),
		},
	}
	body, err := BuildRequestBody(p)
	if err != nil {
		t.Fatalf("BuildRequestBody: %v", err)
	}

	if got := gjson.GetBytes(body, "max_tokens").Int(); got != 4096 {
		t.Errorf("max_tokens = %d, want 4096", got)
	}
	messages := gjson.GetBytes(body, "messages").Array()
	if len(messages) != 2 {
		t.Fatalf("messages = %s, want merged user + assistant pair", gjson.GetBytes(body, "messages").Raw)
	}
	if role := messages[0].Get("role").String(); role != "user" {
		t.Errorf("messages[0].role = %q, want user (relabeled system)", role)
	}
	if content := messages[0].Get("content").String(); content != "sys\n\nusr" {
		t.Errorf("messages[0].content = %q, want merged with blank line", content)
	}
	if content := messages[1].Get("content").String(); content != "a1\n\na2" {
		t.Errorf("messages[1].content = %q, want merged assistants", content)
	}
	if gjson.GetBytes(body, "temperature").Exists() {
		t.Error("unset temperature must be omitted")
	}
}

func TestMergeForAnthropicPreservesContent(t *testing.T) {
	a, b := "first part", "second-part"
	merged := mergeForAnthropic([]chat.Message{chat.User(a), chat.User(b)})
	if len(merged) != 1 {
		t.Fatalf("merged = %+v, want a single message", merged)
	}
	if got, want := len(merged[0].Content), len(a)+len(b)+2; got != want {
		t.Errorf("merged length = %d, want %d (sum of parts plus separator)", got, want)
	}
}

func TestMergeForAnthropicAlternatingIsNoop(t *testing.T) {
	in := []chat.Message{chat.User("u1"), chat.Assistant("a1"), chat.User("u2")}
	merged := mergeForAnthropic(in)
	if len(merged) != len(in) {
		t.Fatalf("merged = %+v, want untouched alternating sequence", merged)
	}
	for i := range in {
		if merged[i] != in[i] {
			t.Errorf("merged[%d] = %+v, want %+v", i, merged[i], in[i])
		}
	}
}

func TestBuildRequestMissingModel(t *testing.T) {
	_, err := BuildRequestBody(chat.Prompt{API: chat.APIOpenAI, Messages: []chat.Message{chat.User("hi")}})
	if err == nil {
		t.Fatal("expected a configuration error for a missing model")
	}
}

func TestBuildRequestTestAPIRejected(t *testing.T) {
	_, err := BuildRequestBody(chat.Prompt{API: chat.APITest, Model: "m"})
	if err == nil {
		t.Fatal("the test-only api must not build requests")
	}
}
