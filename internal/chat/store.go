package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	promptsFile      = "prompts.toml"
	conversationsDir = "conversations"

	// DefaultTemplate is the template used when the first CLI
	// argument does not name one.
	DefaultTemplate = "default"

	// DefaultConversation is the snapshot name used when no -n flag
	// was given.
	DefaultConversation = "last"
)

var conversationNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidConversationName rejects names that would escape the
// conversations directory or produce awkward file names.
func ValidConversationName(name string) error {
	if !conversationNameRe.MatchString(name) {
		return fmt.Errorf("invalid conversation name %q: only letters, digits, - and _ are allowed", name)
	}
	return nil
}

// PromptsPath returns the template file location inside the config
// directory.
func PromptsPath(configDir string) string {
	return filepath.Join(configDir, promptsFile)
}

func conversationPath(configDir, name string) string {
	return filepath.Join(configDir, conversationsDir, name+".toml")
}

// LoadPrompts reads the full name→template mapping from prompts.toml.
func LoadPrompts(configDir string) (map[string]Prompt, error) {
	content, err := os.ReadFile(PromptsPath(configDir))
	if err != nil {
		return nil, fmt.Errorf("reading prompt templates: %w", err)
	}
	prompts := map[string]Prompt{}
	if err := toml.Unmarshal(content, &prompts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", promptsFile, err)
	}
	return prompts, nil
}

// LoadPrompt fetches one template by name. The error lists the
// available names so a typo is easy to spot.
func LoadPrompt(configDir, name string) (Prompt, error) {
	prompts, err := LoadPrompts(configDir)
	if err != nil {
		return Prompt{}, err
	}
	p, ok := prompts[name]
	if !ok {
		names := make([]string, 0, len(prompts))
		for n := range prompts {
			names = append(names, n)
		}
		sort.Strings(names)
		return Prompt{}, fmt.Errorf("prompt template %q not found, available ones are %v", name, names)
	}
	return p, nil
}

// LoadConversation reads a saved conversation snapshot. The second
// return value reports whether the snapshot exists at all.
func LoadConversation(configDir, name string) (Prompt, bool, error) {
	if name == "" {
		name = DefaultConversation
	}
	content, err := os.ReadFile(conversationPath(configDir, name))
	if errors.Is(err, os.ErrNotExist) {
		return Prompt{}, false, nil
	}
	if err != nil {
		return Prompt{}, false, fmt.Errorf("reading conversation %q: %w", name, err)
	}
	var p Prompt
	if err := toml.Unmarshal(content, &p); err != nil {
		return Prompt{}, false, fmt.Errorf("parsing conversation %q: %w", name, err)
	}
	return p, true, nil
}

// SaveConversation persists the updated prompt so a later -e run can
// pick the exchange back up.
func SaveConversation(configDir string, p Prompt, name string) error {
	if name == "" {
		name = DefaultConversation
	}
	path := conversationPath(configDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating conversations directory: %w", err)
	}
	content, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("serializing conversation %q: %w", name, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing conversation %q: %w", name, err)
	}
	return nil
}
