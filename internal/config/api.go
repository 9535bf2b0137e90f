package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/aicat-dev/aicat/internal/chat"
)

const apiConfigsFile = ".api_configs.toml"

const defaultTimeoutSeconds = 180

// APIConfig is the per-provider connection block from
// .api_configs.toml: where to reach the provider, how to authenticate
// and which model to use when the prompt names none.
type APIConfig struct {
	APIKey         string `toml:"api_key,omitempty"`
	APIKeyCommand  string `toml:"api_key_command,omitempty"`
	URL            string `toml:"url"`
	DefaultModel   string `toml:"default_model,omitempty"`
	Version        string `toml:"version,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// Timeout bounds the blocking HTTP call for this provider.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveKey returns the credential for this provider, running
// api_key_command through the shell when no literal key is set. An
// empty result is valid: ollama runs unauthenticated.
func (c APIConfig) ResolveKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyCommand == "" {
		return "", nil
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", c.APIKeyCommand)
	} else {
		cmd = exec.Command("sh", "-c", c.APIKeyCommand)
	}
	cmd.Stdin = os.Stdin
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("running api_key_command %q: %w", c.APIKeyCommand, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// APIConfigsPath returns the API config file location inside the
// config directory.
func APIConfigsPath(configDir string) string {
	return filepath.Join(configDir, apiConfigsFile)
}

// LoadAPIConfigs reads the full provider→config mapping.
func LoadAPIConfigs(configDir string) (map[string]APIConfig, error) {
	content, err := os.ReadFile(APIConfigsPath(configDir))
	if err != nil {
		return nil, fmt.Errorf("reading api configs: %w", err)
	}
	configs := map[string]APIConfig{}
	if err := toml.Unmarshal(content, &configs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", apiConfigsFile, err)
	}
	return configs, nil
}

// LoadAPIConfig fetches the block for one provider; a missing block is
// a configuration error, not a fallback.
func LoadAPIConfig(configDir string, api chat.API) (APIConfig, error) {
	configs, err := LoadAPIConfigs(configDir)
	if err != nil {
		return APIConfig{}, err
	}
	cfg, ok := configs[string(api)]
	if !ok {
		names := make([]string, 0, len(configs))
		for n := range configs {
			names = append(names, n)
		}
		sort.Strings(names)
		return APIConfig{}, fmt.Errorf("api %q not found in %s, available ones are %v", api, apiConfigsFile, names)
	}
	return cfg, nil
}

// defaultAPIConfigs seeds a fresh install with every known provider
// endpoint; users fill in keys afterwards.
func defaultAPIConfigs() map[string]APIConfig {
	return map[string]APIConfig{
		string(chat.APIOllama): {
			URL:            "http://localhost:11434/api/chat",
			DefaultModel:   "phi3",
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		string(chat.APIOpenAI): {
			URL:          "https://api.openai.com/v1/chat/completions",
			DefaultModel: "gpt-4",
		},
		string(chat.APIAzureOpenAI): {
			URL:          "https://your-azure-endpoint.azure.com/openai/deployments/your-deployment-id/chat/completions?api-version=2024-06-01",
			DefaultModel: "gpt-4o",
		},
		string(chat.APIMistral): {
			URL:          "https://api.mistral.ai/v1/chat/completions",
			DefaultModel: "mistral-medium",
		},
		string(chat.APIGroq): {
			URL:          "https://api.groq.com/openai/v1/chat/completions",
			DefaultModel: "llama3-70b-8192",
		},
		string(chat.APICerebras): {
			URL:          "https://api.cerebras.ai/v1/chat/completions",
			DefaultModel: "llama3.1-70b",
		},
		string(chat.APIAnthropic): {
			URL:          "https://api.anthropic.com/v1/messages",
			DefaultModel: "claude-3-opus-20240229",
			Version:      "2023-06-01",
		},
	}
}
