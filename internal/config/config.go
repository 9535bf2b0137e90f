// Package config resolves the on-disk configuration of the tool: the
// config directory, the per-provider API blocks and the bootstrap of
// default files on first run. The core never touches these files
// directly; it receives resolved values.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"

	"github.com/aicat-dev/aicat/internal/chat"
)

// ConfigPathEnvVar overrides the config directory, mainly for tests
// and portable setups.
const ConfigPathEnvVar = "AICAT_CONFIG_PATH"

const defaultConfigSubdir = ".config/aicat"

// Dir resolves the configuration directory: the env override if set,
// otherwise a fixed location under the user's home.
func Dir() (string, error) {
	if custom := os.Getenv(ConfigPathEnvVar); custom != "" {
		return custom, nil
	}
	homeVar := "HOME"
	if runtime.GOOS == "windows" {
		homeVar = "USERPROFILE"
	}
	home := os.Getenv(homeVar)
	if home == "" {
		return "", fmt.Errorf("could not determine config path: set $%s or $%s", ConfigPathEnvVar, homeVar)
	}
	return filepath.Join(home, defaultConfigSubdir), nil
}

// EnsureFiles generates the prompt template and API config files when
// they do not exist yet. Existing files are never touched.
func EnsureFiles(configDir string, interactive bool) error {
	promptsPath := chat.PromptsPath(configDir)
	if _, err := os.Stat(promptsPath); os.IsNotExist(err) {
		if interactive {
			fmt.Fprintf(os.Stderr, "Prompt config file not found at %s, generating one.\n...\n", promptsPath)
		}
		if err := writePromptsFile(promptsPath); err != nil {
			return err
		}
	}

	apiPath := APIConfigsPath(configDir)
	if _, err := os.Stat(apiPath); os.IsNotExist(err) {
		if interactive {
			fmt.Fprintf(os.Stderr, "API config file not found at %s, generating one.\n...\n", apiPath)
		}
		if err := writeAPIConfigsFile(apiPath); err != nil {
			return err
		}
	}

	return nil
}

func writePromptsFile(path string) error {
	templates := map[string]chat.Prompt{
		"default": chat.DefaultPrompt(),
		"empty":   chat.EmptyPrompt(),
	}
	header := "# Prompt template file\n# each entry is a named chat template; `default` is used when no template is named\n\n"
	return writeTOMLFile(path, header, templates)
}

func writeAPIConfigsFile(path string) error {
	header := "# API config file, use `api_key` or `api_key_command`\n# to set the credential for each provider\n\n"
	return writeTOMLFile(path, header, defaultAPIConfigs())
}

func writeTOMLFile(path, header string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	content, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append([]byte(header), content...), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CheckUsable prints setup hints when neither an API key nor a local
// ollama install is available. It never fails the run by itself.
func CheckUsable(configDir string) {
	keyConfigured := false
	if configs, err := LoadAPIConfigs(configDir); err == nil {
		for _, cfg := range configs {
			if cfg.APIKey != "" || cfg.APIKeyCommand != "" {
				keyConfigured = true
				break
			}
		}
	}
	if !keyConfigured {
		fmt.Fprintf(os.Stderr, "No API key is configured. Add an api_key or api_key_command entry to %s\n", APIConfigsPath(configDir))
	}

	if _, err := exec.LookPath("ollama"); err != nil && !keyConfigured {
		fmt.Fprintln(os.Stderr, "Ollama was not found in PATH either; install it or configure a provider key to get started.")
	}
}
