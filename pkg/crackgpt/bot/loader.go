// Package bot – loader.go handles loading configuration from YAML files
// with credentials resolved from the environment and .env files. The bot
// also runs without any config file at all: defaults plus environment
// variables are enough.
package bot

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfig builds the configuration from an optional YAML file plus the
// environment. Secrets are never required in the file itself.
func LoadConfig(path string) (*Config, error) {
	// Load .env files (silently ignore if not found).
	loadEnvFiles()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		// Expand environment variables in YAML before parsing.
		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	// Resolve secrets from keyring/environment (override empty values).
	resolveSecrets(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"crackgpt.yaml",
		"crackgpt.yml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, f := range envFiles {
		// godotenv.Load does NOT overwrite existing env vars.
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references in a string
// with their environment variable values.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val, ok := os.LookupEnv(varName); ok {
			return val
		}

		// Return original if env var not set (allows placeholder to remain).
		return match
	})
}

// resolveSecrets fills in config secrets when the config value is empty,
// trying the OS keyring first and environment variables second.
func resolveSecrets(cfg *Config) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = firstNonEmpty(
			GetKeyring(keyringDiscordToken),
			os.Getenv("CRACKGPT_DISCORD_TOKEN"),
			os.Getenv("DISCORD_TOKEN"),
		)
	}
	if cfg.Spotify.ClientID == "" {
		cfg.Spotify.ClientID = firstNonEmpty(
			GetKeyring(keyringSpotifyID),
			os.Getenv("SPOTIFY_CLIENT_ID"),
		)
	}
	if cfg.Spotify.ClientSecret == "" {
		cfg.Spotify.ClientSecret = firstNonEmpty(
			GetKeyring(keyringSpotifySecret),
			os.Getenv("SPOTIFY_CLIENT_SECRET"),
		)
	}
}

// applyEnvOverrides lets the most common operational knobs be set from the
// environment without a config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRACKGPT_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("CRACKGPT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRACKGPT_ALLOWED_CHANNELS"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		cfg.AllowedChannels = ids
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
