package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultTokenEnv is the environment variable holding the Telegram bot
// token when the config does not name one.
const DefaultTokenEnv = "TELEGRAM_BOT_TOKEN"

// Config represents the ideabot.json configuration file
type Config struct {
	Version  string  `json:"version"`
	Telegram Telegram `json:"telegram"`
	Refiner  Refiner  `json:"refiner"`
	Tracker  Tracker  `json:"tracker"`
	Audit    Audit    `json:"audit"`
	Blog     Blog     `json:"blog"`
}

// Telegram contains bot transport settings. The token itself is never
// stored in the file; only the name of the environment variable is.
type Telegram struct {
	TokenEnv       string  `json:"token_env"`
	AllowedUserIDs []int64 `json:"allowed_user_ids"`
}

// Refiner contains the command used to turn free text into a draft
type Refiner struct {
	Cmd            []string `json:"cmd"`
	TimeoutS       int      `json:"timeout_s,omitempty"`
	MaxOutputBytes int      `json:"max_output_bytes,omitempty"`
}

// Tracker contains the gh CLI settings for issue and board registration
type Tracker struct {
	Bin      string `json:"bin,omitempty"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Project  string `json:"project"`
	TimeoutS int    `json:"timeout_s,omitempty"`
}

// Audit contains the intake event log settings
type Audit struct {
	Path string `json:"path,omitempty"`
}

// Blog contains the CRUD service settings
type Blog struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`
}

// GenerateDefault creates a new Config with default values
func GenerateDefault() *Config {
	return &Config{
		Version: "1.0",
		Telegram: Telegram{
			TokenEnv:       DefaultTokenEnv,
			AllowedUserIDs: []int64{},
		},
		Refiner: Refiner{
			Cmd:            []string{"claude", "-p"},
			TimeoutS:       90,
			MaxOutputBytes: 1048576,
		},
		Tracker: Tracker{
			Bin:      "gh",
			Owner:    "wooix",
			Repo:     "claude-blog-app",
			Project:  "1",
			TimeoutS: 30,
		},
		Audit: Audit{
			Path: "ideabot-events.ndjson",
		},
		Blog: Blog{
			ListenAddr: ":8000",
			DBPath:     "blog.db",
		},
	}
}

// Validate checks the configuration for errors and returns user-friendly error messages
func (c *Config) Validate() error {
	// Version is required
	if c.Version == "" {
		return fmt.Errorf("configuration error: missing required field 'version'\n\nHint: Add a version field like:\n  \"version\": \"1.0\"")
	}

	if len(c.Refiner.Cmd) == 0 {
		return fmt.Errorf("configuration error: 'refiner.cmd' is empty\n\nHint: Specify the command that refines ideas:\n  \"refiner\": {\n    \"cmd\": [\"claude\", \"-p\"]\n  }")
	}

	if c.Refiner.TimeoutS < 0 {
		return fmt.Errorf("configuration error: invalid 'refiner.timeout_s' value: %d\n\nHint: Use a positive number of seconds, or omit the field for the default", c.Refiner.TimeoutS)
	}

	if c.Tracker.Owner == "" || c.Tracker.Repo == "" {
		return fmt.Errorf("configuration error: missing 'tracker.owner' or 'tracker.repo'\n\nHint: Name the repository issues are created in:\n  \"tracker\": {\n    \"owner\": \"wooix\",\n    \"repo\": \"claude-blog-app\"\n  }")
	}

	if c.Tracker.Project == "" {
		return fmt.Errorf("configuration error: missing required field 'tracker.project'\n\nHint: Set the project board number:\n  \"tracker\": {\n    \"project\": \"1\"\n  }")
	}

	return nil
}

// TokenEnvName returns the environment variable the bot token is read from.
func (c *Config) TokenEnvName() string {
	if c.Telegram.TokenEnv == "" {
		return DefaultTokenEnv
	}
	return c.Telegram.TokenEnv
}

// LoadFromFile loads a configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// SaveToFile writes the configuration to a JSON file with 0600 permissions
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	// Write with 0600 permissions (owner read/write only)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
