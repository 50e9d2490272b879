// Package config provides configuration loading and structs for the oboji bot.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/oboji/internal/storage"
	"gopkg.in/yaml.v3"
)

// EnvGeminiAPIKey is consulted when the config file carries no AI key.
const EnvGeminiAPIKey = "GEMINI_API_KEY"

// ErrMissingToken is returned by Validate when TOKEN is empty.
var ErrMissingToken = errors.New("config: TOKEN is required")

// Config holds all configuration for the application. The file is JSON
// (config.json); a .yaml or .yml file with the same keys is also accepted.
type Config struct {
	Token         string `yaml:"TOKEN" json:"TOKEN"`
	GeminiAPIKey  string `yaml:"GEMINI_API_KEY" json:"GEMINI_API_KEY"`
	ApplicationID string `yaml:"APPLICATION_ID" json:"APPLICATION_ID"`
	PublicKey     string `yaml:"PUBLIC_KEY" json:"PUBLIC_KEY"`

	Debug     bool            `yaml:"debug" json:"debug"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Knowledge KnowledgeConfig `yaml:"knowledge" json:"knowledge"`
	AI        AIConfig        `yaml:"ai" json:"ai"`
	Discord   DiscordConfig   `yaml:"discord" json:"discord"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// InsecureSkipVerify accepts interactions without a signature check
	// when no PUBLIC_KEY is configured. Local testing only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
	// ExposeInventory mounts GET /api/v1/inventory/{user}. The route has no
	// authentication, so enable it only on an ops-facing listener.
	ExposeInventory bool `yaml:"expose_inventory" json:"expose_inventory"`
}

// StorageConfig selects the inventory backend and its paths.
type StorageConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	InventoryPath string `yaml:"inventory_path" json:"inventory_path"`
	DatabasePath  string `yaml:"database_path" json:"database_path"`
}

// KnowledgeConfig locates the knowledge document sent with every AI query.
type KnowledgeConfig struct {
	Path  string `yaml:"path" json:"path"`
	Cache bool   `yaml:"cache" json:"cache"`
	Watch bool   `yaml:"watch" json:"watch"`
}

// AIConfig holds the generative backend settings.
type AIConfig struct {
	Endpoint string        `yaml:"endpoint" json:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// DiscordConfig holds REST API settings.
type DiscordConfig struct {
	APIBaseURL       string `yaml:"api_base_url" json:"api_base_url"`
	RegisterCommands *bool  `yaml:"register_commands" json:"register_commands"`
}

// RegisterCommandsOrDefault returns whether to register commands at startup; defaults to true when unset.
func (d *DiscordConfig) RegisterCommandsOrDefault() bool {
	if d.RegisterCommands != nil {
		return *d.RegisterCommands
	}
	return true
}

// Load reads and parses the config file at path, applies defaults and the
// environment fallback, and resolves relative paths against the file's directory.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv(EnvGeminiAPIKey)
	}
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.InventoryPath = expandPath(cfg.Storage.InventoryPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Knowledge.Path = expandPath(cfg.Knowledge.Path, configDir)

	return &cfg, nil
}

// decode picks the parser by file extension: YAML for .yaml/.yml, JSON otherwise.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after config object")
	}
	return nil
}

// UnmarshalJSON reads timeout as a duration string such as "30s", matching
// how yaml.v3 decodes time.Duration.
func (a *AIConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Endpoint string          `json:"endpoint"`
		Timeout  json.RawMessage `json:"timeout"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.Endpoint = raw.Endpoint
	a.Timeout = 0
	if len(raw.Timeout) == 0 || string(raw.Timeout) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Timeout, &s); err != nil {
		return fmt.Errorf("ai.timeout must be a duration string like \"30s\"")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("ai.timeout: %w", err)
	}
	a.Timeout = d
	return nil
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrMissingToken
	}
	switch c.Storage.Backend {
	case storage.BackendJSON, storage.BackendSQLite:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("config: ai.timeout must not be negative")
	}
	return nil
}

// Address returns host:port for the HTTP server.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. "~/" is relative to the home
// directory; other relative paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
		return abs
	}
	return filepath.Join(configDir, path)
}
