package config

import (
	"github.com/hyperjump/oboji/internal/discord"
	"github.com/hyperjump/oboji/internal/gemini"
	"github.com/hyperjump/oboji/internal/storage"
)

// Default paths, relative to the config file.
const (
	DefaultInventoryPath = "db/inventories.json"
	DefaultDatabasePath  = "db/inventories.db"
	DefaultKnowledgePath = "knowledge.txt"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.BackendJSON
	}
	if cfg.Storage.InventoryPath == "" {
		cfg.Storage.InventoryPath = DefaultInventoryPath
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}
	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = DefaultKnowledgePath
	}
	if cfg.AI.Endpoint == "" {
		cfg.AI.Endpoint = gemini.DefaultEndpoint
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = gemini.DefaultTimeout
	}
	if cfg.Discord.APIBaseURL == "" {
		cfg.Discord.APIBaseURL = discord.DefaultAPIBaseURL
	}
}
