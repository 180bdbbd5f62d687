package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// GeminiAPIKey is optional. Without it the game runs offline with keyword
	// sentiment and scripted companions.
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	Model        string        `env:"ECHO_MODEL" envDefault:"gemini-2.5-flash"`
	SaveDir      string        `env:"ECHO_SAVE_DIR" envDefault:".saves"`
	MemoryDBPath string        `env:"ECHO_MEMORY_DB"`
	Room3Timer   time.Duration `env:"ECHO_ROOM3_TIMER" envDefault:"5m"`
	MaxPlayers   int           `env:"ECHO_MAX_PLAYERS" envDefault:"1000"`
	MCPTransport string        `env:"ECHO_MCP_TRANSPORT" envDefault:"stdio"`
	MCPHTTPAddr  string        `env:"ECHO_MCP_HTTP_ADDR" envDefault:"localhost:8081"`
	PlayerID     string        `env:"ECHO_PLAYER_ID"`
}

// LoadConfig loads the configuration from a .env file, if present, and the
// environment. Variables already set in the environment win over .env.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MemoryDBPath == "" {
		cfg.MemoryDBPath = filepath.Join(cfg.SaveDir, "memory.db")
	}
	if cfg.Room3Timer < 0 {
		return nil, fmt.Errorf("ECHO_ROOM3_TIMER must not be negative, got %s", cfg.Room3Timer)
	}
	switch cfg.MCPTransport {
	case "stdio", "http":
	default:
		return nil, fmt.Errorf("ECHO_MCP_TRANSPORT must be stdio or http, got %q", cfg.MCPTransport)
	}
	return cfg, nil
}

// Offline reports whether no Gemini key is configured.
func (c *Config) Offline() bool {
	return c.GeminiAPIKey == ""
}

const playerIDFile = "player_id"

// ResolvePlayerID returns the configured player id, or the id stored in the
// save dir, generating and storing a new one on first use.
func (c *Config) ResolvePlayerID() (string, error) {
	if c.PlayerID != "" {
		return c.PlayerID, nil
	}
	path := filepath.Join(c.SaveDir, playerIDFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			c.PlayerID = id
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read player id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write player id: %w", err)
	}
	c.PlayerID = id
	return id, nil
}
