// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ironsheep/braille-tools-mcp/internal/braille"
	"github.com/ironsheep/braille-tools-mcp/internal/detection"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel            slog.Level
	ConfidenceThreshold float64
	IoUThreshold        float64
	ModelSize           int
	TableGrade1         string // empty means the embedded table
	TableGrade2         string
	HistoryDB           string // empty disables history
	Workers             int
}

// Load reads .env (if present) and then the process environment. Variables
// already set in the environment take precedence over .env values.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile is Load with an explicit .env path. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		LogLevel:            getEnvAsLevel("BRAILLE_MCP_LOG_LEVEL", slog.LevelInfo),
		ConfidenceThreshold: clamp01(getEnvAsFloat("BRAILLE_MCP_CONFIDENCE", 0.25)),
		IoUThreshold:        getEnvAsFloat("BRAILLE_MCP_NMS_IOU", detection.DefaultIoUThreshold),
		ModelSize:           getEnvAsInt("BRAILLE_MCP_MODEL_SIZE", 640),
		TableGrade1:         getEnv("BRAILLE_MCP_TABLE_G1", ""),
		TableGrade2:         getEnv("BRAILLE_MCP_TABLE_G2", ""),
		HistoryDB:           getEnv("BRAILLE_MCP_HISTORY_DB", ""),
		Workers:             getEnvAsInt("BRAILLE_MCP_WORKERS", 4),
	}
}

// Validate checks ranges. It does not open any files.
func (c *Config) Validate() error {
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("%w: NMS IoU threshold %v outside (0,1]", ErrInvalidConfig, c.IoUThreshold)
	}
	if c.ModelSize <= 0 {
		return fmt.Errorf("%w: model size %d", ErrInvalidConfig, c.ModelSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Resolver loads the configured class tables, falling back to the embedded
// ones, and checks that no local id reaches the Grade-2 merge offset.
func (c *Config) Resolver() (*braille.Resolver, error) {
	g1, err := c.table(braille.Grade1, c.TableGrade1)
	if err != nil {
		return nil, err
	}
	g2, err := c.table(braille.Grade2, c.TableGrade2)
	if err != nil {
		return nil, err
	}
	return braille.NewResolver(g1, g2)
}

func (c *Config) table(g braille.Grade, path string) (*braille.Table, error) {
	if path == "" {
		return braille.DefaultTable(g)
	}
	t, err := braille.LoadTableFile(path)
	if err != nil {
		return nil, err
	}
	if t.Grade() != g {
		return nil, fmt.Errorf("%w: %s declares %v, expected %v", ErrInvalidConfig, path, t.Grade(), g)
	}
	return t, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return defaultValue
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
