package kvfifo

import (
	"encoding/json"
	"fmt"
	"os"
)

const defaultObserver = "noop"

// Config holds queue construction parameters.
type Config struct {
	Capacity int    `json:"capacity,omitempty"` // Initial arena capacity of the first snapshot.
	Observer string `json:"observer,omitempty"` // Registered observer name.
}

// DefaultConfig returns a Config with no preallocation and the no-op observer.
func DefaultConfig() Config {
	return Config{
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Capacity > 0 {
		c.Capacity = source.Capacity
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
