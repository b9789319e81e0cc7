package hierarchy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/cache"
)

// Config holds the geometry and write policy of every level.
type Config struct {
	// L1Instruction serves instruction fetches.
	L1Instruction cache.Config `json:"l1_instruction"`
	// L1Data serves data reads and writes.
	L1Data cache.Config `json:"l1_data"`
	// L2 is the unified level behind both L1 caches.
	L2 cache.Config `json:"l2"`
}

// DefaultConfig returns a Config with the default level geometries.
func DefaultConfig() *Config {
	return &Config{
		L1Instruction: cache.DefaultL1IConfig(),
		L1Data:        cache.DefaultL1DConfig(),
		L2:            cache.DefaultL2Config(),
	}
}

// LoadConfig loads a Config from a JSON file. Levels or fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize hierarchy config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hierarchy config file: %w", err)
	}

	return nil
}

// Validate checks that every level has a valid geometry.
func (c *Config) Validate() error {
	for _, level := range c.levels() {
		if err := level.config.Validate(); err != nil {
			return fmt.Errorf("%s: %w", level.name, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	return &Config{
		L1Instruction: c.L1Instruction,
		L1Data:        c.L1Data,
		L2:            c.L2,
	}
}

type levelConfig struct {
	name   string
	config cache.Config
}

// levels lists the level configurations in Level order.
func (c *Config) levels() []levelConfig {
	return []levelConfig{
		{name: L1Instruction.String(), config: c.L1Instruction},
		{name: L1Data.String(), config: c.L1Data},
		{name: L2.String(), config: c.L2},
	}
}
