package articulated

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the solver knobs of a skeleton. Zero limits mean unlimited.
type Config struct {
	MaxIterations int     `toml:"max_iterations"`
	Tolerance     float64 `toml:"tolerance"`
	ClampEpsilon  float64 `toml:"clamp_epsilon"`
	MaxMass       float64 `toml:"max_mass"`
	MaxTraversal  int     `toml:"max_traversal"`
	MaxDiscovery  int     `toml:"max_discovery"`
	Debug         bool    `toml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: 8,
		Tolerance:     5.0e-2,
		ClampEpsilon:  1.0e-5,
		MaxMass:       1.0e10,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MaxIterations < 0:
		return fmt.Errorf("max_iterations %d is negative: %w", c.MaxIterations, ErrInvalidConfig)
	case c.Tolerance < 0:
		return fmt.Errorf("tolerance %g is negative: %w", c.Tolerance, ErrInvalidConfig)
	case c.ClampEpsilon < 0:
		return fmt.Errorf("clamp_epsilon %g is negative: %w", c.ClampEpsilon, ErrInvalidConfig)
	case c.MaxMass <= 0:
		return fmt.Errorf("max_mass %g must be positive: %w", c.MaxMass, ErrInvalidConfig)
	case c.MaxTraversal < 0:
		return fmt.Errorf("max_traversal %d is negative: %w", c.MaxTraversal, ErrInvalidConfig)
	case c.MaxDiscovery < 0:
		return fmt.Errorf("max_discovery %d is negative: %w", c.MaxDiscovery, ErrInvalidConfig)
	}
	return nil
}

// ParseConfig decodes TOML on top of DefaultConfig, so omitted keys keep
// their defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q: %w", undecoded[0].String(), ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
