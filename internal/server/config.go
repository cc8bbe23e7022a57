package server

import "github.com/BurntSushi/toml"

// Config is the server configuration, optionally loaded from a TOML file.
// Flags override file values; the zero file is fully usable.
type Config struct {
	Listen    string          `toml:"listen"`
	DataDir   string          `toml:"data_dir"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig tunes the per-source-address token bucket guarding room
// creation.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// DefaultConfig returns the built-in defaults: in-memory config store and a
// gentle creation limit per source address.
func DefaultConfig() Config {
	return Config{
		Listen: ":8080",
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 10,
		},
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
