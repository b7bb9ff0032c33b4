package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/codewiresh/cqlwire/primitive"
)

// Config is the tool configuration loaded from config.toml. Flags override
// whatever the file says.
type Config struct {
	// Protocol version assumed when decoding raw captures.
	Version int `toml:"version"`
	// Compression negotiated on the captured connection: "", "lz4", "snappy".
	Compression string `toml:"compression"`
	// Color: "auto" (default), "always", "never".
	Color string `toml:"color"`
	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`
}

func defaultConfig() Config {
	return Config{Version: int(primitive.Version4), Color: "auto"}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cqldump", "config.toml")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file is not an error; a missing explicit one is.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !primitive.Version(c.Version).Supported() {
		return fmt.Errorf("unsupported protocol version %d", c.Version)
	}
	switch c.Compression {
	case "", "lz4", "snappy":
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode %q", c.Color)
	}
	return nil
}
