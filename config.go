package newsdesk

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that TOML-decodes from strings like "60s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the client configuration, loaded from a TOML file.
type Config struct {
	API struct {
		BaseURL string `toml:"base_url"`
		// Timeout bounds every request. "0s" disables the timeout; a
		// hung request then stays in flight until the server gives up.
		Timeout Duration `toml:"timeout"`
	} `toml:"api"`

	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`

	Session struct {
		TokenPath string `toml:"token_path"`
	} `toml:"session"`

	Fetch struct {
		Sources       []int64 `toml:"sources"`
		MaxArticles   int     `toml:"max_articles"`
		SummaryFormat string  `toml:"summary_format"`
		SummaryLength string  `toml:"summary_length"`
	} `toml:"fetch"`

	Catalog struct {
		// Path to an optional YAML source-catalog override file.
		Path string `toml:"path"`
	} `toml:"catalog"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "https://localhost:8443"
	cfg.API.Timeout = Duration(60 * time.Second)
	cfg.Database.Path = "./newsdesk.db"
	cfg.Session.TokenPath = "./config/session.token"
	cfg.Fetch.Sources = []int64{1}
	cfg.Fetch.MaxArticles = 5
	cfg.Fetch.SummaryFormat = "paragraph"
	cfg.Fetch.SummaryLength = "medium"
	return cfg
}

// LoadConfig reads a TOML config file, applying defaults for everything the
// file omits. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
