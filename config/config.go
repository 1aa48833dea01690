/*
Package config manages the TOML configuration of the lookup service.

	[server]
	addr = "0.0.0.0:8080"
	max_values = 10
	max_matches = 0

	[index]
	dir = "."

	[metrics]
	addr = "127.0.0.1:9090"

	[log]
	level = "info"

A missing file is not an error, the built-in defaults are used instead.
Values not present in the file keep their defaults.
*/
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dchest/safefile"
	"github.com/pkg/errors"
)

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Index   IndexConfig   `toml:"index"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig has the HTTP listener and rendering options.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	MaxValues    int      `toml:"max_values"`
	MaxMatches   int      `toml:"max_matches"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// IndexConfig says where the index artifacts are.
type IndexConfig struct {
	Dir string `toml:"dir"`
}

// MetricsConfig controls the Prometheus listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration that is written as a string ("5s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:8080",
			MaxValues:    10,
			MaxMatches:   0,
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Index: IndexConfig{
			Dir: ".",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file on top of the defaults. An empty path or a
// file that does not exist yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.MaxValues < 0 {
		return errors.New("server.max_values must not be negative")
	}
	if c.Server.MaxMatches < 0 {
		return errors.New("server.max_matches must not be negative")
	}
	return nil
}

// Save writes the config as TOML, replacing the file atomically.
func (c *Config) Save(path string) error {
	file, err := safefile.Create(path, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	err = toml.NewEncoder(file).Encode(c)
	if err != nil {
		return errors.Wrap(err, "encode failed")
	}
	return file.Commit()
}
