package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/engine/internal/core/observability/log"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine" toml:"engine"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Loader  LoaderConfig  `yaml:"loader" toml:"loader"`
	Demo    DemoConfig    `yaml:"demo" toml:"demo"`
}

type EngineConfig struct {
	TickRate        int           `yaml:"tick_rate" toml:"tick_rate"`       // frames per second
	MaxFrames       uint64        `yaml:"max_frames" toml:"max_frames"`     // 0 runs until cancelled
	QueryShards     int           `yaml:"query_shards" toml:"query_shards"` // rounded up to a power of two
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level"`
	Encoding string `yaml:"encoding" toml:"encoding"` // "json" or "console"
}

type LoaderConfig struct {
	Workers int `yaml:"workers" toml:"workers"`
}

// DemoConfig shapes the scene spawned by cmd/engine.
type DemoConfig struct {
	Rings     int     `yaml:"rings" toml:"rings"`
	PerRing   int     `yaml:"per_ring" toml:"per_ring"`
	Radius    float64 `yaml:"radius" toml:"radius"`
	ViewRange float64 `yaml:"view_range" toml:"view_range"`
}

func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate:        60,
			QueryShards:     16,
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
		Loader: LoaderConfig{
			Workers: 4,
		},
		Demo: DemoConfig{
			Rings:     3,
			PerRing:   8,
			Radius:    4,
			ViewRange: 10,
		},
	}
}

var ErrUnknownFormat = errors.New("unknown config format")

// Load reads path over the defaults. The format follows the extension:
// .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	defer f.Close()

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = LoadYAML(f)
	case ".toml":
		cfg, err = LoadTOML(f)
	default:
		return nil, fmt.Errorf("config %s: %w %q", path, ErrUnknownFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadYAML decodes r over the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes r over the defaults.
func LoadTOML(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Engine.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_rate must be positive, got %d", c.Engine.TickRate))
	}
	if c.Engine.QueryShards < 0 {
		errs = append(errs, fmt.Errorf("engine.query_shards must not be negative, got %d", c.Engine.QueryShards))
	}
	if c.Loader.Workers <= 0 {
		errs = append(errs, fmt.Errorf("loader.workers must be positive, got %d", c.Loader.Workers))
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding))
	}
	return errors.Join(errs...)
}

// FrameInterval is the wall time budget of one frame.
func (c *Config) FrameInterval() time.Duration {
	if c.Engine.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.Engine.TickRate)
}
