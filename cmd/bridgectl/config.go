package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/memory"
)

// Config is the bridgectl configuration file. Flags set on the command line
// override file values.
type Config struct {
	Allocator   string `yaml:"allocator"`
	LogLevel    string `yaml:"log_level"`
	Iterations  int    `yaml:"iterations"`
	MemoryLimit int64  `yaml:"memory_limit"`
	Debug       bool   `yaml:"debug"`
}

func defaultConfig() Config {
	return Config{
		Allocator:  "default",
		LogLevel:   "warn",
		Iterations: 10_000,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("memory_limit must not be negative, got %d", c.MemoryLimit)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := memory.ByName(c.Allocator); err != nil {
		return fmt.Errorf("allocator: %w", err)
	}
	return nil
}

// applyFlags copies every flag the user set explicitly into c.
func (c *Config) applyFlags(fs *flag.FlagSet, f *flags) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "allocator":
			c.Allocator = f.allocator
		case "log-level":
			c.LogLevel = f.logLevel
		case "n":
			c.Iterations = f.iterations
		case "limit":
			c.MemoryLimit = f.limit
		case "debug":
			c.Debug = f.debug
		}
	})
}

func (c Config) logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// runtime creates a bridge runtime from c.
func (c Config) runtime(logger *zap.Logger) (*objbridge.Runtime, error) {
	alloc, err := memory.ByName(c.Allocator)
	if err != nil {
		return nil, err
	}
	return objbridge.New(objbridge.Config{
		Allocator:   alloc,
		Logger:      logger,
		MemoryLimit: c.MemoryLimit,
		Debug:       c.Debug,
	})
}
