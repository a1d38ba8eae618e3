// Package config holds the configuration of the pinpoint binary.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

var ErrConfiguration = errors.New("invalid configuration")

const (
	DefaultPort         = 1337
	DefaultElasticIndex = "pinpoint-results"
)

type Config struct {
	Port int `yaml:"port"`
	// DatabaseFile is the sqlite file results are stored in. Empty means in-memory.
	DatabaseFile string `yaml:"database_file"`
	// Libraries are plugin files that provide test classes, each one is loaded into
	// its own isolation context.
	Libraries []string `yaml:"libraries"`
	// Instance labels the results of this process.
	Instance  string     `yaml:"instance"`
	LogLevel  string     `yaml:"log_level"`
	Elastic   Elastic    `yaml:"elastic"`
	Schedules []Schedule `yaml:"schedules"`
}

type Elastic struct {
	URL   string `yaml:"url"`
	Index string `yaml:"index"`
}

// Schedule runs a single test method on a cron schedule.
type Schedule struct {
	Class    string `yaml:"class"`
	Method   string `yaml:"method"`
	Schedule string `yaml:"schedule"`
}

func Default() Config {
	return Config{
		Port:     DefaultPort,
		LogLevel: "info",
		Elastic: Elastic{
			Index: DefaultElasticIndex,
		},
	}
}

// Load reads a yaml config file on top of the defaults.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
	}

	return c, nil
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrConfiguration, c.Port)
	}

	if c.Elastic.URL != "" && c.Elastic.Index == "" {
		return fmt.Errorf("%w: missing elastic index", ErrConfiguration)
	}

	for i, s := range c.Schedules {
		if s.Class == "" || s.Method == "" {
			return fmt.Errorf("%w: schedule %d: missing class or method", ErrConfiguration, i)
		}
		if s.Schedule == "" {
			return fmt.Errorf("%w: schedule %d: missing schedule", ErrConfiguration, i)
		}
	}

	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("port '%d', database '%s', libraries '%d', instance '%s'",
		c.Port, c.DatabaseFile, len(c.Libraries), c.Instance)
}
