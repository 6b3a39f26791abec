package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/IvanShishkin/indexscan/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading environment variables
const EnvPrefix = "INDEXSCAN"

// Config represents the scanner configuration
type Config struct {
	// Scan settings
	Root           string   `mapstructure:"root" yaml:"root"`                       // directory to scan
	Include        []string `mapstructure:"include" yaml:"include"`                 // include globs, "!glob" excludes
	Ignore         []string `mapstructure:"ignore" yaml:"ignore"`                   // extra ignore patterns
	MaxSize        string   `mapstructure:"max_size" yaml:"max_size"`               // maximum file size, "" or "none" disables
	Concurrency    int      `mapstructure:"concurrency" yaml:"concurrency"`         // number of worker goroutines
	FollowSymlinks bool     `mapstructure:"follow_symlinks" yaml:"follow_symlinks"` // descend into symlinked directories
	Absolute       bool     `mapstructure:"absolute" yaml:"absolute"`               // emit abs_path
	SampleBytes    int      `mapstructure:"sample_bytes" yaml:"sample_bytes"`       // classifier sample size

	// Pipeline settings
	ChannelCapacity int `mapstructure:"channel_capacity" yaml:"channel_capacity"` // in-flight records

	// Output settings
	Output string `mapstructure:"output" yaml:"output"` // NDJSON destination, "-" for stdout
	Sort   bool   `mapstructure:"sort" yaml:"sort"`     // sort records by path before writing
}

// LoadConfig loads configuration from defaults, an optional config file and environment variables
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("root", ".")
	v.SetDefault("include", []string{"**/*"})
	v.SetDefault("ignore", []string{})
	v.SetDefault("max_size", "5M")
	v.SetDefault("concurrency", runtime.NumCPU()*2)
	v.SetDefault("follow_symlinks", false)
	v.SetDefault("absolute", false)
	v.SetDefault("sample_bytes", 4096)
	v.SetDefault("channel_capacity", core.DefaultChannelCapacity)
	v.SetDefault("output", "-")
	v.SetDefault("sort", false)

	// Read config file
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values a scan cannot run with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if c.SampleBytes < 0 {
		errs = append(errs, fmt.Errorf("sample_bytes must not be negative, got %d", c.SampleBytes))
	}
	if c.ChannelCapacity < 0 {
		errs = append(errs, fmt.Errorf("channel_capacity must not be negative, got %d", c.ChannelCapacity))
	}
	if _, _, err := SizeLimit(c.MaxSize); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ScanOptions converts the configuration into scanner options
func (c *Config) ScanOptions() (core.Options, error) {
	if err := c.Validate(); err != nil {
		return core.Options{}, err
	}
	maxSize, limited, err := SizeLimit(c.MaxSize)
	if err != nil {
		return core.Options{}, err
	}

	concurrency := c.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return core.Options{
		Root:            c.Root,
		Include:         append([]string(nil), c.Include...),
		Ignore:          append([]string(nil), c.Ignore...),
		LimitSize:       limited,
		MaxSizeBytes:    maxSize,
		Concurrency:     concurrency,
		FollowSymlinks:  c.FollowSymlinks,
		Absolute:        c.Absolute,
		SampleBytes:     c.SampleBytes,
		ChannelCapacity: c.ChannelCapacity,
	}, nil
}

// SizeLimit interprets a max_size value. "", "none", "off" and "unlimited"
// disable the limit. Any other value is parsed by ParseSize, so "0" keeps only empty files.
func SizeLimit(sizeStr string) (int64, bool, error) {
	switch strings.ToLower(strings.TrimSpace(sizeStr)) {
	case "", "none", "off", "unlimited":
		return 0, false, nil
	}
	size, err := ParseSize(sizeStr)
	if err != nil {
		return 0, false, err
	}
	return size, true, nil
}

// ParseSize parses size string (e.g., "650K", "1M") to bytes.
// An empty string returns 0.
func ParseSize(sizeStr string) (int64, error) {
	s := strings.TrimSpace(sizeStr)
	if s == "" {
		return 0, nil
	}

	// Get last character (unit)
	var multiplier int64 = 1
	switch s[len(s)-1] {
	case 'B', 'b':
		s = s[:len(s)-1]
	}
	if s != "" {
		switch s[len(s)-1] {
		case 'K', 'k':
			multiplier = 1024
			s = s[:len(s)-1]
		case 'M', 'm':
			multiplier = 1024 * 1024
			s = s[:len(s)-1]
		case 'G', 'g':
			multiplier = 1024 * 1024 * 1024
			s = s[:len(s)-1]
		}
	}

	// Parse number
	size, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", sizeStr)
	}
	if size < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", sizeStr)
	}
	if size > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("invalid size %q: too large", sizeStr)
	}

	return size * multiplier, nil
}
