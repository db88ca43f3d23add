// Package config loads mmctl configuration files.
//
// Example:
//
//	heap:
//	  max_size: 20MiB
//	policy: malloclab        # malloclab | fine | coarse | custom
//	size_classes:            # used when policy is custom
//	  threshold: 1024
//	  band_width: 16384
//	driver:
//	  util_weight: 0.60
//	  libc_kops: 600
//	  iterations: 3
//	  check: false
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/shouao/CSAPP-Labs/heap"
	"github.com/shouao/CSAPP-Labs/heap/alloc"
)

// Policy names accepted in the policy field.
const (
	PolicyMalloclab = "malloclab"
	PolicyFine      = "fine"
	PolicyCoarse    = "coarse"
	PolicyCustom    = "custom"
)

// Driver defaults.
const (
	DefaultUtilWeight = 0.60
	DefaultLibcKops   = 600.0
	DefaultIterations = 1
)

// ErrInvalid is returned for configuration values out of range.
var ErrInvalid = errors.New("config: invalid value")

// ByteSize is a byte count that accepts human strings ("20MiB", "64 kB")
// or plain integers in YAML.
type ByteSize int

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: size must be a scalar", ErrInvalid, value.Line)
	}
	n, err := ParseSize(value.Value)
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return humanize.IBytes(uint64(b)), nil
}

// ParseSize parses a human byte size.
func ParseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %w", ErrInvalid, s, err)
	}
	if n == 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: size %q out of range", ErrInvalid, s)
	}
	return int(n), nil
}

// HeapConfig configures the emulated heap.
type HeapConfig struct {
	MaxSize ByteSize `yaml:"max_size"`
}

// SizeClassConfig configures a custom bucket policy.
type SizeClassConfig struct {
	Threshold int `yaml:"threshold"`
	BandWidth int `yaml:"band_width"`
}

// DriverConfig configures trace replay and scoring.
type DriverConfig struct {
	UtilWeight float64 `yaml:"util_weight"`
	LibcKops   float64 `yaml:"libc_kops"`
	Iterations int     `yaml:"iterations"`
	Check      bool    `yaml:"check"`
}

// Config is the top-level configuration.
type Config struct {
	Heap        HeapConfig      `yaml:"heap"`
	Policy      string          `yaml:"policy"`
	SizeClasses SizeClassConfig `yaml:"size_classes"`
	Driver      DriverConfig    `yaml:"driver"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Heap:   HeapConfig{MaxSize: heap.DefaultMaxSize},
		Policy: PolicyMalloclab,
		SizeClasses: SizeClassConfig{
			Threshold: alloc.ConfigMalloclab.Threshold,
			BandWidth: alloc.ConfigMalloclab.BandWidth,
		},
		Driver: DriverConfig{
			UtilWeight: DefaultUtilWeight,
			LibcKops:   DefaultLibcKops,
			Iterations: DefaultIterations,
		},
	}
}

// Load reads the file at path over the defaults. Fields missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	d.KnownFields(true)
	if err := d.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Heap.MaxSize <= 0 || int64(c.Heap.MaxSize) > math.MaxUint32 {
		return fmt.Errorf("%w: heap.max_size %d", ErrInvalid, c.Heap.MaxSize)
	}
	if _, err := c.SizeClassPolicy(); err != nil {
		return err
	}
	if c.Driver.UtilWeight < 0 || c.Driver.UtilWeight > 1 {
		return fmt.Errorf("%w: driver.util_weight %v not in [0, 1]", ErrInvalid, c.Driver.UtilWeight)
	}
	if c.Driver.LibcKops <= 0 {
		return fmt.Errorf("%w: driver.libc_kops %v", ErrInvalid, c.Driver.LibcKops)
	}
	if c.Driver.Iterations < 1 {
		return fmt.Errorf("%w: driver.iterations %d", ErrInvalid, c.Driver.Iterations)
	}
	return nil
}

// SizeClassPolicy resolves the policy name to an allocator configuration.
func (c *Config) SizeClassPolicy() (*alloc.SizeClassConfig, error) {
	var policy alloc.SizeClassConfig
	switch strings.ToLower(c.Policy) {
	case "", PolicyMalloclab:
		policy = alloc.ConfigMalloclab
	case PolicyFine:
		policy = alloc.ConfigFine
	case PolicyCoarse:
		policy = alloc.ConfigCoarse
	case PolicyCustom:
		if c.SizeClasses.Threshold <= 0 || c.SizeClasses.BandWidth <= 0 {
			return nil, fmt.Errorf("%w: size_classes threshold=%d band_width=%d",
				ErrInvalid, c.SizeClasses.Threshold, c.SizeClasses.BandWidth)
		}
		policy = alloc.SizeClassConfig{
			Name:      "Custom",
			Threshold: c.SizeClasses.Threshold,
			BandWidth: c.SizeClasses.BandWidth,
		}
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalid, c.Policy)
	}
	return &policy, nil
}
