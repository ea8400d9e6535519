package config

// Device alias file loading and validation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/session"
	"github.com/OpenTraceLab/OpenTraceTAP7/pkg/tap7"
)

// EnvPath names the environment variable consulted when no --config flag
// is given.
const EnvPath = "TAP7_CONFIG"

// Device is one named adapter alias. Zero-valued fields leave the session
// default in place.
type Device struct {
	Name       string `yaml:"name"`
	Spec       string `yaml:"spec"`
	Frequency  uint32 `yaml:"frequency,omitempty"`
	ScanFormat string `yaml:"scan_format,omitempty"` // "MScan", "OScan0" or "OScan1"
	ReadyCount int    `yaml:"ready_count,omitempty"`
	DelayCount int    `yaml:"delay_count,omitempty"`
}

// Config is the alias file.
type Config struct {
	Devices []Device `yaml:"devices"`
}

// Path resolves the alias file location: flag first, then $TAP7_CONFIG.
// An empty result means no file.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvPath)
}

// Load reads and validates the alias file at path. An empty path yields an
// empty config.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates alias YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every alias and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for i, d := range c.Devices {
		where := fmt.Sprintf("devices[%d]", i)
		if d.Name != "" {
			where = fmt.Sprintf("device %q", d.Name)
		}
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		case seen[strings.ToLower(d.Name)]:
			errs = append(errs, fmt.Errorf("%s: duplicate name", where))
		}
		seen[strings.ToLower(d.Name)] = true

		if d.Spec == "" {
			errs = append(errs, fmt.Errorf("%s: spec is required", where))
		} else if _, err := jtag.ParseDeviceSpec(d.Spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if d.ScanFormat != "" {
			if _, err := session.ParseScanFormat(d.ScanFormat); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
		}
		if d.ReadyCount < 0 || d.ReadyCount > tap7.MaxReadyCount {
			errs = append(errs, fmt.Errorf("%s: ready_count %d out of range 1..%d", where, d.ReadyCount, tap7.MaxReadyCount))
		}
		if d.DelayCount < 0 {
			errs = append(errs, fmt.Errorf("%s: negative delay_count", where))
		}
	}
	return errors.Join(errs...)
}

// Lookup finds an alias by case-insensitive name.
func (c *Config) Lookup(name string) (Device, bool) {
	for _, d := range c.Devices {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Device{}, false
}

// Apply copies the alias settings into opts. Callers apply explicit flags
// afterwards so they take precedence.
func (d Device) Apply(opts *session.Options) error {
	opts.Device = d.Spec
	if d.Frequency != 0 {
		opts.Frequency, opts.FrequencySet = d.Frequency, true
	}
	if d.ScanFormat != "" {
		f, err := session.ParseScanFormat(d.ScanFormat)
		if err != nil {
			return err
		}
		opts.ScanFormat = f
	}
	if d.ReadyCount != 0 {
		opts.ReadyCount = d.ReadyCount
	}
	if d.DelayCount != 0 {
		opts.DelayCount = d.DelayCount
	}
	return nil
}
