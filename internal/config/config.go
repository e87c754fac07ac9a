// Package config loads the node-level configuration for a reassembler
// host: payload limits, transfer timeout, and the link sources to
// start. Values come from a YAML file; cmd/uavreasm-node lets only the
// node name be overridden by a command-line flag.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be written in a config file as
// a human string ("500ms", "2s") instead of a raw nanosecond count.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// LinkSource describes one configured frame source.
type LinkSource struct {
	Kind string `yaml:"kind"` // "udp", "serial", or "pty"

	// UDP
	ListenAddr string `yaml:"listen_addr,omitempty"`

	// Serial / PTY
	Device   string `yaml:"device,omitempty"`
	BaudRate int    `yaml:"baud_rate,omitempty"`
}

// Config is the node's full static configuration.
type Config struct {
	NodeName string `yaml:"node_name"`

	// MaxPayloadSizeBytes bounds every reassembler created on this node;
	// it is the ceiling spec.md §4.5 step (g) enforces.
	MaxPayloadSizeBytes int `yaml:"max_payload_size_bytes"`

	// TransferIDTimeout is how long an in-flight transfer waits for its
	// remaining frames before being abandoned.
	TransferIDTimeout Duration `yaml:"transfer_id_timeout"`

	// AnnounceDNSSD, when true, advertises this node via mDNS/DNS-SD.
	AnnounceDNSSD bool `yaml:"announce_dns_sd"`

	Links []LinkSource `yaml:"links"`
}

// Default returns the configuration a node falls back to when no file
// is supplied and no flags override it.
func Default() Config {
	return Config{
		NodeName:            "uavreasm-node",
		MaxPayloadSizeBytes: 1 << 20,
		TransferIDTimeout:   Duration(2 * time.Second),
	}
}

// Load reads and parses a YAML configuration file, starting from
// Default() so a partial file only overrides what it mentions.
func Load(path string) (Config, error) {
	var cfg = Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports whether the configuration is usable by the
// reassembler constructor and the link sources it configures.
func (c Config) Validate() error {
	if c.MaxPayloadSizeBytes < 0 {
		return errors.New("config: max_payload_size_bytes must be non-negative")
	}
	if c.TransferIDTimeout <= 0 {
		return errors.New("config: transfer_id_timeout must be positive")
	}
	for i, l := range c.Links {
		switch l.Kind {
		case "udp":
			if l.ListenAddr == "" {
				return fmt.Errorf("config: links[%d]: udp source requires listen_addr", i)
			}
		case "serial", "pty":
			if l.Device == "" {
				return fmt.Errorf("config: links[%d]: %s source requires device", i, l.Kind)
			}
		default:
			return fmt.Errorf("config: links[%d]: unknown link kind %q", i, l.Kind)
		}
	}
	return nil
}
