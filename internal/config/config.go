package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig carries the listen-address tokens for each transport.
// The tokens use the same grammar as the -t/-u command line flags: an IP,
// an ip:port pair, or a hostname, with "-" disabling the transport. An
// empty list means "not specified", which makes the server fall back to
// the wildcard defaults.
type ServerConfig struct {
	TCP []string `yaml:"tcp"`
	UDP []string `yaml:"udp"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MonitoringConfig configures the optional monitoring HTTP server.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Address: "127.0.0.1:9090",
		},
	}
}

// DefaultPath looks for a config file in the user's XDG config directory
// (e.g. ~/.config/whereyoufrom/whereyoufrom.yaml). The second return value
// reports whether such a file exists.
func DefaultPath() (string, bool) {
	path, err := xdg.SearchConfigFile(filepath.Join("whereyoufrom", "whereyoufrom.yaml"))
	if err != nil {
		return "", false
	}
	return path, true
}

// Load reads and parses the configuration file. Fields absent from the file
// keep their Default() values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}

	return nil
}

// Validate validates the listen-address token lists. Full resolution happens
// later; this only rejects tokens that cannot possibly be addresses.
func (s *ServerConfig) Validate() error {
	for _, token := range append(append([]string{}, s.TCP...), s.UDP...) {
		if token == "" {
			return errors.New("listen address tokens cannot be empty")
		}
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output accepts stdout, stderr, or a file path; nothing to check here.
	return nil
}

// Validate validates monitoring configuration.
func (m *MonitoringConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	host, port, err := net.SplitHostPort(m.Address)
	if err != nil {
		return fmt.Errorf("address must be host:port, got '%s'", m.Address)
	}
	if host == "" {
		return fmt.Errorf("address must include a host, got '%s'", m.Address)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("address port must be numeric, got '%s'", port)
	}
	return nil
}
