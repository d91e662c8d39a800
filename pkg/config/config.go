// Package config loads and watches the routegate configuration file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/logging"
)

// Config is the top-level configuration schema.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   logging.Config  `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Routes    []RouteConfig   `yaml:"routes" json:"routes"`
	Defaults  DefaultsConfig  `yaml:"defaults" json:"defaults"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen   string `yaml:"listen" json:"listen"`
	Upstream string `yaml:"upstream" json:"upstream"`
}

// TelemetryConfig holds the OTLP exporter settings.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" json:"service_name"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	Environment string `yaml:"environment" json:"environment"`
	Insecure    bool   `yaml:"insecure" json:"insecure"`
}

// DefaultsConfig holds gates applied to every route, evaluated before the
// route's own list.
type DefaultsConfig struct {
	Gates GateList `yaml:"gates" json:"gates"`
}

// RouteConfig declares the gate list guarding one path prefix.
type RouteConfig struct {
	Prefix string   `yaml:"prefix" json:"prefix"`
	Gates  GateList `yaml:"gates" json:"gates"`
}

// GateList is an ordered gate reference list. Each YAML/JSON element is either a
// bare gate name or a {name, options} mapping; bare names normalize to a
// reference with empty options.
type GateList []domain.GateRef

// UnmarshalYAML accepts the string-or-mapping element forms.
func (l *GateList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("gate list must be a sequence, got %s", value.Tag)
	}

	refs := make([]domain.GateRef, 0, len(value.Content))
	for _, node := range value.Content {
		switch node.Kind {
		case yaml.ScalarNode:
			var name string
			if err := node.Decode(&name); err != nil {
				return fmt.Errorf("decode gate name: %w", err)
			}
			refs = append(refs, domain.GateRef{Name: name})
		case yaml.MappingNode:
			var ref struct {
				Name    string         `yaml:"name"`
				Options map[string]any `yaml:"options"`
			}
			if err := node.Decode(&ref); err != nil {
				return fmt.Errorf("decode gate reference: %w", err)
			}
			refs = append(refs, domain.GateRef{Name: ref.Name, Options: ref.Options})
		default:
			return fmt.Errorf("gate list element must be a name or a mapping (line %d)", node.Line)
		}
	}
	*l = refs
	return nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("%w: server.listen is required", domain.ErrConfigInvalid)
	}
	seen := make(map[string]bool, len(c.Routes))
	for i, route := range c.Routes {
		if route.Prefix == "" || !strings.HasPrefix(route.Prefix, "/") {
			return fmt.Errorf("%w: routes[%d].prefix must start with /", domain.ErrConfigInvalid, i)
		}
		if seen[route.Prefix] {
			return fmt.Errorf("%w: duplicate route prefix %q", domain.ErrConfigInvalid, route.Prefix)
		}
		seen[route.Prefix] = true
		for j, ref := range route.Gates {
			if ref.Name == "" {
				return fmt.Errorf("%w: routes[%d].gates[%d] has no name", domain.ErrConfigInvalid, i, j)
			}
		}
	}
	return nil
}

// Load reads, parses, and validates the configuration file at path, applying
// environment variable overrides.
func Load(path string) (*Config, error) {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration defaults applied before parsing.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Listen: ":8090"},
		Logging: logging.Config{Level: "info"},
		Telemetry: TelemetryConfig{
			ServiceName: "routegate",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ROUTEGATE_LISTEN"); val != "" {
		cfg.Server.Listen = val
	}
	if val := os.Getenv("ROUTEGATE_UPSTREAM"); val != "" {
		cfg.Server.Upstream = val
	}
	if val := os.Getenv("ROUTEGATE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("ROUTEGATE_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.Endpoint = val
	}
	if val := os.Getenv("ROUTEGATE_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
}

// RouteTable answers which gates guard a request path. Built once per config
// snapshot and treated as immutable afterward.
type RouteTable struct {
	defaults []domain.GateRef
	routes   []RouteConfig // sorted by prefix length, longest first
}

// NewRouteTable builds a table from the configured routes. Lookup uses
// longest-prefix match; the defaults list is prepended to every match.
func NewRouteTable(cfg *Config) *RouteTable {
	routes := make([]RouteConfig, len(cfg.Routes))
	copy(routes, cfg.Routes)
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].Prefix) > len(routes[j].Prefix)
	})
	return &RouteTable{
		defaults: cfg.Defaults.Gates,
		routes:   routes,
	}
}

// GatesFor returns the ordered gate references guarding path. Paths matching no
// route get only the defaults; an empty return means the path is unguarded.
func (t *RouteTable) GatesFor(path string) []domain.GateRef {
	for _, route := range t.routes {
		if strings.HasPrefix(path, route.Prefix) {
			refs := make([]domain.GateRef, 0, len(t.defaults)+len(route.Gates))
			refs = append(refs, t.defaults...)
			refs = append(refs, route.Gates...)
			return refs
		}
	}
	if len(t.defaults) == 0 {
		return nil
	}
	refs := make([]domain.GateRef, len(t.defaults))
	copy(refs, t.defaults)
	return refs
}
