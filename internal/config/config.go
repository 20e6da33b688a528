package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.toml
var defaultsTOML []byte

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PITWALL_"

// Config is the runtime configuration.
type Config struct {
	App    AppConfig     `toml:"app" yaml:"app"`
	Log    LogConfig     `toml:"log" yaml:"log"`
	Store  StoreConfig   `toml:"store" yaml:"store"`
	Router RouterConfig  `toml:"router" yaml:"router"`
	Routes []RouteConfig `toml:"routes" yaml:"routes" validate:"required,min=1,dive"`

	// Source is the file the configuration was read from, if any.
	Source string `toml:"-" yaml:"-"`
}

// AppConfig identifies the application.
type AppConfig struct {
	Name   string `toml:"name" yaml:"name" validate:"required"`
	Origin string `toml:"origin" yaml:"origin" validate:"omitempty,url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" yaml:"format" validate:"oneof=text json"`
	// Output is "stderr", "stdout" or a file path.
	Output string `toml:"output" yaml:"output" validate:"required"`
}

// StoreConfig configures the state store.
type StoreConfig struct {
	HistoryLimit   int `toml:"history_limit" yaml:"history_limit" validate:"gte=1,lte=10000"`
	MaxNotifyDepth int `toml:"max_notify_depth" yaml:"max_notify_depth" validate:"gte=1,lte=256"`
}

// RouterConfig configures the router.
type RouterConfig struct {
	NotFoundPath string `toml:"not_found_path" yaml:"not_found_path" validate:"required,startswith=/"`
	ErrorPath    string `toml:"error_path" yaml:"error_path" validate:"omitempty,startswith=/"`
	LoginPath    string `toml:"login_path" yaml:"login_path" validate:"required,startswith=/"`
	TitleSuffix  string `toml:"title_suffix" yaml:"title_suffix"`
	DefaultTitle string `toml:"default_title" yaml:"default_title"`
	MaxRedirects int    `toml:"max_redirects" yaml:"max_redirects" validate:"gte=1,lte=20"`
}

// RouteConfig declares one route.
type RouteConfig struct {
	Pattern      string `toml:"pattern" yaml:"pattern" validate:"required,startswith=/"`
	View         string `toml:"view" yaml:"view" validate:"required"`
	Name         string `toml:"name" yaml:"name"`
	Title        string `toml:"title" yaml:"title"`
	RequiresAuth bool   `toml:"requires_auth" yaml:"requires_auth"`
	Layout       string `toml:"layout" yaml:"layout"`
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := build(nil, nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads path over the defaults and applies environment overrides. An
// empty path loads defaults and environment only. The result is validated.
func Load(path string) (*Config, error) {
	var file map[string]any
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		file, err = parseFile(path, data)
		if err != nil {
			return nil, err
		}
	}

	env, err := NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}

	cfg, err := build(file, env)
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// build merges the defaults with the given layers and decodes the result.
func build(layers ...map[string]any) (*Config, error) {
	merged, err := parseTOML("defaults.toml", defaultsTOML)
	if err != nil {
		return nil, err
	}
	for _, l := range layers {
		merged = deepMerge(merged, l)
	}

	data, err := toml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: "<merged>", Err: err}
	}
	return &cfg, nil
}

func parseFile(path string, data []byte) (map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return parseTOML(path, data)
	case ".yaml", ".yml":
		return parseYAML(path, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func parseTOML(source string, data []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(data, &out); err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}
	return out, nil
}

func parseYAML(source string, data []byte) (map[string]any, error) {
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, &ParseError{Path: source, Err: err}
	}
	return out, nil
}

// deepMerge merges src into dst. Maps merge recursively; other values in
// src replace those in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}

// RouteByPattern returns the route declared for pattern.
func (c *Config) RouteByPattern(pattern string) (RouteConfig, bool) {
	for _, r := range c.Routes {
		if r.Pattern == pattern {
			return r, true
		}
	}
	return RouteConfig{}, false
}
