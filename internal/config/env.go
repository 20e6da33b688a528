package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvLoader reads configuration overrides from prefixed environment
// variables. PITWALL_ROUTER_MAX_REDIRECTS sets router.max_redirects: the
// first word names the section and the rest, joined by underscores, the key.
type EnvLoader struct {
	prefix  string
	environ func() []string
	mapping map[string]string // env var -> config path
}

// NewEnvLoader creates a loader for prefix, which includes the trailing
// underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		environ: os.Environ,
		mapping: map[string]string{
			prefix + "LOG_LEVEL": "log.level",
			prefix + "ORIGIN":    "app.origin",
		},
	}
}

// Load returns the overrides as a nested map.
func (l *EnvLoader) Load() (map[string]any, error) {
	out := make(map[string]any)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, ok := l.mapping[name]
		if !ok {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(out, path, parseValue(value))
	}
	return out, nil
}

// envToPath converts PITWALL_STORE_HISTORY_LIMIT to store.history_limit.
// Variables without a key part are ignored.
func (l *EnvLoader) envToPath(env string) string {
	section, key, ok := strings.Cut(strings.TrimPrefix(env, l.prefix), "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return strings.ToLower(section) + "." + strings.ToLower(key)
}

// parseValue converts an environment string to bool, integer, float or JSON
// array/object when it parses as one.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
