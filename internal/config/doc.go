// Package config loads pitwall runtime configuration.
//
// Configuration is assembled from layers, lowest precedence first:
//
//   - the embedded defaults (defaults.toml)
//   - a config file, TOML or YAML by extension
//   - PITWALL_* environment variables
//
// Maps merge key by key across layers; any other value, including the
// routes list, is replaced by the higher layer. The merged result is decoded
// into Config and validated.
//
// Watcher follows a config file with fsnotify and delivers reloaded
// configurations after edits settle.
package config
