// Package config handles application configuration
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Storage backend names
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StorageBackends lists the accepted storage.backend values.
var StorageBackends = []string{BackendFile, BackendSQLite, BackendMemory}

// StorageConfig selects where tasks are kept
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // Empty means the default file in the data dir
}

// DisplayConfig holds the view settings restored on start
type DisplayConfig struct {
	ShowComplete bool   `yaml:"show_complete"`
	CurrentGroup string `yaml:"current_group"`
}

// DateFormatsConfig holds Go time layouts for due dates
type DateFormatsConfig struct {
	InputDate     string `yaml:"input_date"`
	InputDateTime string `yaml:"input_datetime"`
	Display       string `yaml:"display"`
}

// ColorsConfig holds lipgloss color values
type ColorsConfig struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}

// UIConfig holds user interface settings
type UIConfig struct {
	Colors ColorsConfig `yaml:"colors"`
}

// KeybindingActions lists the TUI actions that accept keys in the
// keybindings section.
var KeybindingActions = []string{
	"quit", "up", "down", "new_task", "edit_task", "delete_task",
	"complete_task", "next_group", "prev_group", "toggle_completed_tasks",
	"open_link", "settings", "help", "next_field", "prev_field",
	"save_changes", "go_back", "confirm", "deny",
}

// KeyList is one key or a list of keys, in bubbletea key names ("enter",
// "ctrl+n", " " for space).
type KeyList []string

// UnmarshalYAML accepts a single scalar as well as a sequence.
func (k *KeyList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*k = KeyList{value.Value}
		return nil
	case yaml.SequenceNode:
		var keys []string
		if err := value.Decode(&keys); err != nil {
			return err
		}
		*k = keys
		return nil
	}
	return fmt.Errorf("line %d: expected a key or a list of keys", value.Line)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	BackgroundEnabled *bool `yaml:"background_enabled"` // Controls background log file creation (default: true)
}

// Config represents the application configuration
type Config struct {
	Storage      StorageConfig      `yaml:"storage"`
	Display      DisplayConfig      `yaml:"display"`
	DateFormats  DateFormatsConfig  `yaml:"date_formats"`
	OutputFormat string             `yaml:"output_format"`
	NoPrompt     bool               `yaml:"no_prompt"`
	Logging      LoggingConfig      `yaml:"logging"`
	UI           UIConfig           `yaml:"ui"`
	Keybindings  map[string]KeyList `yaml:"keybindings"` // Actions left out keep their default keys

	path string // file the config was loaded from
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendFile},
		DateFormats: DateFormatsConfig{
			InputDate:     "2006-01-02",
			InputDateTime: "2006-01-02 15:04",
			Display:       "Mon 2006-01-02 15:04",
		},
		OutputFormat: "text",
		UI: UIConfig{
			Colors: ColorsConfig{Primary: "62", Secondary: "241"},
		},
	}
}

// DefaultPath returns the config file location following XDG spec
func DefaultPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the commented sample.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeAtomic(configPath, []byte(sampleConfig)); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = configPath
	return cfg, nil
}

// parse decodes YAML over the defaults, so unset fields keep their default.
func parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendFile
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	return cfg, nil
}

// Path returns the file the config was loaded from, or "" for an in-memory config.
func (c *Config) Path() string {
	return c.path
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	if !slices.Contains(StorageBackends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage.backend: %q (must be one of %s)", c.Storage.Backend, strings.Join(StorageBackends, ", "))
	}

	layouts := map[string]string{
		"date_formats.input_date":     c.DateFormats.InputDate,
		"date_formats.input_datetime": c.DateFormats.InputDateTime,
		"date_formats.display":        c.DateFormats.Display,
	}
	for _, key := range slices.Sorted(maps.Keys(layouts)) {
		if err := checkLayout(layouts[key]); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	for _, action := range slices.Sorted(maps.Keys(c.Keybindings)) {
		if !slices.Contains(KeybindingActions, action) {
			return fmt.Errorf("unknown keybindings action: %q (must be one of %s)", action, strings.Join(KeybindingActions, ", "))
		}
		keys := c.Keybindings[action]
		if len(keys) == 0 {
			return fmt.Errorf("keybindings.%s: no keys given", action)
		}
		for _, k := range keys {
			if k == "" {
				return fmt.Errorf("keybindings.%s: empty key", action)
			}
		}
	}

	return nil
}

// checkLayout rejects layouts that cannot read back what they print.
func checkLayout(layout string) error {
	if strings.TrimSpace(layout) == "" {
		return fmt.Errorf("layout is empty")
	}
	ref := time.Date(2026, 11, 27, 16, 5, 0, 0, time.UTC)
	if _, err := time.Parse(layout, ref.Format(layout)); err != nil {
		return fmt.Errorf("layout %q does not round-trip: %w", layout, err)
	}
	if ref.Format(layout) == layout {
		return fmt.Errorf("layout %q has no date elements", layout)
	}
	return nil
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(noPrompt bool, outputFormat string) {
	if noPrompt {
		c.NoPrompt = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetStorageBackend returns the storage backend name
func (c *Config) GetStorageBackend() string {
	if c.Storage.Backend == "" {
		return BackendFile
	}
	return c.Storage.Backend
}

// GetStoragePath returns the task file or database path.
// Defaults to tasks.json (tasks.db for sqlite) in the data directory.
func (c *Config) GetStoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.GetStorageBackend() == BackendSQLite {
		return filepath.Join(GetDataDir(), "tasks.db")
	}
	return filepath.Join(GetDataDir(), "tasks.json")
}

// GetDisplayLayout returns the layout used to print due dates
func (c *Config) GetDisplayLayout() string {
	if c.DateFormats.Display == "" {
		return DefaultConfig().DateFormats.Display
	}
	return c.DateFormats.Display
}

// GetKeybindings returns the configured keys per action.
func (c *Config) GetKeybindings() map[string][]string {
	out := make(map[string][]string, len(c.Keybindings))
	for action, keys := range c.Keybindings {
		out[action] = slices.Clone(keys)
	}
	return out
}

// IsBackgroundLoggingEnabled returns true if background logging is enabled.
// Returns true (default) if not configured.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true // Default: enabled
	}
	return *c.Logging.BackgroundEnabled
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "todotui")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "todotui")
	}
	return filepath.Join(home, fallbackPath, "todotui")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}

// settableKeys maps every key accepted by Set to its value kind.
var settableKeys = map[string]string{
	"storage.backend":             "string",
	"storage.path":                "string",
	"display.show_complete":       "bool",
	"display.current_group":       "string",
	"date_formats.input_date":     "string",
	"date_formats.input_datetime": "string",
	"date_formats.display":        "string",
	"output_format":               "string",
	"no_prompt":                   "bool",
	"logging.background_enabled":  "bool",
	"ui.colors.primary":           "string",
	"ui.colors.secondary":         "string",
}

// Keys returns the keys accepted by Set, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(settableKeys))
}

// Set changes one dotted key in the config file, keeping the rest of the file
// and its comments intact. The result must pass Validate before it is
// written. On success the receiver reflects the new file.
func (c *Config) Set(key, value string) error {
	if c.path == "" {
		return fmt.Errorf("config was not loaded from a file")
	}
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if kind == "bool" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", key, value)
		}
		value = strconv.FormatBool(b)
	}

	data, err := os.ReadFile(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	out, err := setNode(data, strings.Split(key, "."), value, kind)
	if err != nil {
		return err
	}

	updated, err := parse(out)
	if err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := writeAtomic(c.path, out); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	updated.path = c.path
	*c = *updated
	return nil
}

// SaveDisplay persists the display section.
func (c *Config) SaveDisplay(showComplete bool, currentGroup string) error {
	if err := c.Set("display.show_complete", strconv.FormatBool(showComplete)); err != nil {
		return err
	}
	return c.Set("display.current_group", currentGroup)
}

// setNode rewrites one scalar in a YAML document, creating mappings as needed.
func setNode(data []byte, path []string, value, kind string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}

	node := doc.Content[0]
	for _, part := range path {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config key %q is not a section", part)
		}
		node = childOf(node, part)
	}

	node.Kind = yaml.ScalarNode
	node.Content = nil
	node.Value = value
	node.Style = 0
	node.Tag = "!!bool"
	if kind == "string" {
		node.Tag = "!!str"
		node.Style = yaml.DoubleQuotedStyle
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// childOf returns the value node for key, appending an empty mapping when absent.
func childOf(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	mapping.Content = append(mapping.Content, k, v)
	return v
}

// writeAtomic replaces path with data via a temporary file in the same directory
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
