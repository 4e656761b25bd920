package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// setXDG points the XDG directories at a temporary home.
func setXDG(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	tmpDir := t.TempDir()
	configDir = filepath.Join(tmpDir, "config")
	dataDir = filepath.Join(tmpDir, "data")
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("XDG_DATA_HOME", dataDir)
	t.Setenv("HOME", tmpDir)
	return configDir, dataDir
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestConfigAutoCreate verifies first run creates config file at XDG path with defaults
func TestConfigAutoCreate(t *testing.T) {
	configDir, dataDir := setXDG(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	configPath := filepath.Join(configDir, "todotui", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not created at %s: %v", configPath, err)
	}
	if string(data) != GetSampleConfig() {
		t.Error("created config should be the commented sample")
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}

	if cfg.GetStorageBackend() != BackendFile {
		t.Errorf("expected file backend, got %q", cfg.GetStorageBackend())
	}
	if want := filepath.Join(dataDir, "todotui", "tasks.json"); cfg.GetStoragePath() != want {
		t.Errorf("GetStoragePath() = %q, want %q", cfg.GetStoragePath(), want)
	}
	if cfg.OutputFormat != "text" || cfg.NoPrompt {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IsBackgroundLoggingEnabled() {
		t.Error("background logging should default to enabled")
	}
}

// TestSampleConfigMatchesDefaults verifies the sample documents exactly the defaults
func TestSampleConfigMatchesDefaults(t *testing.T) {
	sample, err := parse([]byte(GetSampleConfig()))
	if err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if err := sample.Validate(); err != nil {
		t.Fatalf("sample config is invalid: %v", err)
	}

	defaults := DefaultConfig()
	if sample.Storage != defaults.Storage || sample.Display != defaults.Display ||
		sample.DateFormats != defaults.DateFormats || sample.OutputFormat != defaults.OutputFormat ||
		sample.NoPrompt != defaults.NoPrompt || sample.UI != defaults.UI {
		t.Errorf("sample config %+v differs from defaults %+v", sample, defaults)
	}
}

// TestConfigCustomPath verifies values and path expansion from an explicit file
func TestConfigCustomPath(t *testing.T) {
	t.Setenv("TASKS_HOME", "/srv/tasks")
	path := writeConfig(t, `
storage:
  backend: sqlite
  path: "$TASKS_HOME/tasks.db"
display:
  show_complete: true
  current_group: work
output_format: json
no_prompt: true
logging:
  background_enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}
	if cfg.GetStorageBackend() != BackendSQLite || cfg.GetStoragePath() != "/srv/tasks/tasks.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Display.ShowComplete || cfg.Display.CurrentGroup != "work" {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.OutputFormat != "json" || !cfg.NoPrompt || cfg.IsBackgroundLoggingEnabled() {
		t.Errorf("unexpected values: %+v", cfg)
	}
	// Unset sections keep their defaults
	if cfg.DateFormats != DefaultConfig().DateFormats {
		t.Errorf("date formats = %+v", cfg.DateFormats)
	}
}

func TestDefaultSQLitePath(t *testing.T) {
	_, dataDir := setXDG(t)
	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendSQLite

	if want := filepath.Join(dataDir, "todotui", "tasks.db"); cfg.GetStoragePath() != want {
		t.Errorf("GetStoragePath() = %q, want %q", cfg.GetStoragePath(), want)
	}
}

func TestExpandPathHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if got := ExpandPath("~/tasks.json"); got != filepath.Join(home, "tasks.json") {
		t.Errorf("ExpandPath(~/tasks.json) = %q", got)
	}
	if ExpandPath("") != "" {
		t.Error("empty path should stay empty")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "storage: [unclosed")

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "invalid YAML") {
		t.Fatalf("expected invalid YAML error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }, "output_format"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend"},
		{"memory backend", func(c *Config) { c.Storage.Backend = BackendMemory }, ""},
		{"empty layout", func(c *Config) { c.DateFormats.InputDate = "" }, "date_formats.input_date"},
		{"layout without elements", func(c *Config) { c.DateFormats.Display = "soon" }, "date_formats.display"},
		{"custom layout", func(c *Config) { c.DateFormats.InputDate = "02/01/2006" }, ""},
		{"keybinding", func(c *Config) { c.Keybindings = map[string]KeyList{"quit": {"x"}} }, ""},
		{"unknown keybinding action", func(c *Config) { c.Keybindings = map[string]KeyList{"launch": {"x"}} }, "keybindings action"},
		{"keybinding without keys", func(c *Config) { c.Keybindings = map[string]KeyList{"quit": {}} }, "keybindings.quit"},
		{"empty key", func(c *Config) { c.Keybindings = map[string]KeyList{"help": {""}} }, "keybindings.help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

// TestKeybindingsScalarOrList verifies an action takes one key or a list
func TestKeybindingsScalarOrList(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
keybindings:
  quit: x
  complete_task: [" ", c]
  open_link:
    - o
    - ctrl+o
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	got := cfg.GetKeybindings()
	want := map[string][]string{
		"quit":          {"x"},
		"complete_task": {" ", "c"},
		"open_link":     {"o", "ctrl+o"},
	}
	if len(got) != len(want) {
		t.Fatalf("keybindings = %v, want %v", got, want)
	}
	for action, keys := range want {
		if strings.Join(got[action], "|") != strings.Join(keys, "|") {
			t.Errorf("%s = %q, want %q", action, got[action], keys)
		}
	}
}

func TestKeybindingsRejectMapping(t *testing.T) {
	_, err := Load(writeConfig(t, "keybindings:\n  quit:\n    key: q\n"))
	if err == nil || !strings.Contains(err.Error(), "list of keys") {
		t.Errorf("Load() = %v, want error about the key list", err)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyFlags(false, "")
	if cfg.NoPrompt || cfg.OutputFormat != "text" {
		t.Errorf("empty flags changed config: %+v", cfg)
	}
	cfg.ApplyFlags(true, "json")
	if !cfg.NoPrompt || cfg.OutputFormat != "json" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

// TestSetKeepsComments verifies Set rewrites one value and preserves the rest
func TestSetKeepsComments(t *testing.T) {
	setXDG(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Set("display.current_group", "work"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := cfg.Set("display.show_complete", "yes"); err == nil {
		t.Error("expected error for non-boolean value")
	}
	if err := cfg.Set("display.show_complete", "TRUE"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if cfg.Display.CurrentGroup != "work" || !cfg.Display.ShowComplete {
		t.Errorf("receiver not updated: %+v", cfg.Display)
	}

	data, _ := os.ReadFile(cfg.Path())
	content := string(data)
	if !strings.Contains(content, "# Where tasks are kept") {
		t.Error("comments should survive Set")
	}
	if !strings.Contains(content, `current_group: "work"`) || !strings.Contains(content, "show_complete: true") {
		t.Errorf("values not written:\n%s", content)
	}

	reloaded, err := Load(cfg.Path())
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if reloaded.Display != cfg.Display {
		t.Errorf("reloaded display = %+v, want %+v", reloaded.Display, cfg.Display)
	}
}

func TestSetCreatesMissingSections(t *testing.T) {
	path := writeConfig(t, "output_format: text\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.Set("ui.colors.primary", "#7D56F4"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var raw map[string]interface{}
	data, _ := os.ReadFile(path)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	ui, _ := raw["ui"].(map[string]interface{})
	colors, _ := ui["colors"].(map[string]interface{})
	if colors["primary"] != "#7D56F4" {
		t.Errorf("ui.colors.primary = %v\n%s", colors["primary"], data)
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before, _ := os.ReadFile(path)

	tests := []struct {
		key, value string
	}{
		{"storage.backend", "redis"},
		{"output_format", "xml"},
		{"no_such.key", "x"},
		{"date_formats.input_date", ""},
	}
	for _, tt := range tests {
		if err := cfg.Set(tt.key, tt.value); err == nil {
			t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
		}
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("rejected Set changed the file:\n%s", after)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("rejected Set changed the receiver: %+v", cfg.Storage)
	}
}

func TestSaveDisplay(t *testing.T) {
	path := writeConfig(t, "display:\n  show_complete: true\n  current_group: home\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := cfg.SaveDisplay(false, ""); err != nil {
		t.Fatalf("SaveDisplay error: %v", err)
	}
	reloaded, _ := Load(path)
	if reloaded.Display.ShowComplete || reloaded.Display.CurrentGroup != "" {
		t.Errorf("display = %+v", reloaded.Display)
	}
}

func TestSetWithoutFile(t *testing.T) {
	if err := DefaultConfig().Set("no_prompt", "true"); err == nil {
		t.Error("expected error for a config not loaded from a file")
	}
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
	if len(keys) != len(settableKeys) {
		t.Errorf("Keys() returned %d keys, want %d", len(keys), len(settableKeys))
	}
}
