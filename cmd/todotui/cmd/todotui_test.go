package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"todotui/internal/config"
	"todotui/internal/tui"
)

// testEnv points config and task storage at a temporary directory.
type testEnv struct {
	dir string
	cfg Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return &testEnv{
		dir: dir,
		cfg: Config{
			ConfigPath: filepath.Join(dir, "config.yaml"),
			DataPath:   filepath.Join(dir, "tasks.json"),
		},
	}
}

// newSQLiteEnv stores tasks in a SQLite database instead of a JSON file.
func newSQLiteEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.cfg.DataPath = filepath.Join(env.dir, "tasks.db")
	env.writeConfig(t, "storage:\n  backend: sqlite\n")
	return env
}

func (e *testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.cfg.ConfigPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// run executes the CLI with a fresh copy of the environment's config.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *testEnv) runWithInput(t *testing.T, input string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := e.cfg
	cfg.Stdin = strings.NewReader(input)
	code := Execute(args, &stdout, &stderr, &cfg)
	return stdout.String(), stderr.String(), code
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := e.run(t, args...)
	if code != 0 {
		t.Fatalf("%v: exit code %d\nstdout: %s\nstderr: %s", args, code, stdout, stderr)
	}
	return stdout
}

func (e *testEnv) listJSON(t *testing.T, args ...string) listTasksResponse {
	t.Helper()
	out := e.mustRun(t, append([]string{"--json", "list"}, args...)...)
	var resp listTasksResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	return resp
}

func parseDue(t *testing.T, task taskJSON) time.Time {
	t.Helper()
	if task.Due == nil {
		t.Fatalf("task %d has no due date", task.ID)
	}
	due, err := time.Parse(time.RFC3339, *task.Due)
	if err != nil {
		t.Fatalf("bad due %q: %v", *task.Due, err)
	}
	return due
}

// --- Help and Version Tests ---

func TestHelpFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute([]string{"--help"}, &stdout, &stderr, nil)

	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", exitCode, stderr.String())
	}
	output := stdout.String()
	if !strings.Contains(output, "todotui") || !strings.Contains(output, "Usage:") {
		t.Errorf("help output should contain 'todotui' and 'Usage:', got: %s", output)
	}
}

// TestNoArgsWithoutTerminalShowsHelp verifies the TUI is only started on a terminal
func TestNoArgsWithoutTerminalShowsHelp(t *testing.T) {
	env := newTestEnv(t)
	stdout := env.mustRun(t)
	if !strings.Contains(stdout, "Available Commands:") {
		t.Errorf("expected help, got: %s", stdout)
	}
}

func TestTUICommandNeedsTerminal(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.run(t, "tui")
	if code != 1 || !strings.Contains(stderr, "needs a terminal") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestVersionFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := Execute([]string{"--version"}, &stdout, &stderr, nil); code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "todotui") {
		t.Errorf("version output should contain 'todotui', got: %s", stdout.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := Execute([]string{"version", "-v"}, &stdout, &stderr, nil); code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, stderr.String())
	}
	for _, want := range []string{"Version:", "Commit:", "Built:", "Go Version:", "Platform:"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("version output should contain %q, got: %s", want, stdout.String())
		}
	}
}

func TestVersionJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer

	if code := Execute([]string{"--json", "version"}, &stdout, &stderr, nil); code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, stderr.String())
	}
	var resp versionResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Version != Version || resp.Result != ResultInfoOnly {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// --- Task Commands ---

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "add", "Pay", "rent", "--group", "home")
	if !strings.Contains(out, "Created task 0: Pay rent") {
		t.Errorf("unexpected add output: %s", out)
	}
	env.mustRun(t, "add", "Write report")

	out = env.mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "Pay rent") || !strings.Contains(lines[1], "home") {
		t.Errorf("unexpected table:\n%s", out)
	}

	if _, err := os.Stat(env.cfg.DataPath); err != nil {
		t.Errorf("task file not written: %v", err)
	}
}

func TestListTableAlignsWideNames(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "買い物", "--group", "home")
	env.mustRun(t, "add", "Laundry", "--group", "home")

	lines := strings.Split(strings.TrimSpace(env.mustRun(t, "list")), "\n")
	// The group column starts in the same terminal cell on every row.
	col := func(line string) int {
		idx := strings.Index(line, "home")
		if idx < 0 {
			t.Fatalf("no group in %q", line)
		}
		w := 0
		for _, r := range line[:idx] {
			if r >= 0x3000 {
				w += 2
			} else {
				w++
			}
		}
		return w
	}
	if col(lines[1]) != col(lines[2]) {
		t.Errorf("columns not aligned:\n%s", strings.Join(lines, "\n"))
	}
}

func TestAddRecurringAnchorsMonthlyOnDueDay(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Pay rent", "--due", "2026-11-01", "--repeat", "monthly")

	resp := env.listJSON(t)
	if resp.Count != 1 || resp.Result != ResultInfoOnly {
		t.Fatalf("unexpected response: %+v", resp)
	}
	task := resp.Tasks[0]
	if task.Repeats == nil || *task.Repeats != "Monthly 1" {
		t.Errorf("repeats = %v, want Monthly 1", task.Repeats)
	}
	if due := parseDue(t, task); !due.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("due = %v", due)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"repeat without due", []string{"add", "Stretch", "--repeat", "daily"}, "needs a due date"},
		{"bad date", []string{"add", "Stretch", "--due", "someday"}, "invalid date: someday"},
		{"bad repeat", []string{"add", "Stretch", "--due", "today", "--repeat", "fortnightly"}, "invalid repeat"},
		{"blank name", []string{"add", "  "}, "name"},
		{"blank group", []string{"add", "Stretch", "--group", "  "}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, stderr, code := env.run(t, tt.args...)
			if tt.want == "" {
				// Blank optional text is read as absent.
				if code != 0 {
					t.Fatalf("exit code %d: %s", code, stderr)
				}
				return
			}
			if code != 1 {
				t.Fatalf("expected exit code 1, got %d", code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr should contain %q, got: %s", tt.want, stderr)
			}
			if resp := env.listJSON(t, "--all"); resp.Count != 0 {
				t.Errorf("rejected add stored a task: %+v", resp.Tasks)
			}
		})
	}
}

func TestCompleteRecurringRollsOver(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Pay rent", "--due", "2026-01-31 09:00", "--repeat", "monthly")

	out := env.mustRun(t, "complete", "0")
	if !strings.Contains(out, "next due") {
		t.Errorf("unexpected complete output: %s", out)
	}

	resp := env.listJSON(t)
	if resp.Count != 1 || resp.Tasks[0].Complete {
		t.Fatalf("recurring task should stay open: %+v", resp.Tasks)
	}
	if due := parseDue(t, resp.Tasks[0]); !due.Equal(time.Date(2026, 2, 28, 9, 0, 0, 0, time.Local)) {
		t.Errorf("due = %v, want 2026-02-28 09:00", due)
	}
}

func TestCompleteHidesTask(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Water plants")

	env.mustRun(t, "complete", "0")
	if resp := env.listJSON(t); resp.Count != 0 {
		t.Errorf("completed task should be hidden: %+v", resp.Tasks)
	}
	if resp := env.listJSON(t, "--all"); resp.Count != 1 || !resp.Tasks[0].Complete {
		t.Errorf("--all should show the completed task: %+v", resp.Tasks)
	}

	out := env.mustRun(t, "complete", "0")
	if !strings.Contains(out, "already done") {
		t.Errorf("second complete should be a no-op, got: %s", out)
	}

	out = env.mustRun(t, "toggle", "0")
	if !strings.Contains(out, "Reopened") {
		t.Errorf("toggle should reopen, got: %s", out)
	}
}

func TestCompleteJSON(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Stretch", "--due", "2026-03-01", "--repeat", "daily")

	out := env.mustRun(t, "--json", "complete", "0")
	var resp actionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if resp.Action != "complete" || !resp.RolledOver || resp.Result != ResultActionCompleted {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestEditChangesOnlyGivenFlags(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Write report", "--group", "work", "--url", "https://example.com/r", "--due", "2026-05-04")

	env.mustRun(t, "edit", "0", "--name", "Write final report", "--group", "")

	resp := env.listJSON(t)
	task := resp.Tasks[0]
	if task.Name != "Write final report" || task.Group != nil {
		t.Errorf("edited task = %+v", task)
	}
	if task.URL == nil || *task.URL != "https://example.com/r" || task.Due == nil {
		t.Errorf("untouched fields changed: %+v", task)
	}
}

func TestEditUnknownTask(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "edit", "7", "--name", "x")
	if code != 1 || !strings.Contains(stderr, "task 7 not found") || !strings.Contains(stderr, "todotui list --all") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestInvalidTaskID(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, code := env.run(t, "show", "abc")
	if code != 1 || !strings.Contains(stderr, "invalid task id") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestShowTask(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Call mum", "--description", "Sunday evening")

	out := env.mustRun(t, "show", "0")
	for _, want := range []string{"Name:", "Call mum", "Sunday evening", "Repeats:", "Never", "open"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output should contain %q, got:\n%s", want, out)
		}
	}
}

func TestDeleteConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Old task")

	stdout, _, code := env.runWithInput(t, "n\n", "delete", "0")
	if code != 0 || !strings.Contains(stdout, "Cancelled") {
		t.Fatalf("exit %d, stdout: %s", code, stdout)
	}
	if resp := env.listJSON(t); resp.Count != 1 {
		t.Fatal("declined delete removed the task")
	}

	stdout, _, code = env.runWithInput(t, "y\n", "delete", "0")
	if code != 0 || !strings.Contains(stdout, "Deleted task 0") {
		t.Fatalf("exit %d, stdout: %s", code, stdout)
	}
	if resp := env.listJSON(t, "--all"); resp.Count != 0 {
		t.Errorf("task should be deleted: %+v", resp.Tasks)
	}

	_, stderr, code := env.run(t, "-y", "delete", "0")
	if code != 1 || !strings.Contains(stderr, "not found") {
		t.Errorf("deleting twice: exit %d, stderr: %s", code, stderr)
	}
}

func TestNoPromptResultCodes(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "-y", "add", "Task")
	if !strings.Contains(out, ResultActionCompleted) {
		t.Errorf("add should print %s, got: %s", ResultActionCompleted, out)
	}
	out = env.mustRun(t, "-y", "list")
	if !strings.Contains(out, ResultInfoOnly) {
		t.Errorf("list should print %s, got: %s", ResultInfoOnly, out)
	}
	out = env.mustRun(t, "-y", "delete", "0")
	if !strings.Contains(out, ResultActionCompleted) {
		t.Errorf("delete should skip the prompt and print %s, got: %s", ResultActionCompleted, out)
	}

	stdout, _, code := env.run(t, "-y", "complete", "5")
	if code != 1 || !strings.Contains(stdout, ResultError) {
		t.Errorf("failure should print %s, got exit %d: %s", ResultError, code, stdout)
	}
}

func TestJSONError(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, code := env.run(t, "--json", "show", "99")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	var resp errorResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if resp.Code != 1 || resp.Result != ResultError || !strings.Contains(resp.Error, "task 99 not found") {
		t.Errorf("unexpected error response: %+v", resp)
	}
}

func TestOutputFormatFromConfig(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "output_format: json\n")
	env.mustRun(t, "add", "Task")

	out := env.mustRun(t, "list")
	if !json.Valid([]byte(out)) {
		t.Errorf("output_format json should print JSON, got: %s", out)
	}
}

// --- Groups ---

func TestGroupsAndGroupFilter(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Write report", "--group", "work")
	env.mustRun(t, "add", "Water plants", "--group", "home")
	env.mustRun(t, "add", "Stretch")

	out := env.mustRun(t, "groups")
	if !strings.Contains(out, "home") || !strings.Contains(out, "work") {
		t.Errorf("groups output: %s", out)
	}

	if resp := env.listJSON(t, "--group", "work"); resp.Count != 1 || resp.Tasks[0].Name != "Write report" {
		t.Errorf("--group work: %+v", resp.Tasks)
	}
	if resp := env.listJSON(t, "--ungrouped"); resp.Count != 1 || resp.Tasks[0].Name != "Stretch" {
		t.Errorf("--ungrouped: %+v", resp.Tasks)
	}

	_, stderr, code := env.run(t, "list", "--group", "garden")
	if code != 1 || !strings.Contains(stderr, "group not found: garden") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestListUsesConfiguredGroup(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "display:\n  current_group: work\n")
	env.mustRun(t, "add", "Write report", "--group", "work")
	env.mustRun(t, "add", "Water plants", "--group", "home")

	if resp := env.listJSON(t); resp.Count != 1 || resp.Group != "work" {
		t.Errorf("configured group not applied: %+v", resp)
	}
	if resp := env.listJSON(t, "--group", ""); resp.Count != 2 {
		t.Errorf("--group \"\" should list every group: %+v", resp)
	}
}

func TestListFallsBackFromVanishedGroup(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "display:\n  current_group: garden\n")
	env.mustRun(t, "add", "Water plants", "--group", "home")

	if resp := env.listJSON(t); resp.Count != 1 || resp.Group != "" {
		t.Errorf("missing group should fall back to all: %+v", resp)
	}
}

// --- Storage ---

func TestSQLiteNeverReusesIDs(t *testing.T) {
	env := newSQLiteEnv(t)
	env.mustRun(t, "add", "First")
	env.mustRun(t, "add", "Second")
	env.mustRun(t, "-y", "delete", "1")

	out := env.mustRun(t, "add", "Third")
	if !strings.Contains(out, "Created task 2: Third") {
		t.Errorf("id of a deleted task was reused: %s", out)
	}
	if _, err := os.Stat(env.cfg.DataPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestFileBackendNeverReusesIDs(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "First")
	env.mustRun(t, "add", "Second")
	env.mustRun(t, "-y", "delete", "1")

	out := env.mustRun(t, "add", "Third")
	if !strings.Contains(out, "Created task 2: Third") {
		t.Errorf("id of a deleted task was reused: %s", out)
	}
	if _, err := os.Stat(env.cfg.DataPath + ".meta"); err != nil {
		t.Errorf("id counter not written: %v", err)
	}
}

func TestMalformedTaskFile(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.cfg.DataPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := env.run(t, "list")
	if code != 1 || !strings.Contains(stderr, "cannot load") || !strings.Contains(stderr, "Suggestion:") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}

	data, _ := os.ReadFile(env.cfg.DataPath)
	if string(data) != "{not json" {
		t.Error("unreadable task file was overwritten")
	}
}

func TestMemoryBackendKeepsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "storage:\n  backend: memory\n")

	env.mustRun(t, "add", "Ephemeral")
	if resp := env.listJSON(t); resp.Count != 0 {
		t.Errorf("memory backend should start empty: %+v", resp.Tasks)
	}
	if _, err := os.Stat(env.cfg.DataPath); !os.IsNotExist(err) {
		t.Errorf("memory backend wrote a file: %v", err)
	}
}

// --- Config ---

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "config", "path")
	if strings.TrimSpace(out) != env.cfg.ConfigPath {
		t.Errorf("config path = %q, want %q", out, env.cfg.ConfigPath)
	}

	env.mustRun(t, "config", "set", "display.show_complete", "true")
	data, _ := os.ReadFile(env.cfg.ConfigPath)
	if !strings.Contains(string(data), "show_complete: true") || !strings.Contains(string(data), "# Where tasks are kept") {
		t.Errorf("config file after set:\n%s", data)
	}

	out = env.mustRun(t, "config")
	if !strings.Contains(out, "show_complete: true") {
		t.Errorf("config output:\n%s", out)
	}

	_, stderr, code := env.run(t, "config", "set", "colour", "red")
	if code != 1 || !strings.Contains(stderr, "Valid options") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestConfigJSON(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "--json", "config")
	var resp configResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	storage, _ := resp.Config["storage"].(map[string]interface{})
	if resp.Path != env.cfg.ConfigPath || storage["backend"] != "file" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestInvalidConfigRefusesToStart(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "storage:\n  backend: redis\n")

	_, stderr, code := env.run(t, "list")
	if code != 1 || !strings.Contains(stderr, "storage.backend") {
		t.Errorf("exit %d, stderr: %s", code, stderr)
	}
}

func TestShowCompleteFromConfig(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "add", "Done already")
	env.mustRun(t, "complete", "0")
	env.mustRun(t, "config", "set", "display.show_complete", "true")

	if resp := env.listJSON(t); resp.Count != 1 {
		t.Errorf("show_complete should include completed tasks: %+v", resp)
	}
}

// TestSampleKeybindingsMatchTUI keeps the documented keys in the sample config
// in line with the keys the TUI uses by default.
func TestSampleKeybindingsMatchTUI(t *testing.T) {
	if !slices.Equal(config.KeybindingActions, tui.Actions()) {
		t.Errorf("config actions %v differ from TUI actions %v", config.KeybindingActions, tui.Actions())
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(config.GetSampleConfig()), 0644); err != nil {
		t.Fatal(err)
	}
	conf, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := len(conf.GetKeybindings()); got != len(tui.Actions()) {
		t.Errorf("sample binds %d actions, want %d", got, len(tui.Actions()))
	}
	if !reflect.DeepEqual(tui.NewKeyMap(conf.GetKeybindings()), tui.DefaultKeyMap()) {
		t.Error("sample keybindings differ from the TUI defaults")
	}
}
