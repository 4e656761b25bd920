package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"todotui/backend"
	"todotui/backend/file"
	"todotui/backend/memory"
	"todotui/backend/sqlite"
	"todotui/internal/config"
	"todotui/internal/lifecycle"
	"todotui/internal/session"
	"todotui/internal/shutdown"
	"todotui/internal/store"
	"todotui/internal/taskform"
	"todotui/internal/tui"
	"todotui/internal/utils"
)

// Build information, set at build time
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds the process-level overrides of the loaded configuration
type Config struct {
	NoPrompt     bool
	Verbose      bool
	OutputFormat string
	ConfigPath   string    // Path to config file (for testing)
	DataPath     string    // Path to task storage, overrides storage.path (for testing)
	Stdin        io.Reader // Answers to prompts (for testing)
}

// app carries the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *Config
	conf   *config.Config
	json   bool
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	a := newApp(stdout, stderr, cfg)
	rootCmd := a.rootCommand()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if a.json || containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			if a.cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

func newApp(stdout, stderr io.Writer, cfg *Config) *app {
	if cfg == nil {
		cfg = &Config{}
	}
	return &app{stdout: stdout, stderr: stderr, cfg: cfg}
}

// NewTodoTUI creates the root command with injectable IO
func NewTodoTUI(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return newApp(stdout, stderr, cfg).rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todotui",
		Short: "A personal task manager for the terminal",
		Long: "todotui keeps a list of tasks with due dates, groups and repeats.\n" +
			"Run without arguments in a terminal to open the interactive interface.",
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			utils.SetVerboseMode(verbose || a.cfg.Verbose)
			utils.SetLogOutput(a.stderr)

			noPrompt, _ := cmd.Flags().GetBool("no-prompt")
			if noPrompt {
				a.cfg.NoPrompt = true
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				a.cfg.OutputFormat = "json"
			}
			if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
				a.cfg.ConfigPath = configPath
			}
			a.json = a.cfg.OutputFormat == "json"
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(a.stdout) {
				return cmd.Help()
			}
			return a.runTUI(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/todotui/config.yaml)")
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(
		a.newListCmd(),
		a.newShowCmd(),
		a.newAddCmd(),
		a.newEditCmd(),
		a.newCompleteCmd(),
		a.newToggleCmd(),
		a.newDeleteCmd(),
		a.newGroupsCmd(),
		a.newConfigCmd(),
		a.newTUICmd(),
		a.newVersionCmd(),
	)
	return cmd
}

// config loads the configuration file once per invocation and applies the
// command-line overrides.
func (a *app) config() (*config.Config, error) {
	if a.conf != nil {
		return a.conf, nil
	}
	conf, err := config.Load(a.cfg.ConfigPath)
	if err != nil {
		return nil, utils.WrapWithSuggestion(err, "Fix the file or point --config at another one")
	}
	if a.cfg.DataPath != "" {
		conf.Storage.Path = a.cfg.DataPath
	}
	if err := conf.Validate(); err != nil {
		return nil, utils.WrapWithSuggestion(err, fmt.Sprintf("Edit %s or use 'todotui config set'", conf.Path()))
	}
	conf.ApplyFlags(a.cfg.NoPrompt, a.cfg.OutputFormat)
	a.cfg.NoPrompt = conf.NoPrompt
	a.json = conf.OutputFormat == "json"
	a.conf = conf
	return conf, nil
}

// openStorage builds the backend selected by storage.backend.
func openStorage(conf *config.Config) (backend.Storage, error) {
	path := conf.GetStoragePath()
	switch conf.GetStorageBackend() {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, backend.IOErrorf("create %s: %w", filepath.Dir(path), err)
		}
		return sqlite.New(path)
	default:
		return file.New(file.Config{FilePath: path})
	}
}

// withStore opens the task store, runs fn and closes the store again.
func (a *app) withStore(ctx context.Context, fn func(conf *config.Config, st *store.Store) error) error {
	conf, err := a.config()
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			utils.Warnf("closing task storage: %v", err)
		}
	}()
	return fn(conf, st)
}

func (a *app) openStore(ctx context.Context, conf *config.Config) (*store.Store, error) {
	storage, err := openStorage(conf)
	if err != nil {
		return nil, explainStorage(conf, err)
	}
	st, err := store.Open(ctx, storage)
	if err != nil {
		_ = storage.Close()
		return nil, explainStorage(conf, err)
	}
	return st, nil
}

func explainStorage(conf *config.Config, err error) error {
	switch {
	case errors.Is(err, backend.ErrFormat):
		return utils.ErrMalformedTaskData(conf.GetStoragePath(), err)
	case errors.Is(err, backend.ErrIO):
		return utils.ErrStorageUnavailable(conf.GetStoragePath(), err)
	default:
		return err
	}
}

// explainTask turns store errors for task id into messages with suggestions.
func explainTask(conf *config.Config, id int, err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return utils.ErrTaskNotFound(id, err)
	}
	return explainStorage(conf, err)
}

func (a *app) done() {
	if a.cfg.NoPrompt && !a.json {
		_, _ = fmt.Fprintln(a.stdout, ResultActionCompleted)
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, utils.WrapWithSuggestion(
			fmt.Errorf("invalid task id: %q", s),
			"Task ids are the numbers shown by 'todotui list'",
		)
	}
	return id, nil
}

func layouts(conf *config.Config) taskform.Layouts {
	return taskform.Layouts{Date: conf.DateFormats.InputDate, DateTime: conf.DateFormats.InputDateTime}
}

// --- list / show / groups ---

func (a *app) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "List tasks of the current group. Completed tasks are hidden unless --all is set or display.show_complete is true.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			group, _ := cmd.Flags().GetString("group")
			ungrouped, _ := cmd.Flags().GetBool("ungrouped")

			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				engine := lifecycle.New(st)
				display := lifecycle.Display{
					Group:        conf.Display.CurrentGroup,
					ShowComplete: conf.Display.ShowComplete || all,
				}
				if cmd.Flags().Changed("group") {
					if group != "" && !engine.HasGroup(group) {
						return utils.ErrGroupNotFound(group)
					}
					display.Group = group
				}

				var tasks []backend.Task
				if ungrouped {
					display.Group = ""
					filter := display.Filter()
					filter.Ungrouped = true
					tasks = st.List(filter)
				} else {
					view := engine.View(display)
					display = view.Display
					tasks = view.Tasks
				}

				if a.json {
					return outputTaskListJSON(tasks, display.Group, a.stdout)
				}
				printTaskTable(a.stdout, tasks, conf.GetDisplayLayout())
				if a.cfg.NoPrompt {
					_, _ = fmt.Fprintln(a.stdout, ResultInfoOnly)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolP("all", "a", false, "Include completed tasks")
	cmd.Flags().StringP("group", "g", "", "Only tasks of this group (\"\" for every group)")
	cmd.Flags().Bool("ungrouped", false, "Only tasks without a group")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show every field of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				task, err := st.Get(id)
				if err != nil {
					return explainTask(conf, id, err)
				}
				if a.json {
					return outputActionJSON("show", task, false, ResultInfoOnly, a.stdout)
				}
				printTaskDetails(a.stdout, task, conf.GetDisplayLayout())
				return nil
			})
		},
	}
}

func (a *app) newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				names := lifecycle.New(st).GroupNames()
				counts := make(map[string]int, len(names))
				for _, t := range st.All() {
					if !t.Complete && t.Group != nil {
						counts[*t.Group]++
					}
				}

				if a.json {
					return outputGroupsJSON(names, counts, a.stdout)
				}
				if len(names) == 0 {
					_, _ = fmt.Fprintln(a.stdout, "No groups")
					return nil
				}
				rows := make([][]string, 0, len(names))
				for _, n := range names {
					rows = append(rows, []string{n, strconv.Itoa(counts[n])})
				}
				printTable(a.stdout, []string{"GROUP", "OPEN"}, rows)
				return nil
			})
		},
	}
}

// --- add / edit ---

// taskFlags registers the flags shared by add and edit.
func taskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("due", "d", "", "Due date (YYYY-MM-DD, YYYY-MM-DD HH:MM, today, tomorrow, +3d)")
	cmd.Flags().StringP("repeat", "r", "", "Repeat: never, daily, weekly, monthly, monthly N, yearly or Mon,Thu")
	cmd.Flags().StringP("group", "g", "", "Group")
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().String("url", "", "URL")
}

// applyTaskFlags copies every flag the user set into the form.
func applyTaskFlags(cmd *cobra.Command, form *taskform.Form) {
	fields := map[string]taskform.Field{
		"name":        taskform.FieldName,
		"due":         taskform.FieldDate,
		"repeat":      taskform.FieldRepeats,
		"group":       taskform.FieldGroup,
		"description": taskform.FieldDescription,
		"url":         taskform.FieldURL,
	}
	for flag, field := range fields {
		if cmd.Flags().Lookup(flag) == nil || !cmd.Flags().Changed(flag) {
			continue
		}
		form[field], _ = cmd.Flags().GetString(flag)
	}
}

// buildDraft parses the form and checks the result against the task rules,
// mapping failures to messages with suggestions.
func buildDraft(form taskform.Form, base backend.Draft, conf *config.Config) (backend.Draft, error) {
	draft, err := form.ToDraft(base, layouts(conf))
	var verr *backend.ValidationError
	if errors.As(err, &verr) {
		switch verr.Field {
		case "date":
			return backend.Draft{}, utils.ErrInvalidDate(form[taskform.FieldDate])
		case "repeats":
			return backend.Draft{}, utils.ErrInvalidRepeat(form[taskform.FieldRepeats])
		}
	}
	if err != nil {
		return backend.Draft{}, err
	}

	if err := draft.Validate(); err != nil {
		if draft.Recurrence != nil && draft.Due == nil {
			return backend.Draft{}, utils.ErrRepeatNeedsDue(err)
		}
		return backend.Draft{}, err
	}
	return draft, nil
}

func (a *app) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Create a task",
		Example: `  todotui add Pay rent --due 2026-11-01 --repeat monthly --group home
  todotui add Call mum --due tomorrow`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				var form taskform.Form
				form[taskform.FieldName] = strings.Join(args, " ")
				applyTaskFlags(cmd, &form)

				draft, err := buildDraft(form, backend.Draft{}, conf)
				if err != nil {
					return err
				}
				id, err := st.Create(cmd.Context(), draft)
				if err != nil {
					return explainTask(conf, id, err)
				}
				task, _ := st.Get(id)

				if a.json {
					return outputActionJSON("add", task, false, ResultActionCompleted, a.stdout)
				}
				_, _ = fmt.Fprintf(a.stdout, "Created task %d: %s\n", task.ID, task.Name)
				a.done()
				return nil
			})
		},
	}
	taskFlags(cmd)
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task",
		Long:  "Change fields of a task. Only the flags given are changed; an empty value clears an optional field.",
		Example: `  todotui edit 3 --due "2026-12-01 18:00"
  todotui edit 3 --repeat never --group ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				task, err := st.Get(id)
				if err != nil {
					return explainTask(conf, id, err)
				}

				form := taskform.FromDraft(task.Draft, layouts(conf))
				applyTaskFlags(cmd, &form)
				draft, err := buildDraft(form, task.Draft, conf)
				if err != nil {
					return err
				}
				if err := st.Update(cmd.Context(), id, draft); err != nil {
					return explainTask(conf, id, err)
				}
				task, _ = st.Get(id)

				if a.json {
					return outputActionJSON("edit", task, false, ResultActionCompleted, a.stdout)
				}
				_, _ = fmt.Fprintf(a.stdout, "Updated task %d: %s\n", task.ID, task.Name)
				a.done()
				return nil
			})
		},
	}
	cmd.Flags().StringP("name", "n", "", "New name")
	taskFlags(cmd)
	return cmd
}

// --- complete / toggle / delete ---

func (a *app) newCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a task done",
		Long:  "Mark a task done. A repeating task stays open and moves to its next due date.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.changeCompletion(cmd, args[0], "complete", (*lifecycle.Engine).Complete)
		},
	}
}

func (a *app) newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Mark a task done, or reopen a done task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.changeCompletion(cmd, args[0], "toggle", (*lifecycle.Engine).ToggleComplete)
		},
	}
}

type completionFunc func(e *lifecycle.Engine, ctx context.Context, id int) (lifecycle.Change, error)

func (a *app) changeCompletion(cmd *cobra.Command, arg, action string, apply completionFunc) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
		change, err := apply(lifecycle.New(st), cmd.Context(), id)
		if err != nil {
			return explainTask(conf, id, err)
		}

		if a.json {
			return outputActionJSON(action, change.After, change.RolledOver, ResultActionCompleted, a.stdout)
		}
		task := change.After
		switch {
		case !change.Changed:
			_, _ = fmt.Fprintf(a.stdout, "Task %d is already done: %s\n", task.ID, task.Name)
		case change.RolledOver:
			_, _ = fmt.Fprintf(a.stdout, "Completed task %d: %s (next due %s)\n",
				task.ID, task.Name, task.Due.Format(conf.GetDisplayLayout()))
		case task.Complete:
			_, _ = fmt.Fprintf(a.stdout, "Completed task %d: %s\n", task.ID, task.Name)
		default:
			_, _ = fmt.Fprintf(a.stdout, "Reopened task %d: %s\n", task.ID, task.Name)
		}
		a.done()
		return nil
	})
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(conf *config.Config, st *store.Store) error {
				task, err := st.Get(id)
				if err != nil {
					return explainTask(conf, id, err)
				}

				if !a.cfg.NoPrompt && !a.json {
					prompt := fmt.Sprintf("Delete task %d %q?", task.ID, task.Name)
					if !utils.PromptYesNoWithReader(prompt, a.stdin(), a.stdout) {
						_, _ = fmt.Fprintln(a.stdout, "Cancelled")
						return nil
					}
				}

				if err := st.Delete(cmd.Context(), id); err != nil {
					return explainTask(conf, id, err)
				}
				if a.json {
					return outputActionJSON("delete", task, false, ResultActionCompleted, a.stdout)
				}
				_, _ = fmt.Fprintf(a.stdout, "Deleted task %d: %s\n", task.ID, task.Name)
				a.done()
				return nil
			})
		},
	}
}

func (a *app) stdin() io.Reader {
	if a.cfg.Stdin != nil {
		return a.cfg.Stdin
	}
	return os.Stdin
}

// --- config ---

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.config()
			if err != nil {
				return err
			}
			if a.json {
				return outputConfigJSON(conf, a.stdout)
			}
			data, err := yaml.Marshal(conf)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "# %s\n%s", conf.Path(), data)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.config()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, conf.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting, keeping the file's comments",
		Long:  "Change one setting, keeping the file's comments.\n\nKeys:\n  " + strings.Join(config.Keys(), "\n  "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := a.config()
			if err != nil {
				return err
			}
			if err := conf.Set(args[0], args[1]); err != nil {
				if strings.HasPrefix(err.Error(), "unknown config key") {
					return utils.ErrInvalidOption("config key", args[0], config.Keys())
				}
				return err
			}
			if a.json {
				return outputJSON(a.stdout, configSetResponse{Key: args[0], Value: args[1], Result: ResultActionCompleted})
			}
			_, _ = fmt.Fprintf(a.stdout, "Set %s = %s\n", args[0], args[1])
			a.done()
			return nil
		},
	})
	return cmd
}

// --- tui / version ---

func (a *app) newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(a.stdout) {
				return utils.WrapWithSuggestion(
					errors.New("the interactive interface needs a terminal"),
					"Use 'todotui list', 'add', 'edit', 'complete' or 'delete' in scripts",
				)
			}
			return a.runTUI(cmd.Context())
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runTUI runs the interactive interface until the user quits or a signal
// arrives, then retries any save that failed on the way.
func (a *app) runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conf, err := a.config()
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, conf)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI; log to a file instead.
	bl, err := utils.NewBackgroundLoggerWithEnabled(conf.IsBackgroundLoggingEnabled())
	if err != nil || !bl.IsEnabled() {
		utils.SetLogOutput(io.Discard)
	} else {
		utils.Debugf("TUI log file: %s", bl.GetLogPath())
		utils.SetLogOutput(bl)
		defer bl.Close()
	}
	defer utils.SetLogOutput(a.stderr)

	mgr := shutdown.NewManager()
	defer mgr.HandleSignals()()
	mgr.RegisterCleanup("close storage", func(ctx context.Context) error {
		return st.Close(ctx)
	})
	mgr.RegisterCleanup("flush tasks", shutdown.FlushCleanup(st))

	saver := session.SettingsSaverFunc(func(d lifecycle.Display) error {
		return conf.SaveDisplay(d.ShowComplete, d.Group)
	})
	display := lifecycle.Display{Group: conf.Display.CurrentGroup, ShowComplete: conf.Display.ShowComplete}
	sess := session.New(lifecycle.New(st), display, saver)

	model := tui.New(sess, tui.Options{
		Layouts:        layouts(conf),
		DisplayLayout:  conf.GetDisplayLayout(),
		PrimaryColor:   conf.UI.Colors.Primary,
		SecondaryColor: conf.UI.Colors.Secondary,
		KeyBindings:    conf.GetKeybindings(),
	})
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(mgr.Context())}
	if f, ok := a.stdout.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	p := tea.NewProgram(model, opts...)

	utils.Infof("starting TUI with %d tasks", st.Len())
	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) && mgr.IsShutdown() {
		runErr = nil
	}
	mgr.Shutdown()

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mgr.Wait(waitCtx); err != nil {
		return explainStorage(conf, err)
	}
	return runErr
}

func (a *app) newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose-build")
			if a.json {
				return outputJSON(a.stdout, versionResponse{
					Version:   Version,
					Commit:    Commit,
					BuildDate: BuildDate,
					GoVersion: runtime.Version(),
					Platform:  runtime.GOOS + "/" + runtime.GOARCH,
					Result:    ResultInfoOnly,
				})
			}
			_, _ = fmt.Fprintf(a.stdout, "todotui\n  Version: %s\n  Commit:  %s\n  Built:   %s\n", Version, Commit, BuildDate)
			if verbose {
				_, _ = fmt.Fprintf(a.stdout, "  Go Version: %s\n  Platform: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose-build", "v", false, "Show Go version and platform")
	return cmd
}
