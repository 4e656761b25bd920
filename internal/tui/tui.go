// Package tui provides a terminal user interface for task management.
//
// The model is a thin renderer and key decoder: every key that changes state
// is turned into a session intent and handed to session.Session.Handle.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"todotui/backend"
	"todotui/internal/lifecycle"
	"todotui/internal/session"
	"todotui/internal/taskform"
)

// Options controls formatting and colors.
type Options struct {
	// Layouts are used to show and parse the date field of the form.
	Layouts taskform.Layouts
	// DisplayLayout formats due dates in the details pane.
	DisplayLayout string
	// PrimaryColor and SecondaryColor are lipgloss colors.
	PrimaryColor   string
	SecondaryColor string
	// KeyBindings replaces the keys of the named actions (see Actions).
	KeyBindings map[string][]string
	// OpenURL opens a task link. Defaults to the system browser.
	OpenURL func(url string) error
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Layouts:        taskform.DefaultLayouts,
		DisplayLayout:  "Mon 2006-01-02 15:04",
		PrimaryColor:   "62",
		SecondaryColor: "241",
		OpenURL:        openInBrowser,
	}
}

func openInBrowser(url string) error {
	// The opener's own output would land on the TUI's screen.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// Model represents the TUI state
type Model struct {
	session *session.Session
	ctx     context.Context
	opts    Options
	keys    KeyMap
	help    help.Model

	// Data
	view   lifecycle.View
	cursor int

	// Edit form
	inputs [taskform.NumFields]textinput.Model
	field  taskform.Field

	// Feedback
	err      error  // last rejected intent, shown inline
	status   string // last warning, shown under the status bar
	showHelp bool

	now time.Time

	// UI dimensions
	width  int
	height int

	// Styles
	paneStyle      lipgloss.Style
	headerStyle    lipgloss.Style
	selectedStyle  lipgloss.Style
	completedStyle lipgloss.Style
	labelStyle     lipgloss.Style
	helpStyle      lipgloss.Style
	errorStyle     lipgloss.Style
	warnStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

// tickMsg drives the clock in the status bar.
type tickMsg time.Time

// linkOpenedMsg reports the outcome of opening a task link.
type linkOpenedMsg struct {
	url string
	err error
}

// New creates a new TUI model over the session.
func New(s *session.Session, opts Options) *Model {
	defaults := DefaultOptions()
	if opts.Layouts == (taskform.Layouts{}) {
		opts.Layouts = defaults.Layouts
	}
	if opts.DisplayLayout == "" {
		opts.DisplayLayout = defaults.DisplayLayout
	}
	if opts.PrimaryColor == "" {
		opts.PrimaryColor = defaults.PrimaryColor
	}
	if opts.SecondaryColor == "" {
		opts.SecondaryColor = defaults.SecondaryColor
	}
	if opts.OpenURL == nil {
		opts.OpenURL = defaults.OpenURL
	}
	primary := lipgloss.Color(opts.PrimaryColor)
	secondary := lipgloss.Color(opts.SecondaryColor)

	m := &Model{
		session: s,
		ctx:     context.Background(),
		opts:    opts,
		keys:    NewKeyMap(opts.KeyBindings),
		help:    help.New(),
		now:     time.Now(),
		paneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		labelStyle: lipgloss.NewStyle().
			Foreground(secondary),
		helpStyle: lipgloss.NewStyle().
			Foreground(secondary),
		errorStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1),
		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}

	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		m.inputs[i] = ti
	}
	m.inputs[taskform.FieldName].Placeholder = "required"
	m.inputs[taskform.FieldDate].Placeholder = opts.Layouts.Hint()
	m.inputs[taskform.FieldRepeats].Placeholder = "Never"

	m.refresh()
	return m
}

// Init starts the clock.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case linkOpenedMsg:
		if msg.err != nil {
			m.status = "Cannot open link: " + msg.err.Error()
		} else {
			m.status = "Opened " + msg.url
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch m.session.Mode() {
		case session.ModeEdit:
			return m.handleEditMode(msg)
		case session.ModeDeleteConfirm:
			return m.handleConfirmDeleteMode(msg)
		case session.ModeConfig:
			return m.handleConfigMode(msg)
		default:
			return m.handleListMode(msg)
		}
	}

	return m, nil
}

func (m *Model) handleListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Tasks)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.NextGroup):
		return m.dispatch(session.CycleGroup{Delta: 1})

	case key.Matches(msg, m.keys.PrevGroup):
		return m.dispatch(session.CycleGroup{Delta: -1})

	case key.Matches(msg, m.keys.ToggleCompletedTasks):
		return m.dispatch(session.ToggleShowComplete{})

	case key.Matches(msg, m.keys.NewTask):
		return m.dispatch(session.StartCreate{})

	case key.Matches(msg, m.keys.EditTask):
		if task, ok := m.selected(); ok {
			return m.dispatch(session.StartEdit{ID: task.ID})
		}

	case key.Matches(msg, m.keys.DeleteTask):
		if task, ok := m.selected(); ok {
			return m.dispatch(session.StartDelete{ID: task.ID})
		}

	case key.Matches(msg, m.keys.CompleteTask):
		if task, ok := m.selected(); ok {
			return m.dispatch(session.ToggleComplete{ID: task.ID})
		}

	case key.Matches(msg, m.keys.OpenLink):
		return m, m.openLink()

	case key.Matches(msg, m.keys.Settings):
		return m.dispatch(session.OpenConfig{})

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

// openLink opens the URL of the selected task outside the terminal.
func (m *Model) openLink() tea.Cmd {
	task, ok := m.selected()
	if !ok {
		return nil
	}
	if task.URL == nil || strings.TrimSpace(*task.URL) == "" {
		m.status = "No link for this task"
		return nil
	}
	url, open := *task.URL, m.opts.OpenURL
	return func() tea.Msg {
		return linkOpenedMsg{url: url, err: open(url)}
	}
}

func (m *Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.GoBack):
		return m.dispatch(session.Cancel{})

	case key.Matches(msg, m.keys.NextField):
		return m, m.focusField((m.field + 1) % taskform.NumFields)

	case key.Matches(msg, m.keys.PrevField):
		return m, m.focusField((m.field + taskform.NumFields - 1) % taskform.NumFields)

	case key.Matches(msg, m.keys.SaveChanges):
		base, _ := m.session.Staging()
		draft, err := m.form().ToDraft(base, m.opts.Layouts)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.dispatch(session.Submit{Draft: draft})
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m.dispatch(session.Confirm{})
	case key.Matches(msg, m.keys.Deny, m.keys.GoBack, m.keys.Quit):
		return m.dispatch(session.Cancel{})
	}
	return m, nil
}

func (m *Model) handleConfigMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleCompletedTasks, m.keys.CompleteTask):
		return m.dispatch(session.ToggleShowComplete{})
	case key.Matches(msg, m.keys.NextGroup):
		return m.dispatch(session.CycleGroup{Delta: 1})
	case key.Matches(msg, m.keys.PrevGroup):
		return m.dispatch(session.CycleGroup{Delta: -1})
	case key.Matches(msg, m.keys.GoBack, m.keys.Quit, m.keys.Settings, m.keys.SaveChanges):
		return m.dispatch(session.Close{})
	}
	return m, nil
}

// dispatch hands an intent to the session and refreshes the model from the
// outcome.
func (m *Model) dispatch(in session.Intent) (tea.Model, tea.Cmd) {
	prev := m.session.Mode()
	res, err := m.session.Handle(m.ctx, in)

	m.err = err
	if res.Warning != nil {
		m.status = "Not saved: " + res.Warning.Error()
	} else if err == nil {
		m.status = ""
	}

	m.refresh()
	if res.Created != nil {
		m.selectTask(*res.Created)
	}

	if prev != session.ModeEdit && res.Mode == session.ModeEdit {
		return m, m.loadForm()
	}
	return m, nil
}

// refresh re-reads the visible tasks and keeps the cursor in range.
func (m *Model) refresh() {
	m.view = m.session.View()
	if m.cursor >= len(m.view.Tasks) {
		m.cursor = len(m.view.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selectTask(id int) {
	for i, t := range m.view.Tasks {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) selected() (backend.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Tasks) {
		return backend.Task{}, false
	}
	return m.view.Tasks[m.cursor], true
}

// loadForm fills the inputs from the staging draft and focuses the name.
func (m *Model) loadForm() tea.Cmd {
	draft, _ := m.session.Staging()
	form := taskform.FromDraft(draft, m.opts.Layouts)
	for i := range m.inputs {
		m.inputs[i].SetValue(form[i])
		m.inputs[i].CursorEnd()
	}
	return m.focusField(taskform.FieldName)
}

func (m *Model) focusField(f taskform.Field) tea.Cmd {
	m.inputs[m.field].Blur()
	m.field = f
	return m.inputs[f].Focus()
}

func (m *Model) form() taskform.Form {
	var f taskform.Form
	for i := range m.inputs {
		f[i] = m.inputs[i].Value()
	}
	return f
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	if m.showHelp {
		return m.centerDialog(m.renderHelpDialog())
	}
	if m.session.Mode() == session.ModeDeleteConfirm {
		return m.centerDialog(m.renderConfirmDeleteDialog())
	}

	var b strings.Builder

	// Calculate pane widths
	leftWidth := m.width * 2 / 5
	rightWidth := m.width - leftWidth - 4
	paneHeight := m.height - 5
	if paneHeight < 3 {
		paneHeight = 3
	}

	left := m.paneStyle.Width(leftWidth).Height(paneHeight).
		Render(m.renderListPane(leftWidth-4, paneHeight))

	var right string
	switch m.session.Mode() {
	case session.ModeEdit:
		right = m.renderFormPane(rightWidth - 4)
	case session.ModeConfig:
		right = m.renderConfigPane()
	default:
		right = m.renderDetailsPane()
	}
	right = m.paneStyle.Width(rightWidth).Height(paneHeight).Render(right)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderMessage())

	return b.String()
}

func (m *Model) renderListPane(width, height int) string {
	var b strings.Builder
	b.WriteString(m.headerStyle.Render("Groups"))
	b.WriteString("\n")
	for _, g := range m.view.Groups {
		name := groupLabel(g)
		if g == m.view.Display.Group {
			b.WriteString("> " + m.selectedStyle.Render(name) + "\n")
		} else {
			b.WriteString("  " + name + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render("Tasks"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	if len(m.view.Tasks) == 0 {
		b.WriteString(m.helpStyle.Render("No tasks"))
		b.WriteString("\n")
		return b.String()
	}

	rows := height - len(m.view.Groups) - 4
	start, end := window(len(m.view.Tasks), m.cursor, rows)
	for i := start; i < end; i++ {
		b.WriteString(m.renderTaskRow(m.view.Tasks[i], i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTaskRow(task backend.Task, selected bool) string {
	check := "[ ]"
	if task.Complete {
		check = "[x]"
	}
	name := task.Name
	if task.IsRecurring() {
		name += " ↻"
	}
	switch {
	case selected:
		name = m.selectedStyle.Render(name)
	case task.Complete:
		name = m.completedStyle.Render(name)
	}

	cursor := " "
	if selected {
		cursor = ">"
	}
	row := cursor + " " + check + " " + name
	if task.Due != nil {
		row += " " + m.helpStyle.Render(taskform.FormatDue(*task.Due, m.opts.Layouts))
	}
	return row
}

// window returns the slice bounds of at most size rows that keep the cursor
// visible.
func window(n, cursor, size int) (int, int) {
	if size < 1 {
		size = 1
	}
	if n <= size {
		return 0, n
	}
	start := cursor - size + 1
	if start < 0 {
		start = 0
	}
	return start, start + size
}

func (m *Model) renderDetailsPane() string {
	task, ok := m.selected()
	if !ok {
		return m.helpStyle.Render("No task selected\n\nPress " + m.keys.NewTask.Help().Key + " to create one")
	}

	status := "open"
	if task.Complete {
		status = "done"
	}
	due := ""
	if task.Due != nil {
		due = task.Due.Format(m.opts.DisplayLayout)
	}
	repeats := "Never"
	if task.Recurrence != nil {
		repeats = task.Recurrence.String()
	}

	var b strings.Builder
	b.WriteString(m.headerStyle.Render(task.Name))
	b.WriteString("\n\n")
	for _, row := range [][2]string{
		{"Date", due},
		{"Repeats", repeats},
		{"Group", task.GroupName()},
		{"Description", deref(task.Description)},
		{"URL", deref(task.URL)},
		{"Status", status},
		{"ID", fmt.Sprint(task.ID)},
	} {
		b.WriteString(m.labelStyle.Render(fmt.Sprintf("%-12s", row[0])))
		b.WriteString(row[1])
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderFormPane(width int) string {
	title := "New Task"
	if id, ok := m.session.Target(); ok {
		title = fmt.Sprintf("Edit Task %d", id)
	}

	var b strings.Builder
	b.WriteString(m.headerStyle.Render(title))
	b.WriteString("\n\n")
	for f := taskform.Field(0); f < taskform.NumFields; f++ {
		label := fmt.Sprintf("%-12s", f.Label())
		if f == m.field {
			label = m.selectedStyle.Render(label)
		} else {
			label = m.labelStyle.Render(label)
		}
		b.WriteString(label)
		b.WriteString(m.inputs[f].View())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.errorStyle.Width(max(width-2, 10)).Render(describeError(m.err)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderConfigPane() string {
	d := m.view.Display
	show := "no"
	if d.ShowComplete {
		show = "yes"
	}

	var b strings.Builder
	b.WriteString(m.headerStyle.Render("Settings"))
	b.WriteString("\n\n")
	b.WriteString(m.labelStyle.Render(fmt.Sprintf("%-16s", "Show completed")))
	b.WriteString(show + "\n")
	b.WriteString(m.labelStyle.Render(fmt.Sprintf("%-16s", "Group")))
	b.WriteString(groupLabel(d.Group) + "\n\n")
	b.WriteString(m.help.ShortHelpView(m.modeHelp(session.ModeConfig)))
	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := m.session.Mode().String() + " │ " + groupLabel(m.view.Display.Group)
	if m.view.Display.ShowComplete {
		left += " │ showing completed"
	}

	// Hints beyond half the bar are cut off with an ellipsis.
	m.help.Width = max(m.width/2, 20)
	right := m.help.ShortHelpView(m.modeHelp(m.session.Mode())) + "  " + m.now.Format("15:04:05")

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

// renderMessage shows a pending warning or, outside the form, the last error.
func (m *Model) renderMessage() string {
	if m.err != nil && m.session.Mode() != session.ModeEdit {
		return m.warnStyle.Render(describeError(m.err))
	}
	if m.status != "" {
		return m.helpStyle.Render(m.status)
	}
	return ""
}

// modeHelp lists the bindings hinted at in the given mode.
func (m *Model) modeHelp(mode session.Mode) []key.Binding {
	switch mode {
	case session.ModeEdit:
		return []key.Binding{m.keys.NextField, m.keys.SaveChanges, m.keys.GoBack}
	case session.ModeConfig:
		return []key.Binding{m.keys.ToggleCompletedTasks, m.keys.NextGroup, m.keys.PrevGroup, m.keys.GoBack}
	case session.ModeDeleteConfirm:
		return []key.Binding{m.keys.Confirm, m.keys.Deny}
	default:
		return m.keys.ShortHelp()
	}
}

func (m *Model) renderHelpDialog() string {
	var b strings.Builder
	b.WriteString("Help - Key Bindings\n")
	for i, title := range []string{"Navigation", "Actions", "Form", "General"} {
		b.WriteString("\n" + title + ":\n")
		for _, kb := range m.keys.FullHelp()[i] {
			h := kb.Help()
			fmt.Fprintf(&b, "  %-14s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nPress any key to close")

	return m.dialogStyle.Render(b.String())
}

func (m *Model) renderConfirmDeleteDialog() string {
	name := "selected task"
	if id, ok := m.session.Target(); ok {
		for _, t := range m.view.Tasks {
			if t.ID == id {
				name = fmt.Sprintf("%q", t.Name)
			}
		}
	}
	return m.dialogStyle.Render(
		"Delete " + name + "?\n\n" +
			m.help.ShortHelpView(m.modeHelp(session.ModeDeleteConfirm)),
	)
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	dialogHeight := len(lines)
	dialogWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > dialogWidth {
			dialogWidth = w
		}
	}

	topPad := max((m.height-dialogHeight)/2, 0)
	leftPad := max((m.width-dialogWidth)/2, 0)

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

func describeError(err error) string {
	var verr *backend.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Invalid " + verr.Field + ": " + verr.Reason
	case errors.Is(err, session.ErrIllegalTransition):
		return "Not available here"
	default:
		return err.Error()
	}
}

func groupLabel(g string) string {
	if g == "" {
		return "All"
	}
	return g
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
