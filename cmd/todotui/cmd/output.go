package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"todotui/backend"
	"todotui/internal/config"
)

// maxNameWidth caps the name column of the task table.
const maxNameWidth = 40

// JSON output structures
type taskJSON struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Due         *string `json:"due,omitempty"`
	Repeats     *string `json:"repeats,omitempty"`
	Group       *string `json:"group,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
	Complete    bool    `json:"complete"`
}

type listTasksResponse struct {
	Tasks  []taskJSON `json:"tasks"`
	Group  string     `json:"group"`
	Count  int        `json:"count"`
	Result string     `json:"result"`
}

type actionResponse struct {
	Action     string   `json:"action"`
	Task       taskJSON `json:"task"`
	RolledOver bool     `json:"rolled_over,omitempty"`
	Result     string   `json:"result"`
}

type groupJSON struct {
	Name string `json:"name"`
	Open int    `json:"open"`
}

type groupsResponse struct {
	Groups []groupJSON `json:"groups"`
	Result string      `json:"result"`
}

type configResponse struct {
	Path   string                 `json:"path"`
	Config map[string]interface{} `json:"config"`
	Result string                 `json:"result"`
}

type configSetResponse struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Result string `json:"result"`
}

type versionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Result    string `json:"result"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

// taskToJSON converts a backend.Task to taskJSON
func taskToJSON(t backend.Task) taskJSON {
	result := taskJSON{
		ID:          t.ID,
		Name:        t.Name,
		Group:       t.Group,
		Description: t.Description,
		URL:         t.URL,
		Complete:    t.Complete,
	}
	if t.Due != nil {
		s := t.Due.Format(time.RFC3339)
		result.Due = &s
	}
	if t.Recurrence != nil {
		s := t.Recurrence.String()
		result.Repeats = &s
	}
	return result
}

func outputJSON(w io.Writer, v interface{}) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(jsonBytes))
	return nil
}

// outputTaskListJSON outputs tasks in JSON format
func outputTaskListJSON(tasks []backend.Task, group string, stdout io.Writer) error {
	jsonTasks := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		jsonTasks = append(jsonTasks, taskToJSON(t))
	}
	return outputJSON(stdout, listTasksResponse{
		Tasks:  jsonTasks,
		Group:  group,
		Count:  len(jsonTasks),
		Result: ResultInfoOnly,
	})
}

// outputActionJSON outputs action result in JSON format
func outputActionJSON(action string, task backend.Task, rolledOver bool, result string, stdout io.Writer) error {
	return outputJSON(stdout, actionResponse{
		Action:     action,
		Task:       taskToJSON(task),
		RolledOver: rolledOver,
		Result:     result,
	})
}

func outputGroupsJSON(names []string, counts map[string]int, stdout io.Writer) error {
	groups := make([]groupJSON, 0, len(names))
	for _, n := range names {
		groups = append(groups, groupJSON{Name: n, Open: counts[n]})
	}
	return outputJSON(stdout, groupsResponse{Groups: groups, Result: ResultInfoOnly})
}

// outputConfigJSON reports the config under its YAML key names.
func outputConfigJSON(conf *config.Config, stdout io.Writer) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	var values map[string]interface{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return err
	}
	return outputJSON(stdout, configResponse{Path: conf.Path(), Config: values, Result: ResultInfoOnly})
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	_ = outputJSON(stdout, errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	})
}

// printTaskTable prints tasks as an aligned table.
func printTaskTable(w io.Writer, tasks []backend.Task, dateLayout string) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "No tasks")
		return
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		done := ""
		if t.Complete {
			done = "x"
		}
		due, repeats := "", ""
		if t.Due != nil {
			due = t.Due.Format(dateLayout)
		}
		if t.Recurrence != nil {
			repeats = t.Recurrence.String()
		}
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			done,
			runewidth.Truncate(t.Name, maxNameWidth, "…"),
			due,
			repeats,
			t.GroupName(),
		})
	}
	printTable(w, []string{"ID", "DONE", "NAME", "DUE", "REPEATS", "GROUP"}, rows)
}

// printTable pads every column to its widest cell, measured in terminal
// cells so that wide characters line up.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
}

// printTaskDetails prints every field of a task, one per line.
func printTaskDetails(w io.Writer, t backend.Task, dateLayout string) {
	due, repeats := "", "Never"
	if t.Due != nil {
		due = t.Due.Format(dateLayout)
	}
	if t.Recurrence != nil {
		repeats = t.Recurrence.String()
	}
	status := "open"
	if t.Complete {
		status = "done"
	}

	fields := [][2]string{
		{"ID", strconv.Itoa(t.ID)},
		{"Name", t.Name},
		{"Date", due},
		{"Repeats", repeats},
		{"Group", t.GroupName()},
		{"Description", deref(t.Description)},
		{"URL", deref(t.URL)},
		{"Status", status},
	}
	for _, f := range fields {
		_, _ = fmt.Fprintf(w, "%-12s %s\n", f[0]+":", f[1])
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
