// Package output renders the command-line client's terminal output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"github.com/atinyakov/issuetracker/internal/client/board"
	"github.com/atinyakov/issuetracker/internal/models"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	bold          = color.New(color.Bold).SprintFunc()
	faint         = color.New(color.Faint).SprintFunc()
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Bold returns a bold string.
func Bold(s string) string { return bold(s) }

// StatusColor returns the status name colored by workflow stage.
func StatusColor(s models.Status) string {
	switch s {
	case models.StatusOpen:
		return green(string(s))
	case models.StatusInProgress:
		return yellow(string(s))
	case models.StatusInReview:
		return magenta(string(s))
	case models.StatusResolved:
		return cyan(string(s))
	case models.StatusClosed:
		return faint(string(s))
	default:
		return string(s)
	}
}

// PriorityColor returns the priority name colored by urgency.
func PriorityColor(p models.Priority) string {
	switch p {
	case models.PriorityLow:
		return faint(string(p))
	case models.PriorityMedium:
		return string(p)
	case models.PriorityHigh:
		return yellow(string(p))
	case models.PriorityCritical:
		return red(string(p))
	default:
		return string(p)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.ErrOut, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// Format selects how structured results are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an -o flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Encode writes v as JSON or YAML.
func (u *UI) Encode(f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(u.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(u.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("format %q is not a structured format", f)
	}
}

// ShortID is the id prefix shown in tables.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

const timeLayout = "2006-01-02 15:04"

// RenderBoard prints the count header, active filters and one table per
// status group.
func (u *UI) RenderBoard(v board.View) error {
	fmt.Fprintln(u.Out, bold(v.Label))
	if len(v.Active) > 0 {
		fmt.Fprintf(u.Out, "%s %s\n", faint("filters:"), strings.Join(v.Active, ", "))
	}
	if v.Empty != "" {
		u.Info("%s", v.Empty)
		return nil
	}

	for _, g := range v.Groups {
		fmt.Fprintln(u.Out)
		fmt.Fprintf(u.Out, "%s (%d)\n", StatusColor(g.Status), len(g.Issues))
		table := u.Table([]string{"ID", "Title", "Priority", "Created"})
		for _, issue := range g.Issues {
			if err := table.Append([]string{
				ShortID(issue.ID),
				issue.Title,
				PriorityColor(issue.Priority),
				issue.CreatedAt.Local().Format(timeLayout),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

// RenderIssue prints the detail view of one issue and its activity feed.
func (u *UI) RenderIssue(issue models.Issue) {
	fmt.Fprintf(u.Out, "%s  %s\n", Cyan(ShortID(issue.ID)), bold(issue.Title))
	fmt.Fprintf(u.Out, "  Status:     %s\n", StatusColor(issue.Status))
	fmt.Fprintf(u.Out, "  Priority:   %s\n", PriorityColor(issue.Priority))
	if issue.Description != "" {
		fmt.Fprintf(u.Out, "  Desc:       %s\n", issue.Description)
	}
	fmt.Fprintf(u.Out, "  Full ID:    %s\n", issue.ID)

	fmt.Fprintln(u.Out)
	fmt.Fprintln(u.Out, bold("Activity"))
	for _, a := range issue.Activity() {
		fmt.Fprintf(u.Out, "  %s  %s\n", faint(a.At.Local().Format(time.RFC3339)), activityText(a.Kind))
	}
}

func activityText(k models.ActivityKind) string {
	switch k {
	case models.ActivityCreated:
		return "Issue created"
	case models.ActivityUpdated:
		return "Issue updated"
	default:
		return string(k)
	}
}

// RenderUser prints the signed-in user.
func (u *UI) RenderUser(user models.User) {
	fmt.Fprintf(u.Out, "%s <%s>\n", bold(user.Username), user.Email)
	fmt.Fprintf(u.Out, "  ID:  %s\n", faint(user.ID))
}
