package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atinyakov/issuetracker/internal/aggregator"
	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
	"github.com/atinyakov/issuetracker/internal/output"
)

// parseStatus resolves user input to a status, suggesting close matches
// when it is not one.
func parseStatus(s string) (models.Status, error) {
	if st, ok := models.ParseStatus(s); ok {
		return st, nil
	}
	if hints := aggregator.StatusSuggestions(s); len(hints) > 0 {
		names := make([]string, len(hints))
		for i, h := range hints {
			names[i] = string(h)
		}
		return "", apperr.Validation("unknown status %q, did you mean %s?", s, strings.Join(names, " or "))
	}
	return "", apperr.Validation("unknown status %q", s)
}

func parsePriority(s string) (models.Priority, error) {
	if p, ok := models.ParsePriority(s); ok {
		return p, nil
	}
	return "", apperr.Validation("unknown priority %q", s)
}

type listOptions struct {
	search     string
	statuses   []string
	priorities []string
	from, to   string
	format     string
}

func (o listOptions) filter(loc *time.Location) (aggregator.Filter, error) {
	f := aggregator.Filter{SearchTerm: strings.TrimSpace(o.search), Location: loc}
	for _, s := range o.statuses {
		st, err := parseStatus(s)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, s := range o.priorities {
		p, err := parsePriority(s)
		if err != nil {
			return f, err
		}
		f.Priorities = append(f.Priorities, p)
	}
	if o.from != "" {
		d, err := aggregator.ParseDate(o.from)
		if err != nil {
			return f, apperr.Validation("%s", err)
		}
		f.StartDate = &d
	}
	if o.to != "" {
		d, err := aggregator.ParseDate(o.to)
		if err != nil {
			return f, apperr.Validation("%s", err)
		}
		f.EndDate = &d
	}
	return f, nil
}

func (c *cli) listCmd() *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List issues grouped by status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			f, err := opts.filter(time.Local)
			if err != nil {
				return err
			}
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if _, err := c.board.Refresh(cmd.Context()); err != nil {
				return err
			}
			c.ui.VerboseLog("fetched %d issues at %s", len(c.board.Issues()),
				c.board.FetchedAt().Local().Format(time.RFC3339))

			view := c.board.View(f)
			if format != output.FormatTable {
				return c.ui.Encode(format, view)
			}
			return c.ui.RenderBoard(view)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.search, "search", "", "Match text in title or description")
	fl.StringSliceVar(&opts.statuses, "status", nil, "Filter by status (repeatable or comma separated)")
	fl.StringSliceVar(&opts.priorities, "priority", nil, "Filter by priority (repeatable or comma separated)")
	fl.StringVar(&opts.from, "from", "", "Created on or after this day (YYYY-MM-DD)")
	fl.StringVar(&opts.to, "to", "", "Created on or before this day (YYYY-MM-DD)")
	fl.StringVarP(&opts.format, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show issue details and activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issue, err := c.api.GetIssue(cmd.Context(), id)
			if err != nil {
				return err
			}
			if f != output.FormatTable {
				return c.ui.Encode(f, issue)
			}
			c.ui.RenderIssue(issue)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}

type draftFlags struct {
	title, description, status, priority string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&d.title, "title", "t", "", "Issue title")
	fl.StringVarP(&d.description, "description", "d", "", "Issue description")
	fl.StringVar(&d.status, "status", "", "Status: open, in-progress, in-review, resolved, closed")
	fl.StringVarP(&d.priority, "priority", "p", "", "Priority: low, medium, high, critical")
}

// draft includes only the flags the user set, so an update leaves every
// other field untouched.
func (d *draftFlags) draft(cmd *cobra.Command) (models.IssueDraft, error) {
	var out models.IssueDraft
	fl := cmd.Flags()
	if fl.Changed("title") {
		out.Title = &d.title
	}
	if fl.Changed("description") {
		out.Description = &d.description
	}
	if fl.Changed("status") {
		st, err := parseStatus(d.status)
		if err != nil {
			return out, err
		}
		out.Status = &st
	}
	if fl.Changed("priority") {
		p, err := parsePriority(d.priority)
		if err != nil {
			return out, err
		}
		out.Priority = &p
	}
	return out, nil
}

func (c *cli) createCmd() *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			draft, err := flags.draft(cmd)
			if err != nil {
				return err
			}
			if err := draft.ValidateForCreate(); err != nil {
				return err
			}
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			issue, err := c.board.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			c.ui.Success("Created issue %s %q", output.ShortID(issue.ID), issue.Title)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	var flags draftFlags
	cmd := &cobra.Command{
		Use:   "update <issue-id>",
		Short: "Change fields of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := flags.draft(cmd)
			if err != nil {
				return err
			}
			if draft.IsEmpty() {
				return apperr.Validation("no fields to update")
			}
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issue, err := c.board.Update(cmd.Context(), id, draft)
			if err != nil {
				return err
			}
			c.ui.Success("Updated issue %s", output.ShortID(issue.ID))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <issue-id> <status>",
		Short: "Move an issue to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issue, err := c.board.SetStatus(cmd.Context(), id, st)
			if err != nil {
				return err
			}
			c.ui.Success("Issue %s is now %s", output.ShortID(issue.ID), output.StatusColor(issue.Status))
			return nil
		},
	}
}

func (c *cli) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <issue-id>",
		Short: "Close an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			issue, err := c.board.Close(cmd.Context(), id)
			if err != nil {
				return err
			}
			c.ui.Success("Closed issue %s", output.ShortID(issue.ID))
			return nil
		},
	}
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <issue-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an issue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireAuth(cmd.Context()); err != nil {
				return err
			}
			id, err := c.resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				issue, _ := c.board.Find(id)
				answer, err := c.prompt.Line("Delete issue " + output.ShortID(id) + " \"" + issue.Title + "\"? [y/N]")
				if err != nil {
					return err
				}
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					c.ui.Info("Aborted")
					return nil
				}
			}

			if err := c.board.Delete(cmd.Context(), id); err != nil {
				return err
			}
			c.ui.Success("Deleted issue %s", output.ShortID(id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
