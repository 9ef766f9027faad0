package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	bugzilla "github.com/reoring/gobugzilla"
)

func newCommentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Read and add bug comments",
	}
	cmd.AddCommand(newCommentListCommand(a), newCommentGetCommand(a), newCommentAddCommand(a))
	return cmd
}

func commentTable(comments []bugzilla.Comment) func(*tableOut) {
	return func(t *tableOut) {
		if len(comments) == 0 {
			return
		}
		t.header("ID", "#", "Author", "Time", "Text")
		for _, c := range comments {
			t.row(c.ID, c.Count, c.Creator, formatTime(c.CreationTime), truncate(c.Text, 60))
		}
	}
}

func atoiArg(what, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newCommentListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list BUG",
		Short: "List the comments of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bug, err := atoiArg("bug", args[0])
			if err != nil {
				return err
			}
			comments, err := a.client.GetBugComments(cmd.Context(), bug)
			if err != nil {
				return err
			}
			return a.render(cmd, comments, commentTable(comments))
		},
	}
}

func newCommentGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := atoiArg("comment", args[0])
			if err != nil {
				return err
			}
			c, err := a.client.GetComment(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.render(cmd, c, func(t *tableOut) {
				t.header(fmt.Sprintf("Comment %d", c.ID), "")
				t.row("Bug", fmt.Sprintf("%d #%d", c.BugID, c.Count))
				t.row("Author", c.Creator)
				t.row("Time", formatTime(c.CreationTime))
				t.row("Text", c.Text)
			})
		},
	}
}

func newCommentAddCommand(a *app) *cobra.Command {
	var opts bugzilla.CommentOptions
	cmd := &cobra.Command{
		Use:   "add BUG TEXT|-",
		Short: "Add a comment to a bug",
		Long:  "Add a comment to a bug. A TEXT of - reads the comment from standard input.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bug, err := atoiArg("bug", args[0])
			if err != nil {
				return err
			}
			text := args[1]
			if text == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read comment: %w", err)
				}
				text = strings.TrimRight(string(b), "\n")
			}
			id, err := a.client.CreateComment(cmd.Context(), bug, text, opts)
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]int{"id": id}, func(t *tableOut) {
				t.header("ID")
				t.row(id)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.IsPrivate, "private", false, "make the comment private")
	cmd.Flags().Float64Var(&opts.WorkTime, "work-time", 0, "hours worked")
	return cmd
}
