package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	bugzilla "github.com/reoring/gobugzilla"
	"github.com/reoring/gobugzilla/link"
	"github.com/reoring/gobugzilla/query"
	"github.com/reoring/gobugzilla/schema"
)

func newBugCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bug",
		Short: "Search, show and edit bugs",
	}
	cmd.AddCommand(
		newBugGetCommand(a),
		newBugSearchCommand(a),
		newBugHistoryCommand(a),
		newBugCreateCommand(a),
		newBugUpdateCommand(a),
		newBugShowCommand(a),
	)
	return cmd
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid bug id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func bugTable(bugs []bugzilla.Bug) func(*tableOut) {
	return func(t *tableOut) {
		if len(bugs) == 0 {
			return
		}
		t.header("ID", "Status", "Resolution", "Product", "Component", "Assignee", "Summary")
		for _, b := range bugs {
			t.row(b.ID, b.Status, b.Resolution, b.Product, b.Component, b.AssignedTo, truncate(b.Summary, 60))
		}
	}
}

type projectionFlags struct {
	include []string
	exclude []string
}

func (p *projectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&p.include, "include", nil, "only fetch these fields")
	cmd.Flags().StringSliceVar(&p.exclude, "exclude", nil, "do not fetch these fields")
}

func (p *projectionFlags) run(cmd *cobra.Command, q *query.Filtered[bugzilla.Bug]) ([]bugzilla.Bug, error) {
	if len(p.include) > 0 {
		q.Include(p.include...)
	}
	if len(p.exclude) > 0 {
		q.Exclude(p.exclude...)
	}
	return q.Await(cmd.Context())
}

func newBugGetCommand(a *app) *cobra.Command {
	var proj projectionFlags
	cmd := &cobra.Command{
		Use:   "get ID...",
		Short: "Fetch bugs by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			bugs, err := proj.run(cmd, a.client.GetBugs(ids...))
			if err != nil {
				return err
			}
			return a.render(cmd, bugs, bugTable(bugs))
		},
	}
	proj.register(cmd)
	return cmd
}

func newBugSearchCommand(a *app) *cobra.Command {
	var (
		proj   projectionFlags
		params []string
		rawURL string
	)
	cmd := &cobra.Command{
		Use:   "search [QUICKSEARCH...]",
		Short: "Search bugs",
		Long: `Search bugs with a quicksearch string ("severity:major crash"), with
--param field=value pairs or with the URL of a buglist.cgi search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(params) == 0 && rawURL == "" {
				return fmt.Errorf("give a quicksearch string, --param or --url")
			}
			var pairs link.Pairs
			for _, p := range params {
				k, v, ok := strings.Cut(p, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid --param %q, want field=value", p)
				}
				pairs = append(pairs, [2]string{k, v})
			}
			if len(args) > 0 {
				pairs = append(pairs, [2]string{"quicksearch", strings.Join(args, " ")})
			}
			var q link.Params = pairs
			if rawURL != "" {
				q = link.Merge(link.RawQuery(rawURL), pairs)
			}
			bugs, err := proj.run(cmd, a.client.AdvancedSearch(q))
			if err != nil {
				return err
			}
			return a.render(cmd, bugs, bugTable(bugs))
		},
	}
	proj.register(cmd)
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "search parameter field=value (repeatable)")
	cmd.Flags().StringVar(&rawURL, "url", "", "buglist.cgi URL or query string")
	return cmd
}

func newBugHistoryCommand(a *app) *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show the change history of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid bug id %q", args[0])
			}
			var from time.Time
			if since != "" {
				if from, err = schema.Datetime().Decode(since); err != nil {
					return fmt.Errorf("--since: %w", err)
				}
			}
			history, err := a.client.BugHistory(cmd.Context(), id, from)
			if err != nil {
				return err
			}
			return a.render(cmd, history, func(t *tableOut) {
				if len(history) == 0 {
					return
				}
				t.header("When", "Who", "Field", "Removed", "Added")
				for _, h := range history {
					for _, c := range h.Changes {
						t.row(formatTime(h.When), h.Who, c.FieldName, c.Removed, c.Added)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only changes after this time (2006-01-02T15:04:05Z)")
	return cmd
}

func newBugCreateCommand(a *app) *cobra.Command {
	var req bugzilla.CreateBugRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "File a new bug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.client.CreateBug(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]int{"id": id}, func(t *tableOut) {
				t.header("ID")
				t.row(id)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Product, "product", "", "product (required)")
	f.StringVar(&req.Component, "component", "", "component (required)")
	f.StringVar(&req.Summary, "summary", "", "one line summary (required)")
	f.StringVar(&req.Version, "version", "unspecified", "product version")
	f.StringVar(&req.Description, "description", "", "initial comment")
	f.StringVar(&req.Severity, "severity", "", "severity")
	f.StringVar(&req.Priority, "priority", "", "priority")
	f.StringVar(&req.OpSys, "op-sys", "", "operating system")
	f.StringVar(&req.Platform, "platform", "", "hardware platform")
	f.StringVar(&req.AssignedTo, "assignee", "", "assignee login")
	f.StringSliceVar(&req.CC, "cc", nil, "logins to add to CC")
	f.StringSliceVar(&req.Keywords, "keyword", nil, "keywords")
	f.StringSliceVar(&req.Alias, "alias", nil, "aliases")
	for _, name := range []string{"product", "component", "summary"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newBugUpdateCommand(a *app) *cobra.Command {
	var (
		req                         bugzilla.UpdateBugRequest
		comment                     string
		private                     bool
		dupeOf                      int
		addBlocks, removeBlocks     []int
		addDepends, removeDepends   []int
		addKeywords, removeKeywords []string
	)
	cmd := &cobra.Command{
		Use:   "update ID|ALIAS",
		Short: "Change fields of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if comment != "" {
				req.Comment = &bugzilla.CommentBody{Comment: comment, IsPrivate: private}
			}
			if cmd.Flags().Changed("dupe-of") {
				req.DupeOf = &dupeOf
			}
			if len(addBlocks)+len(removeBlocks) > 0 {
				req.Blocks = &bugzilla.IDSetUpdate{Add: addBlocks, Remove: removeBlocks}
			}
			if len(addDepends)+len(removeDepends) > 0 {
				req.DependsOn = &bugzilla.IDSetUpdate{Add: addDepends, Remove: removeDepends}
			}
			if len(addKeywords)+len(removeKeywords) > 0 {
				req.Keywords = &bugzilla.StringSetUpdate{Add: addKeywords, Remove: removeKeywords}
			}
			updated, err := a.client.UpdateBug(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return a.render(cmd, updated, func(t *tableOut) {
				t.header("Bug", "Field", "Removed", "Added")
				for _, u := range updated {
					names := make([]string, 0, len(u.Changes))
					for name := range u.Changes {
						names = append(names, name)
					}
					sort.Strings(names)
					for _, name := range names {
						c := u.Changes[name]
						t.row(u.ID, name, c.Removed, c.Added)
					}
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Status, "status", "", "new status")
	f.StringVar(&req.Resolution, "resolution", "", "new resolution")
	f.StringVar(&req.AssignedTo, "assignee", "", "new assignee login")
	f.StringVar(&req.Summary, "summary", "", "new summary")
	f.StringVar(&req.Priority, "priority", "", "new priority")
	f.StringVar(&req.Severity, "severity", "", "new severity")
	f.StringVar(&req.Whiteboard, "whiteboard", "", "new status whiteboard")
	f.StringVar(&comment, "comment", "", "comment to add with the change")
	f.BoolVar(&private, "private", false, "make the comment private")
	f.IntVar(&dupeOf, "dupe-of", 0, "mark as duplicate of this bug")
	f.IntSliceVar(&addBlocks, "add-blocks", nil, "bugs this bug blocks")
	f.IntSliceVar(&removeBlocks, "remove-blocks", nil, "bugs this bug no longer blocks")
	f.IntSliceVar(&addDepends, "add-depends", nil, "bugs this bug depends on")
	f.IntSliceVar(&removeDepends, "remove-depends", nil, "bugs this bug no longer depends on")
	f.StringSliceVar(&addKeywords, "add-keyword", nil, "keywords to add")
	f.StringSliceVar(&removeKeywords, "remove-keyword", nil, "keywords to remove")
	return cmd
}

type bugDetail struct {
	Bug      bugzilla.Bug       `json:"bug"`
	Comments []bugzilla.Comment `json:"comments"`
}

func newBugShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a bug with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid bug id %q", args[0])
			}
			var (
				bugs   []bugzilla.Bug
				detail bugDetail
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				bugs, err = a.client.GetBugs(id).Await(ctx)
				return err
			})
			g.Go(func() (err error) {
				detail.Comments, err = a.client.GetBugComments(ctx, id)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			if len(bugs) == 0 {
				return fmt.Errorf("bug %d: %w", id, bugzilla.ErrNotFound)
			}
			detail.Bug = bugs[0]

			return a.render(cmd, detail, func(t *tableOut) {
				b := detail.Bug
				t.header(fmt.Sprintf("Bug %d", b.ID), "")
				t.row("Summary", b.Summary)
				t.row("Status", strings.TrimSpace(b.Status+" "+b.Resolution))
				t.row("Product", b.Product+" / "+b.Component)
				t.row("Assignee", b.AssignedTo)
				t.row("Reporter", b.Creator)
				t.row("Created", formatTime(b.CreationTime))
				t.row("Changed", formatTime(b.LastChangeTime))
				if len(b.Keywords) > 0 {
					t.row("Keywords", strings.Join(b.Keywords, ", "))
				}
				if len(b.DependsOn) > 0 {
					t.row("Depends on", joinInts(b.DependsOn))
				}
				if len(b.Blocks) > 0 {
					t.row("Blocks", joinInts(b.Blocks))
				}
				for _, c := range detail.Comments {
					t.separator()
					t.row(fmt.Sprintf("#%d %s", c.Count, c.Creator), c.Text)
				}
			})
		},
	}
}
