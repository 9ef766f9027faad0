package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reoring/gobugzilla/internal/config"
	"github.com/reoring/gobugzilla/internal/wire"
)

// tableOut collects the rows of a go-pretty table.
type tableOut struct {
	w table.Writer
}

func newTable(out io.Writer) *tableOut {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return &tableOut{w: t}
}

func (t *tableOut) header(cols ...any) { t.w.AppendHeader(table.Row(cols)) }

func (t *tableOut) row(cells ...any) { t.w.AppendRow(table.Row(cells)) }

func (t *tableOut) separator() { t.w.AppendSeparator() }

// render writes v in the configured output format. Table output is built by
// fill.
func (a *app) render(cmd *cobra.Command, v any, fill func(*tableOut)) error {
	out := cmd.OutOrStdout()
	switch a.cfg.Output {
	case config.OutputJSON:
		b, err := wire.MarshalIndent(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", b)
		return err
	case config.OutputYAML:
		return writeYAML(out, v)
	default:
		t := newTable(out)
		fill(t)
		if t.w.Length() == 0 {
			_, err := fmt.Fprintln(out, "(no results)")
			return err
		}
		t.w.Render()
		return nil
	}
}

// writeYAML goes through JSON so the yaml keys match the wire field names.
func writeYAML(out io.Writer, v any) error {
	b, err := wire.Marshal(v)
	if err != nil {
		return err
	}
	var tree any
	if err := wire.Unmarshal(b, &tree); err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
