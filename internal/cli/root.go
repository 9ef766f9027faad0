// Package cli implements the bugzilla command line tool.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	bugzilla "github.com/reoring/gobugzilla"
	"github.com/reoring/gobugzilla/i18n"
	"github.com/reoring/gobugzilla/internal/config"
	"github.com/reoring/gobugzilla/internal/metrics"
	"github.com/reoring/gobugzilla/link"
)

// Version is set at build time.
var Version = "dev"

// app is the state shared by every command once configuration is loaded.
type app struct {
	cfgFile string

	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	client   *bugzilla.Client
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "bugzilla",
		Short: "Query and edit bugs on a Bugzilla server",
		Long: `bugzilla talks to the REST API of a Bugzilla installation.

Settings are read from flags, BUGZILLA_* environment variables and a yaml
config file (./bugzilla.yaml or $XDG_CONFIG_HOME/bugzilla/config.yaml).`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsServer(cmd) {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.String("instance", "", "Bugzilla base URL")
	pf.String("api-key", "", "API key")
	pf.String("login", "", "login for password authentication")
	pf.String("password", "", "password (prompted when --login is set without it)")
	pf.Bool("restrict-login", false, "restrict the session token to this IP address")
	pf.Duration("timeout", 0, "HTTP timeout")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.StringP("output", "o", "", "output format (table|json|yaml)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("lang", "", "language of decode error messages (en|ja)")

	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputTable, config.OutputJSON, config.OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(
		newVersionCommand(),
		newServerVersionCommand(a),
		newWhoamiCommand(a),
		newBugCommand(a),
		newCommentCommand(a),
		newAttachmentCommand(a),
	)
	return cmd
}

func needsServer(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", "__complete":
		return false
	}
	return cmd.Runnable()
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.NeedsPassword() {
		pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password for "+cfg.Login+": ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cfg.Password = pw
	}
	a.cfg = cfg
	i18n.SetLanguage(cfg.Lang)

	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: true}).
		Level(cfg.Level()).
		With().Timestamp().Logger()
	a.registry = prometheus.NewRegistry()

	a.client, err = bugzilla.New(cfg.Instance, cfg.Auth(),
		link.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		link.WithLogger(a.log),
		link.WithMetrics(metrics.NewWithRegistry(a.registry)),
		link.WithUserAgent("bugzilla-cli/"+Version),
	)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		a.log.Debug().Str("file", cfg.File).Msg("config loaded")
	}
	return nil
}

func (a *app) finish() error {
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// readPassword reads without echo from a terminal and falls back to one line
// of input otherwise.
func readPassword(in io.Reader, prompt io.Writer, msg string) (string, error) {
	_, _ = fmt.Fprint(prompt, msg)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return 0
}

// Exit codes.
const (
	ExitFailure  = 1
	ExitAuth     = 3
	ExitNotFound = 4
)

func exitCode(err error) int {
	var lerr *link.Error
	switch {
	case errors.Is(err, bugzilla.ErrNotFound):
		return ExitNotFound
	case errors.As(err, &lerr) && (lerr.Status == http.StatusUnauthorized || lerr.Code == 410 || lerr.Code == 300 || lerr.Code == 306):
		return ExitAuth
	case errors.As(err, &lerr) && lerr.Status == http.StatusNotFound:
		return ExitNotFound
	}
	return ExitFailure
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bugzilla %s\n", Version)
		},
	}
}

func newServerVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "server-version",
		Short: "Show the Bugzilla server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.client.Version(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]string{"version": v}, func(t *tableOut) {
				t.header("Version")
				t.row(v)
			})
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.client.Whoami(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, u, func(t *tableOut) {
				t.header("ID", "Login", "Name")
				t.row(u.ID, u.Name, u.RealName)
			})
		},
	}
}
