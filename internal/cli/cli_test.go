package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gobugzilla/i18n"
	"github.com/reoring/gobugzilla/internal/fakezilla"
	"github.com/reoring/gobugzilla/internal/wire"
)

type harness struct {
	t   *testing.T
	fz  *fakezilla.Server
	url string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	fz := fakezilla.New()
	srv := httptest.NewServer(fz)
	t.Cleanup(srv.Close)
	return &harness{t: t, fz: fz, url: srv.URL}
}

// run executes the CLI with an API key against the fake server.
func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	return h.runRaw(stdin, append([]string{"--instance", h.url, "--api-key", fakezilla.Admin.APIKey}, args...)...)
}

func (h *harness) runRaw(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run("", args...)
	require.NoError(h.t, err, errOut)
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"version"}, {"server-version"}, {"whoami"},
		{"bug", "get"}, {"bug", "search"}, {"bug", "history"}, {"bug", "create"}, {"bug", "update"}, {"bug", "show"},
		{"comment", "list"}, {"comment", "get"}, {"comment", "add"},
		{"attachment", "list"}, {"attachment", "get"}, {"attachment", "add"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	out := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
}

func TestVersionNeedsNoServer(t *testing.T) {
	h := newHarness(t)
	out, _, err := h.runRaw("", "version")
	require.NoError(t, err)
	assert.Equal(t, "bugzilla dev\n", out)
}

func TestMissingInstance(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.runRaw("", "whoami")
	assert.ErrorContains(t, err, "instance is required")
}

func TestWhoamiFormats(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("whoami")
	assert.Contains(t, out, fakezilla.Admin.Login)

	out = h.mustRun("whoami", "-o", "json")
	v, err := wire.DecodeBytes([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, fakezilla.Admin.Login, v.(map[string]any)["name"])

	out = h.mustRun("whoami", "-o", "yaml")
	assert.Contains(t, out, "name: "+fakezilla.Admin.Login)
	assert.Contains(t, out, "id: 1")

	out = h.mustRun("server-version")
	assert.Contains(t, out, "5.0.4")
}

func TestBugWorkflow(t *testing.T) {
	h := newHarness(t)

	h.mustRun("bug", "create", "--product", "TestProduct", "--component", "TestComponent",
		"--summary", "Crash on start", "--description", "steps to reproduce", "--severity", "major")

	out := h.mustRun("bug", "get", "1", "-o", "json")
	v, err := wire.DecodeBytes([]byte(out))
	require.NoError(t, err)
	bugs := v.([]any)
	require.Len(t, bugs, 1)
	assert.Equal(t, "Crash on start", bugs[0].(map[string]any)["summary"])

	out = h.mustRun("bug", "get", "1", "--include", "id,status", "-o", "json")
	v, err = wire.DecodeBytes([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "", v.([]any)[0].(map[string]any)["summary"], "unprojected fields stay empty")

	out = h.mustRun("bug", "search", "crash")
	assert.Contains(t, out, "Crash on start")
	out = h.mustRun("bug", "search", "--param", "product=Nope")
	assert.Contains(t, out, "(no results)")

	out = h.mustRun("bug", "update", "1", "--status", "RESOLVED", "--resolution", "FIXED", "--comment", "fixed in trunk")
	assert.Contains(t, out, "RESOLVED")
	assert.Contains(t, out, "CONFIRMED")

	out = h.mustRun("bug", "history", "1")
	assert.Contains(t, out, "resolution")
	assert.Contains(t, out, "FIXED")

	out = h.mustRun("bug", "show", "1")
	assert.Contains(t, out, "BUG 1")
	assert.Contains(t, out, "RESOLVED FIXED")
	assert.Contains(t, out, "steps to reproduce")
	assert.Contains(t, out, "fixed in trunk")
}

func TestCreateRequiresFlags(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run("", "bug", "create", "--product", "P")
	assert.ErrorContains(t, err, "required flag")
}

func TestComments(t *testing.T) {
	h := newHarness(t)
	h.mustRun("bug", "create", "--product", "P", "--component", "C", "--summary", "S", "--description", "desc")

	_, errOut, err := h.run("from stdin\n", "comment", "add", "1", "-")
	require.NoError(t, err, errOut)

	out := h.mustRun("comment", "list", "1")
	assert.Contains(t, out, "desc")
	assert.Contains(t, out, "from stdin")

	out = h.mustRun("comment", "get", "2", "-o", "json")
	v, err := wire.DecodeBytes([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", v.(map[string]any)["text"])
}

func TestAttachments(t *testing.T) {
	h := newHarness(t)
	h.mustRun("bug", "create", "--product", "P", "--component", "C", "--summary", "S")

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("attached content"), 0o600))
	out := h.mustRun("attachment", "add", "1", path, "--comment", "see file")
	assert.Contains(t, out, "1")

	out = h.mustRun("attachment", "list", "1")
	assert.Contains(t, out, "notes.txt")

	out = h.mustRun("attachment", "list", "1", "-o", "json")
	assert.NotContains(t, out, `"data"`)

	out = h.mustRun("attachment", "get", "1", "--save", "-")
	assert.Equal(t, "attached content", out)

	saved := filepath.Join(t.TempDir(), "copy.txt")
	h.mustRun("attachment", "get", "1", "--save", saved)
	b, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "attached content", string(b))
}

func TestPasswordPrompt(t *testing.T) {
	h := newHarness(t)
	out, errOut, err := h.runRaw(fakezilla.Admin.Password+"\n", "--instance", h.url, "--login", fakezilla.Admin.Login, "whoami")
	require.NoError(t, err, errOut)
	assert.Contains(t, errOut, "Password for "+fakezilla.Admin.Login)
	assert.Contains(t, out, fakezilla.Admin.Login)
	assert.Equal(t, 1, h.fz.Logins())
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "bugzilla.prom")
	h.mustRun("--metrics-file", path, "server-version")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "bugzilla_client_requests_total")
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile("bugzilla.yaml", []byte("instance: "+h.url+"\napi_key: "+fakezilla.Admin.APIKey+"\noutput: json\n"), 0o600))

	out, errOut, err := h.runRaw("", "whoami")
	require.NoError(t, err, errOut)
	assert.True(t, strings.HasPrefix(out, "{"), out)
}

func TestLangFlag(t *testing.T) {
	h := newHarness(t)
	t.Cleanup(func() { i18n.SetLanguage("en") })

	h.mustRun("--lang", "ja-JP", "server-version")
	assert.Contains(t, i18n.T("required", map[string]string{"field": "id"}), "レスポンス")
}

func TestExecuteExitCodes(t *testing.T) {
	h := newHarness(t)
	var out, errOut bytes.Buffer

	code := Execute(context.Background(), []string{"--instance", h.url, "bug", "get", "99"}, &out, &errOut)
	assert.Equal(t, ExitNotFound, code)
	assert.Contains(t, errOut.String(), "Bug #99 does not exist.")

	errOut.Reset()
	code = Execute(context.Background(), []string{"--instance", h.url, "--api-key", "wrong", "whoami"}, &out, &errOut)
	assert.Equal(t, ExitAuth, code)

	code = Execute(context.Background(), []string{"version"}, &out, &errOut)
	assert.Equal(t, 0, code)
}
