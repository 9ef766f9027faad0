package fakezilla

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gobugzilla/internal/wire"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	fz := New(WithClock(func() time.Time { return epoch }))
	srv := httptest.NewServer(fz)
	t.Cleanup(srv.Close)
	return fz, srv
}

func do(t *testing.T, method, url string, body any, header http.Header) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := wire.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	v, err := wire.Decode(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, v.(map[string]any)
}

func apiKey() http.Header { return http.Header{"X-Bugzilla-Api-Key": {Admin.APIKey}} }

func createBug(t *testing.T, srv *httptest.Server, summary string) string {
	t.Helper()
	status, body := do(t, http.MethodPost, srv.URL+"/rest/bug", map[string]any{
		"product": "TestProduct", "component": "TestComponent", "summary": summary,
		"version": "unspecified", "description": "first", "severity": "normal",
	}, apiKey())
	require.Equal(t, http.StatusOK, status, body)
	return string(body["id"].(wire.Number))
}

func TestVersion(t *testing.T) {
	_, srv := newTestServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/rest/version", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "5.0.4", body["version"])
}

func TestAuthentication(t *testing.T) {
	fz, srv := newTestServer(t)

	status, body := do(t, http.MethodGet, srv.URL+"/rest/whoami", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, wire.Number("410"), body["code"])

	status, body = do(t, http.MethodGet, srv.URL+"/rest/whoami", nil, http.Header{"X-Bugzilla-Api-Key": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, wire.Number("306"), body["code"])

	status, body = do(t, http.MethodGet, srv.URL+"/rest/login?login=admin@nowhere.com&password=wrong", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, true, body["error"])

	status, body = do(t, http.MethodGet, srv.URL+"/rest/login?login=admin@nowhere.com&password=adminpass", nil, nil)
	require.Equal(t, http.StatusOK, status)
	tok := body["token"].(string)

	status, body = do(t, http.MethodGet, srv.URL+"/rest/whoami", nil, http.Header{"X-Bugzilla-Token": {tok}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Admin.Login, body["name"])
	assert.Equal(t, 2, fz.Logins())
}

func TestExtraUser(t *testing.T) {
	dev := User{ID: 2, Login: "dev@nowhere.com", RealName: "Dev", Password: "devpass"}
	srv := httptest.NewServer(New(WithUser(dev)))
	t.Cleanup(srv.Close)

	status, body := do(t, http.MethodGet, srv.URL+"/rest/login?login=dev@nowhere.com&password=devpass", nil, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, _ = do(t, http.MethodGet, srv.URL+"/rest/login?login=dev@nowhere.com&password=adminpass", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCredentials(t *testing.T) {
	c := hashCredentials(User{Password: "secret"})
	assert.True(t, c.password("secret"))
	assert.False(t, c.password("Secret"))
	assert.False(t, c.apiKey(""), "accounts without a key never match")
	assert.NotContains(t, string(c.passwordHash), "secret")
}

func TestUnknownResource(t *testing.T) {
	_, srv := newTestServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/rest/nothing", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, wire.Number("32614"), body["code"])
}

func TestSearchProjection(t *testing.T) {
	_, srv := newTestServer(t)
	id := createBug(t, srv, "Crash on start")
	createBug(t, srv, "Typo in docs")

	_, body := do(t, http.MethodGet, srv.URL+"/rest/bug?id="+id+"&include_fields=id,summary,status", nil, nil)
	bugs := body["bugs"].([]any)
	require.Len(t, bugs, 1)
	assert.Equal(t, map[string]any{"id": wire.Number(id), "summary": "Crash on start", "status": "CONFIRMED"}, bugs[0])

	_, body = do(t, http.MethodGet, srv.URL+"/rest/bug?quicksearch=typo&exclude_fields=cc_detail", nil, nil)
	bugs = body["bugs"].([]any)
	require.Len(t, bugs, 1)
	bug := bugs[0].(map[string]any)
	assert.Equal(t, "Typo in docs", bug["summary"])
	assert.NotContains(t, bug, "cc_detail")
	assert.Contains(t, bug, "creator_detail")

	status, body := do(t, http.MethodGet, srv.URL+"/rest/bug?id=99", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, wire.Number("101"), body["code"])
	assert.Equal(t, "Bug #99 does not exist.", body["message"])
}

func TestUpdateRecordsHistory(t *testing.T) {
	_, srv := newTestServer(t)
	id := createBug(t, srv, "Crash")

	status, body := do(t, http.MethodPut, srv.URL+"/rest/bug/"+id, map[string]any{
		"status":     "RESOLVED",
		"resolution": "FIXED",
		"blocks":     map[string]any{"add": []int{7, 3}},
	}, apiKey())
	require.Equal(t, http.StatusOK, status, body)
	changes := body["bugs"].([]any)[0].(map[string]any)["changes"].(map[string]any)
	assert.Equal(t, map[string]any{"added": "RESOLVED", "removed": "CONFIRMED"}, changes["status"])
	assert.Equal(t, map[string]any{"added": "7, 3", "removed": ""}, changes["blocks"])

	_, body = do(t, http.MethodGet, srv.URL+"/rest/bug/"+id+"/history", nil, nil)
	history := body["bugs"].([]any)[0].(map[string]any)["history"].([]any)
	require.Len(t, history, 1)
	entry := history[0].(map[string]any)
	assert.Equal(t, Admin.Login, entry["who"])
	assert.Len(t, entry["changes"], 3)

	_, body = do(t, http.MethodGet, srv.URL+"/rest/bug?id="+id+"&include_fields=is_open,blocks", nil, nil)
	bug := body["bugs"].([]any)[0].(map[string]any)
	assert.Equal(t, false, bug["is_open"])
	assert.Equal(t, []any{wire.Number("3"), wire.Number("7")}, bug["blocks"])
}

func TestCommentsAndAttachments(t *testing.T) {
	_, srv := newTestServer(t)
	id := createBug(t, srv, "Crash")

	status, body := do(t, http.MethodPost, srv.URL+"/rest/bug/"+id+"/comment", map[string]any{"comment": "more info"}, apiKey())
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, wire.Number("2"), body["id"])

	status, _ = do(t, http.MethodPost, srv.URL+"/rest/bug/"+id+"/comment", map[string]any{"comment": "  "}, apiKey())
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodPost, srv.URL+"/rest/bug/"+id+"/attachment", map[string]any{
		"data": []byte("hello"), "file_name": "a.txt", "summary": "greeting",
	}, apiKey())
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, []any{"1"}, body["ids"])

	_, body = do(t, http.MethodGet, srv.URL+"/rest/bug/"+id+"/comment", nil, nil)
	comments := body["bugs"].(map[string]any)[id].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].(map[string]any)["text"])
	assert.Equal(t, wire.Number("0"), comments[0].(map[string]any)["count"])
	assert.Equal(t, wire.Number("1"), comments[2].(map[string]any)["attachment_id"])

	_, body = do(t, http.MethodGet, srv.URL+"/rest/bug/attachment/1", nil, nil)
	a := body["attachments"].(map[string]any)["1"].(map[string]any)
	assert.Equal(t, "aGVsbG8=", a["data"])
	assert.Equal(t, "application/octet-stream", a["content_type"])
	assert.Equal(t, wire.Number("5"), a["size"])

	status, body = do(t, http.MethodPut, srv.URL+"/rest/bug/attachment/1", map[string]any{"is_obsolete": true}, apiKey())
	require.Equal(t, http.StatusOK, status, body)
	changes := body["attachments"].([]any)[0].(map[string]any)["changes"].(map[string]any)
	assert.Equal(t, map[string]any{"added": "1", "removed": "0"}, changes["is_obsolete"])
}

func TestCreateBugRequiresFields(t *testing.T) {
	_, srv := newTestServer(t)
	status, body := do(t, http.MethodPost, srv.URL+"/rest/bug", map[string]any{"product": "P"}, apiKey())
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "You must provide a value for component.", body["message"])
}

func TestRequestsAreRecorded(t *testing.T) {
	fz, srv := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/rest/version?x=1", nil, nil)
	reqs := fz.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/rest/version", reqs[0].Path)
	assert.Equal(t, "1", reqs[0].Query.Get("x"))
}
