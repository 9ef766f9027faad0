package link

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://bz.example.org/rest/version", "https://bz.example.org/rest/version"},
		{"https://bz.example.org/rest/bug?id=1&id=2", "https://bz.example.org/rest/bug?id=1&id=2"},
		{"https://bz.example.org/rest/login?login=u&password=p&restrict_login=false", "https://bz.example.org/rest/login?login=u&password=xxxxx&restrict_login=false"},
		{"https://bz.example.org/rest/bug?Bugzilla_api_key=k", "https://bz.example.org/rest/bug?Bugzilla_api_key=xxxxx"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, redact(u))
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &Error{Method: "GET", URL: "https://bz.example.org/rest/version", Message: cause.Error(), Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bugzilla: GET https://bz.example.org/rest/version: connection refused", err.Error())
}

func TestSessionCachesOnlySuccess(t *testing.T) {
	var s session
	calls := 0
	fail := errors.New("bad credentials")
	login := func(ok bool) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			calls++
			if !ok {
				return "", fail
			}
			return "tok", nil
		}
	}

	_, err := s.token(t.Context(), login(false))
	require.ErrorIs(t, err, fail)
	tok, err := s.token(t.Context(), login(true))
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	tok, err = s.token(t.Context(), login(false))
	require.NoError(t, err, "a cached token must be reused without logging in")
	assert.Equal(t, "tok", tok)
	assert.Equal(t, 2, calls)
}
