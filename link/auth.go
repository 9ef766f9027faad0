package link

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/reoring/gobugzilla/schema"
)

// Credential headers.
const (
	HeaderAPIKey = "X-BUGZILLA-API-KEY"
	HeaderToken  = "X-BUGZILLA-TOKEN"
)

// Auth is a credential strategy. The set is closed: use Anonymous, APIKey or
// Password.
type Auth interface {
	// Kind names the strategy for logs.
	Kind() string
	authorize(ctx context.Context, l *Link, h http.Header) error
}

// Anonymous sends requests without credentials.
func Anonymous() Auth { return anonymous{} }

// APIKey sends key with every request.
func APIKey(key string) Auth { return apiKey{key: key} }

// Password logs in with login and password on the first authenticated
// request and sends the resulting session token from then on. restrictLogin
// asks the server to bind the token to the client IP.
func Password(login, password string, restrictLogin bool) Auth {
	return credentials{login: login, password: password, restrict: restrictLogin}
}

type anonymous struct{}

func (anonymous) Kind() string { return "anonymous" }

func (anonymous) authorize(context.Context, *Link, http.Header) error { return nil }

type apiKey struct{ key string }

func (apiKey) Kind() string { return "api_key" }

func (a apiKey) authorize(_ context.Context, _ *Link, h http.Header) error {
	h.Set(HeaderAPIKey, a.key)
	return nil
}

type credentials struct {
	login    string
	password string
	restrict bool
}

func (credentials) Kind() string { return "password" }

func (c credentials) authorize(ctx context.Context, l *Link, h http.Header) error {
	tok, err := l.session.token(ctx, func(ctx context.Context) (string, error) {
		return l.login(ctx, c)
	})
	if err != nil {
		return err
	}
	h.Set(HeaderToken, tok)
	return nil
}

var errEmptyToken = errors.New("login returned an empty token")

type loginResult struct {
	ID    int
	Token string
}

var loginSchema = schema.ObjectOf[loginResult](
	schema.Bind("id", schema.Int(), func(r *loginResult, v int) { r.ID = v }),
	schema.Bind("token", schema.String(), func(r *loginResult, v string) { r.Token = v }),
)

func (l *Link) login(ctx context.Context, c credentials) (string, error) {
	var res loginResult
	err := l.roundTrip(ctx, call{
		method: http.MethodGet,
		path:   "login",
		params: Pairs{
			{"login", c.login},
			{"password", c.password},
			{"restrict_login", strconv.FormatBool(c.restrict)},
		},
	}, func(raw any) (err error) {
		if res, err = loginSchema.Decode(raw); err != nil {
			return err
		}
		if res.Token == "" {
			return errEmptyToken
		}
		return nil
	})
	l.metrics.Login(err == nil)
	if err != nil {
		l.log.Warn().Err(err).Str("login", c.login).Msg("bugzilla login failed")
		return "", err
	}
	l.log.Info().Str("login", c.login).Int("user_id", res.ID).Msg("bugzilla login succeeded")
	return res.Token, nil
}

// session caches the token of one Link. Concurrent first callers share a
// single login; a failed login is not cached.
type session struct {
	mu    sync.Mutex
	tok   string
	group singleflight.Group
}

func (s *session) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, s.tok != ""
}

func (s *session) token(ctx context.Context, login func(context.Context) (string, error)) (string, error) {
	if tok, ok := s.cached(); ok {
		return tok, nil
	}
	ch := s.group.DoChan("login", func() (any, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		// the login serves every waiter, not only this caller
		tok, err := login(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.tok = tok
		s.mu.Unlock()
		return tok, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
