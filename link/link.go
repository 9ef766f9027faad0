// Package link performs authenticated calls against the Bugzilla REST API.
//
// A Link owns one credential strategy (see Auth) and the session state that
// strategy needs. Every call goes through the same pipeline: build the URL
// below <instance>/rest/, authorize, send, check the status, parse the JSON
// body, detect {"error": true, "message": ...} payloads and finally decode
// the payload with a schema.Decoder. Any failure along the way is an *Error.
package link

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reoring/gobugzilla/internal/metrics"
	"github.com/reoring/gobugzilla/internal/wire"
	"github.com/reoring/gobugzilla/schema"
)

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "gobugzilla"

// Recorder receives request and login observations. *metrics.Collector
// implements it.
type Recorder interface {
	RequestStarted(method, path string) func(outcome string)
	Login(ok bool)
}

// Link is safe for concurrent use.
type Link struct {
	base      *url.URL
	auth      Auth
	client    *http.Client
	log       zerolog.Logger
	metrics   Recorder
	userAgent string
	session   session
}

// Option configures a Link.
type Option func(*Link)

// WithHTTPClient sets the client used for every request. Timeouts belong on
// this client.
func WithHTTPClient(c *http.Client) Option { return func(l *Link) { l.client = c } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option { return func(l *Link) { l.log = log } }

// WithMetrics records request metrics into r.
func WithMetrics(r Recorder) Option { return func(l *Link) { l.metrics = r } }

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option { return func(l *Link) { l.userAgent = ua } }

// New creates a Link to the Bugzilla installation at instance, for example
// "https://bugzilla.mozilla.org".
func New(instance string, auth Auth, opts ...Option) (*Link, error) {
	u, err := url.Parse(instance)
	if err != nil {
		return nil, fmt.Errorf("parse instance url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("instance url %q must be an absolute http(s) url", instance)
	}
	if auth == nil {
		auth = Anonymous()
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery, u.Fragment = "", ""
	l := &Link{
		base:      u.ResolveReference(&url.URL{Path: "rest/"}),
		auth:      auth,
		client:    http.DefaultClient,
		log:       zerolog.Nop(),
		metrics:   (*metrics.Collector)(nil),
		userAgent: DefaultUserAgent,
	}
	for _, o := range opts {
		o(l)
	}
	if l.metrics == nil {
		l.metrics = (*metrics.Collector)(nil)
	}
	return l, nil
}

// Base returns the REST root, e.g. https://bugzilla.example.org/rest/.
func (l *Link) Base() string { return l.base.String() }

// Auth reports the strategy the Link was built with.
func (l *Link) Auth() Auth { return l.auth }

// Get issues a GET request for path and decodes the response with d.
func Get[T any](ctx context.Context, l *Link, path string, d schema.Decoder[T], params Params) (T, error) {
	return request(ctx, l, call{method: http.MethodGet, path: path, params: params, authorize: true}, d)
}

// Post sends body encoded as JSON and decodes the response with d.
func Post[T any](ctx context.Context, l *Link, path string, d schema.Decoder[T], body any, params Params) (T, error) {
	return request(ctx, l, call{method: http.MethodPost, path: path, body: body, params: params, authorize: true}, d)
}

// Put sends body encoded as JSON and decodes the response with d.
func Put[T any](ctx context.Context, l *Link, path string, d schema.Decoder[T], body any, params Params) (T, error) {
	return request(ctx, l, call{method: http.MethodPut, path: path, body: body, params: params, authorize: true}, d)
}

func request[T any](ctx context.Context, l *Link, c call, d schema.Decoder[T]) (T, error) {
	var out T
	err := l.roundTrip(ctx, c, func(raw any) (err error) {
		out, err = d.Decode(raw)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

type call struct {
	method    string
	path      string
	body      any
	params    Params
	authorize bool
}

func (l *Link) resolve(path string, params Params) (*url.URL, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := l.base.ResolveReference(rel)
	q, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	u.RawQuery = q
	return u, nil
}

// roundTrip runs the request pipeline and hands the parsed payload to decode.
func (l *Link) roundTrip(ctx context.Context, c call, decode func(raw any) error) error {
	u, err := l.resolve(c.path, c.params)
	if err != nil {
		return &Error{Method: c.method, URL: l.base.String() + c.path, Message: err.Error(), Err: err}
	}
	shown := redact(u)
	fail := func(status int, msg string, cause error) *Error {
		return &Error{Method: c.method, URL: shown, Status: status, Message: msg, Err: cause}
	}

	var body io.Reader
	if c.body != nil {
		b, err := wire.Marshal(c.body)
		if err != nil {
			return fail(0, err.Error(), err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, u.String(), body)
	if err != nil {
		return fail(0, err.Error(), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", l.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize {
		if err := l.auth.authorize(ctx, l, req.Header); err != nil {
			var lerr *Error
			if errors.As(err, &lerr) {
				return err
			}
			return fail(0, err.Error(), err)
		}
	}

	log := l.log.With().
		Str("req_id", uuid.NewString()).
		Str("method", c.method).
		Str("url", shown).
		Logger()
	finish := l.metrics.RequestStarted(c.method, c.path)
	start := time.Now()

	resp, err := l.client.Do(req)
	if err != nil {
		finish(metrics.OutcomeTransport)
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("bugzilla request failed")
		return fail(0, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, parseErr := wire.Decode(resp.Body)
	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("bugzilla request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		finish(metrics.OutcomeStatus)
		e := fail(resp.StatusCode, resp.Status, nil)
		if apiErr, ok := reportedError(raw); ok {
			e.Code = apiErr.Code
			e.Message = resp.Status + ": " + apiErr.Message
		}
		log.Warn().Int("status", resp.StatusCode).Str("error", e.Message).Msg("bugzilla request rejected")
		return e
	}
	if parseErr != nil {
		finish(metrics.OutcomeTransport)
		log.Warn().Err(parseErr).Msg("bugzilla response is not json")
		return fail(resp.StatusCode, parseErr.Error(), parseErr)
	}
	if apiErr, ok := reportedError(raw); ok {
		finish(metrics.OutcomeAPI)
		log.Warn().Int("code", apiErr.Code).Str("error", apiErr.Message).Msg("bugzilla reported an error")
		e := fail(resp.StatusCode, apiErr.Message, nil)
		e.Code = apiErr.Code
		return e
	}
	if err := decode(raw); err != nil {
		finish(metrics.OutcomeDecode)
		log.Warn().Err(err).Msg("bugzilla response did not decode")
		return fail(resp.StatusCode, err.Error(), err)
	}
	finish(metrics.OutcomeOK)
	return nil
}

type apiError struct {
	Message string
	Code    int
}

var apiErrorSchema = schema.ObjectOf[apiError](
	schema.Bind("message", schema.OptionalOr(schema.NullableOr(schema.String(), ""), ""), func(e *apiError, v string) { e.Message = v }),
	schema.Bind("code", schema.OptionalOr(schema.NullableOr(schema.Int(), 0), 0), func(e *apiError, v int) { e.Code = v }),
)

// reportedError detects the {"error": true, ...} payload.
func reportedError(raw any) (apiError, bool) {
	m, ok := raw.(map[string]any)
	if !ok || m["error"] != true {
		return apiError{}, false
	}
	e, err := apiErrorSchema.Decode(m)
	if err != nil {
		return apiError{Message: "unknown error"}, true
	}
	if e.Message == "" {
		e.Message = "unknown error"
	}
	return e, true
}
