package link

import (
	"fmt"
	"net/url"
)

// Error is returned for every failed request: transport failures, non-2xx
// statuses, errors reported by the API and responses that do not decode.
// Login failures of the password strategy are reported the same way.
type Error struct {
	Method string
	// URL is the request URL with credentials redacted.
	URL string
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Code is the Bugzilla error code when the API reported one.
	Code    int
	Message string
	// Err is the underlying cause, if any. Decode failures carry schema.Issues.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bugzilla: %s %s: %s", e.Method, e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// redactedParams lists query parameters never written to errors or logs.
var redactedParams = []string{"password", "Bugzilla_password", "Bugzilla_api_key", "api_key", "token"}

func redact(u *url.URL) string {
	if u.RawQuery == "" {
		return u.String()
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		cp := *u
		cp.RawQuery = "REDACTED"
		return cp.String()
	}
	changed := false
	for _, k := range redactedParams {
		if _, ok := q[k]; ok {
			q.Set(k, "xxxxx")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}
