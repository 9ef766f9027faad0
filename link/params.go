package link

import (
	"fmt"
	"net/url"
	"strings"
)

// Params is a source of query parameters: Query, Pairs, RawQuery, Values or
// a Merge of those. A nil Params adds no query string.
type Params interface {
	encode() (string, error)
}

// Query is a plain key/value mapping. Keys are encoded in sorted order.
type Query map[string]string

// Pairs is an ordered list of key/value pairs. Keys may repeat.
type Pairs [][2]string

// RawQuery is an already encoded query string ("a=1&b=2"). A full URL is
// accepted too, in which case only its query part is used; this matches the
// search URLs the Bugzilla web UI produces.
type RawQuery string

// Values wraps parsed query parameters.
type Values url.Values

func (q Query) encode() (string, error) {
	v := make(url.Values, len(q))
	for k, val := range q {
		v.Set(k, val)
	}
	return v.Encode(), nil
}

func (p Pairs) encode() (string, error) {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, url.QueryEscape(kv[0])+"="+url.QueryEscape(kv[1]))
	}
	return strings.Join(parts, "&"), nil
}

func (r RawQuery) encode() (string, error) {
	s := strings.TrimSpace(string(r))
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("parse search url: %w", err)
		}
		s = u.RawQuery
	}
	s = strings.TrimPrefix(s, "?")
	if _, err := url.ParseQuery(s); err != nil {
		return "", fmt.Errorf("parse query string: %w", err)
	}
	return s, nil
}

func (v Values) encode() (string, error) { return url.Values(v).Encode(), nil }

type merged []Params

// Merge concatenates several parameter sources in order. Nil entries are
// skipped.
func Merge(params ...Params) Params { return merged(params) }

func (m merged) encode() (string, error) {
	parts := make([]string, 0, len(m))
	for _, p := range m {
		if p == nil {
			continue
		}
		s, err := p.encode()
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "&"), nil
}

func encodeParams(p Params) (string, error) {
	if p == nil {
		return "", nil
	}
	return p.encode()
}
