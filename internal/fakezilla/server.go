// Package fakezilla is an in-memory Bugzilla REST server for tests. It
// implements the subset of the API the client uses, including API key and
// password authentication, field projection and the error payloads of a real
// installation.
package fakezilla

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/reoring/gobugzilla/internal/wire"
)

// Default account seeded into every server.
var Admin = User{
	ID:       1,
	Login:    "admin@nowhere.com",
	RealName: "Insecure User",
	Password: "adminpass",
	APIKey:   "admin-api-key",
}

// Request is one request the server received.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
}

// Server holds the fake installation state. It is safe for concurrent use.
type Server struct {
	version string
	now     func() time.Time
	router  chi.Router

	mu          sync.Mutex
	users       []User
	secrets     map[int]credentials
	tokens      map[string]User
	bugs        map[int]*bugRecord
	comments    map[int]*commentRecord
	attachments map[int]*attachmentRecord
	nextBug     int
	nextComment int
	nextAttach  int
	logins      int
	requests    []Request
}

// Option configures a Server.
type Option func(*Server)

// WithUser adds another account.
func WithUser(u User) Option { return func(s *Server) { s.users = append(s.users, u) } }

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithVersion sets the version reported by GET version.
func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// New creates an empty installation with the Admin account.
func New(opts ...Option) *Server {
	s := &Server{
		version:     "5.0.4",
		now:         func() time.Time { return time.Now().UTC() },
		users:       []User{Admin},
		tokens:      map[string]User{},
		bugs:        map[int]*bugRecord{},
		comments:    map[int]*commentRecord{},
		attachments: map[int]*attachmentRecord{},
		nextBug:     1,
		nextComment: 1,
		nextAttach:  1,
	}
	for _, o := range opts {
		o(s)
	}
	s.secrets = make(map[int]credentials, len(s.users))
	for _, u := range s.users {
		s.secrets[u.ID] = hashCredentials(u)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route("/rest", func(r chi.Router) {
		r.Get("/version", s.getVersion)
		r.Get("/login", s.login)
		r.Get("/whoami", s.authed(s.whoami))

		r.Get("/bug", s.searchBugs)
		r.Post("/bug", s.authed(s.createBug))
		r.Put("/bug/{id}", s.authed(s.updateBug))
		r.Get("/bug/{id}/history", s.bugHistory)

		r.Get("/bug/comment/{id}", s.getComment)
		r.Get("/bug/{id}/comment", s.bugComments)
		r.Post("/bug/{id}/comment", s.authed(s.createComment))

		r.Get("/bug/attachment/{id}", s.getAttachment)
		r.Put("/bug/attachment/{id}", s.authed(s.updateAttachment))
		r.Get("/bug/{id}/attachment", s.bugAttachments)
		r.Post("/bug/{id}/attachment", s.authed(s.createAttachment))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, 32614, fmt.Sprintf("A REST API resource was not found for '%s %s'.", r.Method, r.URL.Path))
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Logins reports how many successful and failed login calls were made.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// caller resolves the credentials of r. ok is false when credentials were
// sent but are not valid.
func (s *Server) caller(r *http.Request) (u User, authenticated, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key := r.Header.Get("X-BUGZILLA-API-KEY"); key != "" {
		for _, u := range s.users {
			if s.secrets[u.ID].apiKey(key) {
				return u, true, true
			}
		}
		return User{}, false, false
	}
	if tok := r.Header.Get("X-BUGZILLA-TOKEN"); tok != "" {
		u, found := s.tokens[tok]
		return u, found, found
	}
	return User{}, false, true
}

// credentials are the bcrypt hashes of an account's secrets. An empty hash
// never matches.
type credentials struct {
	passwordHash []byte
	apiKeyHash   []byte
}

func hashCredentials(u User) credentials {
	return credentials{passwordHash: hashSecret(u.Password), apiKeyHash: hashSecret(u.APIKey)}
}

func hashSecret(secret string) []byte {
	if secret == "" {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("fakezilla: hash secret: %v", err))
	}
	return h
}

func (c credentials) password(p string) bool {
	return c.passwordHash != nil && bcrypt.CompareHashAndPassword(c.passwordHash, []byte(p)) == nil
}

func (c credentials) apiKey(k string) bool {
	return c.apiKeyHash != nil && bcrypt.CompareHashAndPassword(c.apiKeyHash, []byte(k)) == nil
}

type authedHandler func(w http.ResponseWriter, r *http.Request, u User)

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, authenticated, ok := s.caller(r)
		if !ok {
			writeError(w, http.StatusBadRequest, 306, "The API key or token you specified is invalid.")
			return
		}
		if !authenticated {
			writeError(w, http.StatusUnauthorized, 410, "You must log in before using this part of Bugzilla.")
			return
		}
		h(w, r, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := wire.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":         true,
		"code":          code,
		"message":       msg,
		"documentation": "https://bugzilla.readthedocs.org/en/5.0/api/",
	})
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"version": s.version})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	for _, u := range s.users {
		if u.Login == q.Get("login") && s.secrets[u.ID].password(q.Get("password")) {
			tok := fmt.Sprintf("%d-%d", u.ID, len(s.tokens)+1)
			s.tokens[tok] = u
			writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "token": tok})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, 300, "The username or password you entered is not valid.")
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request, u User) {
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "name": u.Login, "real_name": u.RealName, "login": u.Login})
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func decodeBody(r *http.Request, v any) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return wire.Unmarshal(b, v)
}
