// Package session holds the per-caller authentication state that the browser
// would otherwise keep in cookies. A Session travels in the request context;
// only the transport layer looks at the token, everything else asks LoggedIn.
package session

import (
	"context"
	"sync"
)

const (
	// TokenCookie is the http-only cookie the backend sets with the opaque session token.
	TokenCookie = "auth_token"
	// FlagCookie is the client readable mirror of session presence.
	FlagCookie = "is_logged_in"
)

type Session struct {
	mu          sync.Mutex
	token       string
	loggedIn    bool
	flagPresent bool

	tokenChanged bool
	flagChanged  bool
}

// New restores a session from whatever the caller presented. flagPresent
// reports that a flag cookie came in at all, whatever its value; loggedIn
// implies it. An empty token with loggedIn=true is legal: the flag is what
// gates status calls.
func New(token string, flagPresent, loggedIn bool) *Session {
	return &Session{token: token, flagPresent: flagPresent || loggedIn, loggedIn: loggedIn}
}

// Anonymous is a session with neither token nor flag.
func Anonymous() *Session {
	return &Session{}
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// ClearFlag drops the presence flag, e.g. after the backend answered 401.
func (s *Session) ClearFlag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn || s.flagPresent {
		s.flagChanged = true
	}
	s.loggedIn = false
	s.flagPresent = false
}

func (s *Session) MarkLoggedIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		s.flagChanged = true
	}
	s.loggedIn = true
}

// Token is for the transport adapter only.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken is for the transport adapter only. An empty token means the
// backend expired the session cookie.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		s.tokenChanged = true
	}
	s.token = token
}

// Changes describes what moved since the session was restored, so the
// caller can mirror it back onto its own cookie store.
type Changes struct {
	TokenChanged bool
	Token        string
	FlagChanged  bool
	LoggedIn     bool
}

func (s *Session) Changes() Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Changes{
		TokenChanged: s.tokenChanged,
		Token:        s.token,
		FlagChanged:  s.flagChanged,
		LoggedIn:     s.loggedIn,
	}
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
