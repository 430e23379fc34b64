// Package tokenstore keeps the portal session: the bearer token and the cached
// user profile, both persisted in a storage.Store.
//
// When the cached profile is missing, the token's claims (sub, username, role)
// serve as a fallback identity. Claims are decoded without verifying the
// signature; the backend verifies on every request.
package tokenstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"abjad/internal/storage"
	logx "abjad/pkg/logx"
)

// Storage keys, shared with the web portal so a migrated profile keeps its session.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

const defaultLoginPath = "/login"

// ErrNotAuthenticated is returned by RequireAuth after redirecting to login.
var ErrNotAuthenticated = errors.New("not authenticated")

// User is the cached profile returned by GET /api/auth/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"is_active,omitempty"`
}

// Navigator moves the client to another location (the login page).
type Navigator interface {
	Navigate(path string)
}

// ProfileFetcher loads the full profile from the backend.
type ProfileFetcher interface {
	Me(ctx context.Context) (User, error)
}

// Store is safe for concurrent use.
type Store struct {
	kv        storage.Store
	nav       Navigator
	loginPath string
	log       logx.Logger

	// Storage reads are cheap but the token is read on every poll tick.
	mu     sync.RWMutex
	token  string
	loaded bool

	backfilling atomic.Bool
}

type Option func(*Store)

func WithNavigator(nav Navigator) Option { return func(s *Store) { s.nav = nav } }

func WithLoginPath(p string) Option {
	return func(s *Store) {
		if p = strings.TrimSpace(p); p != "" {
			s.loginPath = p
		}
	}
}

func WithLogger(log logx.Logger) Option { return func(s *Store) { s.log = log } }

func New(kv storage.Store, opts ...Option) *Store {
	s := &Store{kv: kv, loginPath: defaultLoginPath, log: logx.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Token returns the stored bearer token, or "" when absent.
func (s *Store) Token() string {
	s.mu.RLock()
	if s.loaded {
		t := s.token
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		s.log.Warn("token read failed", logx.Err(err))
		return ""
	}
	s.mu.Lock()
	s.token, s.loaded = v, true
	s.mu.Unlock()
	return v
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token, s.loaded = token, true
	s.mu.Unlock()
	return nil
}

// Clear removes both the token and the cached profile.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token, s.loaded = "", true
	s.mu.Unlock()
	err1 := s.kv.Delete(ctx, KeyToken)
	err2 := s.kv.Delete(ctx, KeyUser)
	return errors.Join(err1, err2)
}

// User returns the cached profile; ok is false when absent or unparsable.
func (s *Store) User(ctx context.Context) (User, bool) {
	raw, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil || !ok || strings.TrimSpace(raw) == "" || raw == "null" {
		return User{}, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, false
	}
	return u, true
}

func (s *Store) SetUser(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyUser, string(b))
}

// UserFromToken decodes identity claims from the stored token.
func (s *Store) UserFromToken() (User, bool) {
	return DecodeClaims(s.Token())
}

// DecodeClaims best-effort decodes {sub, username, role} from a JWT payload.
// Only the second segment is read: the header and signature may be anything,
// and both base64 alphabets are accepted with or without padding.
// Any failure yields ok=false, never an error.
func DecodeClaims(token string) (User, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return User{}, false
	}
	payload := strings.TrimRight(parts[1], "=")
	payload = strings.NewReplacer("+", "-", "/", "_").Replace(payload)
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return User{}, false
	}
	var claims jwt.MapClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims == nil {
		return User{}, false
	}
	u := User{
		ID:       claimInt(claims["sub"]),
		Username: claimString(claims["username"]),
		Role:     claimString(claims["role"]),
	}
	return u, true
}

func claimString(v any) string {
	s, _ := v.(string)
	return s
}

func claimInt(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case json.Number:
		n, _ := x.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n
	default:
		return 0
	}
}

// RequireAuth resolves the current identity for a page:
//   - no token: redirect to login
//   - cached profile: return it
//   - readable token claims: return them and refresh the cached profile in the background
//   - unreadable token: clear the session and redirect to login
func (s *Store) RequireAuth(ctx context.Context, fetcher ProfileFetcher) (User, error) {
	if s.Token() == "" {
		s.redirect()
		return User{}, ErrNotAuthenticated
	}
	if u, ok := s.User(ctx); ok {
		return u, nil
	}
	if u, ok := s.UserFromToken(); ok {
		if fetcher != nil && s.backfilling.CompareAndSwap(false, true) {
			go s.backfill(fetcher)
		}
		return u, nil
	}
	_ = s.Clear(ctx)
	s.redirect()
	return User{}, ErrNotAuthenticated
}

// backfill runs at most once at a time.
func (s *Store) backfill(fetcher ProfileFetcher) {
	defer s.backfilling.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	u, err := fetcher.Me(ctx)
	if err != nil {
		s.log.Debug("profile backfill failed", logx.Err(err))
		return
	}
	if err := s.SetUser(ctx, u); err != nil {
		s.log.Warn("profile backfill store failed", logx.Err(err))
	}
}

// Logout clears the session and navigates to the login page.
func (s *Store) Logout(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		s.log.Warn("session clear failed", logx.Err(err))
	}
	s.redirect()
}

// ExpireSession is the uniform unauthorized policy: clear and go to login.
func (s *Store) ExpireSession(ctx context.Context) {
	s.Logout(ctx)
}

func (s *Store) redirect() {
	if s.nav != nil {
		s.nav.Navigate(s.loginPath)
	}
}
