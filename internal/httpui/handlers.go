package httpui

import (
	"context"
	"encoding/json"
	"net/http"
	hpprof "net/http/pprof"
	"strconv"
	"strings"

	"abjad/internal/notice"
	"abjad/internal/notifications"
	rtsup "abjad/internal/runtime/supervisor"
	"abjad/internal/settings"
	"abjad/internal/tokenstore"
	"abjad/internal/view"
	logx "abjad/pkg/logx"
)

// Engine is the slice of the notification engine the shell drives.
type Engine interface {
	MarkRead(ctx context.Context, id notifications.ID)
	MarkAllRead(ctx context.Context)
	Refresh(ctx context.Context)
	Snapshot() notifications.Snapshot
	Polling() bool
}

// Session resolves and clears the signed-in identity.
type Session interface {
	RequireAuth(ctx context.Context, fetcher tokenstore.ProfileFetcher) (tokenstore.User, error)
	User(ctx context.Context) (tokenstore.User, bool)
	Logout(ctx context.Context)
}

// Themes persists the theme preference.
type Themes interface {
	ToggleTheme(ctx context.Context) (settings.Theme, error)
}

// LowStock reads and persists the low-stock alerts preference.
type LowStock interface {
	LowStockEnabled() bool
	SetLowStock(ctx context.Context, enabled bool) error
}

// Deps are the shell's collaborators. LowStock, Profile, Notices and Health
// may be nil.
type Deps struct {
	Doc      *view.Document
	Engine   Engine
	Session  Session
	Themes   Themes
	LowStock LowStock
	Profile  tokenstore.ProfileFetcher
	Notices  interface{ History() []notice.HistoryItem }
	Health   func() []rtsup.GoroutineStats
	// LoginPath is the location that means "signed out".
	LoginPath string
}

// StateResponse is the GET /ui/state body.
type StateResponse struct {
	Document      view.State             `json:"document"`
	Notifications notifications.Snapshot `json:"notifications"`
	Notices       []notice.HistoryItem   `json:"notices,omitempty"`
	Goroutines    []rtsup.GoroutineStats `json:"goroutines,omitempty"`
	User          *tokenstore.User       `json:"user,omitempty"`
}

// Handler builds the shell's routes for cfg.
func (s *Service) Handler(cfg Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage(cfg))
	mux.HandleFunc("POST /ui/notifications/toggle", s.handleToggle)
	mux.HandleFunc("POST /ui/notifications/read-all", s.handleReadAll)
	mux.HandleFunc("POST /ui/notifications/{id}/read", s.handleRead)
	mux.HandleFunc("POST /ui/theme/toggle", s.handleTheme)
	mux.HandleFunc("POST /ui/settings/low-stock", s.handleLowStock)
	mux.HandleFunc("POST /ui/logout", s.handleLogout)
	mux.HandleFunc("GET /ui/state", s.handleState)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Pprof {
		mux.HandleFunc("GET /debug/pprof/", hpprof.Index)
		mux.HandleFunc("GET /debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("GET /debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("GET /debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("GET /debug/pprof/trace", hpprof.Trace)
	}
	return withLogging(s.log, withAuth(cfg.AccessToken, mux))
}

func (s *Service) signedOut() bool {
	lp := s.deps.LoginPath
	if lp == "" {
		lp = "/login"
	}
	return s.deps.Doc.Location() == lp
}

func (s *Service) handlePage(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if s.signedOut() {
			_, _ = w.Write([]byte(renderSignedOut(s.deps.Doc.Snapshot())))
			return
		}
		u, err := s.deps.Session.RequireAuth(r.Context(), s.deps.Profile)
		if err != nil {
			// RequireAuth already navigated to login.
			_, _ = w.Write([]byte(renderSignedOut(s.deps.Doc.Snapshot())))
			return
		}
		d := pageData{
			User:       u,
			State:      s.deps.Doc.Snapshot(),
			ActivePage: cfg.ActivePage,
		}
		if s.deps.LowStock != nil {
			d.LowStockShown = true
			d.LowStockEnabled = s.deps.LowStock.LowStockEnabled()
		}
		_, _ = w.Write([]byte(renderPage(d)))
	}
}

func (s *Service) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.deps.Doc.TogglePanel()
	backHome(w, r)
}

func (s *Service) handleRead(w http.ResponseWriter, r *http.Request) {
	s.deps.Engine.MarkRead(r.Context(), notifications.ID(r.PathValue("id")))
	backHome(w, r)
}

func (s *Service) handleReadAll(w http.ResponseWriter, r *http.Request) {
	s.deps.Engine.MarkAllRead(r.Context())
	backHome(w, r)
}

func (s *Service) handleTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Themes.ToggleTheme(r.Context())
	if err != nil {
		s.log.Warn("theme toggle failed", logx.Err(err))
		http.Error(w, "theme toggle failed", http.StatusInternalServerError)
		return
	}
	s.deps.Doc.SetTheme(string(t))
	backHome(w, r)
}

// handleLowStock stores the preference and refreshes, so turning alerts off
// clears the badge and shows the disabled message without a backend call.
func (s *Service) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if s.deps.LowStock == nil {
		http.NotFound(w, r)
		return
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(r.FormValue("enabled")))
	if err != nil {
		http.Error(w, "enabled must be true or false", http.StatusBadRequest)
		return
	}
	if err := s.deps.LowStock.SetLowStock(r.Context(), enabled); err != nil {
		s.log.Warn("low stock preference save failed", logx.Err(err))
		http.Error(w, "settings save failed", http.StatusInternalServerError)
		return
	}
	s.deps.Engine.Refresh(r.Context())
	backHome(w, r)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.Logout(r.Context())
	backHome(w, r)
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Document:      s.deps.Doc.Snapshot(),
		Notifications: s.deps.Engine.Snapshot(),
	}
	if s.deps.Notices != nil {
		resp.Notices = s.deps.Notices.History()
	}
	if s.deps.Health != nil {
		resp.Goroutines = s.deps.Health()
	}
	if u, ok := s.deps.Session.User(r.Context()); ok {
		resp.User = &u
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Debug("state encode failed", logx.Err(err))
	}
}

func backHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// withAuth accepts "Authorization: Bearer <token>", ?token=<token> or the
// shell_token cookie. An empty token disables the check.
func withAuth(token string, next http.Handler) http.Handler {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got != tok {
				unauthorized(w)
				return
			}
			// Remember it so form posts and redirects keep working.
			http.SetCookie(w, &http.Cookie{Name: "shell_token", Value: tok, Path: "/", HttpOnly: true, SameSite: http.SameSiteStrictMode})
			next.ServeHTTP(w, r)
			return
		}
		if c, err := r.Cookie("shell_token"); err == nil && c.Value == tok {
			next.ServeHTTP(w, r)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(log logx.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if log.Enabled(logx.LevelDebug) {
			log.Debug("shell request", logx.String("method", r.Method), logx.String("path", r.URL.Path), logx.Int("status", rec.status))
		}
	})
}
