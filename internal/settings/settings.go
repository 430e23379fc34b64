// Package settings holds the user's client-side preferences: which
// notifications to show and the light/dark theme.
package settings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"abjad/internal/storage"
	logx "abjad/pkg/logx"
)

const (
	KeyNotifications = "abjad_settings_notifications"
	KeyTheme         = "tailor_theme"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// NormalizeTheme maps anything other than "light" to dark.
func NormalizeTheme(s string) Theme {
	if strings.TrimSpace(s) == string(ThemeLight) {
		return ThemeLight
	}
	return ThemeDark
}

// NotificationPrefs is persisted as JSON. A nil LowStock means "not set",
// which counts as enabled.
type NotificationPrefs struct {
	LowStock *bool `json:"lowStock,omitempty"`
}

func (p NotificationPrefs) LowStockEnabled() bool {
	return p.LowStock == nil || *p.LowStock
}

type Store struct {
	kv  storage.Store
	log logx.Logger
}

func New(kv storage.Store, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{kv: kv, log: log}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Second)
}

// NotificationPrefs returns the stored preferences. Missing or unparsable
// values yield the zero prefs (everything enabled).
func (s *Store) NotificationPrefs() NotificationPrefs {
	ctx, cancel := opCtx()
	defer cancel()
	raw, ok, err := s.kv.Get(ctx, KeyNotifications)
	if err != nil {
		s.log.Debug("notification prefs read failed", logx.Err(err))
		return NotificationPrefs{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return NotificationPrefs{}
	}
	var p NotificationPrefs
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return NotificationPrefs{}
	}
	return p
}

func (s *Store) SetNotificationPrefs(ctx context.Context, p NotificationPrefs) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, KeyNotifications, string(b))
}

// SetLowStock is a convenience for toggling the one recognized preference.
func (s *Store) SetLowStock(ctx context.Context, enabled bool) error {
	p := s.NotificationPrefs()
	p.LowStock = &enabled
	return s.SetNotificationPrefs(ctx, p)
}

// LowStockEnabled is read by the notification engine on every fetch.
func (s *Store) LowStockEnabled() bool {
	return s.NotificationPrefs().LowStockEnabled()
}

// Theme returns the stored theme, default dark.
func (s *Store) Theme() Theme {
	ctx, cancel := opCtx()
	defer cancel()
	raw, ok, err := s.kv.Get(ctx, KeyTheme)
	if err != nil || !ok {
		return ThemeDark
	}
	return NormalizeTheme(raw)
}

func (s *Store) SetTheme(ctx context.Context, t Theme) (Theme, error) {
	t = NormalizeTheme(string(t))
	return t, s.kv.Set(ctx, KeyTheme, string(t))
}

// ToggleTheme flips light/dark and returns the new theme.
func (s *Store) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeLight
	if s.Theme() == ThemeLight {
		next = ThemeDark
	}
	return s.SetTheme(ctx, next)
}
