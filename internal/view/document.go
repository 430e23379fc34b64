// Package view is the in-process page model the notification engine draws on.
//
// A Document holds the bell badge, the alert list, the panel's open state, the
// theme attribute, the current location and the visible notices. Each region
// is safe for concurrent use; the HTTP shell renders a State copy.
package view

import (
	"context"
	"sync"
	"time"

	"abjad/internal/notice"
	"abjad/internal/notifications"
	"abjad/pkg/webui"
)

// State is a point-in-time copy of the document.
type State struct {
	BadgeCount   int             `json:"badge_count"`
	BadgeText    string          `json:"badge_text"`
	BadgeVisible bool            `json:"badge_visible"`
	PanelOpen    bool            `json:"panel_open"`
	List         webui.H         `json:"list"`
	ListEmpty    bool            `json:"list_empty"`
	Theme        string          `json:"theme"`
	Location     string          `json:"location"`
	Notices      []notice.Notice `json:"notices"`
	Version      uint64          `json:"version"`
}

// Document implements the engine regions (Badge, List, Panel, Trigger), the
// token store Navigator and the notice Sink.
type Document struct {
	mu       sync.Mutex
	badge    int
	open     bool
	list     notifications.Content
	theme    string
	location string
	notices  []notice.Notice
	version  uint64
	clicks   []func()
	now      func() time.Time
}

type Option func(*Document)

// WithClock overrides time.Now for notice expiry.
func WithClock(now func() time.Time) Option { return func(d *Document) { d.now = now } }

func New(location, theme string, opts ...Option) *Document {
	d := &Document{location: location, theme: theme, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Document) touch() { d.version++ }

// SetBadge stores the unread count; zero hides the badge.
func (d *Document) SetBadge(count int) {
	if count < 0 {
		count = 0
	}
	d.mu.Lock()
	d.badge = count
	d.touch()
	d.mu.Unlock()
}

func (d *Document) SetList(c notifications.Content) {
	d.mu.Lock()
	d.list = c
	d.touch()
	d.mu.Unlock()
}

// Visible reports whether the panel is open.
func (d *Document) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// OnClick registers a bell click handler.
func (d *Document) OnClick(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.clicks = append(d.clicks, fn)
	d.mu.Unlock()
}

// TogglePanel is a bell click: flip the panel, then run click handlers.
// It returns the new open state.
func (d *Document) TogglePanel() bool {
	d.mu.Lock()
	d.open = !d.open
	open := d.open
	d.touch()
	handlers := append([]func(){}, d.clicks...)
	d.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
	return open
}

// ClosePanel closes the panel without firing click handlers.
func (d *Document) ClosePanel() {
	d.mu.Lock()
	d.open = false
	d.touch()
	d.mu.Unlock()
}

// SetTheme sets the document's data-theme attribute.
func (d *Document) SetTheme(theme string) {
	d.mu.Lock()
	d.theme = theme
	d.touch()
	d.mu.Unlock()
}

func (d *Document) Theme() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.theme
}

// Navigate moves the document to path (the login redirect).
func (d *Document) Navigate(path string) {
	d.mu.Lock()
	d.location = path
	d.open = false
	d.touch()
	d.mu.Unlock()
}

func (d *Document) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// ShowNotice displays n until its timeout passes.
func (d *Document) ShowNotice(_ context.Context, n notice.Notice) error {
	d.mu.Lock()
	if n.At.IsZero() {
		n.At = d.now()
	}
	d.pruneLocked()
	d.notices = append(d.notices, n)
	d.touch()
	d.mu.Unlock()
	return nil
}

func (d *Document) pruneLocked() {
	now := d.now()
	kept := d.notices[:0]
	for _, n := range d.notices {
		if n.Timeout <= 0 || now.Before(n.At.Add(n.Timeout)) {
			kept = append(kept, n)
		}
	}
	d.notices = kept
}

// Snapshot copies the current state, dropping expired notices.
func (d *Document) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked()
	return State{
		BadgeCount:   d.badge,
		BadgeText:    notifications.BadgeText(d.badge),
		BadgeVisible: d.badge > 0,
		PanelOpen:    d.open,
		List:         d.list.HTML,
		ListEmpty:    d.list.Empty,
		Theme:        d.theme,
		Location:     d.location,
		Notices:      append([]notice.Notice(nil), d.notices...),
		Version:      d.version,
	}
}
