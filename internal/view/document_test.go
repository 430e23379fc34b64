package view

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"abjad/internal/notice"
	"abjad/internal/notifications"
)

func TestBadgeAndList(t *testing.T) {
	d := New("/dashboard", "dark")
	d.SetBadge(101)
	st := d.Snapshot()
	if st.BadgeText != "99+" || !st.BadgeVisible {
		t.Fatalf("badge = %q visible=%v", st.BadgeText, st.BadgeVisible)
	}
	d.SetBadge(0)
	d.SetList(notifications.MessageContent(notifications.MsgEmpty))
	st = d.Snapshot()
	if st.BadgeVisible || st.BadgeText != "" {
		t.Fatalf("zero badge visible")
	}
	if !st.ListEmpty || st.List == "" {
		t.Fatalf("list = %+v", st)
	}
}

func TestTogglePanelFiresHandlers(t *testing.T) {
	d := New("/dashboard", "dark")
	var clicks atomic.Int32
	var openAtClick atomic.Bool
	d.OnClick(func() {
		clicks.Add(1)
		openAtClick.Store(d.Visible())
	})

	if !d.TogglePanel() || !openAtClick.Load() {
		t.Fatalf("panel should be open when the handler runs")
	}
	if d.TogglePanel() || clicks.Load() != 2 {
		t.Fatalf("second toggle: clicks=%d", clicks.Load())
	}
	v := d.Snapshot().Version
	d.ClosePanel()
	if d.Snapshot().Version == v {
		t.Fatalf("version not bumped")
	}
}

func TestNavigateClosesPanel(t *testing.T) {
	d := New("/dashboard", "dark")
	d.TogglePanel()
	d.Navigate("/login")
	if d.Location() != "/login" || d.Visible() {
		t.Fatalf("location=%q open=%v", d.Location(), d.Visible())
	}
}

func TestNoticesExpire(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	d := New("/", "light", WithClock(func() time.Time { return now }))

	_ = d.ShowNotice(context.Background(), notice.Notice{Text: "Marked as read", At: now, Timeout: 3 * time.Second})
	_ = d.ShowNotice(context.Background(), notice.Notice{Text: "Failed", Timeout: 10 * time.Second})
	if n := len(d.Snapshot().Notices); n != 2 {
		t.Fatalf("notices = %d", n)
	}
	now = now.Add(5 * time.Second)
	st := d.Snapshot()
	if len(st.Notices) != 1 || st.Notices[0].Text != "Failed" {
		t.Fatalf("after expiry = %+v", st.Notices)
	}
}
