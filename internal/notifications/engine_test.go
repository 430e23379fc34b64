package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"abjad/internal/eventbus"
)

// fakeBackend serves the low-stock endpoints from memory.
type fakeBackend struct {
	mu        sync.Mutex
	alerts    []Alert
	unread    *int
	getErr    error
	postErr   error
	gets      int
	posts     []string
	lastReads []ID
}

func (b *fakeBackend) Get(ctx context.Context, path string, out any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.getErr != nil {
		return b.getErr
	}
	if path != pathLowStock {
		return errors.New("unexpected path " + path)
	}
	resp := out.(*Response)
	resp.Alerts = append([]Alert(nil), b.alerts...)
	resp.UnreadCount = b.unread
	return nil
}

func (b *fakeBackend) Post(ctx context.Context, path string, body, out any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append(b.posts, path)
	if b.postErr != nil {
		return b.postErr
	}
	switch {
	case path == pathReadAll:
		for i := range b.alerts {
			b.alerts[i].Read = true
		}
	case strings.HasPrefix(path, pathLowStock+"/") && strings.HasSuffix(path, "/read"):
		id := ID(strings.TrimSuffix(strings.TrimPrefix(path, pathLowStock+"/"), "/read"))
		for i := range b.alerts {
			if b.alerts[i].ID == id {
				b.alerts[i].Read = true
			}
		}
	}
	return nil
}

func (b *fakeBackend) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

type staticToken struct {
	mu sync.Mutex
	v  string
}

func (s *staticToken) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *staticToken) set(v string) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}

type prefs struct{ disabled bool }

func (p prefs) LowStockEnabled() bool { return !p.disabled }

type regions struct {
	mu        sync.Mutex
	badge     int
	badgeSets int
	list      Content
	listSets  int
	open      bool
	click     func()
}

func (r *regions) SetBadge(n int) {
	r.mu.Lock()
	r.badge = n
	r.badgeSets++
	r.mu.Unlock()
}

func (r *regions) SetList(c Content) {
	r.mu.Lock()
	r.list = c
	r.listSets++
	r.mu.Unlock()
}

func (r *regions) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

func (r *regions) OnClick(fn func()) {
	r.mu.Lock()
	r.click = fn
	r.mu.Unlock()
}

func (r *regions) setOpen(v bool) {
	r.mu.Lock()
	r.open = v
	r.mu.Unlock()
}

func (r *regions) state() (int, Content, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.badge, r.list, r.listSets
}

type notices struct {
	mu   sync.Mutex
	got  []string
	kind []string
}

func (n *notices) Success(_ context.Context, text string) error { return n.add("success", text) }
func (n *notices) Error(_ context.Context, text string) error   { return n.add("error", text) }

func (n *notices) add(kind, text string) error {
	n.mu.Lock()
	n.got = append(n.got, text)
	n.kind = append(n.kind, kind)
	n.mu.Unlock()
	return nil
}

func (n *notices) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.got) == 0 {
		return "", ""
	}
	return n.kind[len(n.kind)-1], n.got[len(n.got)-1]
}

type fixture struct {
	e       *Engine
	api     *fakeBackend
	tok     *staticToken
	ui      *regions
	notices *notices
}

func newFixture(t *testing.T, cfg Config, p prefs, alerts ...Alert) *fixture {
	t.Helper()
	f := &fixture{
		api:     &fakeBackend{alerts: alerts},
		tok:     &staticToken{v: "tok"},
		ui:      &regions{badge: -1},
		notices: &notices{},
	}
	e, err := New(cfg, Deps{
		API: f.api, Tokens: f.tok, Prefs: p, Notices: f.notices,
		Badge: f.ui, List: f.ui, Panel: f.ui, Trigger: f.ui,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	f.e = e
	return f
}

func blueThread() Alert {
	return Alert{ID: "1", Name: "Blue Thread", Quantity: 3, Unit: "spools"}
}

func TestFetchScenarioOpenPanel(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.ui.setOpen(true)

	f.e.FetchAlerts(context.Background(), true)

	badge, list, _ := f.ui.state()
	if BadgeText(badge) != "1" {
		t.Fatalf("badge = %d", badge)
	}
	html := list.HTML.String()
	for _, want := range []string{"Blue Thread", "3 spools remaining", "Mark as read", "Mark all as read"} {
		if !strings.Contains(html, want) {
			t.Fatalf("panel missing %q: %s", want, html)
		}
	}
	snap := f.e.Snapshot()
	if snap.UnreadCount != 1 || len(snap.Alerts) != 1 || snap.FetchedAt.IsZero() {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestFetchClosedPanelOnlyUpdatesBadge(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.e.FetchAlerts(context.Background(), true)
	if badge, _, sets := f.ui.state(); badge != 1 || sets != 0 {
		t.Fatalf("badge=%d listSets=%d", badge, sets)
	}
}

func TestFetchEmpty(t *testing.T) {
	f := newFixture(t, Config{}, prefs{})
	f.ui.setOpen(true)
	f.e.FetchAlerts(context.Background(), true)
	badge, list, _ := f.ui.state()
	if badge != 0 || BadgeText(badge) != "" {
		t.Fatalf("badge = %d", badge)
	}
	if !list.Empty || !strings.Contains(list.HTML.String(), MsgEmpty) {
		t.Fatalf("list = %+v", list)
	}
}

func TestFetchServerCountWins(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.api.unread = intPtr(7)
	f.e.FetchAlerts(context.Background(), false)
	if badge, _, _ := f.ui.state(); badge != 7 {
		t.Fatalf("badge = %d", badge)
	}
	if !f.e.Snapshot().CountMismatch {
		t.Fatalf("mismatch not flagged")
	}
}

func TestFetchDisabledMakesNoNetworkCall(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	f := newFixture(t, Config{}, prefs{disabled: true}, blueThread())
	f.e.deps.Bus = bus
	f.e.FetchAlerts(context.Background(), false)
	f.e.FetchAlerts(context.Background(), true)

	if n := f.api.getCount(); n != 0 {
		t.Fatalf("disabled fetch issued %d calls", n)
	}
	badge, list, _ := f.ui.state()
	if badge != 0 {
		t.Fatalf("badge = %d", badge)
	}
	if !list.Empty || !strings.Contains(list.HTML.String(), MsgDisabled) {
		t.Fatalf("list = %+v", list)
	}
	if f.e.Snapshot().Enabled {
		t.Fatalf("snapshot reports enabled")
	}
	if ev := <-events; ev.Type != "notifications.disabled" {
		t.Fatalf("event = %s", ev.Type)
	}
}

func TestFetchWithoutTokenIsNoop(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.tok.set("")
	f.e.FetchAlerts(context.Background(), true)
	if n := f.api.getCount(); n != 0 {
		t.Fatalf("calls = %d", n)
	}
	if badge, _, sets := f.ui.state(); badge != -1 || sets != 0 {
		t.Fatalf("regions touched: badge=%d listSets=%d", badge, sets)
	}
}

func TestFetchFailure(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.e.FetchAlerts(context.Background(), false)

	f.api.mu.Lock()
	f.api.getErr = errors.New("connection refused")
	f.api.mu.Unlock()

	f.e.FetchAlerts(context.Background(), false)
	if badge, _, sets := f.ui.state(); badge != 0 || sets != 0 {
		t.Fatalf("badge=%d listSets=%d", badge, sets)
	}
	f.e.FetchAlerts(context.Background(), true)
	if _, list, _ := f.ui.state(); !strings.Contains(list.HTML.String(), MsgLoadError) || !list.Empty {
		t.Fatalf("list = %+v", list)
	}
	if _, text := f.notices.last(); text != "" {
		t.Fatalf("fetch failure raised a notice: %q", text)
	}
	if snap := f.e.Snapshot(); snap.LastError == "" || snap.UnreadCount != 1 {
		t.Fatalf("snapshot should keep the last good summary: %+v", snap)
	}
}

func TestMarkReadRefreshes(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread(), Alert{ID: "2", Name: "Zip"})
	f.ui.setOpen(true)

	f.e.MarkRead(context.Background(), "1")

	if kind, text := f.notices.last(); kind != "success" || text != NoticeMarked {
		t.Fatalf("notice = %s %q", kind, text)
	}
	badge, list, _ := f.ui.state()
	if badge != 1 {
		t.Fatalf("badge = %d", badge)
	}
	if !strings.Contains(list.HTML.String(), `<div class="notification-item notification-item-read" data-id="1">`) {
		t.Fatalf("alert 1 not rendered read: %s", list.HTML)
	}
	snap := f.e.Snapshot()
	if !snap.Alerts[0].Read || snap.Alerts[1].Read {
		t.Fatalf("snapshot = %+v", snap.Alerts)
	}
}

func TestMarkAllReadRefreshes(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread(), Alert{ID: "2"})
	f.ui.setOpen(true)

	f.e.MarkAllRead(context.Background())

	if _, text := f.notices.last(); text != NoticeAllMarked {
		t.Fatalf("notice = %q", text)
	}
	badge, list, _ := f.ui.state()
	if badge != 0 || strings.Contains(list.HTML.String(), "Mark all as read") {
		t.Fatalf("badge=%d list=%s", badge, list.HTML)
	}
}

func TestMarkFailureShowsErrorAndKeepsState(t *testing.T) {
	f := newFixture(t, Config{}, prefs{}, blueThread())
	f.e.FetchAlerts(context.Background(), false)
	gets := f.api.getCount()

	f.api.mu.Lock()
	f.api.postErr = errors.New("Session expired")
	f.api.mu.Unlock()

	f.e.MarkRead(context.Background(), "1")
	if kind, text := f.notices.last(); kind != "error" || text != "Session expired" {
		t.Fatalf("notice = %s %q", kind, text)
	}
	if f.api.getCount() != gets {
		t.Fatalf("failed mutation triggered a refresh")
	}

	f.api.mu.Lock()
	f.api.postErr = errors.New("")
	f.api.mu.Unlock()
	f.e.MarkAllRead(context.Background())
	if _, text := f.notices.last(); text != NoticeAllMarkFailed {
		t.Fatalf("fallback notice = %q", text)
	}
	f.e.MarkRead(context.Background(), "1")
	if _, text := f.notices.last(); text != NoticeMarkFailed {
		t.Fatalf("fallback notice = %q", text)
	}
}

func TestMarkReadIgnoresEmptyID(t *testing.T) {
	f := newFixture(t, Config{}, prefs{})
	f.e.MarkRead(context.Background(), " ")
	if len(f.api.posts) != 0 {
		t.Fatalf("posted %v", f.api.posts)
	}
}

func TestInitFetchesAndHooksTrigger(t *testing.T) {
	f := newFixture(t, Config{PanelOpenDelay: 10 * time.Millisecond, PollSchedule: "1h"}, prefs{}, blueThread())

	f.e.Init(context.Background())
	if f.api.getCount() != 1 || !f.e.Polling() {
		t.Fatalf("gets=%d polling=%v", f.api.getCount(), f.e.Polling())
	}

	f.ui.mu.Lock()
	click := f.ui.click
	f.ui.mu.Unlock()
	if click == nil {
		t.Fatalf("trigger not hooked")
	}

	// Closed panel: the delayed callback does nothing.
	click()
	time.Sleep(50 * time.Millisecond)
	if _, _, sets := f.ui.state(); sets != 0 {
		t.Fatalf("closed panel rendered")
	}

	f.ui.setOpen(true)
	click()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, list, _ := f.ui.state(); strings.Contains(list.HTML.String(), "Blue Thread") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("panel not refreshed after open")
}

func TestInitWithoutTokenDoesNothing(t *testing.T) {
	f := newFixture(t, Config{}, prefs{})
	f.tok.set("")
	f.e.Init(context.Background())
	if f.api.getCount() != 0 || f.e.Polling() {
		t.Fatalf("init without token acted")
	}
}

func TestPollingIsIdempotentAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, Config{PollSchedule: "@every 1s"}, prefs{}, blueThread())
	f.e.StartPolling()
	first := f.e.cron
	f.e.StartPolling()
	if f.e.cron != first {
		t.Fatalf("second StartPolling created a new timer")
	}

	deadline := time.Now().Add(3 * time.Second)
	for f.api.getCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if f.api.getCount() == 0 {
		t.Fatalf("poller never ticked")
	}

	f.e.StopPolling()
	f.e.StopPolling()
	if f.e.Polling() {
		t.Fatalf("still polling")
	}
	f.e.StartPolling()
	if !f.e.Polling() || f.e.cron == first {
		t.Fatalf("restart did not create a fresh poller")
	}
	f.e.StopPolling()
}

func TestPollSkipsWithoutToken(t *testing.T) {
	f := newFixture(t, Config{PollSchedule: "1s"}, prefs{}, blueThread())
	f.tok.set("")
	f.e.StartPolling()
	time.Sleep(1500 * time.Millisecond)
	f.e.StopPolling()
	if n := f.api.getCount(); n != 0 {
		t.Fatalf("polled %d times without a token", n)
	}
}

func TestApplyRestartsPollerOnScheduleChange(t *testing.T) {
	f := newFixture(t, Config{PollSchedule: "1h"}, prefs{}, blueThread())
	f.e.StartPolling()
	first := f.e.cron

	if err := f.e.Apply(Config{PollSchedule: "1h"}); err != nil {
		t.Fatal(err)
	}
	if f.e.cron != first {
		t.Fatalf("unchanged schedule restarted the poller")
	}
	if err := f.e.Apply(Config{PollSchedule: "30m"}); err != nil {
		t.Fatal(err)
	}
	if f.e.cron == first || !f.e.Polling() {
		t.Fatalf("schedule change did not restart the poller")
	}
	if err := f.e.Apply(Config{PollSchedule: "whenever"}); err == nil {
		t.Fatalf("bad schedule accepted")
	}
}

func TestNewRequiresCoreDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := New(Config{PollSchedule: "nope"}, Deps{API: &fakeBackend{}, Tokens: &staticToken{}, Prefs: prefs{}}); err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestNilRegionsTolerated(t *testing.T) {
	api := &fakeBackend{alerts: []Alert{blueThread()}}
	e, err := New(Config{}, Deps{API: api, Tokens: &staticToken{v: "t"}, Prefs: prefs{}})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	e.FetchAlerts(context.Background(), true)
	e.MarkAllRead(context.Background())
	e.Init(context.Background())
	if e.Snapshot().UnreadCount != 0 {
		t.Fatalf("snapshot = %+v", e.Snapshot())
	}
}
