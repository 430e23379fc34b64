package notifications

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"abjad/internal/eventbus"
	logx "abjad/pkg/logx"
)

// Backend paths, relative to the API client's /api base.
const (
	pathLowStock = "/notifications/low-stock"
	pathReadAll  = "/notifications/low-stock/read-all"
)

// Notice texts.
const (
	NoticeMarked        = "Marked as read"
	NoticeMarkFailed    = "Failed to mark as read"
	NoticeAllMarked     = "All marked as read"
	NoticeAllMarkFailed = "Failed"
)

const (
	DefaultPanelOpenDelay = 150 * time.Millisecond
	DefaultActionPrefix   = "/ui/notifications"
)

// API is the authenticated backend.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// TokenSource reports the current bearer token; "" means signed out.
type TokenSource interface {
	Token() string
}

// Preferences reports whether low-stock alerts are enabled.
type Preferences interface {
	LowStockEnabled() bool
}

// Notifier shows transient notices.
type Notifier interface {
	Success(ctx context.Context, text string) error
	Error(ctx context.Context, text string) error
}

// Badge shows the unread count. Zero hides it.
type Badge interface {
	SetBadge(count int)
}

// List holds the panel content.
type List interface {
	SetList(c Content)
}

// Panel reports whether the dropdown is open.
type Panel interface {
	Visible() bool
}

// Trigger is the bell button.
type Trigger interface {
	OnClick(fn func())
}

// Deps are the engine's collaborators. API, Tokens and Prefs are required;
// everything else may be nil.
type Deps struct {
	API     API
	Tokens  TokenSource
	Prefs   Preferences
	Notices Notifier

	Badge   Badge
	List    List
	Panel   Panel
	Trigger Trigger

	Log logx.Logger
	Bus eventbus.Bus
}

type Config struct {
	// PollSchedule is anything ParseSchedule accepts; "" polls every 60s.
	PollSchedule   string
	PanelOpenDelay time.Duration
	// RequestTimeout bounds each fetch or mutation; 0 leaves it to the API client.
	RequestTimeout time.Duration
	// ActionPrefix is where the rendered panel's buttons post to.
	ActionPrefix string
}

// Snapshot is the last fetch outcome.
type Snapshot struct {
	Summary
	Enabled   bool      `json:"enabled"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Polling   bool      `json:"polling"`
	Schedule  string    `json:"schedule"`
}

// Event is the bus payload for notifications.* events.
type Event struct {
	UnreadCount int    `json:"unread_count"`
	Alerts      int    `json:"alerts"`
	ID          string `json:"id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Engine is safe for concurrent use.
type Engine struct {
	deps Deps
	log  logx.Logger

	mu        sync.Mutex
	cfg       Config
	spec      ParsedSpec
	summary   Summary
	fetchedAt time.Time
	lastErr   string
	enabled   bool

	// poller
	cron       *cron.Cron
	pollCancel context.CancelFunc

	clickOnce sync.Once
	timerMu   sync.Mutex
	timers    map[*time.Timer]struct{}
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.API == nil || deps.Tokens == nil || deps.Prefs == nil {
		return nil, errors.New("notifications: API, Tokens and Prefs are required")
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{
		deps:    deps,
		log:     log.With(logx.String("comp", "notifications")),
		summary: Summary{Alerts: []Alert{}},
		enabled: true,
		timers:  map[*time.Timer]struct{}{},
	}
	if err := e.Apply(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Apply swaps the config. A changed poll schedule restarts a running poller.
func (e *Engine) Apply(cfg Config) error {
	spec, err := ParseSchedule(cfg.PollSchedule)
	if err != nil {
		return err
	}
	if cfg.PanelOpenDelay <= 0 {
		cfg.PanelOpenDelay = DefaultPanelOpenDelay
	}
	cfg.ActionPrefix = strings.TrimRight(strings.TrimSpace(cfg.ActionPrefix), "/")
	if cfg.ActionPrefix == "" {
		cfg.ActionPrefix = DefaultActionPrefix
	}

	e.mu.Lock()
	restart := e.cron != nil && spec != e.spec
	e.cfg = cfg
	e.spec = spec
	e.mu.Unlock()

	if restart {
		e.log.Info("poll schedule changed; restarting poller", logx.String("schedule", cfg.PollSchedule))
		e.StopPolling()
		e.StartPolling()
	}
	return nil
}

// MarkReadAction is the panel form action for one alert.
func (e *Engine) MarkReadAction(id ID) string {
	return e.config().ActionPrefix + "/" + url.PathEscape(string(id)) + "/read"
}

// MarkAllAction is the panel form action for mark-all.
func (e *Engine) MarkAllAction() string { return e.config().ActionPrefix + "/read-all" }

func (e *Engine) config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d := e.config().RequestTimeout; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// FetchAlerts loads the alert list and updates the badge. When updatePanel is
// set the list is re-rendered, but only while the panel is open. Failures
// leave the badge at zero and are never returned.
func (e *Engine) FetchAlerts(ctx context.Context, updatePanel bool) {
	if !e.deps.Prefs.LowStockEnabled() {
		e.setBadge(0)
		if updatePanel {
			e.setList(MessageContent(MsgDisabled))
		}
		e.mu.Lock()
		e.enabled = false
		e.mu.Unlock()
		e.publish("notifications.disabled", Event{})
		return
	}
	if e.deps.Tokens.Token() == "" {
		return
	}

	rctx, cancel := e.requestCtx(ctx)
	defer cancel()

	var resp Response
	if err := e.deps.API.Get(rctx, pathLowStock, &resp); err != nil {
		e.log.Debug("low stock fetch failed", logx.Err(err))
		e.setBadge(0)
		if updatePanel {
			e.setList(MessageContent(MsgLoadError))
		}
		e.mu.Lock()
		e.enabled = true
		e.lastErr = err.Error()
		e.mu.Unlock()
		e.publish("notifications.failed", Event{Error: err.Error()})
		return
	}

	sum := Summarize(resp)
	if sum.CountMismatch {
		e.log.Debug("server unread count differs from alert list",
			logx.Int("server", sum.UnreadCount), logx.Int("local", sum.LocalUnread))
	}

	e.setBadge(sum.UnreadCount)
	if updatePanel && e.panelVisible() {
		e.setList(RenderPanel(sum.Alerts, e.MarkReadAction, e.MarkAllAction()))
	}

	e.mu.Lock()
	e.summary = sum
	e.fetchedAt = time.Now()
	e.lastErr = ""
	e.enabled = true
	e.mu.Unlock()
	e.publish("notifications.fetched", Event{UnreadCount: sum.UnreadCount, Alerts: len(sum.Alerts)})
}

// Refresh re-fetches and re-renders an open panel.
func (e *Engine) Refresh(ctx context.Context) { e.FetchAlerts(ctx, true) }

// MarkRead marks one alert read, then refreshes. A failure shows an error
// notice and changes nothing locally.
func (e *Engine) MarkRead(ctx context.Context, id ID) {
	if strings.TrimSpace(string(id)) == "" {
		return
	}
	rctx, cancel := e.requestCtx(ctx)
	err := e.deps.API.Post(rctx, pathLowStock+"/"+url.PathEscape(string(id))+"/read", nil, nil)
	cancel()
	if err != nil {
		e.log.Debug("mark read failed", logx.String("id", string(id)), logx.Err(err))
		e.notifyError(ctx, err, NoticeMarkFailed)
		return
	}
	e.notifySuccess(ctx, NoticeMarked)
	e.publish("notifications.marked", Event{ID: string(id)})
	e.FetchAlerts(ctx, true)
}

// MarkAllRead marks every alert read, then refreshes.
func (e *Engine) MarkAllRead(ctx context.Context) {
	rctx, cancel := e.requestCtx(ctx)
	err := e.deps.API.Post(rctx, pathReadAll, nil, nil)
	cancel()
	if err != nil {
		e.log.Debug("mark all read failed", logx.Err(err))
		e.notifyError(ctx, err, NoticeAllMarkFailed)
		return
	}
	e.notifySuccess(ctx, NoticeAllMarked)
	e.publish("notifications.marked", Event{ID: "*"})
	e.FetchAlerts(ctx, true)
}

// Init runs on page load with a session: one fetch, start polling, and hook
// the bell so opening the panel refreshes it after the open delay.
func (e *Engine) Init(ctx context.Context) {
	if e.deps.Tokens.Token() == "" {
		return
	}
	e.FetchAlerts(ctx, false)
	e.StartPolling()

	if e.deps.Trigger == nil || e.deps.Panel == nil {
		return
	}
	e.clickOnce.Do(func() {
		e.deps.Trigger.OnClick(e.onTriggerClick)
	})
}

func (e *Engine) onTriggerClick() {
	delay := e.config().PanelOpenDelay
	var t *time.Timer
	e.timerMu.Lock()
	defer e.timerMu.Unlock()
	t = time.AfterFunc(delay, func() {
		e.timerMu.Lock()
		delete(e.timers, t)
		e.timerMu.Unlock()
		if e.panelVisible() {
			e.FetchAlerts(context.Background(), true)
		}
	})
	e.timers[t] = struct{}{}
}

// StartPolling schedules background fetches. Calling it while polling is a no-op.
func (e *Engine) StartPolling() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cron != nil {
		return
	}
	sched, err := e.spec.schedule()
	if err != nil {
		// ParseSchedule already validated the spec.
		e.log.Error("poll schedule rejected", logx.Err(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(sched, cron.FuncJob(func() {
		if e.deps.Tokens.Token() == "" {
			return
		}
		e.FetchAlerts(ctx, false)
	}))
	c.Start()
	e.cron, e.pollCancel = c, cancel
	e.log.Debug("polling started", logx.String("schedule", e.cfg.PollSchedule), logx.String("source", e.spec.Source))
}

// StopPolling tears the poller down and waits for a running tick. A later
// StartPolling creates a fresh one.
func (e *Engine) StopPolling() {
	e.mu.Lock()
	c, cancel := e.cron, e.pollCancel
	e.cron, e.pollCancel = nil, nil
	e.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	e.log.Debug("polling stopped")
}

// Polling reports whether the poller is running.
func (e *Engine) Polling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cron != nil
}

// Close stops polling and any pending panel-open refresh.
func (e *Engine) Close() {
	e.StopPolling()
	e.timerMu.Lock()
	for t := range e.timers {
		t.Stop()
	}
	e.timers = map[*time.Timer]struct{}{}
	e.timerMu.Unlock()
}

// Snapshot returns the last fetched alerts and unread count.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Summary:   e.summary,
		Enabled:   e.enabled,
		FetchedAt: e.fetchedAt,
		LastError: e.lastErr,
		Polling:   e.cron != nil,
		Schedule:  e.cfg.PollSchedule,
	}
	s.Alerts = append([]Alert(nil), e.summary.Alerts...)
	return s
}

func (e *Engine) panelVisible() bool {
	return e.deps.Panel != nil && e.deps.Panel.Visible()
}

func (e *Engine) setBadge(n int) {
	if e.deps.Badge != nil {
		e.deps.Badge.SetBadge(n)
	}
}

func (e *Engine) setList(c Content) {
	if e.deps.List != nil {
		e.deps.List.SetList(c)
	}
}

func (e *Engine) notifySuccess(ctx context.Context, text string) {
	if e.deps.Notices == nil {
		return
	}
	if err := e.deps.Notices.Success(context.WithoutCancel(ctx), text); err != nil {
		e.log.Debug("notice dropped", logx.Err(err))
	}
}

func (e *Engine) notifyError(ctx context.Context, err error, fallback string) {
	if e.deps.Notices == nil {
		return
	}
	msg := fallback
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	if nerr := e.deps.Notices.Error(context.WithoutCancel(ctx), msg); nerr != nil {
		e.log.Debug("notice dropped", logx.Err(nerr))
	}
}

func (e *Engine) publish(typ string, ev Event) {
	if e.deps.Bus == nil {
		return
	}
	e.deps.Bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}
