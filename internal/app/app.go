package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"abjad/internal/apiclient"
	"abjad/internal/config"
	"abjad/internal/eventbus"
	"abjad/internal/httpui"
	"abjad/internal/notice"
	"abjad/internal/notifications"
	rtsup "abjad/internal/runtime/supervisor"
	"abjad/internal/settings"
	"abjad/internal/storage"
	"abjad/internal/tokenstore"
	"abjad/internal/view"
	logx "abjad/pkg/logx"
)

const defaultLocation = "/dashboard"

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	doc     *view.Document
	tokens  *tokenstore.Store
	prefs   *settings.Store
	api     *apiclient.Client
	notices *notice.Service
	engine  *notifications.Engine
	ui      *httpui.Service
}

// NewApp loads and validates the config, then builds every component.
// Nothing runs until Start.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfgm.SetValidator(validateConfig)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.NewService(mapLogConfig(cfg))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	appLog := log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	appLog.Info("storage opened", logx.String("driver", sc.Driver))

	a, err := build(cfg, store, log, bus)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.cfgm = cfgm
	a.logs = logSvc
	return a, nil
}

// build wires the components over an open store.
func build(cfg *config.Config, store storage.Store, log logx.Logger, bus eventbus.Bus) (*App, error) {
	apiCfg, err := mapAPIConfig(cfg)
	if err != nil {
		return nil, err
	}
	engCfg, err := mapEngineConfig(cfg)
	if err != nil {
		return nil, err
	}
	ncfg, err := mapNoticeConfig(cfg)
	if err != nil {
		return nil, err
	}
	uiCfg, err := mapUIConfig(cfg)
	if err != nil {
		return nil, err
	}

	prefs := settings.New(store, log.With(logx.String("comp", "settings")))

	location := uiCfg.ActivePage
	if location == "" {
		location = defaultLocation
	}
	doc := view.New(location, string(prefs.Theme()))

	tokens := tokenstore.New(store,
		tokenstore.WithNavigator(doc),
		tokenstore.WithLoginPath(cfg.API.LoginPath),
		tokenstore.WithLogger(log.With(logx.String("comp", "session"))),
	)
	api := apiclient.New(apiCfg, tokens, apiclient.WithLogger(log.With(logx.String("comp", "api"))))
	notices := notice.New(ncfg, doc, log.With(logx.String("comp", "notice")), bus)

	eng, err := notifications.New(engCfg, notifications.Deps{
		API:     api,
		Tokens:  tokens,
		Prefs:   prefs,
		Notices: notices,
		Badge:   doc,
		List:    doc,
		Panel:   doc,
		Trigger: doc,
		Log:     log.With(logx.String("comp", "notifications")),
		Bus:     bus,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		log:     log.With(logx.String("comp", "app")),
		bus:     bus,
		store:   store,
		doc:     doc,
		tokens:  tokens,
		prefs:   prefs,
		api:     api,
		notices: notices,
		engine:  eng,
	}
	a.ui = httpui.New(uiCfg, httpui.Deps{
		Doc:       doc,
		Engine:    eng,
		Session:   tokens,
		Themes:    prefs,
		LowStock:  prefs,
		Profile:   api,
		Notices:   notices,
		Health:    a.health,
		LoginPath: cfg.API.LoginPath,
	}, log)
	return a, nil
}

// SeedToken stores a bearer token before Start so the first page load is
// signed in.
func (a *App) SeedToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if _, ok := tokenstore.DecodeClaims(token); !ok {
		a.log.Warn("seeded token has unreadable claims; profile will be fetched")
	}
	return a.tokens.SetToken(ctx, token)
}

// Document is the shared view model.
func (a *App) Document() *view.Document { return a.doc }

// Engine is the notification engine.
func (a *App) Engine() *notifications.Engine { return a.engine }

// UIAddr is the shell's bound address, "" when not serving.
func (a *App) UIAddr() string { return a.ui.Addr() }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) health() []rtsup.GoroutineStats {
	var out []rtsup.GoroutineStats
	if a.sup != nil {
		out = append(out, a.sup.Snapshot()...)
	}
	if sup := a.notices.Supervisor(); sup != nil {
		out = append(out, sup.Snapshot()...)
	}
	if sup := a.ui.Supervisor(); sup != nil {
		out = append(out, sup.Snapshot()...)
	}
	return out
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	run := a.sup.Context()

	if a.notices.Enabled() {
		a.notices.Start(run)
	}
	// The first fetch hits the network; keep it off the caller's path.
	a.sup.Go("notifications.init", func(c context.Context) error {
		a.engine.Init(c)
		return nil
	})
	a.ui.Start(run)

	if a.bus != nil {
		// Notice events repeat what the notices show; log engine events only.
		all, unsub := a.bus.Subscribe(128)
		events := eventbus.Filter(all, "notifications.")
		a.sup.Go("eventbus.log", func(c context.Context) error {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return nil
				case e, ok := <-events:
					if !ok {
						return nil
					}
					a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				}
			}
		})
	}

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		a.sup.Go("config.reload", func(c context.Context) error {
			defer a.cfgm.Unsubscribe(sub)
			last := a.cfgm.Get()
			for {
				select {
				case <-c.Done():
					return nil
				case next, ok := <-sub:
					if !ok {
						return nil
					}
					// Coalesce bursts: keep only the latest config.
					for drained := false; !drained; {
						select {
						case newer := <-sub:
							if newer != nil {
								next = newer
							}
						default:
							drained = true
						}
					}
					a.applyConfig(c, last, next)
					last = next
				}
			}
		})
		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	a.log.Info("app started")
	return nil
}

// applyConfig pushes a committed config to the running components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeChange(prev, next)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	for _, s := range sections {
		if s == "storage" || s == "api" {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	if a.logs != nil {
		a.logs.Apply(mapLogConfig(next))
	}

	if ec, err := mapEngineConfig(next); err != nil {
		a.log.Warn("invalid notifications config; keeping previous", logx.Err(err))
	} else if err := a.engine.Apply(ec); err != nil {
		a.log.Warn("notifications config rejected", logx.Err(err))
	}

	if nc, err := mapNoticeConfig(next); err != nil {
		a.log.Warn("invalid notices config; keeping previous", logx.Err(err))
	} else {
		was := a.notices.Enabled()
		a.notices.Apply(nc)
		switch {
		case was && !nc.Enabled:
			a.log.Info("notices disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notices.Stop(stopCtx)
			cancel()
		case !was && nc.Enabled:
			a.log.Info("notices enabled via config")
			a.notices.Start(ctx)
		}
	}

	if uc, err := mapUIConfig(next); err != nil {
		a.log.Warn("invalid ui config; keeping previous", logx.Err(err))
	} else {
		a.ui.Reconfigure(ctx, uc)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config applied", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sup.Cancel()

	// Each step is bounded so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("notifications", 2*time.Second, func(context.Context) error { a.engine.Close(); return nil })
	step("httpui", 2*time.Second, func(c context.Context) error { a.ui.Stop(c); return nil })
	step("notices", time.Second, func(c context.Context) error { a.notices.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
