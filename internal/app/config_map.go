package app

import (
	"fmt"
	"strings"
	"time"

	"abjad/internal/apiclient"
	"abjad/internal/config"
	"abjad/internal/httpui"
	"abjad/internal/notice"
	"abjad/internal/notifications"
	"abjad/internal/storage"
	logx "abjad/pkg/logx"
)

const defaultAPITimeout = 15 * time.Second

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg == nil {
		return storage.Config{}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "memory", "mem":
		return storage.Config{Driver: "memory"}, nil
	case "file":
		if path == "" {
			path = "./data/portal"
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	case "none":
		// The session has to live somewhere.
		return storage.Config{}, fmt.Errorf("storage.driver=none is not supported; use memory")
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapAPIConfig(cfg *config.Config) (apiclient.Config, error) {
	timeout, err := config.ParseDurationOrDefault("api.timeout", cfg.API.Timeout, defaultAPITimeout)
	if err != nil {
		return apiclient.Config{}, err
	}
	return apiclient.Config{BaseURL: strings.TrimSpace(cfg.API.BaseURL), Timeout: timeout}, nil
}

func mapEngineConfig(cfg *config.Config) (notifications.Config, error) {
	nc := cfg.Notifications
	if _, err := notifications.ParseSchedule(nc.PollInterval); err != nil {
		return notifications.Config{}, fmt.Errorf("notifications.poll_interval: %w", err)
	}
	delay, err := config.ParseDurationOrDefault("notifications.panel_open_delay", nc.PanelOpenDelay, notifications.DefaultPanelOpenDelay)
	if err != nil {
		return notifications.Config{}, err
	}
	reqTimeout, err := config.ParseDurationField("notifications.request_timeout", nc.RequestTimeout)
	if err != nil {
		return notifications.Config{}, err
	}
	return notifications.Config{
		PollSchedule:   strings.TrimSpace(nc.PollInterval),
		PanelOpenDelay: delay,
		RequestTimeout: reqTimeout,
		ActionPrefix:   notifications.DefaultActionPrefix,
	}, nil
}

// mapNoticeConfig treats an omitted notices section as enabled with defaults.
func mapNoticeConfig(cfg *config.Config) (notice.Config, error) {
	nc := cfg.Notices
	if nc == nil {
		return notice.Config{Enabled: true, DisplayTimeout: notice.DefaultDisplayTimeout}, nil
	}
	if nc.Workers < 0 || nc.QueueSize < 0 || nc.RatePerSec < 0 || nc.HistorySize < 0 {
		return notice.Config{}, fmt.Errorf("notices: workers, queue_size, rate_per_sec and history_size must be >= 0")
	}
	dedup, err := config.ParseDurationField("notices.dedup_window", nc.DedupWindow)
	if err != nil {
		return notice.Config{}, err
	}
	display, err := config.ParseDurationOrDefault("notices.display_timeout", nc.DisplayTimeout, notice.DefaultDisplayTimeout)
	if err != nil {
		return notice.Config{}, err
	}
	return notice.Config{
		Enabled:        nc.Enabled,
		Workers:        nc.Workers,
		QueueSize:      nc.QueueSize,
		RatePerSec:     nc.RatePerSec,
		RetryMax:       1,
		DedupWindow:    dedup,
		DisplayTimeout: display,
		HistorySize:    nc.HistorySize,
	}, nil
}

func mapUIConfig(cfg *config.Config) (httpui.Config, error) {
	uc := cfg.UI
	read, err := config.ParseDurationOrDefault("ui.read_timeout", uc.ReadTimeout, 10*time.Second)
	if err != nil {
		return httpui.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("ui.write_timeout", uc.WriteTimeout, 15*time.Second)
	if err != nil {
		return httpui.Config{}, err
	}
	addr := strings.TrimSpace(uc.Addr)
	if addr == "" {
		addr = httpui.DefaultAddr
	}
	page := strings.TrimSpace(uc.ActivePage)
	if page != "" && !strings.HasPrefix(page, "/") {
		return httpui.Config{}, fmt.Errorf("ui.active_page must start with '/': %q", page)
	}
	return httpui.Config{
		Enabled:       uc.Enabled,
		Addr:          addr,
		ActivePage:    page,
		AccessToken:   strings.TrimSpace(uc.AccessToken),
		AllowInsecure: uc.AllowInsecure,
		Pprof:         uc.Pprof,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   60 * time.Second,
	}, nil
}
