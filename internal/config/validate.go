package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks fields that can be verified without other packages.
// Schedule strings are validated by the app's validator hook.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url: invalid url %q", base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: unsupported scheme %q", u.Scheme)
	}

	durations := []struct{ path, raw string }{
		{"api.timeout", cfg.API.Timeout},
		{"notifications.panel_open_delay", cfg.Notifications.PanelOpenDelay},
		{"notifications.request_timeout", cfg.Notifications.RequestTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"ui.read_timeout", cfg.UI.ReadTimeout},
		{"ui.write_timeout", cfg.UI.WriteTimeout},
	}
	if cfg.Notices != nil {
		durations = append(durations,
			struct{ path, raw string }{"notices.dedup_window", cfg.Notices.DedupWindow},
			struct{ path, raw string }{"notices.display_timeout", cfg.Notices.DisplayTimeout},
		)
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if lp := strings.TrimSpace(cfg.API.LoginPath); lp != "" && !strings.HasPrefix(lp, "/") {
		return fmt.Errorf("api.login_path must start with '/': %q", lp)
	}
	return nil
}
