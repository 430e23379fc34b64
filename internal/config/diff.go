package config

import (
	"reflect"
	"strings"

	logx "abjad/pkg/logx"
)

// SummarizeChange lists the top-level sections that differ between two configs,
// plus safe fields for logging. Base URLs are logged; nothing here is secret.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 8)

	if !reflect.DeepEqual(oldCfg.API, newCfg.API) {
		changed = append(changed, "api")
		attrs = append(attrs, logx.String("api.base_url", strings.TrimSpace(newCfg.API.BaseURL)))
	}
	if !reflect.DeepEqual(oldCfg.Notifications, newCfg.Notifications) {
		changed = append(changed, "notifications")
		attrs = append(attrs,
			logx.String("notifications.poll_interval", newCfg.Notifications.PollInterval),
			logx.String("notifications.panel_open_delay", newCfg.Notifications.PanelOpenDelay),
		)
	}
	if !reflect.DeepEqual(oldCfg.Notices, newCfg.Notices) {
		changed = append(changed, "notices")
		attrs = append(attrs, logx.Bool("notices.enabled", newCfg.Notices == nil || newCfg.Notices.Enabled))
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		// Storage is opened once at startup; a change needs a restart.
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newCfg.Storage.Driver))
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs, logx.String("logging.level", newCfg.Logging.Level))
	}
	if !reflect.DeepEqual(oldCfg.UI, newCfg.UI) {
		changed = append(changed, "ui")
		attrs = append(attrs, logx.Bool("ui.enabled", newCfg.UI.Enabled), logx.String("ui.addr", newCfg.UI.Addr))
	}
	return changed, attrs
}
