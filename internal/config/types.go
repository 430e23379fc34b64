package config

// Config is the on-disk client configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	API           APIConfig           `json:"api"`
	Notifications NotificationsConfig `json:"notifications"`
	Notices       *NoticesConfig      `json:"notices,omitempty"`
	Storage       StorageConfig       `json:"storage"`
	Logging       LoggingConfig       `json:"logging"`
	UI            UIConfig            `json:"ui"`
}

// APIConfig points the client at the portal backend.
//
// Example:
//
//	"api": { "base_url": "https://shop.example.com", "timeout": "15s" }
type APIConfig struct {
	BaseURL   string `json:"base_url"`
	Timeout   string `json:"timeout,omitempty"`    // default: "15s"
	LoginPath string `json:"login_path,omitempty"` // default: "/login"
}

// NotificationsConfig controls the low-stock notification widget.
//
// PollInterval accepts anything the schedule parser does: "60s", "01:00",
// "@every 1m" or a cron expression. Default: "60s".
type NotificationsConfig struct {
	PollInterval   string `json:"poll_interval,omitempty"`
	PanelOpenDelay string `json:"panel_open_delay,omitempty"` // default: "150ms"
	RequestTimeout string `json:"request_timeout,omitempty"`  // per fetch; default: api.timeout
}

// NoticesConfig controls the transient notice ("toast") pipeline.
// If the whole section is omitted, notices are enabled with defaults.
type NoticesConfig struct {
	Enabled        bool   `json:"enabled"`
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	DedupWindow    string `json:"dedup_window,omitempty"`
	DisplayTimeout string `json:"display_timeout,omitempty"` // default: "3s"
	HistorySize    int    `json:"history_size,omitempty"`
}

// StorageConfig selects where session and preferences persist.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data/portal" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// UIConfig controls the local HTTP shell.
//
// Security note: the shell has no auth of its own; bind it to loopback.
type UIConfig struct {
	Enabled      bool   `json:"enabled"`
	Addr         string `json:"addr,omitempty"`        // default: "127.0.0.1:8787"
	ActivePage   string `json:"active_page,omitempty"` // default: "/dashboard"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`

	// A non-loopback addr requires AccessToken or AllowInsecure.
	AccessToken   string `json:"access_token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Pprof mounts net/http/pprof under /debug/pprof/.
	Pprof bool `json:"pprof,omitempty"`
}
