package notifications

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "empty", raw: "", kind: SpecInterval, source: "default", duration: 60 * time.Second},
		{name: "duration", raw: "30s", kind: SpecInterval, source: "duration", duration: 30 * time.Second},
		{name: "hhmm", raw: "00:05", kind: SpecInterval, source: "hhmm", duration: 5 * time.Minute},
		{name: "prefixed interval", raw: "every:2m", kind: SpecInterval, source: "duration", duration: 2 * time.Minute},
		{name: "descriptor", raw: "@every 45s", kind: SpecCron, source: "cron"},
		{name: "cron", raw: "*/2 * * * *", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:@hourly", kind: SpecCron, source: "cron"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if _, err := got.schedule(); err != nil {
				t.Fatalf("schedule(): %v", err)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"soon", "0s", "interval:", "00:75", "cron:", "@every banana", "61 * * * *"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) should fail", raw)
		}
	}
}
