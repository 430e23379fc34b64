package settings

import (
	"context"
	"testing"

	"abjad/internal/storage"
	logx "abjad/pkg/logx"
)

func TestLowStockDefaultsToEnabled(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := New(kv, logx.Nop())

	if !s.LowStockEnabled() {
		t.Fatalf("absent prefs should enable low stock alerts")
	}
	_ = kv.Set(ctx, KeyNotifications, "{broken")
	if !s.LowStockEnabled() {
		t.Fatalf("unparsable prefs should enable low stock alerts")
	}
	_ = kv.Set(ctx, KeyNotifications, `{"email":true}`)
	if !s.LowStockEnabled() {
		t.Fatalf("prefs without lowStock should enable low stock alerts")
	}
}

func TestSetLowStock(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	s := New(kv, logx.Nop())

	if err := s.SetLowStock(ctx, false); err != nil {
		t.Fatal(err)
	}
	if s.LowStockEnabled() {
		t.Fatalf("expected disabled")
	}
	raw, _, _ := kv.Get(ctx, KeyNotifications)
	if raw != `{"lowStock":false}` {
		t.Fatalf("persisted = %s", raw)
	}
	_ = s.SetLowStock(ctx, true)
	if !s.LowStockEnabled() {
		t.Fatalf("expected enabled")
	}
}

func TestThemeDefaultsAndToggle(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory(), logx.Nop())

	if s.Theme() != ThemeDark {
		t.Fatalf("default theme = %q", s.Theme())
	}
	next, err := s.ToggleTheme(ctx)
	if err != nil || next != ThemeLight || s.Theme() != ThemeLight {
		t.Fatalf("toggle -> %q err=%v", next, err)
	}
	next, _ = s.ToggleTheme(ctx)
	if next != ThemeDark {
		t.Fatalf("second toggle -> %q", next)
	}
	if got, _ := s.SetTheme(ctx, "sepia"); got != ThemeDark {
		t.Fatalf("unknown theme normalized to %q", got)
	}
}
