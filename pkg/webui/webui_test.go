package webui

import (
	"strings"
	"testing"
)

func TestInitials(t *testing.T) {
	cases := []struct {
		full, user string
		want       string
		ok         bool
	}{
		{"Amina Yusuf Bello", "amina", "AB", true},
		{"  khalid  ", "", "KH", true},
		{"", "zainab", "ZA", true},
		{"", "q", "Q", true},
		{"   ", "  ", "", false},
		{"élodie martin", "", "ÉM", true},
	}
	for _, tc := range cases {
		got, ok := Initials(tc.full, tc.user)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Initials(%q,%q) = %q,%v want %q,%v", tc.full, tc.user, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDisplayNameAndRoles(t *testing.T) {
	if n, ok := DisplayName(" Amina Yusuf ", "amina"); !ok || n != "Amina Yusuf" {
		t.Fatalf("DisplayName = %q", n)
	}
	if n, _ := DisplayName("", "amina"); n != "amina" {
		t.Fatalf("DisplayName fallback = %q", n)
	}
	if _, ok := DisplayName("", ""); ok {
		t.Fatalf("expected absent display name")
	}
	if RoleLabel("") != "User" || RoleLabel("cashier") != "Cashier" {
		t.Fatalf("RoleLabel = %q / %q", RoleLabel(""), RoleLabel("cashier"))
	}
	if HeaderRoleLabel("admin") != "Administrator" || HeaderRoleLabel("tailor") != "Tailor" {
		t.Fatalf("HeaderRoleLabel mismatch")
	}
}

func TestAvatarNeverShowsPlaceholder(t *testing.T) {
	got := Avatar("userAvatar", "", "").String()
	if !strings.Contains(got, "avatar-neutral") || !strings.Contains(got, "<svg") {
		t.Fatalf("neutral avatar = %s", got)
	}
	got = Avatar("userAvatar", "<b>Eve</b> Doe", "").String()
	if !strings.Contains(got, "avatar-initials") || !strings.Contains(got, ">&lt;D<") {
		t.Fatalf("initials avatar = %s", got)
	}
}

func TestSidebarHidesAdminOnly(t *testing.T) {
	nonAdmin := Sidebar(SidebarProps{ActivePath: "/orders", Role: "tailor", LogoutAction: "/ui/logout"}).String()
	if strings.Contains(nonAdmin, "/staff") {
		t.Fatalf("staff link visible to non-admin")
	}
	if !strings.Contains(nonAdmin, `<a href="/orders" class="active">`) {
		t.Fatalf("active page not marked: %s", nonAdmin)
	}
	admin := Sidebar(SidebarProps{Role: "admin"}).String()
	if !strings.Contains(admin, `href="/staff" class="nav-admin-only"`) {
		t.Fatalf("staff link missing for admin: %s", admin)
	}
}

func TestThemeButton(t *testing.T) {
	if ThemeIcon("light") != "🌙" || ThemeIcon("dark") != "☀️" || ThemeIcon("") != "☀️" {
		t.Fatalf("ThemeIcon mismatch")
	}
	if ThemeTitle("light") != "Switch to dark mode" || ThemeTitle("dark") != "Switch to light mode" {
		t.Fatalf("ThemeTitle mismatch")
	}
	btn := ThemeToggle("dark", "/ui/theme/toggle").String()
	if !strings.Contains(btn, `id="themeToggle"`) || !strings.Contains(btn, `action="/ui/theme/toggle"`) {
		t.Fatalf("ThemeToggle = %s", btn)
	}
}

func TestBellHidesZeroBadge(t *testing.T) {
	got := Bell{ToggleAction: "/ui/notifications/toggle"}.Render().String()
	if !strings.Contains(got, `id="notificationBadge" style="display:none"`) {
		t.Fatalf("badge visible at zero: %s", got)
	}
	got = Bell{BadgeText: "99+", BadgeVisible: true, PanelOpen: true, ListEmpty: true}.Render().String()
	if !strings.Contains(got, `>99+</span>`) || !strings.Contains(got, `notification-panel show`) ||
		!strings.Contains(got, `notification-list notification-panel-empty`) {
		t.Fatalf("bell = %s", got)
	}
}

func TestEscAndJoin(t *testing.T) {
	if Esc(`<a href="x">`) != `&lt;a href=&#34;x&#34;&gt;` {
		t.Fatalf("Esc = %s", Esc(`<a href="x">`))
	}
	if JoinH(",", "a", " ", "b") != "a,b" {
		t.Fatalf("JoinH skipped wrong parts")
	}
	if Classes("", "a", " b ") != "a b" {
		t.Fatalf("Classes = %q", Classes("", "a", " b "))
	}
}
