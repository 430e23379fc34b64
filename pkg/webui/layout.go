package webui

import "strings"

const (
	brand     = "Tailor Shop"
	roleAdmin = "admin"
)

// NavPage is one sidebar entry.
type NavPage struct {
	Href      string
	Icon      string
	Label     string
	AdminOnly bool
}

// NavPages is the sidebar in display order.
var NavPages = []NavPage{
	{Href: "/dashboard", Icon: "📊", Label: "Dashboard"},
	{Href: "/customers", Icon: "👥", Label: "Customers"},
	{Href: "/orders", Icon: "📦", Label: "Orders"},
	{Href: "/measurements", Icon: "📏", Label: "Measurements"},
	{Href: "/payments", Icon: "💳", Label: "Payments"},
	{Href: "/stock", Icon: "📦", Label: "Stock"},
	{Href: "/tasks", Icon: "✅", Label: "Tasks"},
	{Href: "/reports", Icon: "📈", Label: "Reports"},
	{Href: "/staff", Icon: "👤", Label: "Staff", AdminOnly: true},
}

// HeaderRoleLabel is "Administrator" for admins, the capitalized role otherwise.
func HeaderRoleLabel(role string) string {
	if role == roleAdmin {
		return "Administrator"
	}
	return RoleLabel(role)
}

// Bell is the notification button, badge and panel state.
type Bell struct {
	BadgeText    string
	BadgeVisible bool
	PanelOpen    bool
	List         H
	ListEmpty    bool
	// ToggleAction is the form action that opens/closes the panel.
	ToggleAction string
}

// Render draws the bell with the ids the notification engine regions map to.
func (b Bell) Render() H {
	badgeStyle := ""
	if !b.BadgeVisible {
		badgeStyle = ` style="display:none"`
	}
	panelClass := Classes("notification-panel", when(b.PanelOpen, "show"))
	listClass := Classes("notification-list", when(b.ListEmpty, "notification-panel-empty"))

	var s strings.Builder
	s.WriteString(`<div class="notification-wrap">`)
	s.WriteString(`<form method="post" action="` + string(Esc(b.ToggleAction)) + `" class="inline-form">`)
	s.WriteString(`<button type="submit" class="header-icon" id="notificationBtn" title="Notifications">🔔`)
	s.WriteString(`<span class="notification-badge" id="notificationBadge"` + badgeStyle + `>` + string(Esc(b.BadgeText)) + `</span>`)
	s.WriteString(`</button></form>`)
	s.WriteString(`<div class="` + panelClass + `" id="notificationPanel">`)
	s.WriteString(`<div class="` + listClass + `" id="notificationList">` + b.List.String() + `</div>`)
	s.WriteString(`</div></div>`)
	return H(s.String())
}

// HeaderProps feeds Header.
type HeaderProps struct {
	FullName    string
	Username    string
	Role        string
	Theme       string
	ThemeAction string
	Bell        Bell
}

// Header renders the top bar: brand, theme toggle, notification bell and the
// user profile.
func Header(p HeaderProps) H {
	name, ok := DisplayName(p.FullName, p.Username)
	if !ok {
		name = "User"
	}
	profile := Div("user-profile",
		Avatar("userAvatar", p.FullName, p.Username)+
			Div("user-info",
				H(`<div class="user-name" id="userName">`)+Esc(name)+H(`</div>`)+
					H(`<div class="user-role" id="userRole">`)+Esc(HeaderRoleLabel(p.Role))+H(`</div>`)))

	left := Div("top-header-left",
		Raw(`<button class="menu-toggle" id="menuToggle">☰</button>`)+
			Div("logo", Esc(brand)))
	right := Div("top-header-right",
		JoinH("", ThemeToggle(p.Theme, p.ThemeAction), p.Bell.Render(), profile))

	return Tag("header", "top-header", left+right)
}

// SidebarProps feeds Sidebar.
type SidebarProps struct {
	ActivePath   string
	FullName     string
	Username     string
	Role         string
	LogoutAction string
}

// Sidebar renders the nav. Admin-only entries are omitted for other roles.
func Sidebar(p SidebarProps) H {
	var nav strings.Builder
	for _, pg := range NavPages {
		if pg.AdminOnly && p.Role != roleAdmin {
			continue
		}
		class := Classes(when(p.ActivePath == pg.Href, "active"), when(pg.AdminOnly, "nav-admin-only"))
		nav.WriteString(`<a href="` + string(Esc(pg.Href)) + `"`)
		if class != "" {
			nav.WriteString(` class="` + class + `"`)
		}
		nav.WriteString(`>` + pg.Icon + " " + string(Esc(pg.Label)) + `</a>`)
	}

	name, _ := DisplayName(p.FullName, p.Username)
	user := Div("sidebar-user",
		Avatar("sidebarUserAvatar", p.FullName, p.Username)+
			H(`<div class="sidebar-user-name" id="sidebarUserName">`)+Esc(name)+H(`</div>`)+
			H(`<div class="sidebar-user-role" id="sidebarUserRole">`)+Esc(RoleLabel(p.Role))+H(`</div>`))

	bottom := Div("sidebar-bottom",
		H(`<form method="post" action="`+string(Esc(p.LogoutAction))+`" class="inline-form">`)+
			Raw(`<button type="submit" class="sidebar-logout" id="logout">🚪 Logout</button></form>`))

	return H(`<aside class="sidebar" id="sidebar">`) +
		Tag("h2", "", Esc(brand)) + user +
		Tag("nav", "", H(nav.String())) + bottom +
		H(`</aside>`)
}

func when(cond bool, class string) string {
	if cond {
		return class
	}
	return ""
}
