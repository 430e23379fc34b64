package httpui

import (
	"strings"

	"abjad/internal/notice"
	"abjad/internal/tokenstore"
	"abjad/internal/view"
	"abjad/pkg/webui"
)

const (
	defaultActivePage = "/dashboard"

	actionToggle = "/ui/notifications/toggle"
	actionTheme  = "/ui/theme/toggle"
	actionLogout = "/ui/logout"
	actionAlerts = "/ui/settings/low-stock"
)

const baseCSS = `body{margin:0;font-family:system-ui,sans-serif;display:flex}
[data-theme=dark] body{background:#111827;color:#e5e7eb}
[data-theme=light] body{background:#f9fafb;color:#111827}
.sidebar{width:220px;min-height:100vh;background:#1f2937;color:#fff;padding:1rem}
.sidebar a{display:block;padding:.5rem 1rem;color:inherit;text-decoration:none;border-radius:8px}
.sidebar a.active{background:rgba(255,255,255,.12)}
.main{flex:1}
.top-header{display:flex;justify-content:space-between;align-items:center;padding:.75rem 1rem}
.top-header-right{display:flex;gap:.75rem;align-items:center}
.inline-form{display:inline}
.notification-wrap{position:relative}
.notification-panel{display:none;position:absolute;right:0;width:320px;background:inherit;border:1px solid #374151;border-radius:8px;padding:.5rem}
.notification-panel.show{display:block}
.notification-item-read{opacity:.6}
.notification-panel-empty{padding:1rem;text-align:center;opacity:.8}
.toast{padding:.5rem 1rem;margin:.5rem;border-radius:6px}
.toast-success{background:#065f46}.toast-error{background:#7f1d1d}.toast-info{background:#1e3a8a}`

type pageData struct {
	User       tokenstore.User
	State      view.State
	ActivePage string

	LowStockShown   bool
	LowStockEnabled bool
}

func renderPage(d pageData) string {
	active := d.ActivePage
	if active == "" {
		active = defaultActivePage
	}
	st := d.State

	header := webui.Header(webui.HeaderProps{
		FullName:    d.User.FullName,
		Username:    d.User.Username,
		Role:        d.User.Role,
		Theme:       st.Theme,
		ThemeAction: actionTheme,
		Bell: webui.Bell{
			BadgeText:    st.BadgeText,
			BadgeVisible: st.BadgeVisible,
			PanelOpen:    st.PanelOpen,
			List:         st.List,
			ListEmpty:    st.ListEmpty,
			ToggleAction: actionToggle,
		},
	})
	sidebar := webui.Sidebar(webui.SidebarProps{
		ActivePath:   active,
		FullName:     d.User.FullName,
		Username:     d.User.Username,
		Role:         d.User.Role,
		LogoutAction: actionLogout,
	})

	main := header + renderNotices(st.Notices)
	if d.LowStockShown {
		main += renderLowStockSetting(d.LowStockEnabled)
	}
	body := sidebar + webui.Div("main", main)
	return document(st.Theme, body)
}

// renderLowStockSetting posts the opposite of the current value.
func renderLowStockSetting(enabled bool) webui.H {
	label, next := "Turn on low stock alerts", "true"
	if enabled {
		label, next = "Turn off low stock alerts", "false"
	}
	return webui.Raw(`<form method="post" action="` + actionAlerts + `" class="inline-form settings-low-stock">` +
		`<input type="hidden" name="enabled" value="` + next + `">` +
		`<button type="submit">` + string(webui.Esc(label)) + `</button></form>`)
}

func renderSignedOut(st view.State) string {
	body := webui.Div("main",
		webui.Tag("h1", "", webui.Esc("Signed out"))+
			webui.Tag("p", "", webui.Esc("Your session has ended. Sign in again at "+st.Location+"."))+
			renderNotices(st.Notices))
	return document(st.Theme, body)
}

func renderNotices(ns []notice.Notice) webui.H {
	if len(ns) == 0 {
		return ""
	}
	parts := make([]webui.H, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, webui.Div("toast toast-"+string(n.Kind), webui.Esc(n.Text)))
	}
	return webui.Div("toasts", webui.JoinH("", parts...))
}

func document(theme string, body webui.H) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="en" data-theme="` + string(webui.Esc(theme)) + `"><head><meta charset="utf-8">`)
	b.WriteString(`<title>Tailor Shop</title><style>` + baseCSS + `</style></head><body>`)
	b.WriteString(body.String())
	b.WriteString(`</body></html>`)
	return b.String()
}
