package webui

const (
	themeLight = "light"

	iconMoon = "🌙"
	iconSun  = "☀️"
)

// ThemeIcon shows the moon in light mode and the sun in dark mode, i.e. the
// mode a click switches to.
func ThemeIcon(theme string) string {
	if theme == themeLight {
		return iconMoon
	}
	return iconSun
}

func ThemeTitle(theme string) string {
	if theme == themeLight {
		return "Switch to dark mode"
	}
	return "Switch to light mode"
}

// ThemeToggle renders the header theme button. It posts to action.
func ThemeToggle(theme, action string) H {
	return H(`<form method="post" action="` + string(Esc(action)) + `" class="inline-form">` +
		`<button type="submit" class="header-icon" id="themeToggle" title="` + string(Esc(ThemeTitle(theme))) + `" aria-label="Theme">` +
		ThemeIcon(theme) + `</button></form>`)
}
