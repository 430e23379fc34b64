package webui

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PersonIcon is shown instead of initials when no name is known.
const PersonIcon H = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M20 21v-2a4 4 0 0 0-4-4H8a4 4 0 0 0-4 4v2"/><circle cx="12" cy="7" r="4"/></svg>`

// Initials derives avatar initials: first and last word initials for a
// multi-word name, the first two letters of a single word, else the first two
// letters of the username. ok is false when neither is usable.
func Initials(fullName, username string) (string, bool) {
	if parts := strings.Fields(fullName); len(parts) > 0 {
		if len(parts) >= 2 {
			return strings.ToUpper(firstRunes(parts[0], 1) + firstRunes(parts[len(parts)-1], 1)), true
		}
		return strings.ToUpper(firstRunes(parts[0], 2)), true
	}
	if un := strings.TrimSpace(username); un != "" {
		return strings.ToUpper(firstRunes(un, 2)), true
	}
	return "", false
}

// DisplayName is the trimmed full name, else the username.
func DisplayName(fullName, username string) (string, bool) {
	if n := strings.TrimSpace(fullName); n != "" {
		return n, true
	}
	if un := strings.TrimSpace(username); un != "" {
		return un, true
	}
	return "", false
}

// RoleLabel capitalizes the role's first letter; an empty role is "User".
func RoleLabel(role string) string {
	if role == "" {
		role = "user"
	}
	return capitalize(role)
}

// Avatar renders the avatar element with the given id: initials when known,
// the neutral person icon otherwise. Placeholder initials are never shown.
func Avatar(id, fullName, username string) H {
	initials, ok := Initials(fullName, username)
	class, inner := "user-avatar avatar-neutral", PersonIcon
	if ok {
		class, inner = "user-avatar avatar-initials", Esc(initials)
	}
	return H(`<div class="` + class + `" id="` + string(Esc(id)) + `">` + string(inner) + `</div>`)
}

func firstRunes(s string, n int) string {
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
