package webui

import (
	"html"
	"strings"
)

// H is HTML that is safe to write to a page as-is.
type H string

func (h H) String() string { return string(h) }

// Esc escapes text for HTML content and quoted attribute values.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks a string as already-safe HTML.
// Use sparingly.
func Raw(s string) H { return H(s) }

// Tag renders <name class="class">inner</name>. An empty class omits the attribute.
func Tag(name, class string, inner H) H {
	var b strings.Builder
	b.WriteString("<" + name)
	if class != "" {
		b.WriteString(` class="` + string(Esc(class)) + `"`)
	}
	b.WriteString(">" + inner.String() + "</" + name + ">")
	return H(b.String())
}

// Div is Tag("div", ...).
func Div(class string, inner H) H { return Tag("div", class, inner) }

// Classes joins non-empty class names with a single space.
func Classes(names ...string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// JoinH joins safe HTML parts with sep, skipping blank parts.
func JoinH(sep string, parts ...H) H {
	if len(parts) == 0 {
		return ""
	}
	ss := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		ss = append(ss, p.String())
	}
	return H(strings.Join(ss, sep))
}
