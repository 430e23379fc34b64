package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"abjad/pkg/webui"
)

// Panel messages.
const (
	MsgDisabled  = "Low stock alerts are turned off in Settings."
	MsgEmpty     = "No low stock alerts. Items are tracked when quantity is 5 or below."
	MsgLoadError = "Unable to load alerts."

	defaultName = "Item"
	defaultUnit = "pcs"
)

// Style hooks.
const (
	ClassEmpty    = "notification-panel-empty"
	ClassItemRead = "notification-item-read"
)

// ID is an alert id. The backend sends numbers; strings are accepted too.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("alert id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Quantity accepts a JSON number or numeric string; null and garbage are 0.
type Quantity float64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*q = 0
		return nil
	}
	*q = Quantity(f)
	return nil
}

func (q Quantity) String() string { return strconv.FormatFloat(float64(q), 'f', -1, 64) }

// Alert is one inventory item at or below the low-stock threshold.
type Alert struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
	Unit     string   `json:"unit"`
	ItemType string   `json:"item_type,omitempty"`
	Read     bool     `json:"read"`
}

// Response is the GET /notifications/low-stock payload.
type Response struct {
	Alerts      []Alert `json:"alerts"`
	UnreadCount *int    `json:"unread_count"`
}

// Summary is the derived state of one successful fetch.
type Summary struct {
	Alerts      []Alert `json:"alerts"`
	UnreadCount int     `json:"unread_count"`
	// LocalUnread is the count of unread alerts in Alerts.
	LocalUnread int `json:"local_unread"`
	// CountMismatch is set when the server count disagrees with LocalUnread.
	CountMismatch bool `json:"count_mismatch,omitempty"`
}

// Summarize prefers the server's unread_count and falls back to counting
// unread alerts.
func Summarize(resp Response) Summary {
	alerts := resp.Alerts
	if alerts == nil {
		alerts = []Alert{}
	}
	local := 0
	for _, a := range alerts {
		if !a.Read {
			local++
		}
	}
	s := Summary{Alerts: alerts, UnreadCount: local, LocalUnread: local}
	if resp.UnreadCount != nil {
		s.UnreadCount = *resp.UnreadCount
		s.CountMismatch = s.UnreadCount != local
	}
	return s
}

// BadgeText is "" for zero (badge hidden), the count up to 99, then "99+".
func BadgeText(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

// Row is one rendered panel entry.
type Row struct {
	ID       ID
	Name     string
	Quantity string
	Unit     string
	Read     bool
}

// QtyLine is "<qty> <unit> remaining".
func (r Row) QtyLine() string { return r.Quantity + " " + r.Unit + " remaining" }

// BuildRows applies display defaults and keeps input order.
func BuildRows(alerts []Alert) []Row {
	rows := make([]Row, 0, len(alerts))
	for _, a := range alerts {
		r := Row{ID: a.ID, Name: a.Name, Quantity: a.Quantity.String(), Unit: a.Unit, Read: a.Read}
		if r.Name == "" {
			r.Name = defaultName
		}
		if r.Unit == "" {
			r.Unit = defaultUnit
		}
		rows = append(rows, r)
	}
	return rows
}

// Content is what the list region shows.
type Content struct {
	HTML  webui.H
	Empty bool
}

// MessageContent is a single message with the empty style hook.
func MessageContent(msg string) Content {
	return Content{HTML: webui.Div(ClassEmpty, webui.Esc(msg)), Empty: true}
}

// RenderPanel renders the alert list. markReadAction formats the per-row
// action URL from an id; markAllAction is the mark-all URL.
func RenderPanel(alerts []Alert, markReadAction func(ID) string, markAllAction string) Content {
	if len(alerts) == 0 {
		return MessageContent(MsgEmpty)
	}

	var (
		b      strings.Builder
		unread int
	)
	for _, r := range BuildRows(alerts) {
		b.WriteString(`<div class="` + webui.Classes("notification-item", readClass(r.Read)) + `" data-id="` + string(webui.Esc(string(r.ID))) + `">`)
		b.WriteString(webui.Div("notification-item-name", webui.Esc(r.Name)).String())
		b.WriteString(webui.Div("notification-item-qty", webui.Esc(r.QtyLine())).String())
		if !r.Read {
			unread++
			b.WriteString(actionButton(markReadAction(r.ID), "notification-item-mark-read", "", string(r.ID), "Mark as read"))
		}
		b.WriteString(`</div>`)
	}
	if unread > 0 {
		b.WriteString(`<div class="notification-panel-actions">`)
		b.WriteString(actionButton(markAllAction, "btn btn-secondary btn-sm", "notificationMarkAllRead", "", "Mark all as read"))
		b.WriteString(`</div>`)
	}
	return Content{HTML: webui.H(b.String())}
}

func readClass(read bool) string {
	if read {
		return ClassItemRead
	}
	return ""
}

func actionButton(action, class, id, dataID, label string) string {
	var b strings.Builder
	b.WriteString(`<form method="post" action="` + string(webui.Esc(action)) + `" class="inline-form">`)
	b.WriteString(`<button type="submit" class="` + class + `"`)
	if id != "" {
		b.WriteString(` id="` + id + `"`)
	}
	if dataID != "" {
		b.WriteString(` data-id="` + string(webui.Esc(dataID)) + `"`)
	}
	b.WriteString(`>` + string(webui.Esc(label)) + `</button></form>`)
	return b.String()
}
