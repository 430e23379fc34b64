// Package notifications is the low-stock notification engine.
//
// It periodically fetches unread low-stock alerts for the signed-in user,
// keeps the bell badge count current, renders the alert list into the panel
// when the panel is open, and performs the mark-as-read mutations followed by
// a refresh.
//
// State computation (Summarize, BadgeText, BuildRows, RenderPanel) is pure.
// Side effects are confined to four optional regions (Badge, List, Panel,
// Trigger); a nil region is skipped. Network and auth failures degrade to an
// empty badge and never reach the caller.
package notifications
