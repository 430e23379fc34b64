// Package httpui serves the portal shell on a local address.
//
// The shell renders the page from the view document and maps form posts to
// engine, theme and session operations:
//
//	GET  /                             page (or a signed-out page)
//	POST /ui/notifications/toggle      bell click
//	POST /ui/notifications/{id}/read   mark one alert read
//	POST /ui/notifications/read-all    mark all alerts read
//	POST /ui/theme/toggle              flip light/dark
//	POST /ui/settings/low-stock        enabled=true|false, then refresh
//	POST /ui/logout                    clear the session
//	GET  /ui/state                     JSON snapshot
//	GET  /healthz                      liveness
//
// Every POST answers 303 See Other back to /. With Pprof set, net/http/pprof
// is mounted under /debug/pprof/.
package httpui
