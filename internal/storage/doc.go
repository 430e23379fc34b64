// Package storage is the client's persistent key-value layer.
//
// It plays the role the browser's localStorage plays for the portal scripts:
// small string values (session token, cached profile, preferences) keyed by
// name. Drivers:
//   - "memory": process-local map, lost on exit
//   - "file": JSON snapshot + append-only JSONL journal
//   - "sqlite": single-table SQLite database (modernc.org/sqlite, no cgo)
package storage
