// Package store provides durable, crash-safe persistence for the sync
// engine's state document: mappings, tombstones, and the change-since
// watermark.
//
// Writes are crash-atomic — serialize to a sibling temp file, best-effort
// copy the previous version to a .bak sibling, then atomic rename onto
// the target path — so a crash mid-write never leaves state.json
// truncated or partially written. A missing file loads as the empty
// default state; a malformed one is a fatal error, never silently wiped.
package store
